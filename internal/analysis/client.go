package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/voxmood/emotion-audio-service/internal/capture"
)

// ErrMalformedResponse marks a response the backend returned with an
// unexpected shape. Callers treat it like any other transport failure: the
// chunk is lost but the session continues.
var ErrMalformedResponse = errors.New("malformed analysis response")

// Config contains analysis backend client configuration.
type Config struct {
	BaseURL string        // backend base URL, e.g. https://api.example.com
	APIKey  string        // bearer token, optional
	Timeout time.Duration // per-request timeout
}

// Client is the HTTP client for the emotion analysis backend. Audio is sent
// base64-encoded in a JSON body together with the originating session id.
type Client struct {
	config     Config
	httpClient *http.Client

	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// ClientStats represents client statistics for monitoring.
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// analyzeRequest is the wire format of an analysis submission.
type analyzeRequest struct {
	Audio     string `json:"audio"` // base64 WAV container
	SessionID string `json:"session_id"`
}

// endSessionRequest notifies the backend that a session is over.
type endSessionRequest struct {
	SessionID string `json:"session_id"`
}

// NewClient creates an analysis backend client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// AnalyzeChunk submits one chunk for emotion analysis. There is no retry:
// the chunk's audio interval is gone either way, and the backend is
// rate-limited, so a failed chunk is reported and abandoned.
func (c *Client) AnalyzeChunk(ctx context.Context, chunk *capture.Chunk) (*Result, error) {
	startTime := time.Now()
	c.countRequest()

	result, err := c.doAnalyze(ctx, chunk)
	if err != nil {
		c.countFailure()
		return nil, err
	}

	result.Elapsed = time.Since(startTime)
	c.countSuccess(result.Elapsed)
	return result, nil
}

func (c *Client) doAnalyze(ctx context.Context, chunk *capture.Chunk) (*Result, error) {
	payload, err := json.Marshal(analyzeRequest{
		Audio:     base64.StdEncoding.EncodeToString(chunk.Data),
		SessionID: chunk.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	respBody, err := c.post(ctx, "/api/analyze-chunk", payload)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Emotion       string        `json:"emotion"`
		Confidence    float64       `json:"confidence"`
		VoiceFeatures VoiceFeatures `json:"voice_features"`
		Analysis      string        `json:"analysis"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Emotion == "" {
		return nil, fmt.Errorf("%w: missing emotion field", ErrMalformedResponse)
	}

	result := &Result{
		Emotion:       NormalizeEmotion(raw.Emotion),
		Confidence:    clampConfidence(raw.Confidence),
		VoiceFeatures: raw.VoiceFeatures,
		Analysis:      raw.Analysis,
		SessionID:     chunk.SessionID,
		ReceivedAt:    time.Now(),
	}
	fillDefaultFeatures(&result.VoiceFeatures)

	return result, nil
}

// EndSession tells the backend the session is over. Best-effort: the caller
// tears down locally regardless of the outcome.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	payload, err := json.Marshal(endSessionRequest{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to encode end-session request: %w", err)
	}

	if _, err := c.post(ctx, "/api/end-session", payload); err != nil {
		return err
	}
	return nil
}

// post performs one JSON POST against the backend and returns the body of a
// 2xx response.
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// GetStats returns current client statistics.
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
	}
}

func (c *Client) countRequest() {
	c.mu.Lock()
	c.totalRequests++
	c.mu.Unlock()
}

func (c *Client) countSuccess(responseTime time.Duration) {
	c.mu.Lock()
	c.successRequests++
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
	c.mu.Unlock()
}

func (c *Client) countFailure() {
	c.mu.Lock()
	c.failedRequests++
	c.mu.Unlock()
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// fillDefaultFeatures substitutes neutral values for feature fields the
// backend left empty.
func fillDefaultFeatures(f *VoiceFeatures) {
	if f.Pitch == "" {
		f.Pitch = "medium"
	}
	if f.Pace == "" {
		f.Pace = "moderate"
	}
	if f.Energy == "" {
		f.Energy = "moderate"
	}
	if f.Clarity == "" {
		f.Clarity = "good"
	}
}
