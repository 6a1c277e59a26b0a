package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type analyzeRequest struct {
	Audio     string `json:"audio"`
	SessionID string `json:"session_id"`
}

type voiceFeatures struct {
	Pitch   string `json:"pitch"`
	Pace    string `json:"pace"`
	Energy  string `json:"energy"`
	Clarity string `json:"clarity"`
}

type analyzeResponse struct {
	Emotion       string        `json:"emotion"`
	Confidence    float64       `json:"confidence"`
	VoiceFeatures voiceFeatures `json:"voice_features"`
	Analysis      string        `json:"analysis"`
}

var emotions = []string{"happy", "sad", "angry", "nervous", "confident", "calm", "excited", "neutral"}

func analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		http.Error(w, "Invalid base64 audio", http.StatusBadRequest)
		return
	}

	log.Printf("Received chunk: session=%s audio_bytes=%d", req.SessionID, len(audio))

	// Simulate model inference latency
	time.Sleep(time.Duration(500+rand.Intn(1500)) * time.Millisecond)

	resp := analyzeResponse{
		Emotion:    emotions[rand.Intn(len(emotions))],
		Confidence: 0.5 + rand.Float64()*0.5,
		VoiceFeatures: voiceFeatures{
			Pitch:   "medium",
			Pace:    "normal",
			Energy:  "moderate",
			Clarity: "clear",
		},
		Analysis: fmt.Sprintf("Mock analysis of %d bytes of audio", len(audio)),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
	log.Printf("Responded: session=%s emotion=%s confidence=%.2f", req.SessionID, resp.Emotion, resp.Confidence)
}

func endSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	log.Printf("Session ended: session=%s", req.SessionID)
	w.WriteHeader(http.StatusOK)
}

func main() {
	http.HandleFunc("/api/analyze-chunk", analyzeHandler)
	http.HandleFunc("/api/end-session", endSessionHandler)

	addr := ":9090"
	log.Printf("Mock analysis backend listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
