package analysis

import "time"

// Emotion is one of the canonical emotion labels the service reports.
type Emotion string

const (
	EmotionHappy      Emotion = "happy"
	EmotionSad        Emotion = "sad"
	EmotionAngry      Emotion = "angry"
	EmotionFearful    Emotion = "fearful"
	EmotionSurprised  Emotion = "surprised"
	EmotionNeutral    Emotion = "neutral"
	EmotionCalm       Emotion = "calm"
	EmotionConfident  Emotion = "confident"
	EmotionNervous    Emotion = "nervous"
	EmotionExcited    Emotion = "excited"
	EmotionFrustrated Emotion = "frustrated"
)

// emotionSynonyms maps the free-form labels the model may emit onto the
// canonical set. Unknown labels fall back to neutral.
var emotionSynonyms = map[string]Emotion{
	"happy": EmotionHappy, "joyful": EmotionHappy, "pleased": EmotionHappy, "cheerful": EmotionHappy,
	"sad": EmotionSad, "unhappy": EmotionSad, "sorrowful": EmotionSad, "melancholy": EmotionSad,
	"angry": EmotionAngry,
	"frustrated": EmotionFrustrated, "irritated": EmotionFrustrated,
	"fearful": EmotionFearful, "afraid": EmotionFearful,
	"anxious": EmotionNervous, "worried": EmotionNervous,
	"surprised": EmotionSurprised, "shocked": EmotionSurprised, "amazed": EmotionSurprised,
	"neutral": EmotionNeutral,
	"calm":    EmotionCalm, "relaxed": EmotionCalm, "peaceful": EmotionCalm,
	"confident": EmotionConfident, "assured": EmotionConfident, "certain": EmotionConfident,
	"nervous": EmotionNervous, "tense": EmotionNervous, "uneasy": EmotionNervous,
	"excited": EmotionExcited, "enthusiastic": EmotionExcited, "energetic": EmotionExcited,
}

// NormalizeEmotion maps a model-reported label onto the canonical enum.
func NormalizeEmotion(label string) Emotion {
	if e, ok := emotionSynonyms[label]; ok {
		return e
	}
	return EmotionNeutral
}

// VoiceFeatures carries the acoustic characteristics reported by the
// backend, surfaced verbatim. Each field is drawn from a small enumeration
// (pitch: high/medium/low, pace: fast/moderate/slow, energy:
// high/moderate/low, clarity: excellent/good/fair/poor).
type VoiceFeatures struct {
	Pitch   string `json:"pitch"`
	Pace    string `json:"pace"`
	Energy  string `json:"energy"`
	Clarity string `json:"clarity"`
}

// Result is one emotion analysis produced by the remote backend for a chunk.
type Result struct {
	Emotion       Emotion       `json:"emotion"`
	Confidence    float64       `json:"confidence"`
	VoiceFeatures VoiceFeatures `json:"voice_features"`
	Analysis      string        `json:"analysis"`

	SessionID  string        `json:"session_id,omitempty"`
	ReceivedAt time.Time     `json:"received_at,omitempty"`
	Elapsed    time.Duration `json:"-"` // round-trip time of the backend call
}

// DefaultResult is the neutral fallback used when the backend response
// cannot be interpreted.
func DefaultResult() *Result {
	return &Result{
		Emotion:    EmotionNeutral,
		Confidence: 0.5,
		VoiceFeatures: VoiceFeatures{
			Pitch:   "medium",
			Pace:    "moderate",
			Energy:  "moderate",
			Clarity: "good",
		},
		Analysis: "Could not analyze audio. Please ensure clear speech is present.",
	}
}
