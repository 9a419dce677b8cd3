// Package models defines the data structures flowing through the pipeline.
package models

// RecognitionEvent is one hypothesis delivered by the speech recognizer.
// Interim events carry the full current hypothesis for the in-progress
// utterance and are replaced wholesale by the next interim event.
type RecognitionEvent struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"isFinal"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Segment is one committed, sequence-numbered unit of recognized speech.
// Sequence is strictly increasing per session and is the sole ordering key
// for every downstream stage.
type Segment struct {
	Sequence int64  `json:"sequence"`
	Text     string `json:"text"`
}

// TranslationResult is the translated form of a Segment. Completion order
// across results is not guaranteed to match Sequence order.
type TranslationResult struct {
	Sequence       int64  `json:"sequence"`
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
	// Audio holds a synthesized WAV clip when speech synthesis is enabled.
	Audio []byte `json:"-"`
}

// CaptionPartial is the live-caption event published while an utterance is
// still in progress. It carries no sequence number: the text is transient
// and will be superseded or committed by a later flush.
type CaptionPartial struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// TranslationCompleted is the event published when a translated segment is
// released to the session sink.
type TranslationCompleted struct {
	EventType      string `json:"eventType"`
	SessionID      string `json:"sessionId"`
	Timestamp      int64  `json:"timestamp"`
	Sequence       int64  `json:"sequence"`
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
	TargetLanguage string `json:"targetLanguage"`
	HasAudio       bool   `json:"hasAudio"`
}
