package transcript

import (
	"strings"

	"videointel/internal/models"
)

// methodConfidence holds the prior confidence per extraction method, used
// when a method does not compute its own value.
var methodConfidence = map[models.ExtractionMethod]float64{
	models.MethodCaptionAPI:          0.95,
	models.MethodInnertube:           0.92,
	models.MethodWatchPageScrape:     0.85,
	models.MethodInvidious:           0.80,
	models.MethodPiped:               0.78,
	models.MethodWriteSubs:           0.93,
	models.MethodWriteAutoSubs:       0.80,
	models.MethodPaidTextBackup:      0.90,
	models.MethodLowLatencyWhisper:   0.88,
	models.MethodGeneralWhisper:      0.90,
	models.MethodStreamingTranscribe: 0.85,
	models.MethodAsyncPollTranscribe: 0.87,
}

// NewResult assembles a TranscriptResult from segments, preserving the
// invariant (spec.md §3): text equals the whitespace-joined segment texts,
// and text_timestamped is derived from them.
func NewResult(method models.ExtractionMethod, language string, isAuto bool, segments []models.Segment, extractionTimeMs int64) models.TranscriptResult {
	text := strings.Join(strings.Fields(JoinText(segments)), " ")
	confidence, ok := methodConfidence[method]
	if !ok {
		confidence = 0.75
	}
	return models.TranscriptResult{
		Text:             text,
		TextTimestamped:  GenerateTimestampedText(segments),
		Language:         language,
		Method:           method,
		IsAutoGenerated:  isAuto,
		Confidence:       confidence,
		Segments:         segments,
		ExtractionTimeMs: extractionTimeMs,
	}
}

// NewPlainTextResult builds a TranscriptResult from a flat transcript with no
// segment boundaries (used by whole-text providers, e.g. async-poll
// transcription responses that return only final text).
func NewPlainTextResult(method models.ExtractionMethod, language string, isAuto bool, text string, extractionTimeMs int64) models.TranscriptResult {
	confidence, ok := methodConfidence[method]
	if !ok {
		confidence = 0.75
	}
	normalized := strings.Join(strings.Fields(text), " ")
	return models.TranscriptResult{
		Text:             normalized,
		TextTimestamped:  normalized,
		Language:         language,
		Method:           method,
		IsAutoGenerated:  isAuto,
		Confidence:       confidence,
		ExtractionTimeMs: extractionTimeMs,
	}
}
