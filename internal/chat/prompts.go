package chat

import (
	"fmt"
	"strings"

	"videointel/internal/models"
)

// questionClass selects the format guide injected into the base-generation
// prompt (spec.md §4.11).
type questionClass string

const (
	classFactual      questionClass = "factual"
	classYesNo        questionClass = "yes_no"
	classSummary      questionClass = "summary"
	classDeepAnalysis questionClass = "deep_analysis"
	classGeneric      questionClass = "generic"
)

var yesNoStarters = []string{"is", "are", "was", "were", "does", "do", "did", "can", "could", "should", "will", "has", "have"}

// classifyQuestion picks a format guide bucket from the question's surface
// shape (spec.md §4.11 base generation).
func classifyQuestion(question string) questionClass {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return classGeneric
	}
	if strings.Contains(q, "summar") || strings.Contains(q, "tl;dr") || strings.Contains(q, "overview") {
		return classSummary
	}
	firstWord := strings.Fields(q)[0]
	for _, starter := range yesNoStarters {
		if firstWord == starter {
			return classYesNo
		}
	}
	switch {
	case strings.Contains(q, "why") || strings.Contains(q, "analy") || strings.Contains(q, "compare") || strings.Contains(q, "implication"):
		return classDeepAnalysis
	case strings.HasPrefix(q, "what") || strings.HasPrefix(q, "who") || strings.HasPrefix(q, "when") || strings.HasPrefix(q, "where") || strings.HasPrefix(q, "how many"):
		return classFactual
	default:
		return classGeneric
	}
}

var formatGuides = map[questionClass]string{
	classFactual:      "Answer directly and precisely, citing the specific detail the video states.",
	classYesNo:        "Lead with a clear yes/no/it-depends, then justify in 1-3 sentences.",
	classSummary:      "Produce a short structured overview covering the main points in order.",
	classDeepAnalysis: "Reason step by step, weighing multiple angles before concluding.",
	classGeneric:      "Answer conversationally, staying grounded in the video's content.",
}

// modeGuidelines are the mode-specific response-style instructions injected
// into the system prompt (spec.md §4.11).
var modeGuidelines = map[models.Mode]string{
	models.ModeAccessible: "Use plain, everyday language. Avoid jargon; explain any technical term you must use.",
	models.ModeStandard:   "Use clear, moderately detailed language suitable for a general audience.",
	models.ModeExpert:     "Use precise, technical language; assume subject-matter familiarity.",
}

// transcriptTruncation is the mode-based transcript truncation length from
// §4.11, supplemented by original_source chat/service.py's mode parameter
// per SPEC_FULL §12.
var transcriptTruncation = map[models.Mode]int{
	models.ModeAccessible: 8000,
	models.ModeStandard:   15000,
	models.ModeExpert:     25000,
}

const summaryTruncateChars = 4000
const historyMessageCount = 6

// cannedPhrases are stripped from the raw completion before it is returned
// (spec.md §4.11 base generation).
var cannedPhrases = []string{
	"Certainly! ",
	"Certainly, ",
	"Sure! ",
	"Sure, ",
	"I'd be happy to help.",
	"I'd be happy to help with that.",
	"As an AI language model, ",
	"Let me know if you have any other questions!",
	"Let me know if you have any other questions.",
	"Feel free to ask if you need anything else!",
	"I hope this helps!",
}

const systemPromptTemplate = `You are answering questions about the YouTube video "%s".

%s

%s

Video summary:
%s

Transcript excerpt:
%s

Recent conversation:
%s`

// buildSystemPrompt assembles the base-generation system prompt (spec.md
// §4.11): title, mode guidelines, a format guide selected by question class,
// the summary (truncated to 4000 chars), the transcript (truncated by mode),
// and the last 6 messages of chat history.
func buildSystemPrompt(summary models.Summary, mode models.Mode, question string, history []models.ChatMessage) string {
	guideline, ok := modeGuidelines[mode]
	if !ok {
		guideline = modeGuidelines[models.ModeStandard]
	}
	format := formatGuides[classifyQuestion(question)]
	truncLen, ok := transcriptTruncation[mode]
	if !ok {
		truncLen = transcriptTruncation[models.ModeStandard]
	}

	return fmt.Sprintf(systemPromptTemplate,
		summary.VideoTitle,
		guideline,
		format,
		truncateChars(summary.SummaryContent, summaryTruncateChars),
		truncateChars(summary.TranscriptContext, truncLen),
		formatHistory(history),
	)
}

func formatHistory(history []models.ChatMessage) string {
	if len(history) > historyMessageCount {
		history = history[len(history)-historyMessageCount:]
	}
	if len(history) == 0 {
		return "(no prior messages)"
	}
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimSpace(sb.String())
}

func truncateChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// stripCannedPhrases removes boilerplate LLM preamble/closing lines from a
// generated response (spec.md §4.11).
func stripCannedPhrases(response string) string {
	out := response
	for _, phrase := range cannedPhrases {
		out = strings.ReplaceAll(out, phrase, "")
	}
	return strings.TrimSpace(out)
}

// compactSearchContext builds the title + first-1500-chars-of-summary
// context passed to the fact-check search provider (spec.md §4.11
// Enrichment post-step).
func compactSearchContext(summary models.Summary) string {
	return summary.VideoTitle + "\n" + truncateChars(summary.SummaryContent, 1500)
}
