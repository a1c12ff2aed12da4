package chat

import (
	"strings"
	"testing"

	"videointel/internal/models"
)

func TestClassifyQuestion_DetectsYesNoStarter(t *testing.T) {
	if classifyQuestion("Does the video mention pricing?") != classYesNo {
		t.Fatalf("expected yes/no classification")
	}
}

func TestClassifyQuestion_DetectsSummaryRequest(t *testing.T) {
	if classifyQuestion("Can you summarize the key points?") != classSummary {
		t.Fatalf("expected summary classification")
	}
}

func TestClassifyQuestion_DetectsFactualWhQuestion(t *testing.T) {
	if classifyQuestion("What tool did they use to edit this?") != classFactual {
		t.Fatalf("expected factual classification")
	}
}

func TestClassifyQuestion_EmptyQuestionIsGeneric(t *testing.T) {
	if classifyQuestion("   ") != classGeneric {
		t.Fatalf("expected generic classification for empty input")
	}
}

func TestStripCannedPhrases_RemovesKnownBoilerplate(t *testing.T) {
	out := stripCannedPhrases("Certainly! Here is your answer. I hope this helps!")
	if strings.Contains(out, "Certainly!") || strings.Contains(out, "I hope this helps!") {
		t.Fatalf("expected canned phrases stripped, got %q", out)
	}
}

func TestFormatHistory_TruncatesToLastSixMessages(t *testing.T) {
	history := make([]models.ChatMessage, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, models.ChatMessage{Role: models.RoleUser, Content: strings.Repeat("x", 1)})
	}
	out := formatHistory(history)
	if strings.Count(out, "x") != historyMessageCount {
		t.Fatalf("expected %d messages retained, got content %q", historyMessageCount, out)
	}
}

func TestFormatHistory_EmptyHistoryReturnsPlaceholder(t *testing.T) {
	if formatHistory(nil) != "(no prior messages)" {
		t.Fatalf("expected placeholder for empty history")
	}
}

func TestTruncateChars_LeavesShortStringUnchanged(t *testing.T) {
	if truncateChars("short", 100) != "short" {
		t.Fatalf("expected unchanged string")
	}
}

func TestTruncateChars_CutsAtLimit(t *testing.T) {
	if got := truncateChars("abcdefgh", 4); got != "abcd" {
		t.Fatalf("expected truncated string, got %q", got)
	}
}

func TestBuildSystemPrompt_UsesExpertModeTranscriptLength(t *testing.T) {
	summary := models.Summary{VideoTitle: "Title", SummaryContent: "summary", TranscriptContext: strings.Repeat("a", 30000)}
	prompt := buildSystemPrompt(summary, models.ModeExpert, "what happened?", nil)
	if !strings.Contains(prompt, strings.Repeat("a", 25000)) {
		t.Fatalf("expected transcript truncated to expert mode length")
	}
}

func TestBuildSystemPrompt_FallsBackToStandardModeForUnknownMode(t *testing.T) {
	summary := models.Summary{VideoTitle: "Title", SummaryContent: "summary", TranscriptContext: "transcript"}
	prompt := buildSystemPrompt(summary, models.Mode("unknown"), "what happened?", nil)
	if !strings.Contains(prompt, modeGuidelines[models.ModeStandard]) {
		t.Fatalf("expected standard mode guideline fallback")
	}
}

func TestCompactSearchContext_IncludesTitleAndTruncatedSummary(t *testing.T) {
	summary := models.Summary{VideoTitle: "My Video", SummaryContent: strings.Repeat("b", 2000)}
	out := compactSearchContext(summary)
	if !strings.HasPrefix(out, "My Video") {
		t.Fatalf("expected title prefix, got %q", out[:20])
	}
	if len(out) > len("My Video")+1+1500 {
		t.Fatalf("expected summary truncated to 1500 chars")
	}
}
