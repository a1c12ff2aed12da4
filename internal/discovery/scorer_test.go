package discovery

import (
	"testing"
	"time"

	"videointel/internal/models"
)

func TestRelevanceScore_TitleOnlyMatchEarnsBonus(t *testing.T) {
	c := &models.VideoCandidate{VideoMetadata: models.VideoMetadata{
		Title:       "Climate Change Explained",
		Description: "an unrelated description",
		Channel:     "Some Channel",
	}}
	score, matched := relevanceScore(c, "climate change")
	if len(matched) != 2 {
		t.Fatalf("expected both tokens matched, got %v", matched)
	}
	if score < 0.9 {
		t.Fatalf("expected title-bonus to push score near 1.0, got %f", score)
	}
}

func TestRelevanceScore_DescriptionOnlyMatchGetsNoBonus(t *testing.T) {
	c := &models.VideoCandidate{VideoMetadata: models.VideoMetadata{
		Title:       "A Totally Different Topic",
		Description: "this video discusses climate change in depth",
		Channel:     "Some Channel",
	}}
	score, _ := relevanceScore(c, "climate change")
	// description-only hits score at weight*0.5 per token, well under the
	// title-bonus-boosted ~1.0 a full title match would produce.
	if score >= 0.9 {
		t.Fatalf("expected no title bonus for a description-only match, got %f", score)
	}
}

func TestRelevanceScore_SynonymMatchesInTitle(t *testing.T) {
	c := &models.VideoCandidate{VideoMetadata: models.VideoMetadata{
		Title: "Understanding the Coronavirus Pandemic",
	}}
	_, matched := relevanceScore(c, "covid")
	if len(matched) != 1 {
		t.Fatalf("expected synonym match via coronavirus, got %v", matched)
	}
}

func TestRelevanceScore_NoTokensAboveLengthThresholdScoresZero(t *testing.T) {
	c := &models.VideoCandidate{VideoMetadata: models.VideoMetadata{Title: "anything"}}
	score, matched := relevanceScore(c, "a i")
	if score != 0 || matched != nil {
		t.Fatalf("expected zero score for all-short-token query, got %f %v", score, matched)
	}
}

func TestPatternScore_CapsAtOne(t *testing.T) {
	text := "SHOCKING!!! YOU WON'T BELIEVE THIS INSANE BREAKING NEWS"
	score := patternScore(text, clickbaitPatterns)
	if score > 1.0 {
		t.Fatalf("expected pattern score capped at 1.0, got %f", score)
	}
	if score == 0 {
		t.Fatal("expected at least one clickbait pattern to match")
	}
}

func TestEngagementScore_BlendsLikeRatioWhenPresent(t *testing.T) {
	viewOnly := engagementScore(1_000_000, 0)
	withLikes := engagementScore(1_000_000, 50_000)
	if withLikes == viewOnly {
		t.Fatalf("expected like ratio to change the score: viewOnly=%f withLikes=%f", viewOnly, withLikes)
	}
}

func TestEngagementScore_ZeroViewsScoresZero(t *testing.T) {
	if got := engagementScore(0, 0); got != 0 {
		t.Fatalf("expected 0 for zero views, got %f", got)
	}
}

func TestFreshnessScore_RecentUploadScoresHighest(t *testing.T) {
	recent := freshnessScore(time.Now().Add(-2 * 24 * time.Hour))
	old := freshnessScore(time.Now().Add(-1000 * 24 * time.Hour))
	if recent <= old {
		t.Fatalf("expected recent upload to score higher: recent=%f old=%f", recent, old)
	}
}

func TestFreshnessScore_ZeroUploadDateIsNeutral(t *testing.T) {
	if got := freshnessScore(time.Time{}); got != 0.5 {
		t.Fatalf("expected neutral 0.5 for unknown upload date, got %f", got)
	}
}

func TestDurationFitScore_PerfectFitScoresOne(t *testing.T) {
	if got := durationFitScore(900, models.DurationMedium); got != 1.0 {
		t.Fatalf("expected 1.0 inside the optimal window, got %f", got)
	}
}

func TestDurationFitScore_TooShortDecaysTowardZero(t *testing.T) {
	got := durationFitScore(60, models.DurationMedium)
	if got <= 0 || got >= 1.0 {
		t.Fatalf("expected a partial score below the window, got %f", got)
	}
}

func TestDurationFitScore_TooLongDecaysTowardZero(t *testing.T) {
	got := durationFitScore(10000, models.DurationMedium)
	if got <= 0 || got >= 1.0 {
		t.Fatalf("expected a partial score above the window, got %f", got)
	}
}

func TestDetectLanguage_RequiresAtLeastThreeMatches(t *testing.T) {
	// only two French stopwords present ("les", "des") -> below the minimum
	// of three, so detection should fall back to unknown.
	if got := DetectLanguage("les quick brown des fox jumps"); got != "unknown" {
		t.Fatalf("expected unknown below the 3-match threshold, got %q", got)
	}
}

func TestDetectLanguage_DetectsFrenchAboveThreshold(t *testing.T) {
	text := "les chiens et les chats sont dans une maison avec cette histoire pour les enfants"
	if got := DetectLanguage(text); got != "fr" {
		t.Fatalf("expected fr, got %q", got)
	}
}

func TestCountSources_CapsAtTen(t *testing.T) {
	desc := ""
	for i := 0; i < 20; i++ {
		desc += "source: https://example.com/" + "study " // three pattern hits per iteration
	}
	if got := countSources(desc); got != 10 {
		t.Fatalf("expected count capped at 10, got %d", got)
	}
}

func TestFinalScore_ClickbaitPenaltyReducesScore(t *testing.T) {
	clean := models.VideoCandidate{Relevance: 0.8, ExternalQuality: 0.6, Academic: 0.5, Engagement: 0.5, Freshness: 0.5, DurationFit: 1.0}
	clickbaity := clean
	clickbaity.ClickbaitPenalty = 1.0
	if finalScore(clickbaity) >= finalScore(clean) {
		t.Fatalf("expected clickbait penalty to lower the final score")
	}
}
