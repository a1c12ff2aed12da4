package discovery

import (
	"context"
	"testing"
)

func TestTrustedPicker_NoAPIConfiguredFallsBackToSeeds(t *testing.T) {
	p := NewTrustedPicker("", "")
	pick, ok := p.Pick(context.Background(), "physics", nil)
	if !ok {
		t.Fatal("expected a seed fallback pick")
	}
	if pick.VideoID != trustedPickSeeds[0].VideoID {
		t.Fatalf("expected first seed, got %q", pick.VideoID)
	}
}

func TestTrustedPicker_ExcludesAlreadyPresentSeeds(t *testing.T) {
	p := NewTrustedPicker("", "")
	excluded := []string{trustedPickSeeds[0].VideoID}
	pick, ok := p.Pick(context.Background(), "physics", excluded)
	if !ok {
		t.Fatal("expected a fallback to the second seed")
	}
	if pick.VideoID != trustedPickSeeds[1].VideoID {
		t.Fatalf("expected second seed after excluding the first, got %q", pick.VideoID)
	}
}

func TestTrustedPicker_AllSeedsExcludedReturnsFalse(t *testing.T) {
	p := NewTrustedPicker("", "")
	excluded := make([]string, 0, len(trustedPickSeeds))
	for _, s := range trustedPickSeeds {
		excluded = append(excluded, s.VideoID)
	}
	_, ok := p.Pick(context.Background(), "physics", excluded)
	if ok {
		t.Fatal("expected no pick when every seed is excluded and no API is configured")
	}
}
