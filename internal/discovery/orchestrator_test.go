package discovery

import (
	"testing"

	"videointel/internal/models"
)

func candidate(id, channel, lang string, score float64) models.VideoCandidate {
	return models.VideoCandidate{
		VideoMetadata: models.VideoMetadata{VideoID: id, ChannelID: channel, DetectedLanguage: lang},
		FinalScore:    score,
	}
}

func TestDiversify_EnforcesChannelCap(t *testing.T) {
	sorted := []models.VideoCandidate{
		candidate("v1", "chanA", "en", 90),
		candidate("v2", "chanA", "en", 85),
		candidate("v3", "chanA", "en", 80),
		candidate("v4", "chanB", "en", 75),
	}
	final := diversify(sorted, []string{"en"}, 10)

	fromChanA := 0
	for _, c := range final {
		if c.ChannelID == "chanA" {
			fromChanA++
		}
	}
	if fromChanA > maxChannelRepeats {
		t.Fatalf("expected at most %d from a single channel, got %d", maxChannelRepeats, fromChanA)
	}
	found := false
	for _, c := range final {
		if c.VideoID == "v4" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the 4th candidate (different channel) to fill the freed slot")
	}
}

func TestDiversify_RelaxedSecondPassFillsRemainingSlots(t *testing.T) {
	// 2 languages each capped at max(max_results/langs, 5) = 5 in the
	// strict pass; the second pass should top up using only the channel cap.
	var sorted []models.VideoCandidate
	for i := 0; i < 2; i++ {
		sorted = append(sorted, candidate("en-chanX-"+string(rune('a'+i)), "chanX", "en", 90-float64(i)))
	}
	for i := 0; i < 20; i++ {
		sorted = append(sorted, candidate("fr-chan"+string(rune('a'+i)), "chanFR"+string(rune('a'+i)), "fr", 50-float64(i)))
	}
	final := diversify(sorted, []string{"en", "fr"}, 10)
	if len(final) != 9 { // maxResults - 1 reserved for the trusted-pick splice
		t.Fatalf("expected 9 results (maxResults-1), got %d", len(final))
	}
}

func TestDiversify_ReservesOneSlotForTrustedPickSplice(t *testing.T) {
	var sorted []models.VideoCandidate
	for i := 0; i < 20; i++ {
		sorted = append(sorted, candidate("v"+string(rune('a'+i)), "chan"+string(rune('a'+i)), "en", 100-float64(i)))
	}
	final := diversify(sorted, []string{"en"}, 10)
	if len(final) != 9 {
		t.Fatalf("expected diversify to stop one short of maxResults, got %d", len(final))
	}
}
