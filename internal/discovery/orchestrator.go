package discovery

import (
	"context"
	"sort"
	"time"

	"videointel/internal/models"
)

const (
	defaultMaxResults = 30
	absoluteMaxResults = 50
	defaultMinQuality = 30.0
	maxLanguages      = 6
	maxChannelRepeats = 2
)

// Orchestrator composes the reformulator, searcher, scorer, and trusted
// picker into the full discovery flow (spec.md §4.9).
type Orchestrator struct {
	reformulator *Reformulator
	searcher     *Searcher
	scorer       *Scorer
	trusted      *TrustedPicker
}

func NewOrchestrator(reformulator *Reformulator, searcher *Searcher, scorer *Scorer, trusted *TrustedPicker) *Orchestrator {
	return &Orchestrator{reformulator: reformulator, searcher: searcher, scorer: scorer, trusted: trusted}
}

// Discover runs the full pipeline: reformulate, fan out searches, dedupe,
// score, diversify, and guarantee a trusted pick.
func (o *Orchestrator) Discover(ctx context.Context, req models.DiscoveryRequest) models.DiscoveryResult {
	start := time.Now()

	languages := req.Languages
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	if len(languages) > maxLanguages {
		languages = languages[:maxLanguages]
	}
	primaryLang := languages[0]

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > absoluteMaxResults {
		maxResults = absoluteMaxResults
	}
	minQuality := req.MinQuality
	if minQuality <= 0 {
		minQuality = defaultMinQuality
	}
	durationType := req.DurationType
	if durationType == "" {
		durationType = models.DurationDefault
	}

	reformulated := o.reformulator.Reformulate(ctx, req.Query, primaryLang)

	var tasks []searchTask
	variants := reformulated
	if len(variants) > 2 {
		variants = variants[:2]
	}
	for _, lang := range languages {
		for _, q := range variants {
			tasks = append(tasks, searchTask{query: q, language: lang})
		}
	}
	for _, lang := range languages[1:] {
		translated := o.reformulator.TranslateQuery(ctx, req.Query, primaryLang, lang)
		if translated != req.Query {
			tasks = append(tasks, searchTask{query: translated, language: lang})
		}
	}

	found := o.searcher.searchParallel(ctx, tasks)

	dedup := make(map[string]models.VideoCandidate, len(found))
	for _, v := range found {
		if _, exists := dedup[v.VideoID]; !exists {
			dedup[v.VideoID] = models.VideoCandidate{VideoMetadata: v}
		}
	}
	totalSearched := len(dedup)

	candidates := make([]models.VideoCandidate, 0, len(dedup))
	for _, c := range dedup {
		candidates = append(candidates, c)
	}

	candidates = o.scorer.ScoreBatch(ctx, candidates, req.Query, durationType)

	filtered := candidates[:0:0]
	for _, c := range candidates {
		if c.FinalScore >= minQuality {
			filtered = append(filtered, c)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].FinalScore > filtered[j].FinalScore })

	final := diversify(filtered, languages, maxResults)
	final = o.ensureTrustedPick(ctx, final, req.Query, maxResults)

	videosPerLanguage := make(map[string]int, len(languages))
	for _, c := range final {
		lang := c.DetectedLanguage
		if lang == "" || lang == "unknown" {
			lang = c.SearchLanguage
		}
		videosPerLanguage[lang]++
	}

	return models.DiscoveryResult{
		Candidates:          final,
		ReformulatedQueries: reformulated,
		TotalSearched:       totalSearched,
		LanguagesSearched:   languages,
		VideosPerLanguage:   videosPerLanguage,
		SearchDurationMs:    time.Since(start).Milliseconds(),
	}
}

// diversify walks the sorted candidate list twice: a strict pass enforcing
// both the per-channel and per-language caps, then a language-cap-relaxed
// second pass that only enforces the channel cap — modeled as two sequential
// list walks per original_source's IntelligentDiscoveryService.discover
// (SPEC_FULL §12), not a single constrained sort.
func diversify(sorted []models.VideoCandidate, languages []string, maxResults int) []models.VideoCandidate {
	maxPerLanguage := maxResults / len(languages)
	if maxPerLanguage < 5 {
		maxPerLanguage = 5
	}
	target := maxResults - 1 // reserve a slot for the trusted-pick splice

	channelCounts := make(map[string]int)
	languageCounts := make(map[string]int)
	included := make(map[string]bool)
	var final []models.VideoCandidate

	for _, c := range sorted {
		lang := c.DetectedLanguage
		if lang == "" || lang == "unknown" {
			lang = c.SearchLanguage
		}
		if channelCounts[c.ChannelID] < maxChannelRepeats && languageCounts[lang] < maxPerLanguage {
			final = append(final, c)
			included[c.VideoID] = true
			channelCounts[c.ChannelID]++
			languageCounts[lang]++
			if len(final) >= target {
				return final
			}
		}
	}

	if len(final) < target {
		for _, c := range sorted {
			if included[c.VideoID] {
				continue
			}
			if channelCounts[c.ChannelID] < maxChannelRepeats {
				final = append(final, c)
				included[c.VideoID] = true
				channelCounts[c.ChannelID]++
				if len(final) >= target {
					break
				}
			}
		}
	}
	return final
}

// ensureTrustedPick implements spec.md §4.9 step 8: if none of the top 5
// candidates is a trusted pick, splice one in at position 3.
func (o *Orchestrator) ensureTrustedPick(ctx context.Context, final []models.VideoCandidate, query string, maxResults int) []models.VideoCandidate {
	top := final
	if len(top) > 5 {
		top = top[:5]
	}
	for _, c := range top {
		if c.IsTrustedPick {
			return final
		}
	}

	existingIDs := make([]string, len(final))
	for i, c := range final {
		existingIDs[i] = c.VideoID
	}
	pick, ok := o.trusted.Pick(ctx, query, existingIDs)
	if !ok {
		return final
	}
	pick.FinalScore = 100.0
	pick.IsTrustedPick = true

	insertPos := 2
	if insertPos > len(final) {
		insertPos = len(final)
	}
	final = append(final, models.VideoCandidate{})
	copy(final[insertPos+1:], final[insertPos:])
	final[insertPos] = pick

	if len(final) > maxResults {
		final = final[:maxResults]
	}
	return final
}
