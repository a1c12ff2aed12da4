package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"videointel/internal/cache"
	"videointel/internal/models"
)

const externalQualityNamespace = "trusted_score"
const maxConcurrentScoring = 10

// scoringWeights implements spec.md §4.7's final-score weighted sum, named
// and ordered to match intelligent_discovery_v4.py's SCORING_WEIGHTS table
// (SPEC_FULL §12).
var scoringWeights = struct {
	relevance, externalQuality, academic, engagement, freshness, duration, clickbait float64
}{
	relevance: 0.40, externalQuality: 0.20, academic: 0.15,
	engagement: 0.10, freshness: 0.08, duration: 0.07, clickbait: 0.10,
}

// clickbaitPatterns and academicPatterns are a rewritten, non-literal
// translation of intelligent_discovery_v4.py's CLICKBAIT_PATTERNS /
// ACADEMIC_INDICATORS (SPEC_FULL §12).
var clickbaitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z\s!?]{10,}$`),
	regexp.MustCompile(`🚨|⚠️|❌|✅|💥|🔥{2,}|😱|🤯`),
	regexp.MustCompile(`(?i)\b(shocking|insane|unbelievable|mind.?blow|crazy|epic fail|you won't believe)\b`),
	regexp.MustCompile(`(?i)\b(choquant|incroyable|fou|dingue|hallucinant)\b`),
	regexp.MustCompile(`\$\d{4,}`),
	regexp.MustCompile(`#\d+\s+(will|va)\s+`),
	regexp.MustCompile(`(?i)^\[?BREAKING\]?`),
}

var academicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(source|study|research|expert|professor|phd|dr\.)\b`),
	regexp.MustCompile(`(?i)\b(peer.?reviewed|academic|university|journal|paper)\b`),
	regexp.MustCompile(`(?i)\b(data|statistics|analysis|evidence)\b`),
	regexp.MustCompile(`(?i)\b(interview|conference|lecture)\b`),
	regexp.MustCompile(`(?i)\b(documentary|investigation)\b`),
}

// sourcePatterns backs detected_sources_count: pattern-counted references to
// an external source in a description.
var sourcePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)source\s*:`),
	regexp.MustCompile(`https?://`),
	regexp.MustCompile(`(?i)\b(study|paper|report)\b`),
}

// termSynonyms is the static synonym table used by the relevance axis
// (spec.md §4.7), grounded on intelligent_discovery_v4.py's TERM_SYNONYMS.
var termSynonyms = map[string][]string{
	"covid":       {"coronavirus", "covid-19", "pandemic"},
	"coronavirus": {"covid", "covid-19", "pandemic"},
	"ai":          {"artificial intelligence", "machine learning"},
	"climate":     {"climate change", "warming"},
}

// languageStopwords back §4.9 step 5's language-detection scorer.
var languageStopwords = map[string][]string{
	"en": {"the", "and", "for", "are", "but", "not", "you", "all", "can", "have", "this", "with"},
	"fr": {"les", "des", "une", "est", "sont", "dans", "pour", "avec", "que", "qui", "cette"},
	"de": {"und", "der", "die", "das", "ist", "sie", "wir", "mit", "auf", "für", "nicht"},
	"es": {"los", "las", "una", "del", "que", "con", "por", "para", "como", "pero"},
	"pt": {"uma", "com", "não", "que", "para", "mais", "como", "sua", "por"},
	"it": {"gli", "una", "che", "per", "con", "non", "sono", "come", "più"},
}

var optimalDurations = map[models.DurationType][2]int{
	models.DurationShort:   {180, 600},
	models.DurationMedium:  {600, 1800},
	models.DurationLong:    {1800, 5400},
	models.DurationDefault: {300, 3600},
}

// Scorer computes the six-axis quality score for a batch of candidates
// (spec.md §4.7).
type Scorer struct {
	httpClient   *http.Client
	ratingAPIURL string
	ratingAPIKey string
	cache        *cache.Store
	semaphore    chan struct{}
}

func NewScorer(ratingAPIURL, ratingAPIKey string, store *cache.Store) *Scorer {
	return &Scorer{
		httpClient:   &http.Client{Timeout: 3 * time.Second},
		ratingAPIURL: ratingAPIURL,
		ratingAPIKey: ratingAPIKey,
		cache:        store,
		semaphore:    make(chan struct{}, maxConcurrentScoring),
	}
}

// ScoreBatch scores every candidate in place and returns them, computing the
// external-quality axis under a bounded-concurrency semaphore (spec.md §4.7).
func (s *Scorer) ScoreBatch(ctx context.Context, candidates []models.VideoCandidate, query string, durationType models.DurationType) []models.VideoCandidate {
	type job struct {
		idx   int
		score float64
	}
	results := make(chan job, len(candidates))
	for i := range candidates {
		i := i
		go func() {
			s.semaphore <- struct{}{}
			defer func() { <-s.semaphore }()
			results <- job{i, s.externalQuality(ctx, candidates[i].VideoID)}
		}()
	}
	for range candidates {
		j := <-results
		candidates[j.idx].ExternalQuality = j.score
	}

	for i := range candidates {
		c := &candidates[i]
		if c.DetectedLanguage == "" {
			c.DetectedLanguage = DetectLanguage(c.Title + " " + truncate(c.Description, 200) + " " + c.Channel)
		}
		c.Relevance, c.MatchedQueryTerms = relevanceScore(c, query)
		c.Academic = patternScore(c.Title+" "+c.Description+" "+c.Channel, academicPatterns)
		c.Engagement = engagementScore(c.ViewCount, c.LikeCount)
		c.Freshness = freshnessScore(c.UploadDate)
		c.DurationFit = durationFitScore(c.DurationSeconds, durationType)
		c.ClickbaitPenalty = patternScore(c.Title, clickbaitPatterns)
		c.DetectedSourcesCount = countSources(c.Description)
		c.FinalScore = finalScore(*c)
		c.IsTrustedPick = c.ExternalQuality > 0.55
	}
	return candidates
}

func finalScore(c models.VideoCandidate) float64 {
	sum := c.Relevance*scoringWeights.relevance +
		c.ExternalQuality*scoringWeights.externalQuality +
		c.Academic*scoringWeights.academic +
		c.Engagement*scoringWeights.engagement +
		c.Freshness*scoringWeights.freshness +
		c.DurationFit*scoringWeights.duration
	score := sum*100 - scoringWeights.clickbait*100*c.ClickbaitPenalty
	return score
}

// externalQuality looks up a cached trusted_score; on miss, calls the rating
// API (absent key -> neutral 0.5, never attempted).
func (s *Scorer) externalQuality(ctx context.Context, videoID string) float64 {
	var cached float64
	if s.cache != nil && s.cache.Get(ctx, externalQualityNamespace, videoID, &cached) {
		return cached
	}
	if s.ratingAPIKey == "" || s.ratingAPIURL == "" {
		return 0.5
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/score/%s", s.ratingAPIURL, videoID), nil)
	if err != nil {
		return 0.5
	}
	req.Header.Set("Authorization", "Bearer "+s.ratingAPIKey)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0.5
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0.5
	}
	var out struct {
		Score float64 `json:"score"`
	}
	if jsonErr := json.NewDecoder(resp.Body).Decode(&out); jsonErr != nil || out.Score == 0 {
		return 0.5
	}
	normalized := (out.Score + 100) / 200
	if s.cache != nil {
		s.cache.Set(ctx, externalQualityNamespace, videoID, normalized, cache.TrustedScoreTTL)
	}
	return normalized
}

func relevanceScore(c *models.VideoCandidate, query string) (float64, []string) {
	tokens := strings.Fields(strings.ToLower(query))
	var weighted, total float64
	var matched []string

	title := strings.ToLower(c.Title)
	desc := strings.ToLower(truncate(c.Description, 200))
	channel := strings.ToLower(c.Channel)

	eligibleTokens := 0
	titleMatches := 0
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		eligibleTokens++
		weight := float64(len(tok)) / 10
		total += weight

		candidates := append([]string{tok}, termSynonyms[tok]...)
		var hit float64
		matchedInTitle := false
		for _, term := range candidates {
			if strings.Contains(title, term) {
				hit = math.Max(hit, 1.0)
				matchedInTitle = true
			}
			if strings.Contains(desc, term) {
				hit = math.Max(hit, 0.5)
			}
			if strings.Contains(channel, term) {
				hit = math.Max(hit, 0.3)
			}
		}
		if hit > 0 {
			weighted += weight * hit
			matched = append(matched, tok)
		}
		if matchedInTitle {
			titleMatches++
		}
	}

	if total == 0 {
		return 0, matched
	}
	score := weighted / total

	if eligibleTokens > 0 && titleMatches == eligibleTokens {
		score = math.Min(score+0.3, 1.0)
	}
	return math.Min(score, 1.0), matched
}

func patternScore(text string, patterns []*regexp.Regexp) float64 {
	var score float64
	for _, p := range patterns {
		if p.MatchString(text) {
			score += 0.2
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func engagementScore(views, likes int64) float64 {
	if views == 0 {
		return 0
	}
	viewScore := math.Min(math.Log10(float64(views)+1)/7, 1.0)
	if likes > 0 {
		likeRatio := math.Min(float64(likes)/float64(views)*20, 1.0)
		return (viewScore + likeRatio) / 2
	}
	return viewScore
}

func freshnessScore(uploadDate time.Time) float64 {
	if uploadDate.IsZero() {
		return 0.5
	}
	days := time.Since(uploadDate).Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.9
	case days <= 90:
		return 0.7
	case days <= 365:
		return 0.5
	case days <= 730:
		return 0.3
	default:
		return 0.1
	}
}

func durationFitScore(durationSeconds int, durationType models.DurationType) float64 {
	bounds, ok := optimalDurations[durationType]
	if !ok {
		bounds = optimalDurations[models.DurationDefault]
	}
	min, max := float64(bounds[0]), float64(bounds[1])
	d := float64(durationSeconds)
	switch {
	case d >= min && d <= max:
		return 1.0
	case d < min:
		if min == 0 {
			return 0
		}
		return d / min
	default:
		return math.Max(0, 1-(d-max)/max)
	}
}

func countSources(description string) int {
	count := 0
	for _, p := range sourcePatterns {
		count += len(p.FindAllString(description, -1))
	}
	if count > 10 {
		count = 10
	}
	return count
}

// DetectLanguage scores text against each language's stopword set, requiring
// at least 3 matches; else returns "unknown" (spec.md §4.9 step 5).
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)
	bestLang, bestCount := "unknown", 2
	for lang, words := range languageStopwords {
		count := 0
		for _, w := range words {
			if strings.Contains(lower, " "+w+" ") || strings.HasPrefix(lower, w+" ") {
				count++
			}
		}
		if count > bestCount {
			bestLang, bestCount = lang, count
		}
	}
	return bestLang
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
