// Package models holds the core data types shared across the transcript,
// discovery, and chat components.
package models

import "time"

// ExtractionMethod identifies which of the twelve extraction methods below
// produced a TranscriptResult.
type ExtractionMethod string

const (
	MethodCaptionAPI         ExtractionMethod = "caption_api"
	MethodInnertube          ExtractionMethod = "innertube"
	MethodWatchPageScrape    ExtractionMethod = "watch_page_scrape"
	MethodInvidious          ExtractionMethod = "invidious"
	MethodPiped              ExtractionMethod = "piped"
	MethodWriteSubs          ExtractionMethod = "write_subs"
	MethodWriteAutoSubs      ExtractionMethod = "write_auto_subs"
	MethodPaidTextBackup     ExtractionMethod = "paid_text_backup"
	MethodLowLatencyWhisper  ExtractionMethod = "low_latency_whisper"
	MethodGeneralWhisper     ExtractionMethod = "general_whisper"
	MethodStreamingTranscribe ExtractionMethod = "streaming_transcribe"
	MethodAsyncPollTranscribe ExtractionMethod = "async_poll_transcribe"
)

// Segment is a single ordered transcript fragment.
type Segment struct {
	Text            string  `json:"text"`
	StartSeconds    float64 `json:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// TranscriptResult is the atomic output of extraction (§3 TranscriptResult).
type TranscriptResult struct {
	Text              string           `json:"text"`
	TextTimestamped   string           `json:"text_timestamped"`
	Language          string           `json:"language"`
	Method            ExtractionMethod `json:"method"`
	IsAutoGenerated   bool             `json:"is_auto_generated"`
	Confidence        float64          `json:"confidence"`
	Segments          []Segment        `json:"segments,omitempty"`
	ExtractionTimeMs  int64            `json:"extraction_time_ms"`
}

// VideoMetadata is the per-video record returned by the searcher (H).
type VideoMetadata struct {
	VideoID          string  `json:"video_id"`
	Title            string  `json:"title"`
	Channel          string  `json:"channel"`
	ChannelID        string  `json:"channel_id"`
	Description      string  `json:"description"`
	ThumbnailURL     string  `json:"thumbnail_url"`
	DurationSeconds  int     `json:"duration_seconds"`
	ViewCount        int64   `json:"view_count"`
	LikeCount        int64   `json:"like_count"`
	UploadDate       time.Time `json:"upload_date"`
	DetectedLanguage string  `json:"detected_language"`
	SearchLanguage   string  `json:"search_language"`
}

// VideoCandidate is VideoMetadata plus scoring state (§3 VideoCandidate).
type VideoCandidate struct {
	VideoMetadata

	Relevance        float64 `json:"relevance"`
	ExternalQuality  float64 `json:"external_quality"`
	Academic         float64 `json:"academic"`
	Engagement       float64 `json:"engagement"`
	Freshness        float64 `json:"freshness"`
	DurationFit      float64 `json:"duration_fit"`
	ClickbaitPenalty float64 `json:"clickbait_penalty"`
	FinalScore       float64 `json:"final_score"`

	IsTrustedPick         bool     `json:"is_trusted_pick"`
	MatchedQueryTerms     []string `json:"matched_query_terms"`
	DetectedSourcesCount  int      `json:"detected_sources_count"`
}

// MethodStats is the rolling per-method statistics window (§3 MethodStats).
type MethodStats struct {
	Method        ExtractionMethod `json:"method"`
	Success       int64            `json:"success"`
	Failure       int64            `json:"failure"`
	TotalTimeMs   int64            `json:"total_time_ms"`
	LastSuccessAt *time.Time       `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time       `json:"last_failure_at,omitempty"`
	ErrorTypes    map[string]int64 `json:"error_types"`
}

// Plan is a subscription tier, used to derive enrichment level and quotas.
type Plan string

const (
	PlanFree      Plan = "free"
	PlanStudent   Plan = "student"
	PlanStarter   Plan = "starter"
	PlanPro       Plan = "pro"
	PlanExpert    Plan = "expert"
	PlanTeam      Plan = "team"
	PlanUnlimited Plan = "unlimited"
)

// EnrichmentLevel gates how aggressively fact-checking may be invoked.
type EnrichmentLevel string

const (
	EnrichmentNone  EnrichmentLevel = "none"
	EnrichmentLight EnrichmentLevel = "light"
	EnrichmentFull  EnrichmentLevel = "full"
	EnrichmentDeep  EnrichmentLevel = "deep"
)

// Mode selects the response-style guidelines and transcript truncation
// length used by the base-generation prompt (§4.11, supplemented per
// original_source chat/service.py — see SPEC_FULL.md §12).
type Mode string

const (
	ModeAccessible Mode = "accessible"
	ModeStandard   Mode = "standard"
	ModeExpert     Mode = "expert"
)

// Summary is read-only for the core; owned by the surrounding system.
type Summary struct {
	ID                 string
	UserID             string
	VideoID            string
	VideoTitle         string
	SummaryContent     string
	TranscriptContext  string
	Language           string
}

// ChatRole distinguishes user and assistant chat messages.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is an append-only persisted chat turn (§3 ChatMessage).
type ChatMessage struct {
	ID               string
	UserID           string
	SummaryID        string
	Role             ChatRole
	Content          string
	WebSearchUsed    bool
	FactChecked      bool
	Sources          []Source
	EnrichmentLevel  EnrichmentLevel
	CreatedAt        time.Time
}

// Source is an external reference attached to an enriched assistant message.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DurationType selects the "optimal duration" window used by the duration-fit
// axis in §4.7.
type DurationType string

const (
	DurationShort   DurationType = "short"
	DurationMedium  DurationType = "medium"
	DurationLong    DurationType = "long"
	DurationDefault DurationType = "default"
)

// DiscoveryRequest is the input to the discovery orchestrator (§4.9).
type DiscoveryRequest struct {
	Query        string
	Languages    []string
	MaxResults   int
	MinQuality   float64
	DurationType DurationType
}

// DiscoveryResult is the discovery orchestrator's full response (§4.9 step 9,
// §6 POST /discovery).
type DiscoveryResult struct {
	Candidates          []VideoCandidate `json:"candidates"`
	ReformulatedQueries []string         `json:"reformulated_queries"`
	TotalSearched       int              `json:"total_searched"`
	LanguagesSearched   []string         `json:"languages_searched"`
	VideosPerLanguage   map[string]int   `json:"videos_per_language"`
	SearchDurationMs    int64            `json:"search_duration_ms"`
}
