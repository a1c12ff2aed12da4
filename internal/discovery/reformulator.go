// Package discovery implements the video-discovery pipeline: query
// reformulation, bounded-parallel search, multi-axis quality scoring, and a
// diversified, trusted-pick-guaranteed result assembly (spec.md §4.9-4.10).
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"videointel/pkg/llm"
)

const reformulateTimeout = 15 * time.Second

const reformulateSystemPrompt = `You help find high-quality educational YouTube videos. Given a user's search query, produce up to 5 alternative search queries in %s that favor academic, documentary, and expert-interview language and avoid sensational phrasing. Respond with strict JSON: {"queries": ["...", ...]}. Output only the JSON, nothing else.

Query: %s`

// academicSuffixes is the heuristic fallback's language-specific suffix pair,
// grounded on original_source's `_fallback_reformulation` (MistralReprompt).
var academicSuffixes = map[string][2]string{
	"en": {"analysis", "documentary"},
	"fr": {"analyse", "documentaire"},
	"de": {"analyse", "dokumentation"},
	"es": {"análisis", "documental"},
	"pt": {"análise", "documentário"},
	"it": {"analisi", "documentario"},
}

// crossLanguageHint appends the other language's word for the query so that
// at least one variant searches outside the primary language.
var crossLanguageHint = map[string]string{
	"en": "english",
	"fr": "français",
	"de": "deutsch",
	"es": "español",
	"pt": "português",
	"it": "italiano",
}

// staticTranslations is the small table consulted before falling back to an
// LLM call in translateQuery (spec.md §4.10).
var staticTranslations = map[string]map[string]string{
	"climate change": {"fr": "changement climatique", "de": "klimawandel", "es": "cambio climático"},
	"artificial intelligence": {"fr": "intelligence artificielle", "de": "künstliche intelligenz", "es": "inteligencia artificial"},
}

// Reformulator expands a conversational query into search-optimized
// variants, favoring an LLM call but degrading to a deterministic heuristic
// on any failure (spec.md §4.10, grounded on
// api_consultant/internal/chat/query_rewriter.go's fail-open pattern).
type Reformulator struct {
	llm llm.Provider
}

func NewReformulator(provider llm.Provider) *Reformulator {
	return &Reformulator{llm: provider}
}

// Reformulate returns up to 5 variant queries in the given language.
func (r *Reformulator) Reformulate(ctx context.Context, query, language string) []string {
	if r == nil || r.llm == nil {
		return r.fallback(query, language)
	}

	ctx, cancel := context.WithTimeout(ctx, reformulateTimeout)
	defer cancel()

	prompt := fmt.Sprintf(reformulateSystemPrompt, language, query)
	stream, err := r.llm.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return r.fallback(query, language)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return r.fallback(query, language)
		}
		sb.WriteString(chunk.Content)
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	raw := strings.TrimSpace(sb.String())
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || len(parsed.Queries) == 0 {
		return r.fallback(query, language)
	}
	if len(parsed.Queries) > 5 {
		parsed.Queries = parsed.Queries[:5]
	}
	return parsed.Queries
}

// fallback implements spec.md §4.9 step 1's heuristic: append a
// language-specific academic suffix twice, then the cross-language hint.
func (r *Reformulator) fallback(query, language string) []string {
	suffixes, ok := academicSuffixes[language]
	if !ok {
		suffixes = academicSuffixes["en"]
	}
	variants := []string{
		fmt.Sprintf("%s %s", query, suffixes[0]),
		fmt.Sprintf("%s %s", query, suffixes[1]),
	}
	other := "en"
	if language == "en" {
		other = "fr"
	}
	if hint, ok := crossLanguageHint[other]; ok {
		variants = append(variants, fmt.Sprintf("%s %s", query, hint))
	}
	return variants
}

// TranslateQuery consults the static translation table first, only invoking
// the LLM on a miss (spec.md §4.10).
func (r *Reformulator) TranslateQuery(ctx context.Context, text, from, to string) string {
	if table, ok := staticTranslations[strings.ToLower(text)]; ok {
		if translated, ok := table[to]; ok {
			return translated
		}
	}
	if r == nil || r.llm == nil {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, reformulateTimeout)
	defer cancel()

	prompt := fmt.Sprintf("Translate this search query from %s to %s. Respond with only the translated text, nothing else.\n\nQuery: %s", from, to, text)
	stream, err := r.llm.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return text
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return text
		}
		sb.WriteString(chunk.Content)
	}
	translated := strings.TrimSpace(sb.String())
	if translated == "" {
		return text
	}
	return translated
}
