package discovery

import (
	"context"
	"testing"
)

func TestReformulate_NilProviderUsesFallback(t *testing.T) {
	r := NewReformulator(nil)
	variants := r.Reformulate(context.Background(), "quantum computing", "en")
	if len(variants) != 3 {
		t.Fatalf("expected 3 fallback variants, got %d: %v", len(variants), variants)
	}
	if variants[0] != "quantum computing analysis" || variants[1] != "quantum computing documentary" {
		t.Fatalf("unexpected academic-suffix variants: %v", variants)
	}
	if variants[2] != "quantum computing français" {
		t.Fatalf("expected cross-language hint variant, got %v", variants)
	}
}

func TestReformulate_UnknownLanguageFallsBackToEnglishSuffixes(t *testing.T) {
	r := NewReformulator(nil)
	variants := r.Reformulate(context.Background(), "topic", "xx")
	if variants[0] != "topic analysis" || variants[1] != "topic documentary" {
		t.Fatalf("expected english academic suffixes for an unrecognized language, got %v", variants)
	}
}

func TestTranslateQuery_StaticTableHitSkipsLLM(t *testing.T) {
	r := NewReformulator(nil)
	got := r.TranslateQuery(context.Background(), "climate change", "en", "fr")
	if got != "changement climatique" {
		t.Fatalf("expected static translation table hit, got %q", got)
	}
}

func TestTranslateQuery_NilProviderFailsOpenToOriginalText(t *testing.T) {
	r := NewReformulator(nil)
	got := r.TranslateQuery(context.Background(), "an untranslated phrase", "en", "de")
	if got != "an untranslated phrase" {
		t.Fatalf("expected fail-open to original text, got %q", got)
	}
}
