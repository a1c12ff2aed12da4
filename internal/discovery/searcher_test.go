package discovery

import "testing"

func TestParseSearchResult_TruncatesLongDescription(t *testing.T) {
	long := ""
	for i := 0; i < 1500; i++ {
		long += "x"
	}
	line := `{"id":"abc123","title":"t","channel":"c","description":"` + long + `"}`
	meta, ok := parseSearchResult(line, "en")
	if !ok {
		t.Fatal("expected a valid parse")
	}
	if len(meta.Description) != 1000 {
		t.Fatalf("expected description truncated to 1000 chars, got %d", len(meta.Description))
	}
}

func TestParseSearchResult_RejectsMissingID(t *testing.T) {
	if _, ok := parseSearchResult(`{"title":"no id here"}`, "en"); ok {
		t.Fatal("expected parse to reject a result with no video id")
	}
}

func TestParseSearchResult_RejectsMalformedJSON(t *testing.T) {
	if _, ok := parseSearchResult(`not json`, "en"); ok {
		t.Fatal("expected parse to reject malformed JSON")
	}
}

func TestParseSearchResult_TagsSearchLanguage(t *testing.T) {
	meta, ok := parseSearchResult(`{"id":"xyz","title":"t"}`, "fr")
	if !ok || meta.SearchLanguage != "fr" {
		t.Fatalf("expected search language tagged as fr, got %+v ok=%v", meta, ok)
	}
}

func TestParseYtDlpDate_ParsesCompactDate(t *testing.T) {
	d := parseYtDlpDate("20230615")
	if d.IsZero() {
		t.Fatal("expected a parsed date")
	}
	if d.Year() != 2023 || int(d.Month()) != 6 || d.Day() != 15 {
		t.Fatalf("unexpected parsed date: %v", d)
	}
}

func TestParseYtDlpDate_InvalidLengthReturnsZero(t *testing.T) {
	if got := parseYtDlpDate("2023"); !got.IsZero() {
		t.Fatalf("expected zero time for malformed date, got %v", got)
	}
}
