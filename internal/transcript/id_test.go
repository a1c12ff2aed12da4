package transcript

import "testing"

func TestExtractVideoID_BareID(t *testing.T) {
	id, err := ExtractVideoID("dQw4w9WgXcQ")
	if err != nil || id != "dQw4w9WgXcQ" {
		t.Fatalf("expected bare ID to pass through; got %q %v", id, err)
	}
}

func TestExtractVideoID_URLShapes(t *testing.T) {
	cases := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
	}
	for _, c := range cases {
		id, err := ExtractVideoID(c)
		if err != nil || id != "dQw4w9WgXcQ" {
			t.Fatalf("%s: expected dQw4w9WgXcQ, got %q %v", c, id, err)
		}
	}
}

func TestExtractVideoID_Invalid(t *testing.T) {
	if _, err := ExtractVideoID("not a video id"); err == nil {
		t.Fatal("expected an error for an unrecognized input")
	}
}

func TestExtractVideoID_RoundTripsThroughURLToID(t *testing.T) {
	ids := []string{"dQw4w9WgXcQ", "abcDEF123_-"}
	for _, id := range ids {
		got, err := ExtractVideoID(URLToID(id))
		if err != nil || got != id {
			t.Fatalf("round trip broken for %q: got %q %v", id, got, err)
		}
	}
}
