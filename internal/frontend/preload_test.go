package frontend

import (
	"slices"
	"strings"
	"testing"
)

func TestPreloadLevels(t *testing.T) {
	levels, err := parseLevelImages(strings.NewReader(`{"levels": [
		{"imageLeft": "1.png", "imageRight": "1-a.png"},
		{"imageLeft": "2.png", "imageRight": "2-a.png"},
		{"imageLeft": "3.png", "imageRight": "3-a.png"},
		{"imageLeft": "4.png", "imageRight": "4-a.png"},
		{"imageLeft": "5.png", "imageRight": "5-a.png"}
	]}`))
	if err != nil {
		t.Fatalf("parseLevelImages failed: %v", err)
	}

	s, _ := newTestState()
	var fetched []string
	s.prefetch = func(url string) { fetched = append(fetched, url) }

	s.PreloadLevels(0)
	if len(fetched) != 0 {
		t.Fatalf("Nothing should be preloaded before the levels are known, got %v", fetched)
	}

	s.images = levels
	s.PreloadLevels(0)
	want := []string{"2.png", "2-a.png", "3.png", "3-a.png", "4.png", "4-a.png"}
	if !slices.Equal(fetched, want) {
		t.Fatalf("Expected %v, got %v", want, fetched)
	}

	// Only the images not fetched yet, and nothing past the last level.
	fetched = nil
	s.PreloadLevels(2)
	if want := []string{"5.png", "5-a.png"}; !slices.Equal(fetched, want) {
		t.Errorf("Expected %v, got %v", want, fetched)
	}
	fetched = nil
	s.PreloadLevels(4)
	if len(fetched) != 0 {
		t.Errorf("Nothing left to preload after the last level, got %v", fetched)
	}

	if _, err := parseLevelImages(strings.NewReader("[")); err == nil {
		t.Errorf("Expected an error for invalid JSON")
	}
}
