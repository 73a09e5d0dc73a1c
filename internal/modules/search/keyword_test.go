package search

import (
	"math"
	"strings"
	"testing"
)

func TestExtractKeywordsDropsStopwordsAndShortWords(t *testing.T) {
	got := extractKeywords("What is the sum of an angle?")
	for _, kw := range got {
		if len(kw) < 3 {
			t.Fatalf("short fragment %q survived", kw)
		}
		if kw == "the" || kw == "what" || kw == "is" {
			t.Fatalf("stopword %q survived", kw)
		}
	}
	if !containsString(got, "sum") || !containsString(got, "angle") {
		t.Fatalf("expected content words, got %v", got)
	}
}

func TestExtractKeywordsDeduplicates(t *testing.T) {
	got := extractKeywords("fractions fractions FRACTIONS")
	if len(got) != 1 || got[0] != "fractions" {
		t.Fatalf("got %v, want [fractions]", got)
	}
}

func TestKeywordScorePerKeywordCap(t *testing.T) {
	// 15 occurrences of one keyword still contribute at most 1.0.
	text := strings.Repeat("fractions ", 15)
	got := keywordScore(text, []string{"fractions"})
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("score = %v, want 1.0", got)
	}
}

func TestKeywordScoreOccurrenceWeight(t *testing.T) {
	got := keywordScore("fractions and more fractions", []string{"fractions"})
	if math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("score = %v, want 0.2", got)
	}
}

func TestKeywordScoreTotalCap(t *testing.T) {
	text := strings.Repeat("alpha beta gamma ", 20)
	got := keywordScore(text, []string{"alpha", "beta", "gamma"})
	if got > 1.0 {
		t.Fatalf("total score %v exceeds cap", got)
	}
}

func TestKeywordScoreEmptyInputs(t *testing.T) {
	if got := keywordScore("", []string{"x"}); got != 0 {
		t.Fatalf("empty text scored %v", got)
	}
	if got := keywordScore("text", nil); got != 0 {
		t.Fatalf("no keywords scored %v", got)
	}
}
