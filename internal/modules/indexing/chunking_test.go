package indexing

import (
	"strings"
	"testing"
)

func TestSplitSectionsHonorsMarkers(t *testing.T) {
	text := "Intro before any marker.\n§example\nA worked example here.\n§exercise\nTry this yourself."
	got := splitSections(text)
	if len(got) != 3 {
		t.Fatalf("got %d sections, want 3", len(got))
	}
	if got[0].Name != "concept" || !strings.Contains(got[0].Body, "Intro") {
		t.Fatalf("leading text should be a concept section, got %+v", got[0])
	}
	if got[1].Name != "example" || got[2].Name != "exercise" {
		t.Fatalf("section names = %q, %q", got[1].Name, got[2].Name)
	}
}

func TestSplitSentencesMergesShortFragments(t *testing.T) {
	text := "Yes. This sentence is comfortably longer than fifty characters in total length."
	got := splitSentences(text, 50)
	if len(got) != 1 {
		t.Fatalf("got %d sentences, want the short one merged: %v", len(got), got)
	}
	if !strings.HasPrefix(got[0], "Yes.") {
		t.Fatalf("merged sentence lost its prefix: %q", got[0])
	}
}

func TestSplitSentencesBlankLineBoundary(t *testing.T) {
	text := "A first paragraph without terminal punctuation making it past fifty chars\n\nA second paragraph also long enough to stand alone as its own sentence here"
	got := splitSentences(text, 50)
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2: %v", len(got), got)
	}
}

func TestChunkSectionsSmallSectionSingleChunk(t *testing.T) {
	got := ChunkSections("Short section body.", ChunkingOptions{})
	if len(got) != 1 {
		t.Fatalf("got %d chunks, want 1", len(got))
	}
	if got[0].Section != "concept" {
		t.Fatalf("section = %q", got[0].Section)
	}
}

func TestChunkSectionsRespectsMaxSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This is a reasonably sized sentence used to pad the section body out. ")
	}
	got := ChunkSections(b.String(), ChunkingOptions{TargetSize: 300, MaxSize: 400})
	if len(got) < 2 {
		t.Fatalf("oversized section produced %d chunks", len(got))
	}
	for i, c := range got {
		if len([]rune(c.Text)) > 400 {
			t.Fatalf("chunk %d is %d chars, above the ceiling", i, len([]rune(c.Text)))
		}
	}
}

// Consecutive chunks of the same section must share an overlap: the next
// chunk starts with the trailing words of the previous one.
func TestChunkSectionsOverlapContinuity(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This is a reasonably sized sentence used to pad the section body out. ")
	}
	got := ChunkSections(b.String(), ChunkingOptions{TargetSize: 300, MaxSize: 400, OverlapFraction: 0.2})
	if len(got) < 2 {
		t.Fatalf("need at least two chunks, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		prevWords := strings.Fields(got[i-1].Text)
		tailStart := prevWords[len(prevWords)-1]
		if !strings.Contains(got[i].Text, tailStart) {
			t.Fatalf("chunk %d does not carry the tail of chunk %d", i, i-1)
		}
		firstWord := strings.Fields(got[i].Text)[0]
		if !strings.Contains(got[i-1].Text, firstWord) {
			t.Fatalf("chunk %d does not begin inside chunk %d's tail", i, i-1)
		}
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	if got := ChunkText("   ", ChunkingOptions{}); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
}
