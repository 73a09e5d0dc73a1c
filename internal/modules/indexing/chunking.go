package indexing

import "strings"

// ChunkingOptions carries the chunking policy constants.
type ChunkingOptions struct {
	// TargetSize is the character count at which a chunk is closed.
	TargetSize int
	// MaxSize is the hard per-chunk ceiling; a closed chunk never exceeds it.
	MaxSize int
	// MinSentence merges sentences shorter than this with a neighbor.
	MinSentence int
	// OverlapFraction of the previous chunk's trailing words seeds the next
	// chunk for context continuity.
	OverlapFraction float64
}

func (o ChunkingOptions) withDefaults() ChunkingOptions {
	if o.TargetSize <= 0 {
		o.TargetSize = 600
	}
	if o.MaxSize <= 0 {
		o.MaxSize = 800
	}
	if o.MaxSize < o.TargetSize {
		o.MaxSize = o.TargetSize
	}
	if o.MinSentence <= 0 {
		o.MinSentence = 50
	}
	if o.OverlapFraction <= 0 || o.OverlapFraction >= 1 {
		o.OverlapFraction = 0.2
	}
	return o
}

type section struct {
	Name string
	Body string
}

// splitSections breaks enriched text on section markers. Text before the
// first marker becomes an unnamed concept section.
func splitSections(text string) []section {
	lines := strings.Split(text, "\n")
	var sections []section
	current := section{Name: "concept"}
	var body strings.Builder

	flush := func() {
		b := strings.TrimSpace(body.String())
		if b != "" {
			current.Body = b
			sections = append(sections, current)
		}
		body.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, sectionMarkerPrefix) {
			flush()
			current = section{Name: strings.TrimPrefix(trimmed, sectionMarkerPrefix)}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return sections
}

// splitSentences splits on terminal punctuation or blank lines, working in
// runes so a UTF-8 sequence is never cut. Fragments shorter than minLen are
// merged with the following sentence (or the previous one at the tail).
func splitSentences(text string, minLen int) []string {
	var raw []string
	var cur strings.Builder

	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			raw = append(raw, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		cur.WriteRune(r)
		switch r {
		case '.', '!', '?':
			flush()
		case '\n':
			// A blank line is a boundary even without punctuation.
			if i+1 < len(runes) && runes[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()

	if len(raw) == 0 {
		return nil
	}

	merged := make([]string, 0, len(raw))
	carry := ""
	for _, s := range raw {
		if carry != "" {
			s = carry + " " + s
			carry = ""
		}
		if len([]rune(s)) < minLen {
			carry = s
			continue
		}
		merged = append(merged, s)
	}
	if carry != "" {
		if len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + carry
		} else {
			merged = append(merged, carry)
		}
	}
	return merged
}

// overlapTail returns roughly frac of the trailing words of text, used to
// seed the next chunk.
func overlapTail(text string, frac float64) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	n := int(float64(len(words)) * frac)
	if n < 1 {
		n = 1
	}
	if n >= len(words) {
		n = len(words) - 1
	}
	if n <= 0 {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}

// SectionChunk is one retrieval chunk plus the enriched section it came from.
type SectionChunk struct {
	Section string
	Text    string
}

// ChunkSections splits enriched text into retrieval chunks: section markers
// first, sentence accumulation within oversized sections, and an overlap
// tail carried between consecutive chunks of the same section.
func ChunkSections(text string, opt ChunkingOptions) []SectionChunk {
	opt = opt.withDefaults()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []SectionChunk
	for _, sec := range splitSections(text) {
		if len([]rune(sec.Body)) <= opt.MaxSize {
			chunks = append(chunks, SectionChunk{Section: sec.Name, Text: sec.Body})
			continue
		}

		sentences := splitSentences(sec.Body, opt.MinSentence)
		var cur strings.Builder
		for _, s := range sentences {
			if cur.Len() > 0 && cur.Len()+len(s)+1 > opt.TargetSize {
				chunk := strings.TrimSpace(cur.String())
				chunks = append(chunks, SectionChunk{Section: sec.Name, Text: chunk})
				cur.Reset()
				if tail := overlapTail(chunk, opt.OverlapFraction); tail != "" {
					cur.WriteString(tail)
				}
			}
			if cur.Len() > 0 {
				cur.WriteString(" ")
			}
			cur.WriteString(s)
		}
		if leftover := strings.TrimSpace(cur.String()); leftover != "" {
			chunks = append(chunks, SectionChunk{Section: sec.Name, Text: leftover})
		}
	}
	return chunks
}

// ChunkText is ChunkSections without section attribution.
func ChunkText(text string, opt ChunkingOptions) []string {
	sections := ChunkSections(text, opt)
	if len(sections) == 0 {
		return nil
	}
	out := make([]string, 0, len(sections))
	for _, c := range sections {
		out = append(out, c.Text)
	}
	return out
}
