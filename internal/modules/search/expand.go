package search

import "strings"

const maxQueryVariants = 3

// expandQuery returns the query plus up to two rewrites produced by
// substituting terms found in the synonym table. The first element is
// always the original query; only that variant is embedded, the rest feed
// the keyword fallback.
func (e *Engine) expandQuery(query string) []string {
	variants := []string{query}

	words := strings.Fields(strings.ToLower(query))
	for i, w := range words {
		if len(variants) >= maxQueryVariants {
			break
		}
		syns := synonymsFor(strings.Trim(w, ".,;:!?¿¡"))
		if len(syns) == 0 {
			continue
		}
		rewritten := make([]string, len(words))
		copy(rewritten, words)
		rewritten[i] = syns[0]
		v := strings.Join(rewritten, " ")
		if !containsString(variants, v) {
			variants = append(variants, v)
		}
	}
	return variants
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
