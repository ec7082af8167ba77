package rag

import (
	"regexp"
	"strings"
	"unicode"
)

// sentenceEnd matches sentence-ending punctuation followed by whitespace
// and an uppercase letter. The uppercase requirement avoids splitting
// abbreviations like "Dr." or numbers like "3.14" as long as they are not
// followed by whitespace and a capital. That is an approximation, not a
// guarantee.
var sentenceEnd = regexp.MustCompile(`[.!?]+\s+[A-Z]`)

// SplitSentences splits text into an ordered, fully materialized slice of
// sentence-like units. Paragraph boundaries (blank lines) are always
// respected; within a paragraph, sentences are cut on terminal punctuation
// followed by whitespace and an uppercase letter. When the pattern finds
// no boundary, a rune-scanning pass applies the same test to catch cases
// the pattern misses. Non-empty input never produces an empty result: if
// nothing splits, the trimmed input is returned as a single sentence.
func SplitSentences(text string) []string {
	var parts []string

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		sentences := splitOnPattern(para)
		if len(sentences) == 1 {
			sentences = splitByScan(para)
		}

		for _, s := range sentences {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
	}

	if len(parts) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	return parts
}

// splitOnPattern cuts the paragraph at every sentenceEnd match, keeping
// the punctuation with the preceding sentence and the capital letter with
// the following one.
func splitOnPattern(para string) []string {
	matches := sentenceEnd.FindAllStringIndex(para, -1)
	if len(matches) == 0 {
		return []string{para}
	}

	var out []string
	start := 0
	for _, m := range matches {
		// m[1] is one byte past the uppercase letter; the cut point is
		// the start of that letter.
		cut := m[1] - 1
		out = append(out, para[start:cut])
		start = cut
	}
	out = append(out, para[start:])
	return out
}

// splitByScan walks the paragraph rune by rune, closing a sentence after
// terminal punctuation when the next rune is whitespace and the one after
// is uppercase.
func splitByScan(para string) []string {
	runes := []rune(para)
	var out []string
	var buf []rune

	for i, r := range runes {
		buf = append(buf, r)
		if (r == '.' || r == '!' || r == '?') && i < len(runes)-1 {
			if unicode.IsSpace(runes[i+1]) && i+2 < len(runes) && unicode.IsUpper(runes[i+2]) {
				out = append(out, strings.TrimSpace(string(buf)))
				buf = buf[:0]
			}
		}
	}
	if len(buf) > 0 {
		out = append(out, strings.TrimSpace(string(buf)))
	}
	return out
}
