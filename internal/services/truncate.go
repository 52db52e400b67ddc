package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageLength is the transport's per-message ceiling, in characters.
const MaxMessageLength = 4096

// SmartTruncate fits text into max characters, cutting at sentence
// boundaries where possible and appending a notice in lang when anything
// was dropped. The result never exceeds max, so applying it twice is a no-op.
func SmartTruncate(text string, max int, lang string) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	notice, mark := msgShortened.in(lang), msgShortenedMark.in(lang)
	markLen := utf8.RuneCountInString(mark)
	if max <= markLen {
		return string(runes[:max])
	}

	// Sentences keep their original separators, newlines included.
	budget := max - utf8.RuneCountInString(notice)
	cut := 0
	for _, end := range sentenceEnds(text) {
		if utf8.RuneCountInString(strings.TrimSpace(text[:end])) > budget {
			break
		}
		cut = end
	}

	result := strings.TrimSpace(text[:cut])
	if result == "" {
		return string(runes[:max-markLen]) + mark
	}
	return result + notice
}

// isSentenceEnd reports terminators: ASCII '.', '!' and '?', plus the
// Ethiopic full stop and question mark.
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '።', '፧':
		return true
	}
	return false
}

// sentenceEnds returns the byte offsets just past each sentence terminator
// that is followed by whitespace or the end of text. The Ethiopic full stop
// ends a sentence even when the next word follows directly.
func sentenceEnds(text string) []int {
	var ends []int
	for i, r := range text {
		if !isSentenceEnd(r) {
			continue
		}
		end := i + utf8.RuneLen(r)
		if end == len(text) || r == '።' {
			ends = append(ends, end)
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsSpace(next) {
			ends = append(ends, end)
		}
	}
	return ends
}

// splitSentences breaks text at sentence ends. Whitespace between sentences
// is dropped; the punctuation stays with its sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, end := range sentenceEnds(text) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = end
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
