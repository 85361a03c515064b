package service

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	wordRE          = regexp.MustCompile(`[A-Za-z0-9]+(?:'[A-Za-z0-9]+)?`)
	sentenceSplitRE = regexp.MustCompile(`[.!?]+`)
	paragraphRE     = regexp.MustCompile(`\n\s*\n`)
)

// WordCount counts words using the same tokenisation as every validator.
func WordCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	return len(wordRE.FindAllString(s, -1))
}

func words(s string) []string {
	return wordRE.FindAllString(s, -1)
}

func splitSentences(text string) []string {
	parts := sentenceSplitRE.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if WordCount(part) == 0 {
			continue
		}
		out = append(out, part)
	}
	return out
}

func splitParagraphs(text string) []string {
	parts := paragraphRE.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// countSyllables uses the vowel-group heuristic: count groups of vowels, drop one
// for a trailing silent 'e', and never report fewer than one.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

type textStats struct {
	Words     int
	Sentences int
	Syllables int
}

func analyzeText(text string) textStats {
	tokens := words(text)
	stats := textStats{Words: len(tokens), Sentences: len(splitSentences(text))}
	for _, token := range tokens {
		stats.Syllables += countSyllables(token)
	}
	return stats
}

func (s textStats) wordsPerSentence() float64 {
	if s.Sentences == 0 {
		return 0
	}
	return float64(s.Words) / float64(s.Sentences)
}

func (s textStats) syllablesPerWord() float64 {
	if s.Words == 0 {
		return 0
	}
	return float64(s.Syllables) / float64(s.Words)
}

// FleschReadingEase scores text from roughly 0 (hard) to 100 (easy). Empty text scores 0.
func FleschReadingEase(text string) float64 {
	stats := analyzeText(text)
	if stats.Words == 0 || stats.Sentences == 0 {
		return 0
	}
	return round2(206.835 - 1.015*stats.wordsPerSentence() - 84.6*stats.syllablesPerWord())
}

// FleschKincaidGrade estimates the US school grade needed to read text. Empty text scores 0.
func FleschKincaidGrade(text string) float64 {
	stats := analyzeText(text)
	if stats.Words == 0 || stats.Sentences == 0 {
		return 0
	}
	return round2(0.39*stats.wordsPerSentence() + 11.8*stats.syllablesPerWord() - 15.59)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// isHeadingLine treats markdown headings and short label lines ending in a colon as headings.
func isHeadingLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "#") {
		return true
	}
	return strings.HasSuffix(line, ":") && utf8.RuneCountInString(line) <= 60 && WordCount(line) <= 8
}

func headingText(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#")
	line = strings.TrimSuffix(line, ":")
	return strings.TrimSpace(line)
}

func headings(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if isHeadingLine(line) {
			out = append(out, headingText(line))
		}
	}
	return out
}

type wordSpan struct {
	start, end int
}

// repeatedWordSpans returns the spans of words that immediately repeat the previous
// word (case-insensitive, separated only by whitespace). The first occurrence is not included.
func repeatedWordSpans(text string, minLen int) []wordSpan {
	matches := wordRE.FindAllStringIndex(text, -1)
	var spans []wordSpan
	for i := 1; i < len(matches); i++ {
		prev, cur := matches[i-1], matches[i]
		if strings.TrimSpace(text[prev[1]:cur[0]]) != "" {
			continue
		}
		word := text[cur[0]:cur[1]]
		if len(word) < minLen {
			continue
		}
		if strings.EqualFold(text[prev[0]:prev[1]], word) {
			spans = append(spans, wordSpan{start: prev[1], end: cur[1]})
		}
	}
	return spans
}

// collapseRepeatedWords removes immediate word repetitions of any length, keeping the first occurrence.
func collapseRepeatedWords(text string) string {
	spans := repeatedWordSpans(text, 0)
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, span := range spans {
		b.WriteString(text[last:span.start])
		last = span.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// lowercaseSentenceStarts returns byte offsets of sentence-initial letters that are lowercase.
func lowercaseSentenceStarts(text string) []int {
	var offsets []int
	atStart := true
	for i, r := range text {
		switch {
		case unicode.IsLetter(r):
			if atStart && unicode.IsLower(r) {
				offsets = append(offsets, i)
			}
			atStart = false
		case unicode.IsDigit(r):
			atStart = false
		case r == '.' || r == '!' || r == '?':
			atStart = true
		}
	}
	return offsets
}

func capitalizeSentences(text string) string {
	offsets := lowercaseSentenceStarts(text)
	if len(offsets) == 0 {
		return text
	}
	buf := []byte(text)
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, offset := range offsets {
		r, size := utf8.DecodeRune(buf[offset:])
		b.Write(buf[last:offset])
		b.WriteRune(unicode.ToUpper(r))
		last = offset + size
	}
	b.Write(buf[last:])
	return b.String()
}

func containsFold(text, needle string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
}

func lineNumberAt(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return strings.Count(text[:offset], "\n") + 1
}

func intPtr(v int) *int {
	return &v
}
