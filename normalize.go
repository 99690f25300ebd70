package pdfexport

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	reTrailingWhitespace = regexp.MustCompile(`[ \t]+\n`)
	reMultipleNewlines   = regexp.MustCompile(`\n{3,}`)
	reCRLF               = regexp.MustCompile(`\r\n?`)
)

// normalizeOutput cleans renderer output before it becomes a page artifact:
// valid UTF-8, LF line endings, no control characters except \n and \t,
// typographic ligatures expanded, NFC composition, no trailing blanks, at
// most one empty line in a row, no surrounding whitespace.
func normalizeOutput(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	s = reCRLF.ReplaceAllString(s, "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	s = norm.NFC.String(expandLigatures(s))

	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	s = reTrailingWhitespace.ReplaceAllString(s, "\n")
	s = reMultipleNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// expandLigatures replaces presentation-form ligatures (U+FB00..U+FB06, the
// ﬁ/ﬂ family emitted by many PDF fonts) with their letter sequences.
// Other compatibility characters are left alone.
func expandLigatures(s string) string {
	if !strings.ContainsFunc(s, isLatinLigature) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if isLatinLigature(r) {
			b.WriteString(norm.NFKC.String(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isLatinLigature(r rune) bool {
	return r >= 0xFB00 && r <= 0xFB06
}
