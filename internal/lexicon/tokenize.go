package lexicon

import (
	"unicode"
)

type script int

const (
	scriptNone script = iota
	scriptHan
	scriptLatin
)

func scriptOf(r rune) script {
	switch {
	case unicode.Is(unicode.Han, r):
		return scriptHan
	case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return scriptLatin
	default:
		return scriptNone
	}
}

// Tokenize splits text into contiguous runs of one script: Han ideographs, or
// ASCII letters and digits. Everything else separates tokens.
func Tokenize(text string) []string {
	var tokens []string
	var current []rune
	currentScript := scriptNone
	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = current[:0]
		}
	}
	for _, r := range text {
		s := scriptOf(r)
		if s != currentScript {
			flush()
			currentScript = s
		}
		if s != scriptNone {
			current = append(current, r)
		}
	}
	flush()
	return tokens
}

// IsNumeric reports whether the token consists of digits only.
func IsNumeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
