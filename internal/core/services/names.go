package services

import (
	"strings"
	"unicode"
)

var nameNoiseTokens = map[string]struct{}{
	"feat":      {},
	"featuring": {},
	"ft":        {},
	"official":  {},
	"the":       {},
}

// normalizeArtistName lowercases the name, drops bracketed segments such as
// "(band)" or "{live}" and collapses punctuation so similarity scoring
// compares words.
func normalizeArtistName(input string) string {
	if input == "" {
		return ""
	}

	lower := strings.ToLower(input)
	filtered := stripBracketedSegments(lower)
	tokens := strings.Fields(cleanSeparators(filtered))

	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, drop := nameNoiseTokens[token]; drop {
			continue
		}
		cleaned = append(cleaned, token)
	}
	if len(cleaned) == 0 {
		// a name made only of noise ("The The") still needs something to compare
		return strings.Join(tokens, " ")
	}

	return strings.Join(cleaned, " ")
}

func stripBracketedSegments(input string) string {
	var out strings.Builder
	depth := 0
	for _, r := range input {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				out.WriteRune(r)
			}
		}
	}

	return out.String()
}

func cleanSeparators(input string) string {
	var out strings.Builder
	lastSpace := false
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastSpace = false
			continue
		}
		if r == '\'' || r == '’' {
			// "Destiny's" and "Destiny’s" both become "destinys"
			continue
		}
		if !lastSpace {
			out.WriteRune(' ')
			lastSpace = true
		}
	}

	return out.String()
}
