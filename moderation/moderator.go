// Package moderation masks censored words in message bodies before they
// reach the store. Matching runs over a normalized view of the text
// (lowercased, separators stripped, common leet substitutions folded) so
// trivial obfuscation does not bypass the list.
package moderation

import (
	"unicode"

	"chat-hub/errors"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton from the censored word
// list. An empty list is an error; callers wanting no moderation simply
// skip constructing a Moderator.
func NewModerator(censoredWords []string, replacement rune) (*Moderator, error) {
	if len(censoredWords) == 0 {
		return nil, errors.ErrEmptyWords
	}
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		normalized, _ := normalize(word)
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: machine, replacement: replacement}, nil
}

// Censor replaces every character of a matched word with the replacement
// rune, preserving the surrounding text untouched.
func (m *Moderator) Censor(original string) string {
	normalized, origIdx := normalize(original)
	if len(normalized) == 0 {
		return original
	}
	spans := m.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return original
	}

	runes := []rune(original)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			runes[i] = m.replacement
		}
	}
	return string(runes)
}

// normalize lowercases, folds leet substitutions, and drops separator
// runes. origIdx maps each normalized position back to its position in
// the original rune slice so matched spans can be masked in place.
func normalize(input string) ([]rune, []int) {
	runes := []rune(input)
	normalized := make([]rune, 0, len(runes))
	origIdx := make([]int, 0, len(runes))
	for i, r := range runes {
		folded := foldLeet(r)
		if !unicode.IsLetter(folded) && !unicode.IsNumber(folded) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(folded))
		origIdx = append(origIdx, i)
	}
	return normalized, origIdx
}

func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	default:
		return r
	}
}
