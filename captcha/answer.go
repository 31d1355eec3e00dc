package captcha

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"
)

// Spelling describes how numbers are written with words.
type Spelling struct {
	// Exceptions are used if a rest of a number matches a key. For
	// example, 411 is 'four hundred eleven' with 11 -> eleven.
	Exceptions map[string]string

	// Words has a list of 10 words per position starting from the
	// units. An empty word means that a digit is skipped.
	Words [][]string
}

// Spell writes a number with words. Numbers longer than a list of
// positions cannot be spelled.
func (s Spelling) Spell(number int) (string, error) {
	if number < 0 {
		return "", fmt.Errorf("%w: negative number %d", ErrInvalidSpelling, number)
	}

	n := strconv.Itoa(number)
	if len(n) > len(s.Words) {
		return "", fmt.Errorf("%w: %d has more than %d digits", ErrInvalidSpelling, number, len(s.Words))
	}

	words := []string{}
	idx := len(n)

	for n != "" {
		if word, ok := s.Exceptions[n]; ok {
			words = append(words, word)

			break
		}

		idx--

		if word := s.Words[idx][n[0]-'0']; strings.TrimSpace(word) != "" {
			words = append(words, word)
		}

		n = n[1:]
	}

	return strings.Join(words, " "), nil
}

func (s Spelling) valid(length int) error {
	if len(s.Words) < length {
		return fmt.Errorf("%w: %d positions are defined for %d digits", ErrInvalidSpelling, len(s.Words), length)
	}

	for i, position := range s.Words {
		if len(position) != 10 {
			return fmt.Errorf("%w: position %d has %d words instead of 10", ErrInvalidSpelling, i, len(position))
		}
	}

	return nil
}

// runes returns every printable rune which may appear in a spelled
// number.
func (s Spelling) runes() []rune {
	sb := strings.Builder{}

	for _, v := range s.Exceptions {
		sb.WriteString(v)
	}

	for _, position := range s.Words {
		for _, v := range position {
			sb.WriteString(v)
		}
	}

	return uniqueRunes(sb.String())
}

// DefaultSpelling spells numbers up to 999 in English.
func DefaultSpelling() Spelling {
	return Spelling{
		Exceptions: map[string]string{
			"11": "eleven",
			"12": "twelve",
			"13": "thirteen",
			"14": "fourteen",
			"15": "fifteen",
			"16": "sixteen",
			"17": "seventeen",
			"18": "eighteen",
			"19": "nineteen",
		},
		Words: [][]string{
			{"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"},
			{"", "ten", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"},
			{
				"", "one hundred", "two hundred", "three hundred", "four hundred",
				"five hundred", "six hundred", "seven hundred", "eight hundred", "nine hundred",
			},
		},
	}
}

// answerer picks a text to draw and an answer to expect.
type answerer struct {
	alphabet      []rune
	length        int
	spelling      *Spelling
	separateLines bool
}

// Next returns lines of a text to draw and an expected answer.
func (a answerer) Next(rnd *rand.Rand) ([]string, string) {
	if a.spelling == nil {
		text := make([]rune, a.length)

		for i := range text {
			text[i] = a.alphabet[rnd.IntN(len(a.alphabet))]
		}

		return []string{string(text)}, string(text)
	}

	lowest := 1

	for range a.length - 1 {
		lowest *= 10
	}

	value := lowest + rnd.IntN(lowest*9)
	answer := strconv.Itoa(value)

	// valid() makes sure that every number of this length is spelled.
	text, _ := a.spelling.Spell(value)

	if a.separateLines {
		return strings.Fields(text), answer
	}

	return []string{text}, answer
}

// Runes returns every rune which may be drawn. Spaces are excluded.
func (a answerer) Runes() []rune {
	if a.spelling != nil {
		return a.spelling.runes()
	}

	return uniqueRunes(string(a.alphabet))
}

func uniqueRunes(text string) []rune {
	seen := map[rune]struct{}{}
	rv := []rune{}

	for _, r := range text {
		if _, ok := seen[r]; ok || unicode.IsSpace(r) {
			continue
		}

		seen[r] = struct{}{}
		rv = append(rv, r)
	}

	return rv
}
