package analysis

import (
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

// RandomSource supplies the noise added to AI scores. *rand.Rand from
// math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// RandomFunc adapts a plain function to RandomSource.
type RandomFunc func(n int) int

// IntN implements RandomSource.
func (f RandomFunc) IntN(n int) int {
	return f(n)
}

// DefaultRandom draws from the math/rand/v2 global generator, which is safe
// for concurrent use.
func DefaultRandom() RandomSource {
	return RandomFunc(rand.IntN)
}

var aiKeywords = []string{"gpt", "gemini", "generative", "ai model", "language model"}

type band struct {
	base   int
	spread int
}

var (
	highBand = band{base: 85, spread: 15}
	midBand  = band{base: 50, spread: 25}
	lowBand  = band{base: 5, spread: 25}
)

// aiScorer is a heuristic, not a classifier: keyword mentions and long words
// push a text into higher bands.
type aiScorer struct {
	wordLengthThreshold float64
	random              RandomSource
}

func (s aiScorer) score(text string) int {
	switch {
	case mentionsAI(text):
		return s.draw(highBand)
	case averageWordLength(text) > s.wordLengthThreshold:
		return s.draw(midBand)
	default:
		return s.draw(lowBand)
	}
}

func (s aiScorer) draw(b band) int {
	offset := s.random.IntN(b.spread)
	if offset < 0 || offset >= b.spread {
		offset = 0
	}
	return clampScore(b.base + offset)
}

func mentionsAI(text string) bool {
	sentences := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	for _, sentence := range sentences {
		for _, keyword := range aiKeywords {
			if strings.Contains(sentence, keyword) {
				return true
			}
		}
	}
	return false
}

func averageWordLength(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	total := 0
	for _, word := range words {
		total += utf8.RuneCountInString(word)
	}
	return float64(total) / float64(len(words))
}
