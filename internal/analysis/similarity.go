package analysis

import (
	"math"
	"strings"
)

type tokenSet map[string]struct{}

// tokenize lower-cases text, splits it on whitespace and keeps the unique
// tokens among the first limit words. Later words never count.
func tokenize(text string, limit int) tokenSet {
	words := strings.Fields(strings.ToLower(text))
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}

	set := make(tokenSet, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b| as a rounded percentage.
func jaccard(a, b tokenSet) int {
	if len(a) > len(b) {
		a, b = b, a
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return clampScore(int(math.Round(float64(intersection) / float64(union) * 100)))
}

// Similarity compares two texts using the default token limit.
func Similarity(text1, text2 string) int {
	return SimilarityWithLimit(text1, text2, DefaultOptions().TokenLimit)
}

// SimilarityWithLimit compares the opening limit words of two texts.
func SimilarityWithLimit(text1, text2 string, limit int) int {
	return jaccard(tokenize(text1, limit), tokenize(text2, limit))
}

// buildMatrix fills a symmetric matrix for the given submissions, which must
// all carry content. Each pair is compared exactly once.
func buildMatrix(submissions []*Submission, limit int) Matrix {
	matrix := make(Matrix, len(submissions))
	sets := make([]tokenSet, len(submissions))
	for i, submission := range submissions {
		matrix[submission.UserID] = map[string]int{}
		sets[i] = tokenize(submission.Content, limit)
	}

	for i := 0; i < len(submissions); i++ {
		for j := i + 1; j < len(submissions); j++ {
			similarity := jaccard(sets[i], sets[j])
			first, second := submissions[i].UserID, submissions[j].UserID
			matrix[first][second] = similarity
			matrix[second][first] = similarity
		}
	}

	return matrix
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
