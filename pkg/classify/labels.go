package classify

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// LoadLabels reads one class name per line from path.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return ParseLabels(f)
}

// ParseLabels reads one class name per line. Blank lines are skipped.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	return labels, nil
}

// Softmax converts raw scores to probabilities in place and returns them.
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	for i, s := range scores {
		scores[i] = math.Exp(s - maxScore)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores
}

// Rank pairs scores with labels and returns the top k by probability.
// A model with one extra leading "background" output is handled by
// dropping that output.
func Rank(scores []float64, labels []string, k int) (Result, error) {
	if len(scores) == len(labels)+1 {
		scores = scores[1:]
	}
	if len(scores) != len(labels) {
		return nil, fmt.Errorf("classify: model produced %d scores for %d labels", len(scores), len(labels))
	}

	result := make(Result, len(scores))
	for i, s := range scores {
		result[i] = Prediction{ClassName: labels[i], Probability: s}
	}
	return result.Sorted(k), nil
}
