// Package scoring turns a draw history into per-number strength scores and
// the four-tier group partition the generator samples from.
package scoring

import (
	"fmt"
	"sort"

	"megafacil/models"
)

// Blend weights of the three statistics
const (
	GlobalWeight  = 0.5
	RecentWeight  = 0.3
	RecencyWeight = 0.2
)

// Cumulative tier boundaries in percent of all numbers
var groupThresholds = [3]int{20, 50, 80}

// Result holds the scores and partition computed for one request
type Result struct {
	Scores models.NumberScores   `json:"scores"`
	Groups models.GroupPartition `json:"groups"`
}

// ComputeScores scores every number from the ascending draw history, using the
// last windowSize draws for the recent frequency. An empty history is legal and
// yields a score of 1 for every number.
func ComputeScores(draws []models.Draw, windowSize int) (*Result, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", models.ErrInvalidInput, windowSize)
	}

	globalNorm := normalizeByMax(countNumbers(draws))

	recent := draws
	if len(draws) > windowSize {
		recent = draws[len(draws)-windowSize:]
	}
	recentNorm := normalizeByMax(countNumbers(recent))

	recencyNorm := normalizeInverted(computeRecency(draws))

	raw := make(map[int]float64, models.MaxNumber)
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		raw[n] = GlobalWeight*globalNorm[n] + RecentWeight*recentNorm[n] + RecencyWeight*recencyNorm[n]
	}

	scores := models.NumberScores(normalizeMinMax(raw))

	return &Result{
		Scores: scores,
		Groups: AssignGroups(scores),
	}, nil
}

// AssignGroups ranks numbers by descending score, ties by ascending number,
// and cuts the ranking at 20%, 50% and 80% rounding each boundary up.
func AssignGroups(scores models.NumberScores) models.GroupPartition {
	ranked := models.AllNumbers()
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})

	total := len(ranked)
	var bounds [3]int
	for i, pct := range groupThresholds {
		bounds[i] = (total*pct + 99) / 100
	}

	return models.GroupPartition{
		A: cloneInts(ranked[:bounds[0]]),
		B: cloneInts(ranked[bounds[0]:bounds[1]]),
		C: cloneInts(ranked[bounds[1]:bounds[2]]),
		D: cloneInts(ranked[bounds[2]:]),
	}
}

func countNumbers(draws []models.Draw) map[int]int {
	counts := make(map[int]int, models.MaxNumber)
	for _, draw := range draws {
		for _, n := range draw.Numbers {
			counts[n]++
		}
	}
	return counts
}

func normalizeByMax(counts map[int]int) map[int]float64 {
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	normalized := make(map[int]float64, models.MaxNumber)
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		if maxCount == 0 {
			normalized[n] = 0
			continue
		}
		normalized[n] = float64(counts[n]) / float64(maxCount)
	}
	return normalized
}

// computeRecency returns how many draws ago each number last appeared.
// Numbers never drawn sit one step past the oldest observed offset.
func computeRecency(draws []models.Draw) map[int]float64 {
	lastSeen := make(map[int]int, models.MaxNumber)
	for offset := 0; offset < len(draws); offset++ {
		draw := draws[len(draws)-1-offset]
		for _, n := range draw.Numbers {
			if _, ok := lastSeen[n]; !ok {
				lastSeen[n] = offset
			}
		}
	}

	maxSeen := 0
	for _, offset := range lastSeen {
		if offset > maxSeen {
			maxSeen = offset
		}
	}

	recency := make(map[int]float64, models.MaxNumber)
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		if offset, ok := lastSeen[n]; ok {
			recency[n] = float64(offset)
		} else {
			recency[n] = float64(maxSeen + 1)
		}
	}
	return recency
}

func normalizeInverted(values map[int]float64) map[int]float64 {
	minV, maxV := bounds(values)
	normalized := make(map[int]float64, models.MaxNumber)
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		if maxV == minV {
			normalized[n] = 1
			continue
		}
		normalized[n] = 1 - (values[n]-minV)/(maxV-minV)
	}
	return normalized
}

func normalizeMinMax(values map[int]float64) map[int]float64 {
	minV, maxV := bounds(values)
	normalized := make(map[int]float64, models.MaxNumber)
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		if maxV == minV {
			normalized[n] = 1
			continue
		}
		normalized[n] = (values[n] - minV) / (maxV - minV)
	}
	return normalized
}

func bounds(values map[int]float64) (float64, float64) {
	minV := values[models.MinNumber]
	maxV := minV
	for n := models.MinNumber; n <= models.MaxNumber; n++ {
		v := values[n]
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV
}

func cloneInts(src []int) []int {
	dst := make([]int, len(src))
	copy(dst, src)
	return dst
}
