// Package generator builds cards of unique weighted combinations from the
// scored group partition.
package generator

import (
	"fmt"
	"math"
	"slices"

	"megafacil/models"
)

const (
	// PicksPerGroup is how many numbers each of groups A, B and C contributes
	PicksPerGroup = 2

	// AttemptsPerCombination bounds the retries spent deduplicating one card
	AttemptsPerCombination = 20
)

// sampledGroups are the tiers every combination draws from, in order
var sampledGroups = []models.Group{models.GroupA, models.GroupB, models.GroupC}

// GenerateCards produces cardCount cards of combosPerCard unique combinations.
// Any card that exhausts its retry budget fails the whole request.
func GenerateCards(scores models.NumberScores, groups models.GroupPartition, rng RNG, cardCount, combosPerCard int) ([]models.Card, error) {
	if cardCount < 1 || combosPerCard < 1 {
		return nil, fmt.Errorf("%w: card count and combinations per card must be positive", models.ErrInvalidInput)
	}
	for _, g := range sampledGroups {
		if len(groups.Members(g)) < PicksPerGroup {
			return nil, fmt.Errorf("%w: group %s has %d", models.ErrInsufficientGroupSize, g, len(groups.Members(g)))
		}
	}

	cards := make([]models.Card, 0, cardCount)
	for i := 0; i < cardCount; i++ {
		combinations, err := generateCombinations(scores, groups, rng, combosPerCard)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i+1, err)
		}
		cards = append(cards, models.Card{
			ID:           CardID(i),
			Combinations: combinations,
		})
	}

	return cards, nil
}

// CardID formats the identifier of the card at the zero-based position
func CardID(index int) string {
	return fmt.Sprintf("card-%03d", index+1)
}

func generateCombinations(scores models.NumberScores, groups models.GroupPartition, rng RNG, combosPerCard int) ([]models.Combination, error) {
	combinations := make([]models.Combination, 0, combosPerCard)
	seen := make(map[[models.NumbersPerDraw]int]bool, combosPerCard)
	maxAttempts := combosPerCard * AttemptsPerCombination

	for attempts := 0; len(combinations) < combosPerCard && attempts < maxAttempts; attempts++ {
		var numbers [models.NumbersPerDraw]int
		idx := 0
		for _, g := range sampledGroups {
			for _, n := range sampleGroup(groups.Members(g), scores, rng, PicksPerGroup) {
				numbers[idx] = n
				idx++
			}
		}
		slices.Sort(numbers[:])

		if seen[numbers] {
			continue
		}
		seen[numbers] = true

		combinations = append(combinations, models.Combination{
			Numbers:     numbers,
			Score:       ComboScore(numbers, scores),
			Explanation: models.CombinationExplanation,
		})
	}

	if len(combinations) < combosPerCard {
		return nil, fmt.Errorf("%w: found %d of %d after %d attempts",
			models.ErrGenerationExhausted, len(combinations), combosPerCard, maxAttempts)
	}

	return combinations, nil
}

// sampleGroup draws count numbers without replacement, each with probability
// proportional to its score. A group whose weights sum to zero is sampled uniformly.
func sampleGroup(members []int, scores models.NumberScores, rng RNG, count int) []int {
	available := slices.Clone(members)
	selected := make([]int, 0, count)

	for i := 0; i < count && len(available) > 0; i++ {
		total := 0.0
		for _, n := range available {
			total += scores[n]
		}
		uniform := total <= 0
		if uniform {
			total = float64(len(available))
		}

		threshold := rng.Float64() * total
		chosen := len(available) - 1
		cumulative := 0.0
		for idx, n := range available {
			if uniform {
				cumulative++
			} else {
				cumulative += scores[n]
			}
			if threshold <= cumulative {
				chosen = idx
				break
			}
		}

		selected = append(selected, available[chosen])
		available = slices.Delete(available, chosen, chosen+1)
	}

	return selected
}

// ComboScore is the mean member score as a percentage rounded to 2 decimals
func ComboScore(numbers [models.NumbersPerDraw]int, scores models.NumberScores) float64 {
	sum := 0.0
	for _, n := range numbers {
		sum += scores[n]
	}
	mean := sum / float64(len(numbers))
	return math.Round(mean*10000) / 100
}
