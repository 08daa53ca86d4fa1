package backtest

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"megafacil/generator"
	"megafacil/models"
	"megafacil/scoring"
)

// Score bucket labels, by combination score percentage
const (
	Bucket0To20   = "0-20"
	Bucket20To40  = "20-40"
	Bucket40To60  = "40-60"
	Bucket60To80  = "60-80"
	Bucket80To100 = "80-100"
)

// Config controls a walk-forward run
type Config struct {
	WindowSize          int
	CardsPerDraw        int
	CombinationsPerCard int
	Steps               int // Only evaluate the last Steps draws; 0 evaluates all
}

// Bucket aggregates the hits of combinations within one score range
type Bucket struct {
	Count   int     `json:"count"`
	AvgHits float64 `json:"avg_hits"`
}

// Report summarises how generated combinations matched the draws that followed them
type Report struct {
	DrawsEvaluated            int               `json:"draws_evaluated"`
	TotalCombinations         int               `json:"total_combinations"`
	MatchDistribution         map[int]int       `json:"match_distribution"`
	BaselineMatchDistribution map[int]int       `json:"baseline_match_distribution"`
	ScoreBuckets              map[string]Bucket `json:"score_buckets"`
}

func newReport() *Report {
	return &Report{
		MatchDistribution:         make(map[int]int),
		BaselineMatchDistribution: make(map[int]int),
		ScoreBuckets:              make(map[string]Bucket),
	}
}

// Run scores every prefix draws[:i], generates cards from it and counts their hits
// against draws[i]. A random baseline of the same size is counted alongside.
// draws must be ordered oldest first.
func Run(ctx context.Context, draws []models.Draw, cfg Config, rng generator.RNG) (*Report, error) {
	if cfg.WindowSize < 1 || cfg.CardsPerDraw < 1 || cfg.CombinationsPerCard < 1 || cfg.Steps < 0 {
		return nil, fmt.Errorf("%w: window, cards and combinations must be positive", models.ErrInvalidInput)
	}

	report := newReport()
	if len(draws) < 2 {
		return report, nil
	}

	start := 1
	if cfg.Steps > 0 && len(draws)-cfg.Steps > start {
		start = len(draws) - cfg.Steps
	}

	hitSums := make(map[string]int)
	for i := start; i < len(draws); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := scoring.ComputeScores(draws[:i], cfg.WindowSize)
		if err != nil {
			return nil, fmt.Errorf("failed to score draws before %d: %w", draws[i].SequenceID, err)
		}

		cards, err := generator.GenerateCards(result.Scores, result.Groups, rng, cfg.CardsPerDraw, cfg.CombinationsPerCard)
		if err != nil {
			return nil, fmt.Errorf("failed to generate cards for draw %d: %w", draws[i].SequenceID, err)
		}

		actual := draws[i]
		combos := 0
		for _, card := range cards {
			for _, combo := range card.Combinations {
				hits := combo.Hits(actual)
				report.MatchDistribution[hits]++

				label := ScoreBucket(combo.Score)
				bucket := report.ScoreBuckets[label]
				bucket.Count++
				report.ScoreBuckets[label] = bucket
				hitSums[label] += hits
				combos++
			}
		}

		for range combos {
			baseline := models.Combination{Numbers: randomCombination(rng)}
			report.BaselineMatchDistribution[baseline.Hits(actual)]++
		}

		report.TotalCombinations += combos
		report.DrawsEvaluated++
	}

	for label, bucket := range report.ScoreBuckets {
		bucket.AvgHits = math.Round(float64(hitSums[label])/float64(bucket.Count)*1000) / 1000
		report.ScoreBuckets[label] = bucket
	}

	log.WithFields(log.Fields{
		"draws_evaluated":    report.DrawsEvaluated,
		"total_combinations": report.TotalCombinations,
		"window_size":        cfg.WindowSize,
	}).Info("Backtest completed")

	return report, nil
}

// ScoreBucket returns the label of the range holding score
func ScoreBucket(score float64) string {
	switch {
	case score >= 80:
		return Bucket80To100
	case score >= 60:
		return Bucket60To80
	case score >= 40:
		return Bucket40To60
	case score >= 20:
		return Bucket20To40
	default:
		return Bucket0To20
	}
}

// randomCombination draws 6 distinct uniform numbers with a partial shuffle
func randomCombination(rng generator.RNG) [models.NumbersPerDraw]int {
	pool := models.AllNumbers()
	var numbers [models.NumbersPerDraw]int
	for i := range numbers {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		numbers[i] = pool[i]
	}
	return numbers
}
