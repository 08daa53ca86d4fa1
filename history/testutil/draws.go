package testutil

import (
	"math/rand/v2"
	"sort"

	"megafacil/models"
)

// GenerateDraws builds n valid draws with ascending sequence ids starting at 1.
// The same seed always yields the same history.
func GenerateDraws(n int, seed uint64) []models.Draw {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	draws := make([]models.Draw, 0, n)
	for i := 0; i < n; i++ {
		picks := rng.Perm(models.MaxNumber)[:models.NumbersPerDraw]
		sort.Ints(picks)

		draw := models.Draw{SequenceID: int64(i + 1)}
		for j, p := range picks {
			draw.Numbers[j] = p + models.MinNumber
		}
		draws = append(draws, draw)
	}
	return draws
}

// NewDraw is a shorthand for a single draw in tests
func NewDraw(sequenceID int64, numbers ...int) models.Draw {
	draw := models.Draw{SequenceID: sequenceID}
	copy(draw.Numbers[:], numbers)
	return draw
}
