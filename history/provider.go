// Package history supplies the ordered draw history the scoring engine consumes.
package history

import (
	"context"

	"megafacil/models"
)

// Provider returns draws ordered ascending by sequence id, already validated
type Provider interface {
	Load(ctx context.Context) ([]models.Draw, error)
}

// LastSequenceID returns the newest sequence id, or 0 for an empty history
func LastSequenceID(draws []models.Draw) int64 {
	if len(draws) == 0 {
		return 0
	}
	return draws[len(draws)-1].SequenceID
}
