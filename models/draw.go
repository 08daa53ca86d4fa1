package models

import "fmt"

const (
	// MinNumber and MaxNumber bound every number that can appear in a draw
	MinNumber = 1
	MaxNumber = 60

	// NumbersPerDraw is the count of distinct numbers in every draw and combination
	NumbersPerDraw = 6
)

// Draw represents one historical lottery outcome
type Draw struct {
	SequenceID int64               `db:"sequence_id" json:"sequence_id"`
	Numbers    [NumbersPerDraw]int `db:"numbers" json:"numbers"`
}

// Validate checks the draw has a positive sequence id and 6 distinct in-range numbers
func (d Draw) Validate() error {
	if d.SequenceID <= 0 {
		return fmt.Errorf("sequence id must be positive, got %d", d.SequenceID)
	}

	seen := make(map[int]bool, NumbersPerDraw)
	for _, n := range d.Numbers {
		if n < MinNumber || n > MaxNumber {
			return fmt.Errorf("draw %d: number %d out of range", d.SequenceID, n)
		}
		if seen[n] {
			return fmt.Errorf("draw %d: duplicate number %d", d.SequenceID, n)
		}
		seen[n] = true
	}

	return nil
}

// Contains reports whether the number was drawn
func (d Draw) Contains(number int) bool {
	for _, n := range d.Numbers {
		if n == number {
			return true
		}
	}
	return false
}

// AllNumbers returns every playable number in ascending order
func AllNumbers() []int {
	numbers := make([]int, 0, MaxNumber-MinNumber+1)
	for n := MinNumber; n <= MaxNumber; n++ {
		numbers = append(numbers, n)
	}
	return numbers
}
