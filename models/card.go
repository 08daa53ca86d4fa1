package models

// CombinationExplanation is attached to every generated combination
const CombinationExplanation = "Combination of 2 numbers from Group A, 2 from Group B and 2 from Group C, " +
	"weighted by the model score from statistical analysis and meant only as an auxiliary tool."

// Combination is a sorted set of 6 numbers with its mean score as a percentage
type Combination struct {
	Numbers     [NumbersPerDraw]int `json:"numbers"`
	Score       float64             `json:"score"`
	Explanation string              `json:"explanation"`
}

// Hits counts how many of the combination's numbers were drawn
func (c Combination) Hits(draw Draw) int {
	hits := 0
	for _, n := range c.Numbers {
		if draw.Contains(n) {
			hits++
		}
	}
	return hits
}

// Card is a purchasable bundle of combinations
type Card struct {
	ID           string        `json:"id"`
	Combinations []Combination `json:"combinations"`
}
