package models

// NumberScores maps each number in [MinNumber, MaxNumber] to a strength score in [0,1]
type NumberScores map[int]float64

// Group identifies one of the four score tiers
type Group string

const (
	GroupA Group = "A"
	GroupB Group = "B"
	GroupC Group = "C"
	GroupD Group = "D"
)

// GroupPartition holds the four score tiers, each ordered by descending score
type GroupPartition struct {
	A []int `json:"A"`
	B []int `json:"B"`
	C []int `json:"C"`
	D []int `json:"D"`
}

// Members returns the numbers of a single tier
func (p GroupPartition) Members(g Group) []int {
	switch g {
	case GroupA:
		return p.A
	case GroupB:
		return p.B
	case GroupC:
		return p.C
	case GroupD:
		return p.D
	default:
		return nil
	}
}

// GroupOf returns the tier holding the number, or "" when it is not partitioned
func (p GroupPartition) GroupOf(number int) Group {
	for _, g := range []Group{GroupA, GroupB, GroupC, GroupD} {
		for _, n := range p.Members(g) {
			if n == number {
				return g
			}
		}
	}
	return ""
}

// Size returns the total count of partitioned numbers
func (p GroupPartition) Size() int {
	return len(p.A) + len(p.B) + len(p.C) + len(p.D)
}
