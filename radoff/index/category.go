package index

import "github.com/pkg/errors"

// Category is a qualitative rating derived from a numeric reading.
type Category string

const (
	Excellent Category = "excellent"
	Good      Category = "good"
	Medium    Category = "medium"
	Poor      Category = "poor"
	Terrible  Category = "terrible"
)

// Categories lists every category from best to worst.
var Categories = []Category{Excellent, Good, Medium, Poor, Terrible}

// Rank orders categories from 0 (excellent) to 4 (terrible).
// Unknown categories rank -1.
func Rank(c Category) int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return -1
}

func (c Category) String() string {
	return string(c)
}

// UnmarshalText rejects names outside the fixed enumeration.
func (c *Category) UnmarshalText(text []byte) error {
	candidate := Category(text)
	if Rank(candidate) < 0 {
		return errors.Errorf("unknown category %q", string(text))
	}
	*c = candidate
	return nil
}
