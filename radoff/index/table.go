package index

import (
	"sort"

	"github.com/pkg/errors"
)

// Threshold maps readings up to and including Max onto Category.
type Threshold struct {
	Max      float64  `yaml:"max" json:"max"`
	Category Category `yaml:"category" json:"category"`
}

// Rule classifies one metric. Thresholds are scanned in ascending order and the
// first one the reading does not exceed wins; anything above the last bound gets Else.
type Rule struct {
	Thresholds []Threshold `yaml:"thresholds" json:"thresholds"`
	Else       Category    `yaml:"else" json:"else"`
}

// Classify never fails. NaN is not <= any bound and therefore gets Else.
func (r Rule) Classify(value float64) Category {
	for _, t := range r.Thresholds {
		if value <= t.Max {
			return t.Category
		}
	}
	return r.Else
}

// Categories returns the categories the rule can produce, best first.
func (r Rule) Categories() []Category {
	out := make([]Category, 0, len(r.Thresholds)+1)
	for _, t := range r.Thresholds {
		out = append(out, t.Category)
	}
	return append(out, r.Else)
}

// Validate checks that bounds strictly increase and categories never improve
// as bounds increase.
func (r Rule) Validate() error {
	if len(r.Thresholds) == 0 {
		return errors.New("rule has no thresholds")
	}
	prevRank := -1
	for i, t := range r.Thresholds {
		rank := Rank(t.Category)
		if rank < 0 {
			return errors.Errorf("threshold %d: unknown category %q", i, t.Category)
		}
		if i > 0 && t.Max <= r.Thresholds[i-1].Max {
			return errors.Errorf("threshold %d: bound %v is not above %v", i, t.Max, r.Thresholds[i-1].Max)
		}
		if rank < prevRank {
			return errors.Errorf("threshold %d: %s is better than %s", i, t.Category, r.Thresholds[i-1].Category)
		}
		prevRank = rank
	}
	if rank := Rank(r.Else); rank < 0 {
		return errors.Errorf("unknown else category %q", r.Else)
	} else if rank < prevRank {
		return errors.Errorf("else category %s is better than %s", r.Else, r.Thresholds[len(r.Thresholds)-1].Category)
	}
	return nil
}

// Table maps a metric identifier onto its classification rule.
type Table map[string]Rule

// Classify returns the category for value, or false when metric has no rule.
func (t Table) Classify(metric string, value float64) (Category, bool) {
	rule, ok := t[metric]
	if !ok {
		return "", false
	}
	return rule.Classify(value), true
}

func (t Table) Has(metric string) bool {
	_, ok := t[metric]
	return ok
}

// Metrics returns the classified metric identifiers in sorted order.
func (t Table) Metrics() []string {
	metrics := make([]string, 0, len(t))
	for m := range t {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	return metrics
}

func (t Table) Validate() error {
	for _, m := range t.Metrics() {
		if err := t[m].Validate(); err != nil {
			return errors.Wrapf(err, "metric %s", m)
		}
	}
	return nil
}

// Merge returns a copy of t with the rules in overrides added or replaced.
func (t Table) Merge(overrides Table) Table {
	merged := make(Table, len(t)+len(overrides))
	for m, r := range t {
		merged[m] = r
	}
	for m, r := range overrides {
		merged[m] = r
	}
	return merged
}
