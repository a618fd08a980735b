// internal/domain/intel/criteria.go

package intel

import "fmt"

// Flag is the single-select sentiment / flag selector
type Flag string

// Flag values. Exactly one is active at a time.
const (
	FlagNone     Flag = "none"
	FlagNegative Flag = "negative"
	FlagPositive Flag = "positive"
	FlagUKImpact Flag = "ukImpact"
	FlagProphecy Flag = "prophecy"
)

// AllValue is the category / continent sentinel meaning no restriction
const AllValue = "all"

// Criteria is the dashboard filter state
type Criteria struct {
	SearchTerm string `json:"search_term"`
	Flag       Flag   `json:"flag"`
	Category   string `json:"category"`
	Continent  string `json:"continent"`
}

// DefaultCriteria restricts nothing
func DefaultCriteria() Criteria {
	return Criteria{Flag: FlagNone, Category: AllValue, Continent: AllValue}
}

// Normalize fills empty selectors with their unrestricted value
func (c Criteria) Normalize() Criteria {
	if c.Flag == "" {
		c.Flag = FlagNone
	}
	if c.Category == "" {
		c.Category = AllValue
	}
	if c.Continent == "" {
		c.Continent = AllValue
	}
	return c
}

// Validate rejects unknown flag values
func (c Criteria) Validate() error {
	switch c.Normalize().Flag {
	case FlagNone, FlagNegative, FlagPositive, FlagUKImpact, FlagProphecy:
		return nil
	default:
		return fmt.Errorf("unknown flag %q", c.Flag)
	}
}
