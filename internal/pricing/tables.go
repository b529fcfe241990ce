package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// ErrInvalidTables is returned when a pricing table file is malformed.
var ErrInvalidTables = errors.New("pricing: invalid tables")

// Band is a closed integer range. A nil Max means the band is open-ended.
type Band struct {
	Label string `yaml:"label"`
	Min   int    `yaml:"min"`
	Max   *int   `yaml:"max"`
}

// Contains reports whether v falls inside the band.
func (b Band) Contains(v int) bool {
	if v < b.Min {
		return false
	}
	return b.Max == nil || v <= *b.Max
}

// HeadcountBand is a business roster-size band with its per-age-band rates.
type HeadcountBand struct {
	Band  `yaml:",inline"`
	Rates []float64 `yaml:"rates"`
}

// RosterDiscount applies Rate to rosters with at least MinLives lives.
type RosterDiscount struct {
	MinLives int     `yaml:"min_lives"`
	Rate     float64 `yaml:"rate"`
}

// TierSpec describes one coverage tier.
type TierSpec struct {
	Name     string   `yaml:"name"`
	Factor   float64  `yaml:"factor"`
	Coverage []string `yaml:"coverage"`
}

// CostSharingSpec describes one cost-sharing option.
type CostSharingSpec struct {
	Label  string  `yaml:"label"`
	Factor float64 `yaml:"factor"`
}

// PremiumHospital carries a surcharge multiplier applied to the whole quote.
type PremiumHospital struct {
	Name      string  `yaml:"name"`
	Surcharge float64 `yaml:"surcharge"`
}

// RegionNetwork lists the hospitals serving one region.
type RegionNetwork struct {
	Name      string   `yaml:"name"`
	Hospitals []string `yaml:"hospitals"`
}

// Tables is the full pricing configuration.
type Tables struct {
	AgeBands             []Band                          `yaml:"age_bands"`
	IndividualRates      []float64                       `yaml:"individual_rates"`
	BusinessBands        []HeadcountBand                 `yaml:"business_bands"`
	RosterDiscounts      []RosterDiscount                `yaml:"roster_discounts"`
	Tiers                map[CoverageTier]TierSpec       `yaml:"tiers"`
	CostSharing          map[CostSharing]CostSharingSpec `yaml:"cost_sharing"`
	PremiumHospitals     []PremiumHospital               `yaml:"premium_hospitals"`
	StandardNetworkLabel string                          `yaml:"standard_network_label"`
	Regions              []RegionNetwork                 `yaml:"regions"`
}

// DefaultTables returns the bundled tables.
func DefaultTables() (*Tables, error) {
	return ParseTables(defaultTablesYAML)
}

// LoadTables reads tables from path, or the bundled tables when path is empty.
func LoadTables(path string) (*Tables, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTables()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pricing: read tables %s: %w", path, err)
	}
	return ParseTables(data)
}

// ParseTables decodes and validates a YAML table document.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidTables, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the structural invariants the engine relies on.
func (t *Tables) Validate() error {
	if err := validateBands(t.AgeBands, 0); err != nil {
		return fmt.Errorf("%w: age bands: %v", ErrInvalidTables, err)
	}
	if len(t.IndividualRates) != len(t.AgeBands) {
		return fmt.Errorf("%w: individual rates: want %d values, got %d", ErrInvalidTables, len(t.AgeBands), len(t.IndividualRates))
	}
	if err := positive(t.IndividualRates); err != nil {
		return fmt.Errorf("%w: individual rates: %v", ErrInvalidTables, err)
	}

	if len(t.BusinessBands) == 0 {
		return fmt.Errorf("%w: business bands missing", ErrInvalidTables)
	}
	headcount := make([]Band, len(t.BusinessBands))
	for i, b := range t.BusinessBands {
		headcount[i] = b.Band
		if len(b.Rates) != len(t.AgeBands) {
			return fmt.Errorf("%w: business band %s: want %d rates, got %d", ErrInvalidTables, b.Label, len(t.AgeBands), len(b.Rates))
		}
		if err := positive(b.Rates); err != nil {
			return fmt.Errorf("%w: business band %s: %v", ErrInvalidTables, b.Label, err)
		}
		if i > 0 {
			prev := t.BusinessBands[i-1]
			for j := range b.Rates {
				if b.Rates[j] >= prev.Rates[j] {
					return fmt.Errorf("%w: business band %s must be cheaper than %s at age band %s", ErrInvalidTables, b.Label, prev.Label, t.AgeBands[j].Label)
				}
			}
		}
	}
	if err := validateBands(headcount, t.BusinessBands[0].Min); err != nil {
		return fmt.Errorf("%w: business bands: %v", ErrInvalidTables, err)
	}

	for i, d := range t.RosterDiscounts {
		if d.Rate <= 0 || d.Rate >= 1 {
			return fmt.Errorf("%w: roster discount for %d lives out of range", ErrInvalidTables, d.MinLives)
		}
		if i > 0 && d.MinLives >= t.RosterDiscounts[i-1].MinLives {
			return fmt.Errorf("%w: roster discounts must be ordered by descending min_lives", ErrInvalidTables)
		}
	}

	prevFactor := 0.0
	for _, tier := range CoverageTiers() {
		spec, ok := t.Tiers[tier]
		if !ok {
			return fmt.Errorf("%w: tier %s missing", ErrInvalidTables, tier)
		}
		if spec.Factor <= prevFactor {
			return fmt.Errorf("%w: tier %s factor must exceed the previous tier", ErrInvalidTables, tier)
		}
		if spec.Name == "" || len(spec.Coverage) == 0 {
			return fmt.Errorf("%w: tier %s needs a name and coverage list", ErrInvalidTables, tier)
		}
		prevFactor = spec.Factor
	}

	with, okWith := t.CostSharing[CostSharingWith]
	without, okWithout := t.CostSharing[CostSharingWithout]
	if !okWith || !okWithout {
		return fmt.Errorf("%w: both cost-sharing options are required", ErrInvalidTables)
	}
	if with.Factor <= 0 || with.Factor >= without.Factor {
		return fmt.Errorf("%w: cost-sharing must lower the premium", ErrInvalidTables)
	}

	for _, h := range t.PremiumHospitals {
		if strings.TrimSpace(h.Name) == "" || h.Surcharge <= 1.0 {
			return fmt.Errorf("%w: premium hospital %q needs a surcharge above 1.0", ErrInvalidTables, h.Name)
		}
	}
	if t.StandardNetworkLabel == "" {
		return fmt.Errorf("%w: standard network label missing", ErrInvalidTables)
	}
	for _, r := range t.Regions {
		if r.Name == "" || len(r.Hospitals) == 0 {
			return fmt.Errorf("%w: region %q needs hospitals", ErrInvalidTables, r.Name)
		}
	}
	return nil
}

// validateBands requires contiguous, non-overlapping bands starting at start
// with only the last band open-ended.
func validateBands(bands []Band, start int) error {
	if len(bands) == 0 {
		return errors.New("no bands")
	}
	next := start
	for i, b := range bands {
		if b.Min != next {
			return fmt.Errorf("band %s starts at %d, want %d", b.Label, b.Min, next)
		}
		last := i == len(bands)-1
		if b.Max == nil {
			if !last {
				return fmt.Errorf("band %s is open-ended but not last", b.Label)
			}
			continue
		}
		if last {
			return fmt.Errorf("last band %s must be open-ended", b.Label)
		}
		if *b.Max < b.Min {
			return fmt.Errorf("band %s has max below min", b.Label)
		}
		next = *b.Max + 1
	}
	return nil
}

func positive(values []float64) error {
	for i, v := range values {
		if v <= 0 {
			return fmt.Errorf("value %d must be positive", i)
		}
	}
	return nil
}
