package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidPlanType     = errors.New("pricing: invalid plan type")
	ErrEmptyRoster         = errors.New("pricing: roster has no ages")
	ErrNegativeAge         = errors.New("pricing: negative age")
	ErrInvalidCoverageTier = errors.New("pricing: invalid coverage tier")
	ErrInvalidCostSharing  = errors.New("pricing: invalid cost-sharing option")
	ErrUnknownRegion       = errors.New("pricing: unknown region")
)

// PlanType selects the rate table and aggregation rule.
type PlanType string

const (
	PlanIndividual PlanType = "individual"
	PlanFamily     PlanType = "family"
	PlanBusiness   PlanType = "business"
)

// Label is the customer-facing plan type name.
func (p PlanType) Label() string {
	switch p {
	case PlanIndividual:
		return "Individual"
	case PlanFamily:
		return "Family"
	case PlanBusiness:
		return "Business/SME"
	default:
		return string(p)
	}
}

// CoverageTier is one of the fixed benefit packages.
type CoverageTier string

const (
	TierBasic        CoverageTier = "basic"
	TierIntermediate CoverageTier = "intermediate"
	TierComplete     CoverageTier = "complete"
)

// CoverageTiers lists tiers from cheapest to richest.
func CoverageTiers() []CoverageTier {
	return []CoverageTier{TierBasic, TierIntermediate, TierComplete}
}

// CostSharing reports whether the insured pays a per-use fee.
type CostSharing string

const (
	CostSharingWith    CostSharing = "with"
	CostSharingWithout CostSharing = "without"
)

// Request is the input to a quote.
type Request struct {
	PlanType    PlanType
	Ages        []int
	Tier        CoverageTier
	CostSharing CostSharing
	Hospital    string
}

// Quote is a priced plan offer.
type Quote struct {
	PlanType         PlanType     `json:"plan_type"`
	PlanTypeLabel    string       `json:"plan_type_label"`
	PlanName         string       `json:"plan_name"`
	Tier             CoverageTier `json:"tier"`
	CostSharing      CostSharing  `json:"cost_sharing"`
	CostSharingLabel string       `json:"cost_sharing_label"`
	Lives            int          `json:"lives"`
	MonthlyValue     float64      `json:"monthly_value"`
	Hospital         string       `json:"hospital"`
	PremiumHospital  bool         `json:"premium_hospital"`
	Coverage         []string     `json:"coverage"`
}

// Engine prices quotes from a validated set of tables. It is safe for
// concurrent use.
type Engine struct {
	tables   *Tables
	premium  map[string]PremiumHospital
	networks map[string]RegionNetwork
}

// NewEngine validates tables and builds an engine over them.
func NewEngine(tables *Tables) (*Engine, error) {
	if tables == nil {
		return nil, fmt.Errorf("%w: nil tables", ErrInvalidTables)
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		tables:   tables,
		premium:  make(map[string]PremiumHospital, len(tables.PremiumHospitals)),
		networks: make(map[string]RegionNetwork, len(tables.Regions)),
	}
	for _, h := range tables.PremiumHospitals {
		e.premium[normalizeName(h.Name)] = h
	}
	for _, r := range tables.Regions {
		e.networks[normalizeName(r.Name)] = r
	}
	return e, nil
}

// NewDefaultEngine builds an engine over the bundled tables.
func NewDefaultEngine() (*Engine, error) {
	tables, err := DefaultTables()
	if err != nil {
		return nil, err
	}
	return NewEngine(tables)
}

// Tables exposes the tables the engine was built with.
func (e *Engine) Tables() *Tables { return e.tables }

// AgeBand returns the index and definition of the band containing age.
func (e *Engine) AgeBand(age int) (int, Band, error) {
	if age < 0 {
		return 0, Band{}, fmt.Errorf("%w: %d", ErrNegativeAge, age)
	}
	for i, b := range e.tables.AgeBands {
		if b.Contains(age) {
			return i, b, nil
		}
	}
	// unreachable with validated tables
	return 0, Band{}, fmt.Errorf("%w: no band for age %d", ErrInvalidTables, age)
}

// HeadcountBand returns the business band for a roster size. Rosters smaller
// than the first band are priced in the first band.
func (e *Engine) HeadcountBand(lives int) HeadcountBand {
	bands := e.tables.BusinessBands
	for _, b := range bands {
		if b.Contains(lives) {
			return b
		}
	}
	return bands[0]
}

// Quote prices a request.
//
// Per-life rates are summed unrounded. The roster discount (individual and
// family only) is applied to the sum, then the premium-hospital surcharge is
// applied once to that total, and the result is rounded to two decimals.
func (e *Engine) Quote(req Request) (Quote, error) {
	switch req.PlanType {
	case PlanIndividual, PlanFamily, PlanBusiness:
	default:
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidPlanType, req.PlanType)
	}
	if len(req.Ages) == 0 {
		return Quote{}, ErrEmptyRoster
	}
	tier, ok := e.tables.Tiers[req.Tier]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidCoverageTier, req.Tier)
	}
	sharing, ok := e.tables.CostSharing[req.CostSharing]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidCostSharing, req.CostSharing)
	}

	lives := len(req.Ages)
	rates := e.tables.IndividualRates
	if req.PlanType == PlanBusiness {
		rates = e.HeadcountBand(lives).Rates
	}

	total := 0.0
	for _, age := range req.Ages {
		idx, _, err := e.AgeBand(age)
		if err != nil {
			return Quote{}, err
		}
		total += rates[idx] * tier.Factor * sharing.Factor
	}

	if req.PlanType != PlanBusiness {
		total *= 1 - e.rosterDiscount(lives)
	}

	hospitalLabel := e.tables.StandardNetworkLabel
	premium, isPremium := e.premiumHospital(req.Hospital)
	if isPremium {
		total *= premium.Surcharge
		hospitalLabel = premium.Name
	}

	coverage := make([]string, len(tier.Coverage))
	copy(coverage, tier.Coverage)

	return Quote{
		PlanType:         req.PlanType,
		PlanTypeLabel:    rosterLabel(req.PlanType, lives),
		PlanName:         tier.Name,
		Tier:             req.Tier,
		CostSharing:      req.CostSharing,
		CostSharingLabel: sharing.Label,
		Lives:            lives,
		MonthlyValue:     Round2(total),
		Hospital:         hospitalLabel,
		PremiumHospital:  isPremium,
		Coverage:         coverage,
	}, nil
}

// rosterLabel names the plan by the roster actually priced: an individual
// request covering several lives reads as family, and a family of one as
// individual.
func rosterLabel(p PlanType, lives int) string {
	switch {
	case p == PlanIndividual && lives > 1:
		return PlanFamily.Label()
	case p == PlanFamily && lives == 1:
		return PlanIndividual.Label()
	default:
		return p.Label()
	}
}

// rosterDiscount returns the discount rate for an individual or family
// roster of the given size.
func (e *Engine) rosterDiscount(lives int) float64 {
	for _, d := range e.tables.RosterDiscounts {
		if lives >= d.MinLives {
			return d.Rate
		}
	}
	return 0
}

// IsPremiumHospital reports whether name is a recognized premium hospital.
func (e *Engine) IsPremiumHospital(name string) bool {
	_, ok := e.premiumHospital(name)
	return ok
}

func (e *Engine) premiumHospital(name string) (PremiumHospital, bool) {
	key := normalizeName(name)
	if key == "" {
		return PremiumHospital{}, false
	}
	h, ok := e.premium[key]
	return h, ok
}

// HospitalsInRegion lists the network hospitals for a served region.
func (e *Engine) HospitalsInRegion(region string) ([]string, error) {
	r, ok := e.networks[normalizeName(region)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	out := make([]string, len(r.Hospitals))
	copy(out, r.Hospitals)
	return out, nil
}

// Regions lists served region names in table order.
func (e *Engine) Regions() []string {
	out := make([]string, 0, len(e.tables.Regions))
	for _, r := range e.tables.Regions {
		out = append(out, r.Name)
	}
	return out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
