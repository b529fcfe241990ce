package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewDefaultEngine()
	require.NoError(t, err)
	return engine
}

func TestAgeBandCoversEveryAgeOnce(t *testing.T) {
	engine := newTestEngine(t)
	bands := engine.Tables().AgeBands

	for age := 0; age <= 120; age++ {
		matches := 0
		for _, b := range bands {
			if b.Contains(age) {
				matches++
			}
		}
		require.Equalf(t, 1, matches, "age %d matched %d bands", age, matches)

		idx, band, err := engine.AgeBand(age)
		require.NoError(t, err)
		assert.True(t, band.Contains(age))
		assert.Equal(t, bands[idx].Label, band.Label)
	}

	_, band, err := engine.AgeBand(1000)
	require.NoError(t, err)
	assert.Equal(t, "59+", band.Label)

	_, _, err = engine.AgeBand(-1)
	assert.ErrorIs(t, err, ErrNegativeAge)
}

func TestQuoteEndToEndFamily(t *testing.T) {
	engine := newTestEngine(t)

	quote, err := engine.Quote(Request{
		PlanType:    PlanFamily,
		Ages:        []int{35, 32, 5, 3},
		Tier:        TierIntermediate,
		CostSharing: CostSharingWithout,
	})
	require.NoError(t, err)

	// (240 + 210 + 120 + 120) * 1.3 = 897, minus 5% for four lives
	assert.InDelta(t, 852.15, quote.MonthlyValue, 0.001)
	assert.Equal(t, 4, quote.Lives)
	assert.Equal(t, "Plena Plus", quote.PlanName)
	assert.Equal(t, "Family", quote.PlanTypeLabel)
	assert.Equal(t, "Without cost-sharing", quote.CostSharingLabel)
	assert.Equal(t, "Plena Saúde standard network", quote.Hospital)
	assert.False(t, quote.PremiumHospital)
	assert.Len(t, quote.Coverage, 6)
}

func TestSingletonRosterGetsNoFamilyDiscount(t *testing.T) {
	engine := newTestEngine(t)

	individual, err := engine.Quote(Request{PlanType: PlanIndividual, Ages: []int{35}, Tier: TierIntermediate, CostSharing: CostSharingWithout})
	require.NoError(t, err)
	family, err := engine.Quote(Request{PlanType: PlanFamily, Ages: []int{35}, Tier: TierIntermediate, CostSharing: CostSharingWithout})
	require.NoError(t, err)

	assert.Equal(t, individual.MonthlyValue, family.MonthlyValue)
	assert.InDelta(t, 312.0, individual.MonthlyValue, 0.001)
}

func TestRosterDiscountLowersPerLifeAverage(t *testing.T) {
	engine := newTestEngine(t)

	perLife := func(lives int) float64 {
		ages := make([]int, lives)
		for i := range ages {
			ages[i] = 40
		}
		q, err := engine.Quote(Request{PlanType: PlanFamily, Ages: ages, Tier: TierBasic, CostSharing: CostSharingWithout})
		require.NoError(t, err)
		return q.MonthlyValue / float64(lives)
	}

	two, three, five := perLife(2), perLife(3), perLife(5)
	assert.Less(t, three, two)
	assert.Less(t, five, two)
	assert.Less(t, five, three)
}

func TestIndividualDeclaredAsMultiUsesRosterDiscount(t *testing.T) {
	engine := newTestEngine(t)

	q, err := engine.Quote(Request{PlanType: PlanIndividual, Ages: []int{20, 20, 20}, Tier: TierBasic, CostSharing: CostSharingWithout})
	require.NoError(t, err)
	assert.InDelta(t, 150*3*0.95, q.MonthlyValue, 0.001)
}

func TestCostSharingReducesValue(t *testing.T) {
	engine := newTestEngine(t)

	for _, plan := range []PlanType{PlanIndividual, PlanFamily, PlanBusiness} {
		ages := []int{30, 45, 12}
		with, err := engine.Quote(Request{PlanType: plan, Ages: ages, Tier: TierComplete, CostSharing: CostSharingWith})
		require.NoError(t, err)
		without, err := engine.Quote(Request{PlanType: plan, Ages: ages, Tier: TierComplete, CostSharing: CostSharingWithout})
		require.NoError(t, err)
		assert.Lessf(t, with.MonthlyValue, without.MonthlyValue, "plan %s", plan)
	}
}

func TestCoverageTierMonotonic(t *testing.T) {
	engine := newTestEngine(t)

	var prev float64
	for _, tier := range CoverageTiers() {
		q, err := engine.Quote(Request{PlanType: PlanFamily, Ages: []int{33, 31}, Tier: tier, CostSharing: CostSharingWith})
		require.NoError(t, err)
		assert.Greaterf(t, q.MonthlyValue, prev, "tier %s", tier)
		prev = q.MonthlyValue
	}
}

func TestPlanTypeLabelFollowsRosterSize(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name string
		plan PlanType
		ages []int
		want string
	}{
		{"individual of one", PlanIndividual, []int{35}, "Individual"},
		{"individual covering several lives", PlanIndividual, []int{35, 32}, "Family"},
		{"family of one", PlanFamily, []int{35}, "Individual"},
		{"family", PlanFamily, []int{35, 32, 5}, "Family"},
		{"business of one", PlanBusiness, []int{40}, "Business/SME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := engine.Quote(Request{PlanType: tt.plan, Ages: tt.ages, Tier: TierBasic, CostSharing: CostSharingWithout})
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.PlanTypeLabel)
			assert.Equal(t, tt.plan, q.PlanType)
		})
	}
}

func TestBusinessUsesHeadcountBandsWithoutRosterDiscount(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name  string
		lives int
		rate  float64
	}{
		{"small company", 5, 190},
		{"medium company", 12, 180},
		{"large company", 30, 170},
		{"single life prices in first band", 1, 190},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ages := make([]int, tt.lives)
			for i := range ages {
				ages[i] = 30
			}
			q, err := engine.Quote(Request{PlanType: PlanBusiness, Ages: ages, Tier: TierBasic, CostSharing: CostSharingWithout})
			require.NoError(t, err)
			assert.InDelta(t, tt.rate*float64(tt.lives), q.MonthlyValue, 0.001)
			assert.Equal(t, "Business/SME", q.PlanTypeLabel)
		})
	}
}

func TestPremiumHospitalSurchargeAppliedOnce(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name string
		req  Request
		want float64
	}{
		{
			name: "individual",
			req:  Request{PlanType: PlanIndividual, Ages: []int{35}, Tier: TierBasic, CostSharing: CostSharingWithout, Hospital: "Hospital São Camilo"},
			want: 240 * 1.25,
		},
		{
			name: "family after discount",
			req:  Request{PlanType: PlanFamily, Ages: []int{35, 35, 35}, Tier: TierBasic, CostSharing: CostSharingWithout, Hospital: "hospital samaritano"},
			want: 240 * 3 * 0.95 * 1.30,
		},
		{
			name: "business",
			req:  Request{PlanType: PlanBusiness, Ages: []int{35, 35}, Tier: TierBasic, CostSharing: CostSharingWithout, Hospital: "  Hospital Previna   Premium "},
			want: 220 * 2 * 1.15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := engine.Quote(tt.req)
			require.NoError(t, err)
			assert.InDelta(t, Round2(tt.want), q.MonthlyValue, 0.001)
			assert.True(t, q.PremiumHospital)
		})
	}
}

func TestUnknownHospitalFallsBackToStandardNetwork(t *testing.T) {
	engine := newTestEngine(t)

	plain, err := engine.Quote(Request{PlanType: PlanIndividual, Ages: []int{50}, Tier: TierBasic, CostSharing: CostSharingWith})
	require.NoError(t, err)
	unknown, err := engine.Quote(Request{PlanType: PlanIndividual, Ages: []int{50}, Tier: TierBasic, CostSharing: CostSharingWith, Hospital: "Hospital Qualquer"})
	require.NoError(t, err)

	assert.Equal(t, plain.MonthlyValue, unknown.MonthlyValue)
	assert.Equal(t, "Plena Saúde standard network", unknown.Hospital)
	assert.False(t, engine.IsPremiumHospital("Hospital Qualquer"))
	assert.True(t, engine.IsPremiumHospital("HOSPITAL SÃO CAMILO"))
}

func TestQuoteErrors(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"invalid plan type", Request{PlanType: "group", Ages: []int{30}, Tier: TierBasic, CostSharing: CostSharingWith}, ErrInvalidPlanType},
		{"empty roster", Request{PlanType: PlanFamily, Tier: TierBasic, CostSharing: CostSharingWith}, ErrEmptyRoster},
		{"negative age", Request{PlanType: PlanFamily, Ages: []int{30, -2}, Tier: TierBasic, CostSharing: CostSharingWith}, ErrNegativeAge},
		{"invalid tier", Request{PlanType: PlanFamily, Ages: []int{30}, Tier: "gold", CostSharing: CostSharingWith}, ErrInvalidCoverageTier},
		{"invalid cost sharing", Request{PlanType: PlanFamily, Ages: []int{30}, Tier: TierBasic, CostSharing: "partial"}, ErrInvalidCostSharing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Quote(tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHospitalsInRegion(t *testing.T) {
	engine := newTestEngine(t)

	hospitals, err := engine.HospitalsInRegion("caieiras")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hospital Previna Caieiras", "Hospital Municipal de Caieiras"}, hospitals)

	_, err = engine.HospitalsInRegion("Jundiaí")
	assert.ErrorIs(t, err, ErrUnknownRegion)

	assert.Equal(t, []string{"Francisco Morato", "Caieiras", "Perus"}, engine.Regions())
}
