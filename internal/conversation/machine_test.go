package conversation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plenasaude/quote-assistant/internal/pricing"
)

var (
	testNow        = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	familyScenario = []string{"Hi", "Maria", "11999990000", "m@x.com", "2", "4", "35,32,5,3", "2", "2", "2", "1"}
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	engine, err := pricing.NewDefaultEngine()
	require.NoError(t, err)
	return NewMachine(engine)
}

func drive(m *Machine, s Session, inputs ...string) (Session, []Outcome) {
	outcomes := make([]Outcome, 0, len(inputs))
	for _, in := range inputs {
		var out Outcome
		s, out = m.Step(s, in, testNow)
		outcomes = append(outcomes, out)
	}
	return s, outcomes
}

func TestEndToEndFamilyScenario(t *testing.T) {
	m := newTestMachine(t)

	s, outcomes := drive(m, NewSession("sess-1", testNow), familyScenario...)

	last := outcomes[len(outcomes)-1]
	require.Equal(t, EventQuote, last.Category)
	require.NotNil(t, last.Quote)
	assert.Equal(t, 4, last.Quote.Lives)
	assert.Equal(t, pricing.TierIntermediate, last.Quote.Tier)
	assert.Equal(t, pricing.CostSharingWithout, last.Quote.CostSharing)
	assert.InDelta(t, 852.15, last.Quote.MonthlyValue, 0.001)
	assert.Contains(t, last.Reply, "R$ 852.15")
	assert.NotContains(t, last.Reply, "SPECIAL OFFER")

	assert.Equal(t, StateRouteToAgent, s.State)
	assert.Equal(t, "Caieiras", s.Region)
	assert.Equal(t, []int{35, 32, 5, 3}, s.Ages)
	assert.Equal(t, pricing.PlanFamily, s.PlanType)
	assert.Empty(t, s.Hospital)
	require.NotNil(t, s.Quote)
	assert.Equal(t, last.Quote.MonthlyValue, s.Quote.MonthlyValue)
}

func TestStepDoesNotMutateInput(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:6]...)
	require.Equal(t, StateCollectAges, s.State)

	before := s.Clone()
	_, _ = m.Step(s, "35,32,5,3", testNow)
	assert.Equal(t, before, s)
}

func TestRoundTripResetsAndRestarts(t *testing.T) {
	m := newTestMachine(t)

	s, first := drive(m, NewSession("sess-1", testNow), familyScenario...)
	s, out := drive(m, s, "yes, let's proceed")
	require.Equal(t, StateClose, s.State)
	require.Equal(t, EventLeadQualified, out[0].Category)
	require.NotNil(t, out[0].Lead)
	assert.Equal(t, "Maria", out[0].Lead.Name)
	assert.Equal(t, "11999990000", out[0].Lead.Phone)
	assert.Equal(t, "Plena Plus", out[0].Lead.PlanName)
	assert.InDelta(t, 852.15, out[0].Lead.MonthlyValue, 0.001)
	assert.Contains(t, out[0].Reply, "boleto")

	s, out = drive(m, s, "thanks")
	require.Equal(t, StateStart, s.State)
	assert.Equal(t, EventClosed, out[0].Category)
	assert.Contains(t, out[0].Reply, "Have a great day")
	assert.Empty(t, s.Name)
	assert.Nil(t, s.Quote)

	s, second := drive(m, s, familyScenario...)
	assert.Equal(t, StateRouteToAgent, s.State)
	for i := range first {
		assert.Equal(t, first[i].Reply, second[i].Reply, "turn %d", i)
	}
}

func TestRouteToAgentWaitsForAffirmative(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario...)

	s, out := drive(m, s, "hmm, let me think")
	assert.Equal(t, StateRouteToAgent, s.State)
	assert.Nil(t, out[0].Lead)
	assert.Equal(t, clarifyAgentMessage, out[0].Reply)
}

func TestFAQNeverAdvancesState(t *testing.T) {
	m := newTestMachine(t)
	grace, ok := FAQAnswer(FAQCategoryGracePeriod)
	require.True(t, ok)

	for n := 0; n <= len(familyScenario); n++ {
		s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:n]...)
		before := s.State

		after, out := m.Step(s, "What is the grace period?", testNow)
		assert.Equal(t, before, after.State, "after %d inputs", n)
		assert.Equal(t, EventFAQ, out.Category)
		assert.Equal(t, FAQCategoryGracePeriod, out.FAQCategory)
		assert.True(t, strings.HasPrefix(out.Reply, grace))
	}
}

func TestFAQRepeatsCurrentQuestion(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:5]...)
	require.Equal(t, StateCollectHeadcount, s.State)

	_, out := m.Step(s, "which documents do I need?", testNow)
	assert.Contains(t, out.Reply, faqResumeMessage)
	assert.Contains(t, out.Reply, "How many people will be covered")
}

func TestMalformedHeadcountReprompts(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:5]...)
	require.Equal(t, StateCollectHeadcount, s.State)

	for _, in := range []string{"abc", "0", "-3", "2.5", ""} {
		next, out := m.Step(s, in, testNow)
		assert.Equal(t, StateCollectHeadcount, next.State, "input %q", in)
		assert.True(t, strings.HasPrefix(out.Reply, invalidHeadcountMessage), "input %q", in)
	}
}

func TestAgesValidation(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:6]...)
	require.Equal(t, StateCollectAges, s.State)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"count mismatch", "35,32", "You told me 4 people but I received 2 ages."},
		{"not numbers", "35,abc,5,3", invalidAgesMessage},
		{"negative age", "35,-1,5,3", invalidAgesMessage},
		{"empty item", "35,,5,3", invalidAgesMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, out := m.Step(s, tt.input, testNow)
			assert.Equal(t, StateCollectAges, next.State)
			assert.True(t, strings.HasPrefix(out.Reply, tt.want), out.Reply)
			assert.Nil(t, next.Ages)
		})
	}

	next, _ := m.Step(s, " 35 , 32, 5,3 ", testNow)
	assert.Equal(t, StateCollectRegion, next.State)
}

func TestInvalidMenuChoicesReprompt(t *testing.T) {
	m := newTestMachine(t)

	tests := []struct {
		name  string
		steps int
		state State
		input string
	}{
		{"plan type", 4, StateChoosePlanType, "7"},
		{"region", 7, StateCollectRegion, "9"},
		{"hospital preference", 8, StateHospitalPreference, "maybe"},
		{"coverage tier", 9, StateChooseCoverageTier, "gold"},
		{"cost sharing", 10, StateChooseCostSharing, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:tt.steps]...)
			require.Equal(t, tt.state, s.State)
			next, out := m.Step(s, tt.input, testNow)
			assert.Equal(t, tt.state, next.State)
			assert.Equal(t, EventNormalFlow, out.Category)
			assert.Contains(t, out.Reply, m.Prompt(s))
		})
	}
}

func TestBusinessBranchCollectsCompany(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), "Hi", "João Silva", "11988887777", "j@acme.com", "3")
	require.Equal(t, StateCollectCompany, s.State)

	s, _ = drive(m, s, "Acme Ltda")
	require.Equal(t, StateConfirmCNPJ, s.State)
	s, out := drive(m, s, "yes, active since 2019")
	require.Equal(t, StateCollectHeadcount, s.State)
	assert.True(t, s.CNPJActive)
	assert.Contains(t, out[0].Reply, "counting employees and dependents")

	s, outs := drive(m, s, "3", "30,40,50", "1", "2", "1", "2")
	last := outs[len(outs)-1]
	require.NotNil(t, last.Quote)
	assert.Equal(t, pricing.PlanBusiness, last.Quote.PlanType)
	// (190 + 250 + 340) * 0.8 on the 2-9 table, no roster discount
	assert.InDelta(t, 624.0, last.Quote.MonthlyValue, 0.001)
	assert.Contains(t, last.Reply, "Company: Acme Ltda")
	assert.Equal(t, "Francisco Morato", s.Region)
}

func TestCNPJNotConfirmed(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), "Hi", "João", "1", "j@x.com", "3", "Acme")
	s, _ = drive(m, s, "no")
	assert.False(t, s.CNPJActive)
	assert.Equal(t, StateCollectHeadcount, s.State)
}

func TestHospitalNameHasDedicatedState(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:8]...)
	require.Equal(t, StateHospitalPreference, s.State)

	s, _ = drive(m, s, "1")
	require.Equal(t, StateAwaitingHospitalName, s.State)

	// Any text on this turn is the hospital name, even a menu-like answer.
	s, out := drive(m, s, "Hospital São Camilo")
	require.Equal(t, StateChooseCoverageTier, s.State)
	assert.Equal(t, "Hospital São Camilo", s.Hospital)
	assert.Contains(t, out[0].Reply, "premium hospital")

	s, outs := drive(m, s, "2", "1")
	last := outs[len(outs)-1]
	require.NotNil(t, last.Quote)
	assert.True(t, last.Quote.PremiumHospital)
	assert.InDelta(t, pricing.Round2(897*0.95*1.25), last.Quote.MonthlyValue, 0.001)
	assert.Equal(t, StateRouteToAgent, s.State)
}

func TestOtherRegionShowsDisclaimer(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:7]...)
	require.Equal(t, StateCollectRegion, s.State)

	s, out := drive(m, s, "4")
	assert.Equal(t, StateHospitalPreference, s.State)
	assert.Equal(t, otherRegion, s.Region)
	assert.Contains(t, out[0].Reply, "don't have our own network in your region")
	assert.NotContains(t, out[0].Reply, "Hospital Previna")
}

func TestRegionAcceptsName(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:7]...)

	s, out := drive(m, s, "perus")
	assert.Equal(t, "Perus", s.Region)
	assert.Contains(t, out[0].Reply, "Hospital Municipal Dr. Moyses Deutsch")
}

func TestResumeRepeatsQuestion(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:6]...)
	s.RetryCount = 1
	s.Active = false

	resumed, out := m.Resume(s, testNow.Add(48*time.Hour))
	assert.Equal(t, StateCollectAges, resumed.State)
	assert.True(t, resumed.Active)
	assert.Equal(t, EventRemarketingReturn, out.Category)
	assert.True(t, strings.HasPrefix(out.Reply, "Good to see you again, Maria! Let's continue where we left off."))
	assert.Contains(t, out.Reply, "ages of the 4 people")
}

func TestResumeDiscountShownOnQuote(t *testing.T) {
	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:10]...)
	s.RetryCount = 2

	s, out := drive(m, s, "1")
	require.NotNil(t, out[0].Quote)
	assert.InDelta(t, 852.15, out[0].Quote.MonthlyValue, 0.001)
	assert.Contains(t, out[0].Reply, "SPECIAL OFFER: 10% off")
	assert.Contains(t, out[0].Reply, formatMoney(pricing.Round2(852.15*0.9)))

	resumed, rout := m.Resume(s, testNow)
	assert.Equal(t, StateRouteToAgent, resumed.State)
	assert.Contains(t, rout.Reply, "SPECIAL OFFER: 10% off")
}

func TestResumeDiscountIsCapped(t *testing.T) {
	for retries, want := range map[int]float64{0: 0, -2: 0, 1: 0.05, 3: 0.15, 4: 0.15, 25: 0.15} {
		assert.InDelta(t, want, resumeDiscount(retries), 1e-9, "retries=%d", retries)
	}

	m := newTestMachine(t)
	s, _ := drive(m, NewSession("sess-1", testNow), familyScenario[:10]...)
	s.RetryCount = 25

	_, out := drive(m, s, "1")
	require.NotNil(t, out[0].Quote)
	assert.Contains(t, out[0].Reply, "SPECIAL OFFER: 15% off")
	assert.Contains(t, out[0].Reply, formatMoney(pricing.Round2(852.15*0.85)))
	assert.NotContains(t, out[0].Reply, "R$ -")
}

func TestUnknownStateRestarts(t *testing.T) {
	m := newTestMachine(t)
	s := NewSession("sess-1", testNow)
	s.State = State(99)

	next, out := m.Step(s, "hello", testNow)
	assert.Equal(t, StateCollectName, next.State)
	assert.Contains(t, out.Reply, welcomeMessage)
}
