package conversation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/plenasaude/quote-assistant/internal/pricing"
)

const (
	maxLives                 = 1000
	resumeDiscountPerAttempt = 0.05
	maxResumeDiscount        = 0.15
)

// QualifiedLead is emitted when a customer accepts a quote.
type QualifiedLead struct {
	SessionID    string           `json:"session_id"`
	Name         string           `json:"name"`
	Phone        string           `json:"phone"`
	Email        string           `json:"email"`
	CompanyName  string           `json:"company_name,omitempty"`
	Region       string           `json:"region"`
	PlanName     string           `json:"plan_name"`
	PlanType     pricing.PlanType `json:"plan_type"`
	Lives        int              `json:"lives"`
	MonthlyValue float64          `json:"monthly_value"`
}

// Outcome describes what a turn produced besides the updated session.
type Outcome struct {
	Reply       string
	Category    EventCategory
	FAQCategory FAQCategory
	Quote       *pricing.Quote
	Lead        *QualifiedLead
}

// Machine advances sessions one turn at a time. It keeps no per-session
// state and is safe for concurrent use.
type Machine struct {
	engine *pricing.Engine
}

// NewMachine creates a machine that prices quotes with engine.
func NewMachine(engine *pricing.Engine) *Machine {
	if engine == nil {
		panic("conversation: pricing engine cannot be nil")
	}
	return &Machine{engine: engine}
}

// Step handles one inbound message. The input session is not modified; the
// returned session carries every change made by the turn.
func (m *Machine) Step(s Session, input string, now time.Time) (Session, Outcome) {
	s = s.Clone()
	s.LastInteraction = now
	s.Active = true

	if category, answer, ok := MatchFAQ(input); ok {
		reply := answer
		if s.State != StateStart && s.State != StateClose {
			reply = joinReply(answer, faqResumeMessage+"\n"+m.prompt(s))
		}
		return s, Outcome{Reply: reply, Category: EventFAQ, FAQCategory: category}
	}

	in := strings.TrimSpace(input)
	var out Outcome
	switch s.State {
	case StateStart:
		s, out = m.handleStart(s)
	case StateCollectName:
		s, out = m.handleName(s, in)
	case StateCollectPhone:
		s, out = m.handlePhone(s, in)
	case StateCollectEmail:
		s, out = m.handleEmail(s, in)
	case StateChoosePlanType:
		s, out = m.handlePlanType(s, in)
	case StateCollectCompany:
		s, out = m.handleCompany(s, in)
	case StateConfirmCNPJ:
		s, out = m.handleCNPJ(s, in)
	case StateCollectHeadcount:
		s, out = m.handleHeadcount(s, in)
	case StateCollectAges:
		s, out = m.handleAges(s, in)
	case StateCollectRegion:
		s, out = m.handleRegion(s, in)
	case StateHospitalPreference:
		s, out = m.handleHospitalPreference(s, in)
	case StateAwaitingHospitalName:
		s, out = m.handleHospitalName(s, in)
	case StateChooseCoverageTier:
		s, out = m.handleTier(s, in)
	case StateChooseCostSharing:
		s, out = m.handleCostSharing(s, in)
	case StatePresentQuote:
		s, out = m.presentQuote(s)
	case StateRouteToAgent:
		s, out = m.handleRouteToAgent(s, in)
	case StateClose:
		s, out = m.handleClose(s, now)
	default:
		s = s.reset(now)
		s, out = m.handleStart(s)
	}
	if out.Category == "" {
		out.Category = EventNormalFlow
	}
	return s, out
}

// Resume greets a returning customer and repeats the question for the state
// their conversation was saved in.
func (m *Machine) Resume(s Session, now time.Time) (Session, Outcome) {
	s = s.Clone()
	s.LastInteraction = now
	s.Active = true
	greeting := resumeGreeting(s)

	var out Outcome
	switch {
	case s.State == StatePresentQuote:
		s, out = m.presentQuote(s)
	case s.State == StateRouteToAgent && s.Quote != nil:
		out = Outcome{Reply: joinReply(m.formatQuote(s, s.Quote), m.prompt(s))}
	case s.State == StateStart || s.State == StateClose || !s.State.Valid():
		s = s.reset(now)
		s.State = StateCollectName
		out = Outcome{Reply: m.prompt(s)}
	default:
		out = Outcome{Reply: m.prompt(s)}
	}
	out.Reply = joinReply(greeting, out.Reply)
	out.Category = EventRemarketingReturn
	return s, out
}

// Prompt returns the question for the session's current state.
func (m *Machine) Prompt(s Session) string {
	return m.prompt(s)
}

func (m *Machine) advance(s Session, next State, ack string) (Session, Outcome) {
	s.State = next
	return s, Outcome{Reply: joinReply(ack, m.prompt(s))}
}

func (m *Machine) reprompt(s Session, correction string) (Session, Outcome) {
	return s, Outcome{Reply: joinReply(correction, m.prompt(s))}
}

func (m *Machine) handleStart(s Session) (Session, Outcome) {
	return m.advance(s, StateCollectName, welcomeMessage)
}

func (m *Machine) handleName(s Session, in string) (Session, Outcome) {
	if in == "" {
		return s, Outcome{Reply: invalidNameMessage}
	}
	s.Name = in
	return m.advance(s, StateCollectPhone, "Nice to meet you, "+s.FirstName()+"!")
}

func (m *Machine) handlePhone(s Session, in string) (Session, Outcome) {
	if in == "" {
		return m.reprompt(s, invalidPhoneMessage)
	}
	s.Phone = in
	return m.advance(s, StateCollectEmail, "Thanks!")
}

func (m *Machine) handleEmail(s Session, in string) (Session, Outcome) {
	if in == "" {
		return m.reprompt(s, invalidEmailMessage)
	}
	s.Email = in
	return m.advance(s, StateChoosePlanType, "Perfect.")
}

func (m *Machine) handlePlanType(s Session, in string) (Session, Outcome) {
	var plan pricing.PlanType
	switch strings.ToLower(in) {
	case "1", "individual":
		plan = pricing.PlanIndividual
	case "2", "family", "familiar":
		plan = pricing.PlanFamily
	case "3", "business", "company", "sme", "pme", "empresarial":
		plan = pricing.PlanBusiness
	default:
		return m.reprompt(s, invalidPlanTypeMessage)
	}
	s.PlanType = plan
	if plan == pricing.PlanBusiness {
		return m.advance(s, StateCollectCompany, "")
	}
	s.CompanyName = ""
	s.CNPJActive = false
	return m.advance(s, StateCollectHeadcount, "")
}

func (m *Machine) handleCompany(s Session, in string) (Session, Outcome) {
	if in == "" {
		return m.reprompt(s, invalidCompanyMessage)
	}
	s.CompanyName = in
	return m.advance(s, StateConfirmCNPJ, "")
}

func (m *Machine) handleCNPJ(s Session, in string) (Session, Outcome) {
	s.CNPJActive = isAffirmative(in)
	ack := "Understood. A broker will confirm the company's eligibility for business rates."
	if s.CNPJActive {
		ack = "Great, an active CNPJ qualifies the company for business rates."
	}
	return m.advance(s, StateCollectHeadcount, ack)
}

func (m *Machine) handleHeadcount(s Session, in string) (Session, Outcome) {
	n, err := strconv.Atoi(in)
	if err != nil || n < 1 || n > maxLives {
		return m.reprompt(s, invalidHeadcountMessage)
	}
	s.Headcount = n
	s.Ages = nil
	return m.advance(s, StateCollectAges, "")
}

func (m *Machine) handleAges(s Session, in string) (Session, Outcome) {
	ages, ok := parseAges(in)
	if !ok {
		return m.reprompt(s, invalidAgesMessage)
	}
	if len(ages) != s.Headcount {
		return m.reprompt(s, fmt.Sprintf("You told me %d people but I received %d ages.", s.Headcount, len(ages)))
	}
	s.Ages = ages
	return m.advance(s, StateCollectRegion, "")
}

func (m *Machine) handleRegion(s Session, in string) (Session, Outcome) {
	region, ok := m.matchRegion(in)
	if !ok {
		return m.reprompt(s, invalidRegionMessage)
	}
	s.Region = region
	return m.advance(s, StateHospitalPreference, "")
}

func (m *Machine) handleHospitalPreference(s Session, in string) (Session, Outcome) {
	switch normalizeChoice(in) {
	case "1", "yes", "y", "sim":
		return m.advance(s, StateAwaitingHospitalName, "")
	case "2", "no", "n", "nao", "não", "no preference":
		s.Hospital = ""
		return m.advance(s, StateChooseCoverageTier, "No problem, we'll use the standard network.")
	default:
		return m.reprompt(s, invalidHospitalChoice)
	}
}

func (m *Machine) handleHospitalName(s Session, in string) (Session, Outcome) {
	if in == "" {
		return s, Outcome{Reply: invalidHospitalName}
	}
	s.Hospital = in
	ack := "Noted: " + in + "."
	if m.engine.IsPremiumHospital(in) {
		ack = in + " is a premium hospital, so a surcharge applies to the monthly value."
	}
	return m.advance(s, StateChooseCoverageTier, ack)
}

func (m *Machine) handleTier(s Session, in string) (Session, Outcome) {
	var tier pricing.CoverageTier
	switch normalizeChoice(in) {
	case "1", "basic", "essential":
		tier = pricing.TierBasic
	case "2", "intermediate", "plus":
		tier = pricing.TierIntermediate
	case "3", "complete", "premium":
		tier = pricing.TierComplete
	default:
		return m.reprompt(s, invalidTierMessage)
	}
	s.Tier = tier
	return m.advance(s, StateChooseCostSharing, "")
}

func (m *Machine) handleCostSharing(s Session, in string) (Session, Outcome) {
	switch normalizeChoice(in) {
	case "1", "without":
		s.CostSharing = pricing.CostSharingWithout
	case "2", "with":
		s.CostSharing = pricing.CostSharingWith
	default:
		return m.reprompt(s, invalidCostShareMessage)
	}
	s.State = StatePresentQuote
	return m.presentQuote(s)
}

// presentQuote computes the quote once, caches it on the session and moves
// on to the agent hand-off question.
func (m *Machine) presentQuote(s Session) (Session, Outcome) {
	quote, err := m.engine.Quote(pricing.Request{
		PlanType:    s.PlanType,
		Ages:        s.Ages,
		Tier:        s.Tier,
		CostSharing: s.CostSharing,
		Hospital:    s.Hospital,
	})
	if err != nil {
		s.Quote = nil
		return m.advance(s, StateChoosePlanType, quoteFailedMessage)
	}
	s.Quote = &quote
	s.State = StateRouteToAgent
	return s, Outcome{
		Reply:    joinReply(m.formatQuote(s, &quote), m.prompt(s)),
		Category: EventQuote,
		Quote:    &quote,
	}
}

func (m *Machine) handleRouteToAgent(s Session, in string) (Session, Outcome) {
	if s.Quote == nil {
		return m.presentQuote(s)
	}
	if !isAffirmative(in) {
		return s, Outcome{Reply: clarifyAgentMessage}
	}
	lead := &QualifiedLead{
		SessionID:    s.ID,
		Name:         s.Name,
		Phone:        s.Phone,
		Email:        s.Email,
		CompanyName:  s.CompanyName,
		Region:       s.Region,
		PlanName:     s.Quote.PlanName,
		PlanType:     s.Quote.PlanType,
		Lives:        s.Quote.Lives,
		MonthlyValue: s.Quote.MonthlyValue,
	}
	reply := handoffMessage(s, s.Quote)
	s.State = StateClose
	return s, Outcome{
		Reply:    joinReply(reply, m.prompt(s)),
		Category: EventLeadQualified,
		Lead:     lead,
	}
}

func (m *Machine) handleClose(s Session, now time.Time) (Session, Outcome) {
	return s.reset(now), Outcome{Reply: fmt.Sprintf(farewellMessage, nameSuffix(s)), Category: EventClosed}
}

func (m *Machine) matchRegion(in string) (string, bool) {
	regions := m.engine.Regions()
	choice := normalizeChoice(in)
	if n, err := strconv.Atoi(choice); err == nil {
		switch {
		case n >= 1 && n <= len(regions):
			return regions[n-1], true
		case n == len(regions)+1:
			return otherRegion, true
		}
		return "", false
	}
	for _, r := range regions {
		if strings.EqualFold(r, choice) {
			return r, true
		}
	}
	if choice == "other" || choice == "other region" || choice == "outra" {
		return otherRegion, true
	}
	return "", false
}

func parseAges(in string) ([]int, bool) {
	if in == "" {
		return nil, false
	}
	parts := strings.Split(in, ",")
	ages := make([]int, 0, len(parts))
	for _, p := range parts {
		age, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || age < 0 {
			return nil, false
		}
		ages = append(ages, age)
	}
	return ages, true
}

var affirmativeKeywords = []string{"yes", "proceed", "contract", "sim"}

func isAffirmative(in string) bool {
	lowered := strings.ToLower(in)
	for _, kw := range affirmativeKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func normalizeChoice(in string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.Trim(in, ".!")), " "))
}

func resumeDiscount(retries int) float64 {
	if retries <= 0 {
		return 0
	}
	return math.Min(float64(retries)*resumeDiscountPerAttempt, maxResumeDiscount)
}
