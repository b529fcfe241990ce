package conversation

import (
	"fmt"
	"strings"

	"github.com/plenasaude/quote-assistant/internal/pricing"
)

const (
	otherRegion = "Other"

	welcomeMessage  = "Hello! Welcome to Plena Saúde. I'm your virtual assistant and I'll help you find the right health plan and get a quote in a few minutes."
	farewellMessage = "It was a pleasure helping you%s! Plena Saúde thanks you for your interest. Have a great day!"

	invalidNameMessage      = "I didn't catch your name. Could you type your full name?"
	invalidPhoneMessage     = "I need a phone number to continue."
	invalidEmailMessage     = "I need an email address to continue."
	invalidPlanTypeMessage  = "Please reply with 1, 2 or 3."
	invalidCompanyMessage   = "Please type the company's name."
	invalidHeadcountMessage = "Please enter a valid number of people, for example 3."
	invalidAgesMessage      = "Please enter the ages as whole numbers separated by commas, for example 35, 32, 5."
	invalidRegionMessage    = "Sorry, I didn't recognize that region."
	invalidHospitalChoice   = "Please reply 1 if you have a preferred hospital or 2 if you don't."
	invalidHospitalName     = "Please type the name of the hospital you prefer."
	invalidTierMessage      = "Please choose a coverage option: 1, 2 or 3."
	invalidCostShareMessage = "Please choose 1 or 2."
	clarifyAgentMessage     = "No problem! You can ask me about grace periods, documents or when the plan starts. When you're ready to move forward, just reply \"yes\" and a broker will contact you."
	quoteFailedMessage      = "Sorry, I couldn't calculate a quote with the details provided. Let's review your plan."
	faqResumeMessage        = "Back to your quote:"
)

// prompt is the question asked while the session sits in its current state.
func (m *Machine) prompt(s Session) string {
	switch s.State {
	case StateStart:
		return welcomeMessage
	case StateCollectName:
		return "To get started, what's your full name?"
	case StateCollectPhone:
		return "What's your phone number with area code?"
	case StateCollectEmail:
		return "What's your email address?"
	case StateChoosePlanType:
		return "Which type of plan are you looking for?\n1. Individual\n2. Family\n3. Business/SME (company with CNPJ)"
	case StateCollectCompany:
		return "What's the company's name?"
	case StateConfirmCNPJ:
		return "Does the company have an active CNPJ? (yes/no)"
	case StateCollectHeadcount:
		if s.PlanType == pricing.PlanBusiness {
			return "How many lives will the plan cover, counting employees and dependents?"
		}
		return "How many people will be covered by the plan, including you?"
	case StateCollectAges:
		if s.Headcount == 1 {
			return "Please send the age of the person to be covered."
		}
		return fmt.Sprintf("Please send the ages of the %d people, separated by commas (for example 35, 32, 5).", s.Headcount)
	case StateCollectRegion:
		return m.regionMenu()
	case StateHospitalPreference:
		return m.hospitalPreferencePrompt(s.Region)
	case StateAwaitingHospitalName:
		return m.hospitalNamePrompt()
	case StateChooseCoverageTier:
		return m.tierMenu()
	case StateChooseCostSharing:
		return m.costSharingMenu()
	case StatePresentQuote:
		return "Your quote is ready. Reply with any message to see it."
	case StateRouteToAgent:
		return "Would you like to proceed with contracting? A Plena Saúde broker will contact you to finalize. (yes/no)"
	case StateClose:
		return "Is there anything else I can help you with?"
	}
	return welcomeMessage
}

func (m *Machine) regionMenu() string {
	var b strings.Builder
	b.WriteString("Which region do you live in?")
	regions := m.engine.Regions()
	for i, r := range regions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r)
	}
	fmt.Fprintf(&b, "\n%d. Other region", len(regions)+1)
	return b.String()
}

func (m *Machine) hospitalPreferencePrompt(region string) string {
	var b strings.Builder
	hospitals, err := m.engine.HospitalsInRegion(region)
	if err != nil {
		b.WriteString("We don't have our own network in your region yet, but the accredited network may serve you. A broker will confirm coverage for your address.")
	} else {
		fmt.Fprintf(&b, "Great! In %s our network includes:", region)
		for _, h := range hospitals {
			b.WriteString("\n- " + h)
		}
	}
	b.WriteString("\n\nDo you have a preferred hospital?\n1. Yes\n2. No preference")
	return b.String()
}

func (m *Machine) hospitalNamePrompt() string {
	var names []string
	for _, h := range m.engine.Tables().PremiumHospitals {
		names = append(names, h.Name)
	}
	msg := "Which hospital would you prefer?"
	if len(names) > 0 {
		msg += fmt.Sprintf(" Premium options (with a surcharge): %s.", strings.Join(names, ", "))
	}
	return msg
}

func (m *Machine) tierMenu() string {
	tiers := m.engine.Tables().Tiers
	var b strings.Builder
	b.WriteString("Choose your coverage:")
	for i, tier := range pricing.CoverageTiers() {
		spec := tiers[tier]
		fmt.Fprintf(&b, "\n%d. %s: %s", i+1, spec.Name, strings.Join(spec.Coverage, ", "))
	}
	return b.String()
}

func (m *Machine) costSharingMenu() string {
	sharing := m.engine.Tables().CostSharing
	return fmt.Sprintf("Which option do you prefer?\n1. %s (no fee per use)\n2. %s (lower monthly fee, you pay a share per use)",
		sharing[pricing.CostSharingWithout].Label, sharing[pricing.CostSharingWith].Label)
}

func (m *Machine) formatQuote(s Session, q *pricing.Quote) string {
	var b strings.Builder
	if first := s.FirstName(); first != "" {
		fmt.Fprintf(&b, "Here is your quote, %s:\n\n", first)
	} else {
		b.WriteString("Here is your quote:\n\n")
	}
	fmt.Fprintf(&b, "Plan: %s (%s)\n", q.PlanName, q.PlanTypeLabel)
	if s.CompanyName != "" {
		fmt.Fprintf(&b, "Company: %s\n", s.CompanyName)
	}
	fmt.Fprintf(&b, "Lives: %d\n", q.Lives)
	fmt.Fprintf(&b, "Cost-sharing: %s\n", q.CostSharingLabel)
	fmt.Fprintf(&b, "Hospital: %s\n", q.Hospital)
	fmt.Fprintf(&b, "Monthly value: %s\n", formatMoney(q.MonthlyValue))
	if pct := resumeDiscount(s.RetryCount); pct > 0 {
		discounted := pricing.Round2(q.MonthlyValue * (1 - pct))
		fmt.Fprintf(&b, "SPECIAL OFFER: %.0f%% off because you came back: %s/month\n", pct*100, formatMoney(discounted))
	}
	b.WriteString("\nCoverage:")
	for _, c := range q.Coverage {
		b.WriteString("\n- " + c)
	}
	return b.String()
}

func handoffMessage(s Session, q *pricing.Quote) string {
	contact := s.Phone
	if contact == "" {
		contact = s.Destination()
	}
	return fmt.Sprintf("Excellent choice%s! I'm forwarding your details to a Plena Saúde broker, who will contact you at %s to finalize your %s contract. Payment of the first boleto is made to the broker when the contract is signed.",
		nameSuffix(s), contact, q.PlanName)
}

func resumeGreeting(s Session) string {
	return fmt.Sprintf("Good to see you again%s! Let's continue where we left off.", nameSuffix(s))
}

func nameSuffix(s Session) string {
	if first := s.FirstName(); first != "" {
		return ", " + first
	}
	return ""
}

func formatMoney(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}

func joinReply(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
