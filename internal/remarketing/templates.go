package remarketing

import (
	"fmt"

	"github.com/plenasaude/quote-assistant/internal/conversation"
)

// Stage groups conversation states for message selection.
type Stage string

const (
	StageIdentity  Stage = "identity"
	StagePlan      Stage = "plan_details"
	StageCoverage  Stage = "coverage"
	StagePostQuote Stage = "post_quote"
)

// StageFor maps a conversation state to its remarketing stage.
func StageFor(state conversation.State) Stage {
	switch state {
	case conversation.StateStart, conversation.StateCollectName, conversation.StateCollectPhone, conversation.StateCollectEmail:
		return StageIdentity
	case conversation.StateChoosePlanType, conversation.StateCollectCompany, conversation.StateConfirmCNPJ,
		conversation.StateCollectHeadcount, conversation.StateCollectAges:
		return StagePlan
	case conversation.StateCollectRegion, conversation.StateHospitalPreference, conversation.StateAwaitingHospitalName,
		conversation.StateChooseCoverageTier, conversation.StateChooseCostSharing:
		return StageCoverage
	case conversation.StatePresentQuote, conversation.StateRouteToAgent, conversation.StateClose:
		return StagePostQuote
	}
	return StageIdentity
}

// templates holds one message per attempt tier; attempts past the last tier
// reuse it. %s is the greeting ("Hi Maria").
var templates = map[Stage][3]string{
	StageIdentity: {
		"%s! You started a health plan quote with Plena Saúde but we didn't get to finish. Reply to this message to pick up where you left off.",
		"%s, your Plena Saúde quote is only a few questions away. Reply now and get your price in minutes!",
		"%s, this is our last reminder: finish your quote today and get an exclusive discount on your Plena Saúde plan. Reply to continue.",
	},
	StagePlan: {
		"%s! We still need a few details about who will be covered to prepare your Plena Saúde quote. Reply to continue.",
		"%s, plans covering 3 or more people get a roster discount at Plena Saúde. Reply to finish your quote!",
		"%s, last chance: finish your quote today for an exclusive returning-customer discount. Reply to continue.",
	},
	StageCoverage: {
		"%s! You're almost there: we only need your region and coverage choices to price your plan. Reply to continue.",
		"%s, Plena Saúde covers Francisco Morato, Caieiras and Perus with the Hospital Previna network. Reply to finish your quote.",
		"%s, your quote is one step away and we saved an exclusive discount for you. Reply to continue.",
	},
	StagePostQuote: {
		"%s! Your Plena Saúde quote is ready. Reply YES and a broker will contact you to finalize.",
		"%s, still thinking about your Plena Saúde plan? Reply with any question, or YES to talk to a broker.",
		"%s, we saved an exclusive discount on your Plena Saúde quote. Reply YES to claim it with a broker.",
	},
}

// Message renders the re-engagement text for a stage and 1-based attempt.
func Message(stage Stage, attempt int, name string) string {
	tiers, ok := templates[stage]
	if !ok {
		tiers = templates[StageIdentity]
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(tiers) {
		idx = len(tiers) - 1
	}
	return fmt.Sprintf(tiers[idx], greeting(name))
}

func greeting(name string) string {
	if name == "" {
		return "Hi"
	}
	return "Hi " + name
}
