package conversation

import (
	"fmt"
)

// State is a step of the quote conversation.
type State int

const (
	StateStart State = iota
	StateCollectName
	StateCollectPhone
	StateCollectEmail
	StateChoosePlanType
	StateCollectCompany
	StateConfirmCNPJ
	StateCollectHeadcount
	StateCollectAges
	StateCollectRegion
	StateHospitalPreference
	StateAwaitingHospitalName
	StateChooseCoverageTier
	StateChooseCostSharing
	StatePresentQuote
	StateRouteToAgent
	StateClose
)

var stateNames = [...]string{
	StateStart:                "start",
	StateCollectName:          "collect_name",
	StateCollectPhone:         "collect_phone",
	StateCollectEmail:         "collect_email",
	StateChoosePlanType:       "choose_plan_type",
	StateCollectCompany:       "collect_company",
	StateConfirmCNPJ:          "confirm_cnpj",
	StateCollectHeadcount:     "collect_headcount",
	StateCollectAges:          "collect_ages",
	StateCollectRegion:        "collect_region",
	StateHospitalPreference:   "hospital_preference",
	StateAwaitingHospitalName: "awaiting_hospital_name",
	StateChooseCoverageTier:   "choose_coverage_tier",
	StateChooseCostSharing:    "choose_cost_sharing",
	StatePresentQuote:         "present_quote",
	StateRouteToAgent:         "route_to_agent",
	StateClose:                "close",
}

// States lists every state in flow order.
func States() []State {
	out := make([]State, len(stateNames))
	for i := range stateNames {
		out[i] = State(i)
	}
	return out
}

func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s >= StateStart && int(s) < len(stateNames)
}

// ParseState maps a state name back to its value.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateStart, fmt.Errorf("conversation: unknown state %q", name)
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("conversation: invalid state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
