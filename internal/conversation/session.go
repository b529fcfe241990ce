package conversation

import (
	"time"

	"github.com/plenasaude/quote-assistant/internal/pricing"
)

// Session is everything collected from one customer during a conversation.
type Session struct {
	ID    string `json:"id"`
	State State  `json:"state"`

	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	// Contact is the address the transport knows the customer by, such as
	// the SMS sender. It is used for re-engagement when Phone is empty.
	Contact string `json:"contact,omitempty"`

	PlanType    pricing.PlanType `json:"plan_type,omitempty"`
	Headcount   int              `json:"headcount,omitempty"`
	Ages        []int            `json:"ages,omitempty"`
	CompanyName string           `json:"company_name,omitempty"`
	CNPJActive  bool             `json:"cnpj_active,omitempty"`

	Region      string               `json:"region,omitempty"`
	Hospital    string               `json:"hospital,omitempty"`
	Tier        pricing.CoverageTier `json:"tier"`
	CostSharing pricing.CostSharing  `json:"cost_sharing"`
	Quote       *pricing.Quote       `json:"quote,omitempty"`

	CreatedAt       time.Time `json:"created_at"`
	LastInteraction time.Time `json:"last_interaction"`
	Active          bool      `json:"active"`
	RetryCount      int       `json:"retry_count"`
}

// NewSession returns a session at the start state with default plan options.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:              id,
		State:           StateStart,
		Tier:            pricing.TierIntermediate,
		CostSharing:     pricing.CostSharingWithout,
		CreatedAt:       now,
		LastInteraction: now,
		Active:          true,
	}
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	if s.Ages != nil {
		s.Ages = append([]int(nil), s.Ages...)
	}
	if s.Quote != nil {
		q := *s.Quote
		q.Coverage = append([]string(nil), s.Quote.Coverage...)
		s.Quote = &q
	}
	return s
}

// Destination is the phone number re-engagement messages go to.
func (s Session) Destination() string {
	if s.Contact != "" {
		return s.Contact
	}
	return s.Phone
}

// reset clears collected data so the session can begin a new conversation.
func (s Session) reset(now time.Time) Session {
	fresh := NewSession(s.ID, s.CreatedAt)
	fresh.Contact = s.Contact
	fresh.LastInteraction = now
	return fresh
}

// FirstName returns the first word of the customer's name.
func (s Session) FirstName() string {
	for i, r := range s.Name {
		if r == ' ' {
			return s.Name[:i]
		}
	}
	return s.Name
}
