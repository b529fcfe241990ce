package leads

import (
	"strings"
	"time"

	"github.com/plenasaude/quote-assistant/internal/conversation"
)

// Lead is a qualified customer handed off to a broker.
type Lead struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	CompanyName  string    `json:"company_name,omitempty"`
	Region       string    `json:"region"`
	PlanName     string    `json:"plan_name"`
	PlanType     string    `json:"plan_type"`
	Lives        int       `json:"lives"`
	MonthlyValue float64   `json:"monthly_value"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateLeadRequest carries the fields needed to persist a lead.
type CreateLeadRequest struct {
	SessionID    string
	Name         string
	Phone        string
	Email        string
	CompanyName  string
	Region       string
	PlanName     string
	PlanType     string
	Lives        int
	MonthlyValue float64
}

// RequestFromQualified converts the conversation's handoff record.
func RequestFromQualified(q conversation.QualifiedLead) *CreateLeadRequest {
	return &CreateLeadRequest{
		SessionID:    q.SessionID,
		Name:         q.Name,
		Phone:        q.Phone,
		Email:        q.Email,
		CompanyName:  q.CompanyName,
		Region:       q.Region,
		PlanName:     q.PlanName,
		PlanType:     string(q.PlanType),
		Lives:        q.Lives,
		MonthlyValue: q.MonthlyValue,
	}
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
		return ErrMissingContact
	}
	if r.PlanName == "" || r.MonthlyValue <= 0 || r.Lives <= 0 {
		return ErrInvalidQuote
	}
	return nil
}

func (r *CreateLeadRequest) lead(id string, createdAt time.Time) *Lead {
	return &Lead{
		ID:           id,
		SessionID:    r.SessionID,
		Name:         strings.TrimSpace(r.Name),
		Phone:        strings.TrimSpace(r.Phone),
		Email:        strings.TrimSpace(r.Email),
		CompanyName:  r.CompanyName,
		Region:       r.Region,
		PlanName:     r.PlanName,
		PlanType:     r.PlanType,
		Lives:        r.Lives,
		MonthlyValue: r.MonthlyValue,
		CreatedAt:    createdAt,
	}
}

// ListLeadsFilter pages through leads, newest first.
type ListLeadsFilter struct {
	Limit  int
	Offset int
}
