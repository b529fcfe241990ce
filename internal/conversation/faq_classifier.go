package conversation

import "strings"

// FAQCategory represents a category of frequently asked questions
type FAQCategory string

const (
	FAQCategoryGracePeriod FAQCategory = "grace_period"
	FAQCategoryDocuments   FAQCategory = "documents"
	FAQCategoryActivation  FAQCategory = "activation"
)

type faqEntry struct {
	category FAQCategory
	keywords []string
	answer   string
}

// faqCatalog is evaluated in order; the first category with a matching
// keyword wins.
var faqCatalog = []faqEntry{
	{
		category: FAQCategoryGracePeriod,
		keywords: []string{"grace period", "waiting period", "carência", "carencia", "when can i use"},
		answer: `Grace periods (carência) for Plena Saúde plans:
- Urgency and emergency: 24 hours
- Simple consultations and exams: 30 days
- Complex exams: 90 days
- Admissions and surgeries: 180 days
- Childbirth: 300 days`,
	},
	{
		category: FAQCategoryDocuments,
		keywords: []string{"documents", "documentation", "documentos", "documentação", "what do i need to bring"},
		answer: `Documents needed to contract:
Individual/Family: ID (RG) and CPF of each beneficiary, proof of address and SUS card.
Business/SME: articles of incorporation (contrato social), CNPJ card, partners' documents, beneficiaries' documents and proof of employment.`,
	},
	{
		category: FAQCategoryActivation,
		keywords: []string{"start using", "activation", "activate", "when does it start", "começar a usar"},
		answer: `Your plan becomes active on the contract effective date, usually the 1st of the month after the first boleto is paid. Digital member cards are sent by email.`,
	},
}

// MatchFAQ returns the first FAQ category whose keywords appear in text.
// Matching is case-insensitive substring containment.
func MatchFAQ(text string) (FAQCategory, string, bool) {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return "", "", false
	}
	for _, entry := range faqCatalog {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) {
				return entry.category, entry.answer, true
			}
		}
	}
	return "", "", false
}

// FAQAnswer returns the fixed answer for a category.
func FAQAnswer(category FAQCategory) (string, bool) {
	for _, entry := range faqCatalog {
		if entry.category == category {
			return entry.answer, true
		}
	}
	return "", false
}
