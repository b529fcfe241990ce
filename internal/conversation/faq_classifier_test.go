package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchFAQ(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  FAQCategory
		ok    bool
	}{
		{"grace period english", "What is the GRACE PERIOD?", FAQCategoryGracePeriod, true},
		{"grace period portuguese", "qual a carência?", FAQCategoryGracePeriod, true},
		{"documents", "Which documents do I need?", FAQCategoryDocuments, true},
		{"activation", "When does it start?", FAQCategoryActivation, true},
		{"first category wins", "documents and grace period please", FAQCategoryGracePeriod, true},
		{"contract is not a question", "I want to contract", "", false},
		{"menu answer", "2", "", false},
		{"blank", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, answer, ok := MatchFAQ(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				expected, found := FAQAnswer(got)
				assert.True(t, found)
				assert.Equal(t, expected, answer)
			}
		})
	}
}
