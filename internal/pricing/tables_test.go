package pricing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTablesValidate(t *testing.T) {
	tables, err := DefaultTables()
	require.NoError(t, err)
	assert.Len(t, tables.AgeBands, 10)
	assert.Len(t, tables.BusinessBands, 3)
	assert.NoError(t, tables.Validate())
}

func TestLoadTablesFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	doc := strings.Replace(string(defaultTablesYAML), "factor: 1.6", "factor: 1.9", 1)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	assert.InDelta(t, 1.9, tables.Tiers[TierComplete].Factor, 1e-9)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tables, err = LoadTables("")
	require.NoError(t, err)
	assert.InDelta(t, 1.6, tables.Tiers[TierComplete].Factor, 1e-9)
}

func TestValidateRejectsBrokenTables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
	}{
		{"gap between age bands", func(tb *Tables) { tb.AgeBands[3].Min++ }},
		{"closed last age band", func(tb *Tables) { last := 80; tb.AgeBands[len(tb.AgeBands)-1].Max = &last }},
		{"missing individual rate", func(tb *Tables) { tb.IndividualRates = tb.IndividualRates[:9] }},
		{"business band not cheaper", func(tb *Tables) { tb.BusinessBands[2].Rates[0] = 500 }},
		{"tier factors not increasing", func(tb *Tables) {
			spec := tb.Tiers[TierComplete]
			spec.Factor = 1.2
			tb.Tiers[TierComplete] = spec
		}},
		{"missing tier", func(tb *Tables) { delete(tb.Tiers, TierBasic) }},
		{"cost sharing raises price", func(tb *Tables) {
			spec := tb.CostSharing[CostSharingWith]
			spec.Factor = 1.1
			tb.CostSharing[CostSharingWith] = spec
		}},
		{"premium hospital discount", func(tb *Tables) { tb.PremiumHospitals[0].Surcharge = 0.9 }},
		{"discount out of range", func(tb *Tables) { tb.RosterDiscounts[0].Rate = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, err := DefaultTables()
			require.NoError(t, err)
			tt.mutate(tables)
			assert.ErrorIs(t, tables.Validate(), ErrInvalidTables)
			_, err = NewEngine(tables)
			assert.ErrorIs(t, err, ErrInvalidTables)
		})
	}
}

func TestParseTablesRejectsGarbage(t *testing.T) {
	_, err := ParseTables([]byte("age_bands: [oops"))
	assert.ErrorIs(t, err, ErrInvalidTables)
}
