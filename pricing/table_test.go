package pricing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Cost(t *testing.T) {
	table := NewTable(map[string]Rate{
		"test-model": {Input: 2.00, Output: 8.00},
	})

	tests := []struct {
		name     string
		dir      Direction
		tokens   int64
		expected float64
	}{
		{name: "input", dir: DirectionInput, tokens: 1_000_000, expected: 2.00},
		{name: "output", dir: DirectionOutput, tokens: 500_000, expected: 4.00},
		{name: "zero tokens", dir: DirectionInput, tokens: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost, err := table.Cost("test-model", tt.dir, tt.tokens)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, cost, 1e-9)
		})
	}
}

func TestTable_CostUnknownModel(t *testing.T) {
	table := NewTable(map[string]Rate{})

	_, err := table.Cost("no-such-model", DirectionInput, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestTable_CostUnknownDirection(t *testing.T) {
	table := NewTable(map[string]Rate{"m": {Input: 1, Output: 1}})

	_, err := table.Cost("m", Direction("sideways"), 100)
	require.Error(t, err)
}

func TestTable_NilTable(t *testing.T) {
	var table *Table

	_, err := table.Cost("gemini-2.5-flash", DirectionInput, 100)
	assert.ErrorIs(t, err, ErrUnknownModel)

	usage, err := table.Account("gemini-2.5-flash", 10, 20, time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, int64(30), usage.TotalTokens)
}

func TestTable_Account(t *testing.T) {
	table := NewTable(map[string]Rate{
		"test-model": {Input: 1.00, Output: 4.00},
	})

	started := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)

	usage, err := table.Account("test-model", 2_000_000, 1_000_000, started, finished)
	require.NoError(t, err)

	assert.Equal(t, "test-model", usage.Model)
	assert.Equal(t, 1500*time.Millisecond, usage.Duration)
	assert.Equal(t, int64(2_000_000), usage.InputTokens)
	assert.Equal(t, int64(1_000_000), usage.OutputTokens)
	assert.Equal(t, int64(3_000_000), usage.TotalTokens)
	assert.InDelta(t, 2.00, usage.InputCost, 1e-9)
	assert.InDelta(t, 4.00, usage.OutputCost, 1e-9)
	assert.InDelta(t, 6.00, usage.TotalCost, 1e-9)
}

func TestTable_AccountUnknownModelKeepsTokens(t *testing.T) {
	table := NewTable(map[string]Rate{})

	usage, err := table.Account("mystery", 10, 5, time.Now(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, int64(15), usage.TotalTokens)
	assert.Zero(t, usage.TotalCost)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	table, err := Load("")
	require.NoError(t, err)

	cost, err := table.Cost("gemini-2.5-flash", DirectionInput, 1_000_000)
	require.NoError(t, err)
	assert.InDelta(t, DefaultRates["gemini-2.5-flash"].Input, cost, 1e-9)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.toml")
	content := `
["gemini-2.5-flash"]
input = 0.50
output = 3.00

["custom-model"]
input = 7.00
output = 21.00
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := Load(path)
	require.NoError(t, err)

	// Overridden model.
	cost, err := table.Cost("gemini-2.5-flash", DirectionInput, 1_000_000)
	require.NoError(t, err)
	assert.InDelta(t, 0.50, cost, 1e-9)

	// Added model.
	cost, err = table.Cost("custom-model", DirectionOutput, 1_000_000)
	require.NoError(t, err)
	assert.InDelta(t, 21.00, cost, 1e-9)

	// Untouched default survives the merge.
	cost, err = table.Cost("gemini-2.5-pro", DirectionInput, 1_000_000)
	require.NoError(t, err)
	assert.InDelta(t, DefaultRates["gemini-2.5-pro"].Input, cost, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoad_NegativeRateRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.toml")
	content := `
["bad-model"]
input = -1.00
output = 2.00
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-model")
}
