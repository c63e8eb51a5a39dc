package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmont/structex/pricing"
)

// fakeGenerator records the request it received and replies with a canned
// result or error.
type fakeGenerator struct {
	result *Result
	err    error
	gotReq Request
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (*Result, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testTable() *pricing.Table {
	return pricing.NewTable(map[string]pricing.Rate{
		"test-model": {Input: 1.00, Output: 2.00},
	})
}

func TestExtractor_Extract(t *testing.T) {
	gen := &fakeGenerator{
		result: &Result{
			Text:         `{"name":"Ada","age":36}`,
			InputTokens:  1_000_000,
			OutputTokens: 500_000,
		},
	}
	ex := New(gen, testTable())

	doc := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name": map[string]any{"type": "enum", "enum": []any{"Ada", "Grace"}},
			"age":  map[string]any{"type": "integer"},
		},
	}

	result, err := ex.Extract(context.Background(), "test-model", doc, Input{Text: "Ada, 36."})
	require.NoError(t, err)

	value, ok := result.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", value["name"])

	// The generator must have seen the normalized dialect, not the input.
	require.NotNil(t, gen.gotReq.Schema)
	assert.NotContains(t, gen.gotReq.Schema, "additionalProperties")
	name := gen.gotReq.Schema["properties"].(map[string]any)["name"].(map[string]any)
	assert.Equal(t, "string", name["type"])

	// And the input document itself is untouched.
	assert.Contains(t, doc, "additionalProperties")
	assert.Equal(t, "enum", doc["properties"].(map[string]any)["name"].(map[string]any)["type"])

	assert.Equal(t, int64(1_500_000), result.Usage.TotalTokens)
	assert.InDelta(t, 1.00, result.Usage.InputCost, 1e-9)
	assert.InDelta(t, 1.00, result.Usage.OutputCost, 1e-9)
	assert.InDelta(t, 2.00, result.Usage.TotalCost, 1e-9)
	assert.GreaterOrEqual(t, result.Usage.Duration, time.Duration(0))
}

func TestExtractor_ExtractResponseFormatError(t *testing.T) {
	gen := &fakeGenerator{result: &Result{Text: "sorry, I cannot do that"}}
	ex := New(gen, testTable())

	_, err := ex.Extract(context.Background(), "test-model", nil, Input{Text: "hi"})
	require.Error(t, err)

	var formatErr *ResponseFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "sorry, I cannot do that", formatErr.Raw)
	assert.NotNil(t, formatErr.Unwrap())
}

func TestExtractor_ExtractGeneratorErrorPropagates(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen := &fakeGenerator{err: boom}
	ex := New(gen, testTable())

	_, err := ex.Extract(context.Background(), "test-model", nil, Input{Text: "hi"})
	assert.ErrorIs(t, err, boom)
}

func TestExtractor_ExtractUnknownModelKeepsResult(t *testing.T) {
	gen := &fakeGenerator{result: &Result{Text: `{"ok":true}`, InputTokens: 10, OutputTokens: 5}}
	ex := New(gen, testTable())

	result, err := ex.Extract(context.Background(), "unpriced-model", nil, Input{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(15), result.Usage.TotalTokens)
	assert.Zero(t, result.Usage.TotalCost)
}

func TestExtractor_ExtractNilPricingTable(t *testing.T) {
	gen := &fakeGenerator{result: &Result{Text: `{"ok":true}`, InputTokens: 10, OutputTokens: 5}}
	ex := New(gen, nil)

	result, err := ex.Extract(context.Background(), "test-model", nil, Input{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(15), result.Usage.TotalTokens)
	assert.Zero(t, result.Usage.TotalCost)
}

func TestExtractor_DefaultInstructionForwarded(t *testing.T) {
	gen := &fakeGenerator{result: &Result{Text: `{}`}}
	ex := New(gen, nil)

	_, err := ex.Extract(context.Background(), "test-model", nil, Input{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, defaultInstruction, gen.gotReq.Instruction)
	assert.Equal(t, "test-model", gen.gotReq.Model)
}
