// Package pricing turns token counts from completed generation calls into
// monetary cost and duration figures, using per-model per-token rates.
package pricing

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrUnknownModel is returned when no rate is configured for a model.
var ErrUnknownModel = errors.New("pricing: unknown model")

// Direction selects which side of a call is being priced.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Rate holds USD prices per million tokens for one model.
type Rate struct {
	Input  float64 `koanf:"input" validate:"gte=0"`
	Output float64 `koanf:"output" validate:"gte=0"`
}

// DefaultRates covers the Gemini models targeted out of the box. Prices are
// USD per million tokens for the standard (non-batch) tier.
var DefaultRates = map[string]Rate{
	"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
	"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
	"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
}

// Table maps model identifiers to their rates.
type Table struct {
	rates map[string]Rate
}

// NewTable creates a pricing table from the given rates.
func NewTable(rates map[string]Rate) *Table {
	return &Table{rates: rates}
}

// Load builds a pricing table from DefaultRates, overridden by an optional
// TOML file keyed by model identifier:
//
//	["gemini-2.5-flash"]
//	input = 0.30
//	output = 2.50
//
// Model identifiers contain dots, so table headers must be quoted as above.
// An empty path loads the defaults alone.
func Load(path string) (*Table, error) {
	// Model ids contain dots; use "/" as the key delimiter so they are
	// never split into nested keys.
	k := koanf.New("/")

	defaults := make(map[string]any, len(DefaultRates))
	for model, rate := range DefaultRates {
		defaults[model] = map[string]any{"input": rate.Input, "output": rate.Output}
	}
	if err := k.Load(confmap.Provider(defaults, "/"), nil); err != nil {
		return nil, fmt.Errorf("pricing defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("pricing file %s: %w", path, err)
		}
	}

	var rates map[string]Rate
	if err := k.Unmarshal("", &rates); err != nil {
		return nil, fmt.Errorf("pricing table: %w", err)
	}

	validate := validator.New()
	for model, rate := range rates {
		if err := validate.Struct(rate); err != nil {
			return nil, fmt.Errorf("pricing for %q: %w", model, err)
		}
	}

	return NewTable(rates), nil
}

// Cost prices one side of a call. tokens is the raw count reported by the
// backend; the result is in USD.
func (t *Table) Cost(model string, dir Direction, tokens int64) (float64, error) {
	rate, ok := t.lookup(model)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	switch dir {
	case DirectionInput:
		return rate.Input * float64(tokens) / 1e6, nil
	case DirectionOutput:
		return rate.Output * float64(tokens) / 1e6, nil
	default:
		return 0, fmt.Errorf("pricing: unknown direction %q", dir)
	}
}

func (t *Table) lookup(model string) (Rate, bool) {
	if t == nil {
		return Rate{}, false
	}
	rate, ok := t.rates[model]
	return rate, ok
}
