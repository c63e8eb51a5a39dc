package extraction

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/quillmont/structex/pricing"
	"github.com/quillmont/structex/schema"
)

const defaultInstruction = "Extract the requested fields from the provided content."

// Extractor runs the full extraction pipeline against one Generator.
type Extractor struct {
	Generator Generator
	Prices    *pricing.Table

	// Instruction is sent ahead of the payload on every request.
	Instruction string
}

// Extraction is one completed extraction: the decoded JSON value, the raw
// response text it was decoded from, and the call's usage record.
type Extraction struct {
	Value any
	Raw   string
	Usage pricing.Usage
}

// New creates an Extractor with the default instruction. prices may be nil;
// usage records then carry token counts but no cost.
func New(gen Generator, prices *pricing.Table) *Extractor {
	return &Extractor{
		Generator:   gen,
		Prices:      prices,
		Instruction: defaultInstruction,
	}
}

// Extract normalizes doc into the target schema dialect, issues one
// generation request for the given input, and decodes the reply.
//
// Backend failures propagate unchanged (logged here, not recovered). A
// syntactically invalid reply is returned as a *ResponseFormatError; no
// retry happens at this layer.
func (e *Extractor) Extract(ctx context.Context, model string, doc map[string]any, in Input) (*Extraction, error) {
	started := time.Now()

	normalized, _ := schema.Normalize(doc).(map[string]any)

	result, err := e.Generator.Generate(ctx, Request{
		Model:       model,
		Instruction: e.Instruction,
		Input:       in,
		Schema:      normalized,
	})
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "model", model, "error", err)
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(result.Text), &value); err != nil {
		return nil, &ResponseFormatError{Raw: result.Text, Err: err}
	}

	usage, err := e.Prices.Account(model, result.InputTokens, result.OutputTokens, started, time.Now())
	if err != nil {
		// Missing pricing never fails an otherwise good extraction.
		slog.WarnContext(ctx, "no pricing for model", "model", model, "error", err)
	}

	slog.DebugContext(ctx, "extraction complete",
		"model", model,
		"duration", usage.Duration,
		"total_tokens", usage.TotalTokens,
	)

	return &Extraction{Value: value, Raw: result.Text, Usage: usage}, nil
}
