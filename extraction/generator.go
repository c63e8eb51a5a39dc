// Package extraction runs structured JSON extraction against generation
// backends that accept a response schema in the restricted Gemini dialect.
//
// The pipeline for one call is fixed: acquire the payload, normalize the
// response schema (see the schema package), issue a single generation
// request, decode the response text as JSON, and account token usage.
//
// Three backends implement the Generator contract:
//   - GeminiGenerator: the genai API, with native responseSchema support
//   - ADKGenerator: any google.golang.org/adk model.LLM
//   - FantasyGenerator: charm.land/fantasy providers via prompted JSON,
//     since fantasy has no native response-schema channel
package extraction

import (
	"context"
	"fmt"
)

// Input is the document content to extract from: free text, raw bytes (an
// image or other inline document) with their MIME type, or both.
type Input struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Request carries one outbound structured-generation call. Schema must
// already be normalized to the target dialect.
type Request struct {
	Model       string
	Instruction string
	Input       Input
	Schema      map[string]any
}

// Result is the backend's reply: the raw response text plus the token
// counts it reported.
type Result struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Generator is the opaque structured-generation capability a backend
// provides. Implementations must not retry; failures propagate to the
// caller as-is.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// ResponseFormatError reports a model response that was not valid JSON.
// It carries the raw text so callers can inspect or log what came back.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("response is not valid JSON: %v", e.Err)
}

func (e *ResponseFormatError) Unwrap() error {
	return e.Err
}
