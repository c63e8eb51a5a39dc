package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const responseMIMEType = "application/json"

// GeminiGenerator issues structured-generation calls through the genai API,
// which accepts the normalized schema natively as responseSchema.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator wraps an existing genai client.
func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: responseMIMEType,
	}
	if req.Schema != nil {
		responseSchema, err := schemaFromMap(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("response schema: %w", err)
		}
		config.ResponseSchema = responseSchema
	}

	parts, err := buildParts(req)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	result := &Result{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		result.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// buildParts assembles the prompt parts for genai-shaped backends:
// instruction first, then the text payload, then any inline bytes.
func buildParts(req Request) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, 3)
	if req.Instruction != "" {
		parts = append(parts, &genai.Part{Text: req.Instruction})
	}
	if req.Input.Text != "" {
		parts = append(parts, &genai.Part{Text: req.Input.Text})
	}
	if len(req.Input.Data) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     req.Input.Data,
				MIMEType: req.Input.MIMEType,
			},
		})
	}
	if len(parts) == 0 {
		return nil, errors.New("empty request: no instruction, text, or data")
	}
	return parts, nil
}

// schemaFromMap converts a normalized schema map into the genai struct form
// through a JSON round-trip, so the config carries exactly the keys the
// normalizer produced.
func schemaFromMap(m map[string]any) (*genai.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var s genai.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return &s, nil
}
