package extraction

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ADKGenerator drives any google.golang.org/adk model.LLM as a structured
// generator, so ADK-hosted models can serve extraction without a separate
// client. The call is non-streaming; partial responses are skipped and the
// final turn's text and usage are collected.
type ADKGenerator struct {
	llm model.LLM
}

// NewADKGenerator wraps an ADK model.
func NewADKGenerator(llm model.LLM) *ADKGenerator {
	return &ADKGenerator{llm: llm}
}

// Generate implements Generator.
func (g *ADKGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
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

	llmReq := &model.LLMRequest{
		Model:    req.Model,
		Contents: []*genai.Content{{Role: "user", Parts: parts}},
		Config:   config,
	}

	var result Result
	var text strings.Builder
	for resp, err := range g.llm.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return nil, fmt.Errorf("adk generate: %w", err)
		}
		if resp == nil || resp.Partial {
			continue
		}
		if resp.ErrorMessage != "" {
			return nil, fmt.Errorf("adk generate: %s (%s)", resp.ErrorMessage, resp.ErrorCode)
		}
		if resp.Content != nil {
			for _, part := range resp.Content.Parts {
				if part.Text != "" && !part.Thought {
					text.WriteString(part.Text)
				}
			}
		}
		if resp.UsageMetadata != nil {
			result.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
			result.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
		}
	}

	result.Text = text.String()
	return &result, nil
}
