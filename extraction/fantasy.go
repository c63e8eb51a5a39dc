package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"charm.land/fantasy"
)

// FantasyGenerator runs extraction through a charm.land/fantasy provider.
// Fantasy providers expose no response-schema channel, so this backend uses
// prompted JSON mode: the normalized schema is embedded in a system message
// and the reply's text content is fence-stripped before decoding.
type FantasyGenerator struct {
	model fantasy.LanguageModel
}

// NewFantasyGenerator wraps a fantasy language model.
func NewFantasyGenerator(m fantasy.LanguageModel) *FantasyGenerator {
	return &FantasyGenerator{model: m}
}

// Generate implements Generator.
func (g *FantasyGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	var call fantasy.Call

	var system fantasy.Message
	system.Role = fantasy.MessageRoleSystem
	system.Content = append(system.Content, fantasy.TextPart{Text: promptedJSONInstruction(req)})
	call.Prompt = append(call.Prompt, system)

	var user fantasy.Message
	user.Role = fantasy.MessageRoleUser
	if req.Input.Text != "" {
		user.Content = append(user.Content, fantasy.TextPart{Text: req.Input.Text})
	}
	if len(req.Input.Data) > 0 {
		user.Content = append(user.Content, fantasy.FilePart{
			Data:      req.Input.Data,
			MediaType: req.Input.MIMEType,
		})
	}
	if len(user.Content) == 0 {
		return nil, errors.New("empty request: no text or data")
	}
	call.Prompt = append(call.Prompt, user)

	resp, err := g.model.Generate(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("%s/%s generate: %w", g.model.Provider(), g.model.Model(), err)
	}

	var text strings.Builder
	for _, content := range resp.Content {
		if tc, ok := content.(fantasy.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}

	return &Result{
		Text:         stripFences(text.String()),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// promptedJSONInstruction builds the system message that substitutes for a
// native response-schema field.
func promptedJSONInstruction(req Request) string {
	var sb strings.Builder
	if req.Instruction != "" {
		sb.WriteString(req.Instruction)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond with a single JSON document and nothing else.")
	if req.Schema != nil {
		if raw, err := json.Marshal(req.Schema); err == nil {
			sb.WriteString(" The document must conform to this JSON schema:\n")
			sb.Write(raw)
		}
	}
	return sb.String()
}

// stripFences removes a surrounding markdown code fence, which models in
// prompted JSON mode frequently add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
