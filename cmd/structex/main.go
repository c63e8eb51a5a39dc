// Command structex extracts structured JSON from text or image payloads via
// Gemini structured output, normalizing the caller's JSON schema into the
// dialect the backend accepts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"google.golang.org/genai"

	"github.com/quillmont/structex/extraction"
	"github.com/quillmont/structex/payload"
	"github.com/quillmont/structex/pricing"
	"github.com/quillmont/structex/schema"
)

func main() {
	// Context cancellation from OS signals propagates into the backend call.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args); err != nil {
		slog.ErrorContext(ctx, "command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "structex",
		Usage: "structured JSON extraction via Gemini-style structured output",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			normalizeCommand(),
			extractCommand(),
		},
	}
	return cmd.Run(ctx, args)
}

func normalizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "Rewrites a JSON schema into the restricted structured-output dialect",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "schema",
				Usage:    "path to the JSON schema file",
				Required: true,
			},
		},
		Action: normalizeAction,
	}
}

func normalizeAction(_ context.Context, cmd *cli.Command) error {
	if err := setupLogging(cmd.String("log-level")); err != nil {
		return err
	}

	doc, err := readSchemaFile(cmd.String("schema"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(schema.Normalize(doc))
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extracts schema-shaped JSON from a text or image payload",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Usage: "model identifier",
				Value: "gemini-2.5-flash",
			},
			&cli.StringFlag{
				Name:     "schema",
				Usage:    "path to the JSON schema describing the expected output",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "text",
				Usage: "text payload to extract from",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "path or URL of an image payload to extract from",
			},
			&cli.StringFlag{
				Name:  "pricing",
				Usage: "path to a TOML pricing table overriding the built-in rates",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Gemini API key",
				Sources: cli.EnvVars("GEMINI_API_KEY"),
			},
		},
		Action: extractAction,
	}
}

func extractAction(ctx context.Context, cmd *cli.Command) error {
	if err := setupLogging(cmd.String("log-level")); err != nil {
		return err
	}

	doc, err := readSchemaFile(cmd.String("schema"))
	if err != nil {
		return err
	}
	schemaDoc, ok := doc.(map[string]any)
	if !ok {
		return fmt.Errorf("schema file %s: top-level value must be a JSON object", cmd.String("schema"))
	}

	var in extraction.Input
	in.Text = cmd.String("text")
	if ref := cmd.String("file"); ref != "" {
		blob, err := payload.NewSource().Fetch(ctx, ref)
		if err != nil {
			return err
		}
		in.Data = blob.Data
		in.MIMEType = blob.MIMEType
		slog.DebugContext(ctx, "payload fetched", "ref", ref, "bytes", len(blob.Data), "mime", blob.MIMEType)
	}
	if in.Text == "" && len(in.Data) == 0 {
		return errors.New("nothing to extract from: pass --text and/or --file")
	}

	prices, err := pricing.Load(cmd.String("pricing"))
	if err != nil {
		return err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cmd.String("api-key"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}

	ex := extraction.New(extraction.NewGeminiGenerator(client), prices)
	result, err := ex.Extract(ctx, cmd.String("model"), schemaDoc, in)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "extraction complete",
		"model", result.Usage.Model,
		"duration", result.Usage.Duration,
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"cost_usd", result.Usage.TotalCost,
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Value)
}

func readSchemaFile(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return doc, nil
}

func setupLogging(levelStr string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
