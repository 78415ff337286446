package main

// Run recognition and extraction against a single certificate without the API:
//   go run ./cmd/extracttest -file cert.pdf [-provider openai|vertex] [-ocr vision|pdftext]

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"coi-backend/internal/llm"
	openai "coi-backend/internal/llm/openai"
	"coi-backend/internal/llm/vertex"
	"coi-backend/internal/prompt"
	"coi-backend/internal/recognition"
	"coi-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to certificate PDF")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	ocr := flag.String("ocr", cfg.OCRProvider, "Text recognition provider")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	questions := flag.String("questions", cfg.QuestionsPath, "Path to questions file (optional)")
	textOnly := flag.Bool("text-only", false, "Print recognized text and skip extraction")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}
	data, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}
	if _, err := recognition.PageCount(data); err != nil {
		exitErr(fmt.Sprintf("not a readable pdf: %v", err))
	}

	ctx := context.Background()
	recognizer, err := buildRecognizer(ctx, *ocr, cfg.VisionAPIKey)
	if err != nil {
		exitErr(err.Error())
	}
	text, err := recognizer.Recognize(ctx, data)
	if err != nil {
		exitErr(fmt.Sprintf("recognize: %v", err))
	}
	if *textOnly {
		fmt.Println(text)
		return
	}

	assembler, err := prompt.Load(*questions)
	if err != nil {
		exitErr(fmt.Sprintf("load questions: %v", err))
	}
	extractor, closeFn, err := buildExtractor(ctx, cfg, *provider, *model)
	if err != nil {
		exitErr(err.Error())
	}
	defer closeFn()

	raw, err := extractor.Extract(ctx, assembler.Build(), text)
	if err != nil {
		exitErr(fmt.Sprintf("extract: %v", err))
	}
	out, err := llm.NormalizeOutput(raw)
	if err != nil {
		exitErr(fmt.Sprintf("normalize output: %v", err))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "    "); err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty.WriteByte('\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty.Bytes(), 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty.Bytes()); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func buildRecognizer(ctx context.Context, provider, apiKey string) (recognition.Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "pdftext", "pdf-text":
		return recognition.NewPDFText(), nil
	case "", "vision":
		return recognition.NewVision(ctx, apiKey)
	default:
		return nil, fmt.Errorf("unsupported ocr provider: %s", provider)
	}
}

func buildExtractor(ctx context.Context, cfg config.Config, provider, model string) (llm.Extractor, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		c, err := openai.NewClient(cfg.OpenAIAPIKey, model)
		return c, noop, err
	case "vertex", "gemini":
		if strings.HasPrefix(model, "gpt") {
			model = vertex.DefaultModel
		}
		c, err := vertex.NewClient(ctx, cfg.GCPProject, cfg.VertexLocation, model)
		if err != nil {
			return nil, noop, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
