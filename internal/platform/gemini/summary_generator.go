package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/tome-api/internal/config"
	"github.com/phrazzld/tome-api/internal/domain"
	"github.com/phrazzld/tome-api/internal/generation"
	"google.golang.org/genai"
)

// promptData represents the data passed to the prompt template
type promptData struct {
	Title   string
	Content string
}

// defaultPromptTemplate instructs the model to answer with the summary
// text only, so the response needs no structured parsing.
const defaultPromptTemplate = `You are a precise technical summarizer.

Summarize the following document in at most three sentences. Keep key
facts, names, and figures. Respond with the summary text only, no
preamble and no markdown.

Title: {{.Title}}

{{.Content}}`

// Retry defaults applied when the configuration leaves them unset.
const (
	defaultMaxRetries     = 3
	baseRetryDelaySeconds = 2
	generationTemperature = 0.2
)

// SummaryGenerator implements the generation.SummaryGenerator interface
// using Google's Gemini API to summarize document content.
type SummaryGenerator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// Ensure SummaryGenerator implements generation.SummaryGenerator
var _ generation.SummaryGenerator = (*SummaryGenerator)(nil)

// NewSummaryGenerator creates a Gemini-backed summary generator.
// Returns generation.ErrInvalidConfig if the API key or model name is
// missing, or if the client cannot be constructed.
func NewSummaryGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*SummaryGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("summary").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &SummaryGenerator{
		logger:         logger.With(slog.String("component", "gemini_generator")),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// GenerateSummary creates a concise summary of the document's content.
// Transient API failures are retried with exponential backoff; malformed
// or blocked responses are returned immediately as permanent errors.
func (g *SummaryGenerator) GenerateSummary(
	ctx context.Context,
	doc *domain.Document,
) (string, error) {
	prompt, err := g.createPrompt(ctx, doc)
	if err != nil {
		return "", err
	}

	summary, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return "", err
	}

	g.logger.InfoContext(ctx, "document summary generated",
		slog.String("document_id", doc.ID.String()),
		slog.Int("summary_length", len(summary)))
	return summary, nil
}

// createPrompt renders the prompt template with the document's title and
// content. Returns ErrEmptyDocumentText if there is nothing to summarize.
func (g *SummaryGenerator) createPrompt(ctx context.Context, doc *domain.Document) (string, error) {
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return "", ErrEmptyDocumentText
	}

	data := promptData{
		Title:   doc.Title,
		Content: doc.Content,
	}

	var promptBuffer bytes.Buffer
	if err := g.promptTemplate.Execute(&promptBuffer, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	prompt := promptBuffer.String()
	g.logger.DebugContext(ctx, "prompt generated from template",
		slog.Int("content_length", len(doc.Content)),
		slog.Int("prompt_length", len(prompt)))

	return prompt, nil
}

// callGeminiWithRetry calls the Gemini API, retrying transient failures
// with exponential backoff and jitter. Permanent errors (blocked content,
// malformed responses) are returned without retrying.
func (g *SummaryGenerator) callGeminiWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default",
			slog.Int("max_retries", defaultMaxRetries))
		maxRetries = defaultMaxRetries
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](generationTemperature),
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptNum := attempt + 1
		g.logger.DebugContext(ctx, "calling Gemini API",
			slog.Int("attempt", attemptNum),
			slog.Int("max_attempts", maxRetries+1))

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
		if err == nil {
			summary, extractErr := extractSummary(resp)
			if extractErr == nil {
				return summary, nil
			}
			// Malformed or blocked responses do not improve on retry.
			g.logger.WarnContext(ctx, "permanent generation error, not retrying",
				slog.String("error", extractErr.Error()),
				slog.Int("attempt", attemptNum))
			return "", extractErr
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			slog.String("error", err.Error()),
			slog.Int("attempt", attemptNum))

		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		// delay = baseDelay * 2^attempt * jitter(0.5..1.0)
		backoffSeconds := float64(baseRetryDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoffSeconds * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		g.logger.DebugContext(ctx, "retrying after delay",
			slog.Int("attempt", attemptNum),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}

	return "", generation.ErrGenerationFailed
}

// extractSummary validates the API response shape and returns the
// concatenated text of the first candidate.
func extractSummary(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	summary := strings.TrimSpace(text.String())
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary text", generation.ErrInvalidResponse)
	}

	return summary, nil
}
