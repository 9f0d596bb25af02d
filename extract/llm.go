package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/alertflow/prompt"
)

// LLMService implements Service on top of a completion client. System
// prompts come from the prompt loader so deployments can override them
// without rebuilding.
type LLMService struct {
	client   llm.Client
	escalate llm.Client
	prompts  *prompt.Loader
	logger   *slog.Logger
}

// LLMOption configures an LLMService.
type LLMOption func(*LLMService)

// WithPrompts sets the prompt loader.
func WithPrompts(l *prompt.Loader) LLMOption {
	return func(s *LLMService) { s.prompts = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LLMOption {
	return func(s *LLMService) { s.logger = logger }
}

// WithEscalateClient sets a second client used for inference attempts
// after the first, typically backed by a stronger model.
func WithEscalateClient(c llm.Client) LLMOption {
	return func(s *LLMService) { s.escalate = c }
}

// NewLLMService creates an extraction service backed by client.
func NewLLMService(client llm.Client, opts ...LLMOption) *LLMService {
	s := &LLMService{
		client:  client,
		prompts: prompt.NewLoader(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract pulls title, description, and labels out of rawMessage.
func (s *LLMService) Extract(ctx context.Context, rawMessage string) (Result, error) {
	system, err := s.prompts.Load("extract-system")
	if err != nil {
		return Result{}, fmt.Errorf("loading extract prompt: %w", err)
	}

	userPrompt := prompt.NewBuilder().
		Add("Extract ticket information from this alert.").
		AddSection("Raw Message", rawMessage).
		Build()

	result, err := s.complete(ctx, s.client, system, userPrompt)
	if err != nil {
		return Result{}, err
	}
	s.logger.Debug("extraction complete",
		"title", result.Title,
		"labels", result.Labels,
		"tokensIn", result.TokensIn,
		"tokensOut", result.TokensOut)
	return result, nil
}

// InferMissing fills the named missing fields on current. Attempts after
// the first go to the escalate client when one is configured.
func (s *LLMService) InferMissing(ctx context.Context, rawMessage string, current Result, missing []string, attempt int) (Result, error) {
	system, err := s.prompts.Load("infer-system")
	if err != nil {
		return Result{}, fmt.Errorf("loading infer prompt: %w", err)
	}

	userPrompt := prompt.NewBuilder().
		Add("Some ticket fields are missing or weak. Fill them in from the alert.").
		AddSection("Raw Message", rawMessage).
		AddField("Current Title", current.Title).
		AddSection("Current Description", current.Description).
		AddField("Current Labels", strings.Join(current.Labels, ", ")).
		AddList("Missing Fields", missing).
		Build()

	client := s.client
	if attempt > 1 && s.escalate != nil {
		client = s.escalate
	}

	result, err := s.complete(ctx, client, system, userPrompt)
	if err != nil {
		return Result{}, err
	}
	s.logger.Debug("inference complete",
		"attempt", attempt,
		"missing", missing,
		"tokensIn", result.TokensIn,
		"tokensOut", result.TokensOut)
	return result, nil
}

func (s *LLMService) complete(ctx context.Context, client llm.Client, system, userPrompt string) (Result, error) {
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	result, err := decodeResult(resp.Content)
	if err != nil {
		return Result{}, err
	}
	result.TokensIn = resp.Usage.InputTokens
	result.TokensOut = resp.Usage.OutputTokens
	return Normalize(result), nil
}

// decodeResult parses the model's JSON reply. The reply may be fenced or
// mixed with other content, so fall back to the outermost object.
func decodeResult(content string) (Result, error) {
	data := bytes.TrimSpace([]byte(content))

	var out Result
	if err := json.Unmarshal(data, &out); err != nil {
		start := bytes.Index(data, []byte("{"))
		end := bytes.LastIndex(data, []byte("}"))
		if start < 0 || end <= start {
			return Result{}, fmt.Errorf("%w: no json object in reply", ErrMalformed)
		}
		if err := json.Unmarshal(data[start:end+1], &out); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return out, nil
}
