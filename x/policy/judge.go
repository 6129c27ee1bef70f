package policy

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wjayesh/mahilo/core"
)

const defaultJudgeModel = "claude-3-5-haiku-latest"

type anthropicJudge struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewJudgeClient returns an Anthropic-backed judge, or a disabled judge
// that passes everything when no API key is configured.
func NewJudgeClient(config core.JudgeConfig) core.JudgeClient {
	if !config.Enabled || config.APIKey == "" {
		return &noopJudge{}
	}

	model := config.Model
	if model == "" {
		model = defaultJudgeModel
	}

	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &anthropicJudge{
		client:  anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		model:   model,
		timeout: timeout,
	}
}

func (j *anthropicJudge) Judge(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Policy.Judge.Judge")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	message, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(j.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return sb.String(), nil
}

type noopJudge struct{}

func (*noopJudge) Judge(ctx context.Context, prompt string) (string, error) {
	return "PASS\njudge disabled", nil
}
