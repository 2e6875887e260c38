package worker

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/podium-dev/podium/pkg/models"
)

// ClaudeConfig contains configuration for creating a ClaudeWorker.
type ClaudeConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxTokens caps the response size. Defaults to 8192.
	MaxTokens int64
}

// ClaudeWorker produces artifacts by calling the Anthropic API. The
// response text becomes the artifact summary; adversary-role responses
// opening with RECONSIDER set the artifact's Reconsider flag, which the
// orchestrator never overrides.
type ClaudeWorker struct {
	spec      models.WorkerSpec
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClaudeWorker creates an API-backed worker for a registered role.
func NewClaudeWorker(spec models.WorkerSpec, cfg ClaudeConfig) (*ClaudeWorker, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	return &ClaudeWorker{
		spec:      spec,
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Spec returns the worker's registry declaration.
func (w *ClaudeWorker) Spec() models.WorkerSpec {
	return w.spec
}

// Execute sends the assignment as a single user message and returns the
// text response as the artifact summary.
func (w *ClaudeWorker) Execute(ctx context.Context, assignment models.Assignment) (models.Artifact, error) {
	prompt := assignment.Description
	if assignment.Context != "" {
		prompt = assignment.Context + "\n\n" + prompt
	}

	resp, err := w.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     w.model,
		MaxTokens: w.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: w.systemPrompt()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return models.Artifact{}, fmt.Errorf("worker %s: API call failed: %w", w.spec.Name, err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	summary := strings.TrimSpace(result.String())

	return models.Artifact{
		TaskID:     assignment.TaskID,
		Summary:    summary,
		Reconsider: strings.HasPrefix(summary, "RECONSIDER"),
	}, nil
}

// systemPrompt frames the role. Deliverables are plain text; structure
// beyond the RECONSIDER convention is not relied upon.
func (w *ClaudeWorker) systemPrompt() string {
	return fmt.Sprintf(
		"You are the %q worker in a task orchestration system. "+
			"Capabilities: %s. Produce the deliverable for the assignment you are given. "+
			"If you are reviewing as an adversary and find a high-severity problem, "+
			"start your response with the single word RECONSIDER.",
		w.spec.Name, strings.Join(w.spec.CapabilityTags, ", "))
}

var _ Worker = (*ClaudeWorker)(nil)
