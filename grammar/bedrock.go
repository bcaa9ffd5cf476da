package grammar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	defaultTimeout   = 60 * time.Second
	maxRetryAttempts = 3
	baseRetryDelay   = 1 * time.Second
)

// ErrClassify indicates the classification call failed (network, auth, rate
// limit, or an unparseable model answer).
var ErrClassify = errors.New("grammar classification failed")

const systemPrompt = `You judge whether replacing a placeholder inside a sentence keeps the sentence grammatical.
Answer with a single JSON object and nothing else:
{"verdict":"narrow_ok"} when substituting the replacement for the target alone reads correctly, or
{"verdict":"rewrite","sentence":"<full rewritten sentence>"} when the whole sentence must be rephrased.
The rewritten sentence must preserve the original meaning and incorporate the replacement value.`

// ConverseAPI abstracts the Bedrock Converse call for testing.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockConfig configures the Bedrock-backed classifier.
type BedrockConfig struct {
	ModelID string        // Bedrock model ID (required)
	Region  string        // AWS region (required)
	Profile string        // AWS credential profile (optional)
	Timeout time.Duration // per-request timeout (default 60s)
}

// BedrockClassifier is a Classifier backed by a language model behind AWS
// Bedrock's Converse API.
type BedrockClassifier struct {
	api     ConverseAPI
	modelID string
	timeout time.Duration
}

// NewBedrockClassifier creates a classifier using the standard AWS credential
// chain.
func NewBedrockClassifier(ctx context.Context, cfg BedrockConfig) (*BedrockClassifier, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("%w: model ID is required", ErrClassify)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: region is required", ErrClassify)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrClassify, err)
	}

	return NewBedrockClassifierWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewBedrockClassifierWithAPI creates a classifier with a pre-configured API
// implementation. Used for testing with mock clients.
func NewBedrockClassifierWithAPI(api ConverseAPI, cfg BedrockConfig) *BedrockClassifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &BedrockClassifier{api: api, modelID: cfg.ModelID, timeout: timeout}
}

// Classify implements Classifier. Throttling errors are retried with
// exponential backoff; other failures are returned wrapped in ErrClassify.
func (c *BedrockClassifier) Classify(ctx context.Context, req Request) (Decision, error) {
	prompt := fmt.Sprintf("Target: %q\nReplacement: %q\nSentence: %q", req.Target, req.Replacement, req.Sentence)

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: systemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(512),
			Temperature: aws.Float32(0),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Decision{}, fmt.Errorf("%w: context cancelled during retry: %v", ErrClassify, ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		output, err := c.api.Converse(callCtx, input)
		cancel()
		if err != nil {
			var throttle *brtypes.ThrottlingException
			if errors.As(err, &throttle) {
				lastErr = err
				continue
			}
			return Decision{}, c.classifyError(err)
		}
		return parseDecision(responseText(output))
	}

	return Decision{}, fmt.Errorf("%w: rate limited after %d retries: %v", ErrClassify, maxRetryAttempts, lastErr)
}

// responseText extracts the concatenated text blocks from a Converse answer.
func responseText(out *bedrockruntime.ConverseOutput) string {
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String()
}

// parseDecision decodes the model's JSON answer. Models occasionally wrap the
// object in prose or fencing, so the parser scans for the outermost braces.
func parseDecision(text string) (Decision, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return Decision{}, fmt.Errorf("%w: no JSON object in answer %q", ErrClassify, text)
	}

	var answer struct {
		Verdict  string `json:"verdict"`
		Sentence string `json:"sentence"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &answer); err != nil {
		return Decision{}, fmt.Errorf("%w: decoding answer: %v", ErrClassify, err)
	}

	switch answer.Verdict {
	case "narrow_ok":
		return Decision{Verdict: NarrowOK}, nil
	case "rewrite":
		if answer.Sentence == "" {
			return Decision{}, fmt.Errorf("%w: rewrite verdict without a sentence", ErrClassify)
		}
		return Decision{Verdict: NeedsSentenceRewrite, Rewritten: answer.Sentence}, nil
	default:
		return Decision{}, fmt.Errorf("%w: unknown verdict %q", ErrClassify, answer.Verdict)
	}
}

// classifyError wraps Bedrock errors with descriptive messages.
func (c *BedrockClassifier) classifyError(err error) error {
	var accessDenied *brtypes.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return fmt.Errorf("%w: credential or permission issue: %v", ErrClassify, err)
	}
	var notFound *brtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: model not found: %s", ErrClassify, c.modelID)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out after %s", ErrClassify, c.timeout)
	}
	return fmt.Errorf("%w: %v", ErrClassify, err)
}
