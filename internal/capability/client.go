package capability

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/wattsonlabs/wattson/pkg/models"
)

// maxMeterRows bounds how many readings are forwarded to a stage prompt.
const maxMeterRows = 50

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of the direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxTokens caps the response size per invocation. Defaults to 8192.
	MaxTokens int64
}

// Client is the model-backed Invoker. It implements every stage capability
// through one chat completion per invocation: a stage-specific system
// prompt, a user prompt built from the typed input, and a JSON payload
// parsed and validated from the response.
type Client struct {
	inner      anthropic.Client
	model      anthropic.Model
	maxTokens  int64
	thresholds map[models.Stage]float64
	tracker    *TokenTracker
}

// NewClient creates a model-backed capability client.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
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
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	thresholds := make(map[models.Stage]float64, len(models.Stages()))
	for _, s := range models.Stages() {
		thresholds[s] = AcceptanceThreshold(s)
	}

	return &Client{
		inner:      anthropic.NewClient(opts...),
		model:      model,
		maxTokens:  maxTokens,
		thresholds: thresholds,
		tracker:    NewTokenTracker(),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// inference profile format (cross-region, us. prefix).
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219: "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:  "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}

	// Might already be Bedrock format or a custom model.
	return model
}

// Invoke implements Invoker. One attempt, no retry; every failure is
// classified into the result.
func (c *Client) Invoke(ctx context.Context, in StageInput) (models.StageResult, error) {
	if !in.Stage.Valid() {
		return models.FailureResult(in.Stage, models.FailureInvalidInput,
			fmt.Sprintf("unknown stage %q", in.Stage)), nil
	}

	blocks, err := c.userBlocks(in)
	if err != nil {
		return models.FailureResult(in.Stage, models.FailureInvalidInput, err.Error()), nil
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPromptFor(in.Stage)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return models.StageResult{}, ctx.Err()
		}
		return models.FailureResult(in.Stage, ClassifyError(err),
			fmt.Sprintf("capability call failed: %v", err)), nil
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	return c.parseResponse(in.Stage, text.String()), nil
}

// userBlocks builds the user message content for a stage input.
// Returns an error for inputs the stage cannot operate on.
func (c *Client) userBlocks(in StageInput) ([]anthropic.ContentBlockParamUnion, error) {
	switch in.Stage {
	case models.StageParser:
		return c.parserBlocks(in)
	case models.StageMeterAnalyzer:
		if in.Extraction == nil {
			return nil, fmt.Errorf("meter analyzer requires extraction data")
		}
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(meterAnalyzerInput(in)),
		}, nil
	case models.StageAnomalyDetector:
		if in.Extraction == nil {
			return nil, fmt.Errorf("anomaly detector requires extraction data")
		}
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(anomalyDetectorInput(in)),
		}, nil
	case models.StageRecommendation:
		if in.Recommendation == nil || in.Recommendation.Extraction == nil {
			return nil, fmt.Errorf("recommendation requires merged extraction input")
		}
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(recommendationInputPrompt(in)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", in.Stage)
	}
}

// parserBlocks builds the parser user content from text or raw bill bytes.
func (c *Client) parserBlocks(in StageInput) ([]anthropic.ContentBlockParamUnion, error) {
	prompt := "Parse this utility bill."
	if in.Hint != "" {
		prompt += "\n\n" + in.Hint
	}

	switch in.Media {
	case models.MediaText:
		if in.BillText == "" {
			return nil, fmt.Errorf("text bill is empty")
		}
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(prompt + "\n\n" + in.BillText),
		}, nil
	case models.MediaImage:
		if len(in.BillRaw) == 0 {
			return nil, fmt.Errorf("image bill is empty")
		}
		mediaType := http.DetectContentType(in.BillRaw)
		if !strings.HasPrefix(mediaType, "image/") {
			return nil, fmt.Errorf("bill bytes are %s, not an image", mediaType)
		}
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(prompt),
			anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(in.BillRaw)),
		}, nil
	case models.MediaPDF:
		return nil, fmt.Errorf("pdf bills are not supported by this capability")
	default:
		return nil, fmt.Errorf("unknown media kind %q", in.Media)
	}
}

// parseResponse extracts and validates the stage payload from model output.
func (c *Client) parseResponse(stage models.Stage, text string) models.StageResult {
	raw, err := extractJSON(text)
	if err != nil {
		// A fresh generation usually fixes truncated or non-JSON output.
		return models.FailureResult(stage, models.FailureTransient, err.Error())
	}

	payload, confidence, err := decodePayload(stage, raw)
	if err != nil {
		return models.FailureResult(stage, models.FailureTransient,
			fmt.Sprintf("malformed %s payload: %v", stage, err))
	}

	confidence = clampConfidence(confidence)
	result := models.SuccessResult(stage, payload, confidence)
	if confidence < c.thresholds[stage] {
		// Keep the payload so the retry policy can pick the best attempt.
		result.Failure = &models.Failure{
			Kind: models.FailureLowConfidence,
			Message: fmt.Sprintf("confidence %.2f below threshold %.2f",
				confidence, c.thresholds[stage]),
		}
	}
	return result
}

// decodePayload unmarshals the stage-specific payload and its confidence score.
func decodePayload(stage models.Stage, raw string) (models.Payload, float64, error) {
	switch stage {
	case models.StageParser:
		var env struct {
			models.BillData
			ConfidenceScore float64 `json:"confidence_score"`
		}
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, 0, err
		}
		return &env.BillData, env.ConfidenceScore, nil
	case models.StageMeterAnalyzer:
		var env struct {
			models.PatternSummary
			ConfidenceScore float64 `json:"confidence_score"`
		}
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, 0, err
		}
		return &env.PatternSummary, env.ConfidenceScore, nil
	case models.StageAnomalyDetector:
		var env struct {
			models.AnomalyReport
			ConfidenceScore float64 `json:"confidence_score"`
		}
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, 0, err
		}
		return &env.AnomalyReport, env.ConfidenceScore, nil
	case models.StageRecommendation:
		var env struct {
			models.RecommendationSet
			ConfidenceScore float64 `json:"confidence_score"`
		}
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return nil, 0, err
		}
		return &env.RecommendationSet, env.ConfidenceScore, nil
	default:
		return nil, 0, fmt.Errorf("unknown stage %q", stage)
	}
}

// extractJSON finds the outermost JSON object in a model response.
func extractJSON(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no valid JSON found in response: %s", truncate(response, 200))
	}
	return response[start : end+1], nil
}

// clampConfidence forces a reported confidence into [0,1].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// meterAnalyzerInput renders the meter analyzer's user prompt.
func meterAnalyzerInput(in StageInput) string {
	var b strings.Builder
	b.WriteString("Analyze this energy consumption data.\n\n")
	if in.Hint != "" {
		b.WriteString(in.Hint + "\n\n")
	}
	writeExtraction(&b, in.Extraction)
	writeMeterSeries(&b, in.MeterSeries)
	return b.String()
}

// anomalyDetectorInput renders the anomaly detector's user prompt.
func anomalyDetectorInput(in StageInput) string {
	var b strings.Builder
	b.WriteString("Detect anomalies in this energy consumption data.\n\n")
	if in.Hint != "" {
		b.WriteString(in.Hint + "\n\n")
	}
	writeExtraction(&b, in.Extraction)
	if in.Baseline != nil {
		baseline, _ := json.Marshal(in.Baseline)
		b.WriteString("BASELINE PATTERNS:\n")
		b.Write(baseline)
		b.WriteString("\n\n")
	}
	writeMeterSeries(&b, in.MeterSeries)
	return b.String()
}

// recommendationInputPrompt renders the recommendation stage's user prompt
// from the merged upstream results.
func recommendationInputPrompt(in StageInput) string {
	var b strings.Builder
	b.WriteString("Generate energy savings recommendations from this analysis.\n\n")
	if in.Hint != "" {
		b.WriteString(in.Hint + "\n\n")
	}

	merged, _ := json.MarshalIndent(in.Recommendation, "", "  ")
	b.WriteString("ANALYSIS RESULTS:\n")
	b.Write(merged)
	b.WriteString("\n")
	return b.String()
}

// writeExtraction appends the parser output as JSON context.
func writeExtraction(b *strings.Builder, bill *models.BillData) {
	data, _ := json.Marshal(bill)
	b.WriteString("BILL DATA:\n")
	b.Write(data)
	b.WriteString("\n\n")
}

// writeMeterSeries appends the meter series as CSV, capped at maxMeterRows.
func writeMeterSeries(b *strings.Builder, series []models.MeterReading) {
	if len(series) == 0 {
		return
	}
	if len(series) > maxMeterRows {
		series = series[:maxMeterRows]
	}
	b.WriteString("METER DATA:\nTimestamp,Consumption_kWh\n")
	for _, r := range series {
		fmt.Fprintf(b, "%s,%.2f\n", r.Timestamp.Format("2006-01-02T15:04:05"), r.ConsumptionKWh)
	}
}
