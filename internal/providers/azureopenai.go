package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	"github.com/claimform/claimform/internal/prompts/extract"
)

const (
	AzureOpenAIName       = "azure-openai"
	AzureOpenAIAPIVersion = "2024-02-15-preview"

	// maxOCRChars bounds the OCR text sent to the model. Two form pages
	// never come close; the cap guards against OCR blowups.
	maxOCRChars = 120_000

	defaultTemperature = 0.1
)

// AzureOpenAIConfig holds configuration for the Azure OpenAI extraction
// client.
type AzureOpenAIConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	APIVersion  string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client // Optional (tests)
}

// AzureOpenAIClient implements LLMClient using the official OpenAI SDK
// pointed at an Azure deployment.
type AzureOpenAIClient struct {
	deployment  string
	temperature float64
	client      openai.Client
}

// NewAzureOpenAIClient creates a new extraction client.
func NewAzureOpenAIClient(cfg AzureOpenAIConfig) *AzureOpenAIClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = AzureOpenAIAPIVersion
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client := openai.NewClient(
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	)

	return &AzureOpenAIClient{
		deployment:  cfg.Deployment,
		temperature: cfg.Temperature,
		client:      client,
	}
}

// Name returns the provider identifier.
func (c *AzureOpenAIClient) Name() string {
	return AzureOpenAIName
}

// Extract sends the OCR text with the extraction prompts and decodes the
// JSON object from the response. The structured json_object request mode
// degrades once to a plain request for API versions that reject it; an
// unparseable response degrades to an empty object after one salvage
// attempt, so downstream repair passes still run.
func (c *AzureOpenAIClient) Extract(ctx context.Context, ocrText string) (map[string]any, error) {
	if len(ocrText) > maxOCRChars {
		ocrText = ocrText[:maxOCRChars]
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.deployment),
		Temperature: openai.Float(c.temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extract.SystemPrompt()),
			openai.UserMessage(extract.UserPrompt(ocrText)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{}
		resp, err = c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("chat completion failed: %w", err)
		}
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return decodeExtraction(resp.Choices[0].Message.Content), nil
}

var jsonObjectRE = regexp.MustCompile(`(?s)\{.*\}`)

// decodeExtraction parses the model response into an untyped object. A
// response that is not strict JSON gets one salvage attempt (the widest
// brace-delimited span); total failure yields an empty object.
func decodeExtraction(content string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(content), &out); err == nil {
		return out
	}
	if span := jsonObjectRE.FindString(content); span != "" {
		if err := json.Unmarshal([]byte(span), &out); err == nil {
			return out
		}
	}
	return map[string]any{}
}
