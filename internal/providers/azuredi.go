package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	AzureDIName       = "azure-document-intelligence"
	AzureDIAPIVersion = "2024-11-30"

	// The analyze submission must be accepted quickly; a stalled submission
	// is the signal to downgrade from layout to read mode.
	defaultSubmitTimeout = 15 * time.Second
	defaultResultTimeout = 45 * time.Second
	defaultPollInterval  = 1 * time.Second
)

// AzureDIConfig holds configuration for the Azure Document Intelligence
// client (v4 REST API).
type AzureDIConfig struct {
	Endpoint      string
	APIKey        string
	APIVersion    string
	SubmitTimeout time.Duration
	ResultTimeout time.Duration
	PollInterval  time.Duration
}

// AzureDIClient implements OCRProvider against the Azure Document
// Intelligence analyze/poll API.
type AzureDIClient struct {
	endpoint      string
	apiKey        string
	apiVersion    string
	submitTimeout time.Duration
	resultTimeout time.Duration
	pollInterval  time.Duration
	client        *http.Client
}

// NewAzureDIClient creates a new Document Intelligence client.
func NewAzureDIClient(cfg AzureDIConfig) *AzureDIClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = AzureDIAPIVersion
	}
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.ResultTimeout == 0 {
		cfg.ResultTimeout = defaultResultTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}

	return &AzureDIClient{
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:        cfg.APIKey,
		apiVersion:    cfg.APIVersion,
		submitTimeout: cfg.SubmitTimeout,
		resultTimeout: cfg.ResultTimeout,
		pollInterval:  cfg.PollInterval,
		client:        &http.Client{},
	}
}

// Name returns the provider identifier.
func (c *AzureDIClient) Name() string {
	return AzureDIName
}

// Analyze submits the document and polls the returned operation until the
// analysis finishes. Submission and result waits run under separate
// deadlines so the caller can tell a stalled submission (downgradeable)
// from a slow analysis (not downgradeable).
func (c *AzureDIClient) Analyze(ctx context.Context, doc []byte, opts AnalyzeOptions) (*OCRResult, error) {
	submitCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	opLocation, err := c.submit(submitCtx, doc, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s: %w", string(opts.Mode), ErrSubmitTimeout)
		}
		return nil, err
	}

	resultTimeout := opts.ResultTimeout
	if resultTimeout == 0 {
		resultTimeout = c.resultTimeout
	}
	pollCtx, cancel := context.WithTimeout(ctx, resultTimeout)
	defer cancel()

	result, err := c.poll(pollCtx, opLocation)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("analysis did not finish within %s: %w", resultTimeout, ErrResultTimeout)
		}
		return nil, err
	}

	out := &OCRResult{
		Content:      result.Content,
		ModelVersion: result.ModelID,
		PageCount:    len(result.Pages),
	}
	if len(result.Pages) > 0 {
		out.Layout = &DocumentLayout{Pages: result.Pages}
	}
	return out, nil
}

// submit starts an analyze operation and returns its operation URL.
func (c *AzureDIClient) submit(ctx context.Context, doc []byte, opts AnalyzeOptions) (string, error) {
	query := url.Values{"api-version": {c.apiVersion}}
	if opts.Pages != "" {
		query.Set("pages", opts.Pages)
	}
	if opts.Markdown {
		query.Set("outputContentFormat", "markdown")
		query.Set("stringIndexType", "unicodeCodePoint")
	}
	endpoint := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?%s",
		c.endpoint, string(opts.Mode), query.Encode())

	body, err := json.Marshal(analyzeRequest{
		Base64Source: base64.StdEncoding.EncodeToString(doc),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze submission failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read analyze response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", apiError("analyze submission", resp.StatusCode, respBody)
	}

	opLocation := resp.Header.Get("Operation-Location")
	if opLocation == "" {
		return "", fmt.Errorf("analyze submission accepted without an Operation-Location header")
	}
	return opLocation, nil
}

var errAnalysisRunning = errors.New("analysis still running")

// poll fetches the operation status until it reaches a terminal state or
// the context deadline expires.
func (c *AzureDIClient) poll(ctx context.Context, opLocation string) (*analyzeResult, error) {
	deadline, ok := ctx.Deadline()
	attempts := uint(1)
	if ok {
		if n := uint(time.Until(deadline) / c.pollInterval); n > 1 {
			attempts = n
		}
	}

	var result *analyzeResult
	err := retry.Do(
		func() error {
			op, err := c.fetchOperation(ctx, opLocation)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			switch op.Status {
			case "succeeded":
				if op.AnalyzeResult == nil {
					return retry.Unrecoverable(fmt.Errorf("analysis succeeded without a result"))
				}
				result = op.AnalyzeResult
				return nil
			case "failed":
				msg := "unknown error"
				if op.Error != nil {
					msg = op.Error.Message
				}
				return retry.Unrecoverable(fmt.Errorf("analysis failed: %s", msg))
			default:
				return errAnalysisRunning
			}
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, errAnalysisRunning) {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	return result, nil
}

func (c *AzureDIClient) fetchOperation(ctx context.Context, opLocation string) (*analyzeOperation, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", opLocation, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("analyze poll", resp.StatusCode, respBody)
	}

	var op analyzeOperation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("failed to unmarshal poll response: %w", err)
	}
	return &op, nil
}

func apiError(action string, status int, body []byte) error {
	var errResp azureErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return fmt.Errorf("%s error (status %d): %s", action, status, errResp.Error.Message)
	}
	return fmt.Errorf("%s error (status %d): %s", action, status, string(body))
}

// Azure Document Intelligence API types

type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

type analyzeOperation struct {
	Status        string         `json:"status"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
	Error         *azureError    `json:"error"`
}

type analyzeResult struct {
	ModelID string       `json:"modelId"`
	Content string       `json:"content"`
	Pages   []LayoutPage `json:"pages"`
}

type azureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type azureErrorResponse struct {
	Error azureError `json:"error"`
}
