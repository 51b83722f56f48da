package providers

import "context"

// MockOCR is a test double for OCRProvider.
type MockOCR struct {
	AnalyzeFunc func(ctx context.Context, doc []byte, opts AnalyzeOptions) (*OCRResult, error)
}

func (m *MockOCR) Name() string { return "mock-ocr" }

func (m *MockOCR) Analyze(ctx context.Context, doc []byte, opts AnalyzeOptions) (*OCRResult, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, doc, opts)
	}
	return &OCRResult{}, nil
}

// MockLLM is a test double for LLMClient.
type MockLLM struct {
	ExtractFunc func(ctx context.Context, ocrText string) (map[string]any, error)
}

func (m *MockLLM) Name() string { return "mock-llm" }

func (m *MockLLM) Extract(ctx context.Context, ocrText string) (map[string]any, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, ocrText)
	}
	return map[string]any{}, nil
}
