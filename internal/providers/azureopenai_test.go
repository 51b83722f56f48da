package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestDecodeExtraction(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantKey string
		wantVal string
	}{
		{"strict json", `{"lastName": "כהן"}`, "lastName", "כהן"},
		{"json inside prose", "Here is the result:\n```json\n{\"lastName\": \"לוי\"}\n```\nDone.", "lastName", "לוי"},
		{"no json at all", "sorry, I cannot help with that", "", ""},
		{"empty", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeExtraction(tc.content)
			if got == nil {
				t.Fatal("decodeExtraction returned nil")
			}
			if tc.wantKey == "" {
				if len(got) != 0 {
					t.Errorf("expected empty object, got %v", got)
				}
				return
			}
			if got[tc.wantKey] != tc.wantVal {
				t.Errorf("got[%q] = %v, want %q", tc.wantKey, got[tc.wantKey], tc.wantVal)
			}
		})
	}
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
	}
}

func TestAzureOpenAIExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(`{"lastName": "כהן", "idNumber": "123456782"}`))
	}))
	defer srv.Close()

	client := NewAzureOpenAIClient(AzureOpenAIConfig{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		Deployment: "gpt-4o",
	})

	got, err := client.Extract(context.Background(), "שם משפחה כהן")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got["lastName"] != "כהן" || got["idNumber"] != "123456782" {
		t.Errorf("Extract = %v", got)
	}
}

func TestAzureOpenAIExtractStructuredFallback(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			if !strings.Contains(string(body), "response_format") {
				t.Error("first request should carry response_format")
			}
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "response_format is not supported"},
			})
			return
		}
		if strings.Contains(string(body), "response_format") {
			t.Error("fallback request should not carry response_format")
		}
		json.NewEncoder(w).Encode(chatResponse(`{"firstName": "דוד"}`))
	}))
	defer srv.Close()

	client := NewAzureOpenAIClient(AzureOpenAIConfig{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		Deployment: "gpt-4o",
	})

	got, err := client.Extract(context.Background(), "שם פרטי דוד")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got["firstName"] != "דוד" {
		t.Errorf("Extract = %v", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestAzureOpenAIExtractTruncatesInput(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotLen = len(body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(`{}`))
	}))
	defer srv.Close()

	client := NewAzureOpenAIClient(AzureOpenAIConfig{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		Deployment: "gpt-4o",
	})

	huge := strings.Repeat("a", 2*maxOCRChars)
	if _, err := client.Extract(context.Background(), huge); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// The request carries prompts plus at most maxOCRChars of OCR text.
	if gotLen > maxOCRChars+10_000 {
		t.Errorf("request body %d bytes, truncation not applied", gotLen)
	}
}
