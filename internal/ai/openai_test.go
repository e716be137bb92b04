package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-hopeforjob-automation/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestResolver(url string) FieldResolver {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewOpenAIResolver("test-key", url, "test-model", logrus.NewEntry(l))
}

var testFields = []FieldDescriptor{
	{Name: "sponsorship", Label: "Do you require sponsorship?", Type: "select", Options: []string{"Yes", "No"}},
	{Name: "salary", Label: "Expected salary", Type: "text"},
}

func TestSuggest_ParsesAnswers(t *testing.T) {
	content := "```json\n" + `{"answers":[
		{"name":"sponsorship","value":"No","confidence":0.9},
		{"name":"salary","value":"90000","confidence":1.7},
		{"name":"unknown","value":"x","confidence":0.5}
	]}` + "\n```"
	r := newTestResolver(chatServer(t, http.StatusOK, content).URL)

	got, err := r.Suggest(context.Background(), &models.JobListing{Title: "Go Dev"}, &models.UserProfile{FullName: "Ada"}, testFields)
	require.NoError(t, err)
	assert.Equal(t, map[string]Suggestion{
		"sponsorship": {Value: "No", Confidence: 0.9},
		"salary":      {Value: "90000", Confidence: 1},
	}, got)
}

func TestSuggest_RejectsValuesOutsideOptions(t *testing.T) {
	r := newTestResolver(chatServer(t, http.StatusOK, `{"answers":[{"name":"sponsorship","value":"Maybe","confidence":0.8}]}`).URL)

	got, err := r.Suggest(context.Background(), nil, nil, testFields)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggest_ToleratesGarbage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		wantErr bool
	}{
		{"empty reply", http.StatusOK, "", false},
		{"prose reply", http.StatusOK, "I think the answer is yes.", false},
		{"server error", http.StatusInternalServerError, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(chatServer(t, tt.status, tt.content).URL)
			got, err := r.Suggest(context.Background(), nil, nil, testFields)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestSuggest_NoFieldsSkipsRequest(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:1")
	got, err := r.Suggest(context.Background(), nil, nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestCleanMarkdownJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON("  {\"a\":1} "))
}
