package backend

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conversation = []Message{
	{Role: RoleUser, Content: "hi"},
	{Role: RoleAssistant, Content: "hello"},
	{Role: RoleUser, Content: "how are you"},
}

func newTestServer(t *testing.T, handler func(t *testing.T, r *http.Request, body map[string]any) (int, string)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var body map[string]any
		if !assert.NoError(t, json.Unmarshal(data, &body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		status, resp := handler(t, r, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestClientAnthropic(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(t *testing.T, r *http.Request, body map[string]any) (int, string) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		assert.Equal(t, "m", body["model"])
		assert.InDelta(t, float64(maxTokens), body["max_tokens"], 0)
		assert.Len(t, body["messages"], 3)

		return http.StatusOK, `{"content":[{"type":"text","text":"fine "},{"type":"tool_use"},{"type":"text","text":"thanks"}]}`
	})

	c := NewClient(Claude, WithAPIKey("k"), WithBaseURL(srv.URL+"/"), WithModel("m"))
	got, err := c.Send(t.Context(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "fine thanks", got)
}

func TestClientChatCompletions(t *testing.T) {
	t.Parallel()

	for _, p := range []Provider{Grok, OpenAI} {
		t.Run(p.Name(), func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, func(t *testing.T, r *http.Request, body map[string]any) (int, string) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

				msgs, _ := body["messages"].([]any)
				if assert.Len(t, msgs, 3) {
					assert.Equal(t, map[string]any{"role": "assistant", "content": "hello"}, msgs[1])
				}

				return http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`
			})

			c := NewClient(p, WithAPIKey("k"), WithBaseURL(srv.URL))
			got, err := c.Send(t.Context(), conversation)
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
		})
	}
}

func TestClientGemini(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(t *testing.T, r *http.Request, body map[string]any) (int, string) {
		assert.Equal(t, "/v1beta/models/gem:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))

		contents, _ := body["contents"].([]any)
		if assert.Len(t, contents, 3) {
			second, _ := contents[1].(map[string]any)
			assert.Equal(t, "model", second["role"])
		}

		return http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"a"},{"text":"b"}]}}]}`
	})

	c := NewClient(Gemini, WithAPIKey("k"), WithBaseURL(srv.URL), WithModel("gem"))
	got, err := c.Send(t.Context(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		c := NewClient(OpenAI, WithAPIKey(""))
		_, err := c.Send(t.Context(), conversation)
		require.ErrorIs(t, err, ErrMissingAPIKey)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("api error", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, func(*testing.T, *http.Request, map[string]any) (int, string) {
			return http.StatusUnauthorized, `{"error":"bad key"}`
		})

		c := NewClient(Claude, WithAPIKey("k"), WithBaseURL(srv.URL))
		_, err := c.Send(t.Context(), conversation)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, Claude, apiErr.Provider)
		assert.Contains(t, apiErr.Body, "bad key")
	})

	t.Run("empty reply", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, func(*testing.T, *http.Request, map[string]any) (int, string) {
			return http.StatusOK, `{"choices":[]}`
		})

		c := NewClient(Grok, WithAPIKey("k"), WithBaseURL(srv.URL))
		_, err := c.Send(t.Context(), conversation)
		require.ErrorIs(t, err, ErrEmptyReply)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, func(*testing.T, *http.Request, map[string]any) (int, string) {
			return http.StatusOK, `not json`
		})

		c := NewClient(Gemini, WithAPIKey("k"), WithBaseURL(srv.URL))
		_, err := c.Send(t.Context(), conversation)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode Gemini response")
	})
}
