package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionchat/internal/chat"
)

type fakeVision struct {
	reply string
	err   error
	calls int
}

func (f *fakeVision) SendWithImages(context.Context, string, []chat.Attachment) (string, error) {
	f.calls++
	return f.reply, f.err
}

func newTestServer(t *testing.T, v *fakeVision, creds map[chat.Provider]string) *httptest.Server {
	t.Helper()
	factory := func(string) chat.Vision { return v }
	d := chat.NewDispatcher(chat.Options{
		Factories: map[chat.Provider]chat.Factory{
			chat.ProviderGemini: factory,
			chat.ProviderOpenAI: factory,
		},
		Credentials: creds,
	})
	srv := httptest.NewServer(New(Options{Dispatcher: d}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw), resp.Header
}

const imageBody = `{"messages":[{"role":"user","content":"what is it?","images":[{"id":"1","data":"iVBORw0KGgo=","mimeType":"image/png","name":"a.png","size":8}]}],"model":"gpt-4o-mini","temperature":0.7,"max_tokens":512}`

func TestChat_ImageMessage(t *testing.T) {
	v := &fakeVision{reply: "a small png"}
	srv := newTestServer(t, v, map[chat.Provider]string{chat.ProviderGemini: "k"})

	status, body, header := post(t, srv.URL+"/api/chat", imageBody)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a small png", body)
	assert.NotEmpty(t, header.Get("X-Request-Id"))
	assert.Equal(t, 1, v.calls)
}

func TestChat_TextMessage(t *testing.T) {
	v := &fakeVision{}
	srv := newTestServer(t, v, nil)

	status, body, _ := post(t, srv.URL+"/api/chat", `{"messages":[{"role":"user","content":"hello"}]}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Text-only response for: hello", body)
	assert.Equal(t, 0, v.calls)
}

func TestChat_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		body   string
		vision *fakeVision
		creds  map[chat.Provider]string
		status int
		text   string
	}{
		{
			name:   "empty messages",
			body:   `{"messages":[]}`,
			status: http.StatusBadRequest,
			text:   "No message provided",
		},
		{
			name:   "missing key for provider from query",
			url:    "?provider=openai",
			body:   imageBody,
			creds:  map[chat.Provider]string{chat.ProviderGemini: "k"},
			status: http.StatusServiceUnavailable,
			text:   "OpenAI API key not configured",
		},
		{
			name:   "provider from body",
			body:   strings.Replace(imageBody, `"model"`, `"provider":"claude","model"`, 1),
			creds:  map[chat.Provider]string{chat.ProviderGemini: "k"},
			status: http.StatusBadRequest,
			text:   `unsupported provider "claude"`,
		},
		{
			name:   "non-image attachment",
			body:   strings.Replace(imageBody, "image/png", "application/pdf", 1),
			creds:  map[chat.Provider]string{chat.ProviderGemini: "k"},
			status: http.StatusUnsupportedMediaType,
			text:   "Unsupported file type: application/pdf",
		},
		{
			name:   "upstream failure",
			body:   imageBody,
			vision: &fakeVision{err: &chat.Error{Kind: chat.KindUpstreamHTTP, Provider: chat.ProviderGemini, Status: 429, Body: "quota"}},
			creds:  map[chat.Provider]string{chat.ProviderGemini: "k"},
			status: http.StatusBadGateway,
			text:   "Gemini error: 429, quota",
		},
		{
			name:   "malformed json",
			body:   `{"messages":`,
			status: http.StatusBadRequest,
			text:   "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.vision
			if v == nil {
				v = &fakeVision{}
			}
			srv := newTestServer(t, v, tt.creds)

			status, body, _ := post(t, srv.URL+"/api/chat"+tt.url, tt.body)

			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.text, body)
		})
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeVision{}, nil)

	resp, err := http.Get(srv.URL + "/api/chat")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := newTestServer(t, &fakeVision{}, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-Id"))
}
