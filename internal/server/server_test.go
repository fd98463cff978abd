package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "X-Test-Signature"

type fakeSource struct {
	review bool
}

func (f fakeSource) ValidateWebhook(_ []byte, token string) error {
	if token != "good" {
		return errm.New("bad signature")
	}
	return nil
}

func (f fakeSource) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	if !strings.HasPrefix(string(payload), "{") {
		return nil, errm.New("not json")
	}
	return &model.CodeEvent{
		Type:    "pull_request",
		Action:  "opened",
		Target:  model.Target{Owner: "acme", Repo: "app", Number: 7},
		Comment: "/falcon summary",
	}, nil
}

func (f fakeSource) IsReviewEvent(*model.CodeEvent) bool {
	return f.review
}

type recorder struct {
	mu     sync.Mutex
	events []model.CodeEvent
}

func (r *recorder) run(_ context.Context, event model.CodeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func newTestServer(t *testing.T, review bool) (*Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := New(Config{Workers: 2}, fakeSource{review: review}, testHeader, rec.run)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, rec
}

func post(s *Server, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, defaultEndpoint, strings.NewReader(body))
	req.Header.Set(testHeader, signature)
	w := httptest.NewRecorder()
	s.handleWebhook(w, req)
	return w
}

func TestWebhookRunsReviewEvent(t *testing.T) {
	s, rec := newTestServer(t, true)

	w := post(s, `{"x":1}`, "good")
	assert.Equal(t, http.StatusAccepted, w.Code)

	s.Wait()
	require.Len(t, rec.events, 1)
	assert.Equal(t, 7, rec.events[0].Target.Number)
	assert.Equal(t, model.ModeSummary, rec.events[0].Mode())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s, rec := newTestServer(t, true)

	w := post(s, `{"x":1}`, "bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.Wait()
	assert.Empty(t, rec.events)
}

func TestWebhookBadPayload(t *testing.T) {
	s, rec := newTestServer(t, true)

	w := post(s, `not json`, "good")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.Wait()
	assert.Empty(t, rec.events)
}

func TestWebhookIgnoresIrrelevantEvent(t *testing.T) {
	s, rec := newTestServer(t, false)

	w := post(s, `{"x":1}`, "good")
	assert.Equal(t, http.StatusOK, w.Code)

	s.Wait()
	assert.Empty(t, rec.events)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{}, nil, testHeader, (&recorder{}).run)
	require.Error(t, err)

	_, err = New(Config{EnableHTTPS: true}, fakeSource{}, testHeader, (&recorder{}).run)
	require.Error(t, err)
}
