package bitbucket

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDiff = "diff --git a/a.ts b/a.ts\n--- a/a.ts\n+++ b/a.ts\n@@ -1 +1,2 @@\n a\n+b\n"

type recorder struct {
	comments []commentRequest
	updates  []updateRequest
	user     string
	password string
}

func newTestProvider(t *testing.T, rec *recorder, cfg model.ProviderConfig) *Provider {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/repositories/ws/app/pullrequests/3", func(w http.ResponseWriter, r *http.Request) {
		rec.user, rec.password, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPut {
			var req updateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			rec.updates = append(rec.updates, req)
			_, _ = io.WriteString(w, `{"id":3}`)
			return
		}
		_, _ = io.WriteString(w, `{
			"id": 3,
			"title": "PROJ-9 add b",
			"description": "closes #4",
			"state": "OPEN",
			"source": {"branch": {"name": "feature"}, "commit": {"hash": "abc123"}},
			"destination": {"branch": {"name": "main"}, "commit": {"hash": "def456"}},
			"author": {"uuid": "{u1}", "nickname": "alice", "display_name": "Alice"},
			"links": {"html": {"href": "https://bitbucket.org/ws/app/pull-requests/3"}}
		}`)
	})
	mux.HandleFunc("/repositories/ws/app/pullrequests/3/diff", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, testDiff)
	})
	mux.HandleFunc("/repositories/ws/app/pullrequests/3/comments", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req commentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		rec.comments = append(rec.comments, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	})
	mux.HandleFunc("/repositories/ws/app/src/abc123/src/a.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "a\nb\n")
	})
	mux.HandleFunc("/repositories/ws/app/src/abc123/.falcon.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "customPrompts:\n  review: be strict\n")
	})
	mux.HandleFunc("/repositories/ws/app/src/abc123/missing.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"type":"error","error":{"message":"No such file"}}`)
	})

	mux.HandleFunc("/repositories/ws/app/src/abc123/broken.ts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	p, err := New(cfg, model.Target{Provider: "bitbucket", Owner: "ws", Repo: "app", Number: 3})
	require.NoError(t, err)
	return p
}

func TestProvider(t *testing.T) {
	rec := &recorder{}
	p := newTestProvider(t, rec, model.ProviderConfig{Username: "bob", AppPassword: "pw"})
	ctx := context.Background()

	pr, err := p.GetPullRequestDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, pr.ID)
	assert.Equal(t, "main", pr.BaseBranch)
	assert.Equal(t, "feature", pr.SourceBranch)
	assert.Equal(t, "abc123", pr.SourceCommit)
	assert.Equal(t, "alice", pr.Author.Username)
	assert.Equal(t, []string{"PROJ-9", "#4"}, pr.RelatedIssues)
	assert.Equal(t, "bob", rec.user)
	assert.Equal(t, "pw", rec.password)

	diff, err := p.GetPullRequestDiff(ctx)
	require.NoError(t, err)
	assert.Equal(t, testDiff, diff)

	content, err := p.GetFileContent(ctx, "src/a.ts", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", content)

	content, err = p.GetFileContent(ctx, "missing.ts", "abc123")
	require.NoError(t, err)
	assert.Empty(t, content)

	_, err = p.GetFileContent(ctx, "broken.ts", "abc123")
	require.Error(t, err)

	md, err := p.GetMetadata(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "be strict", md.ReviewPrompt())

	// no metadata file at this ref
	md, err = p.GetMetadata(ctx, "def456")
	require.NoError(t, err)
	assert.Empty(t, md.ReviewPrompt())
	assert.Empty(t, md.IgnoreFiles)

	require.NoError(t, p.PostReview(ctx, "### Falcon AI Review"))
	require.Len(t, rec.comments, 1)
	assert.Equal(t, "### Falcon AI Review", rec.comments[0].Content.Raw)

	require.NoError(t, p.UpdatePullRequestBody(ctx, "body"))
	require.Len(t, rec.updates, 1)
	assert.Equal(t, "body", rec.updates[0].Description)
}

func TestNewValidation(t *testing.T) {
	target := model.Target{Owner: "ws", Repo: "app", Number: 1}

	_, err := New(model.ProviderConfig{}, target)
	require.Error(t, err)
	_, err = New(model.ProviderConfig{Username: "bob"}, target)
	require.Error(t, err)
	_, err = New(model.ProviderConfig{Token: "t"}, model.Target{Owner: "ws", Number: 1})
	require.Error(t, err)

	p, err := New(model.ProviderConfig{Token: "t"}, target)
	require.NoError(t, err)
	assert.Equal(t, "https://bitbucket.org/ws/app/src/abc/a.ts#lines-4", p.Permalink("a.ts", "abc", 4))
	assert.Empty(t, p.Permalink("a.ts", "", 4))
}

func TestWebhook(t *testing.T) {
	w := NewWebhook(model.ProviderConfig{BotUsername: "falcon"})

	event, err := w.ParseWebhookEvent([]byte(`{
		"actor": {"uuid": "{u1}", "nickname": "alice"},
		"pullrequest": {"id": 3, "title": "t", "state": "OPEN", "reviewers": [{"nickname": "falcon"}]},
		"repository": {"full_name": "ws/app"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "pullrequest", event.Type)
	assert.Equal(t, "opened", event.Action)
	assert.Equal(t, model.Target{Provider: "bitbucket", Owner: "ws", Repo: "app", Number: 3}, event.Target)
	assert.Equal(t, []string{"falcon"}, event.Reviewers)
	assert.True(t, w.IsReviewEvent(event))

	event, err = w.ParseWebhookEvent([]byte(`{
		"actor": {"nickname": "alice"},
		"pullrequest": {"id": 3, "state": "MERGED"},
		"repository": {"full_name": "ws/app"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "merged", event.Action)
	assert.False(t, w.IsReviewEvent(event))

	event, err = w.ParseWebhookEvent([]byte(`{
		"actor": {"nickname": "alice"},
		"pullrequest": {"id": 3, "state": "OPEN"},
		"comment": {"content": {"raw": "/falcon summary"}},
		"repository": {"full_name": "ws/app"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "pullrequest_comment", event.Type)
	assert.True(t, w.IsReviewEvent(event))
	assert.Equal(t, model.ModeSummary, event.Mode())

	event, err = w.ParseWebhookEvent([]byte(`{"actor": {"nickname": "falcon"}, "pullrequest": {"id": 3, "state": "OPEN"}, "repository": {"full_name": "ws/app"}}`))
	require.NoError(t, err)
	assert.False(t, w.IsReviewEvent(event))
}
