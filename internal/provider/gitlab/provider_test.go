package gitlab

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/reviewer/diffparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	notes        []string
	descriptions []string
	token        string
}

func newTestProvider(t *testing.T, rec *recorder) *Provider {
	t.Helper()

	const project = "/api/v4/projects/acme%2Fapi"
	handler := func(w http.ResponseWriter, r *http.Request) {
		rec.token = r.Header.Get("PRIVATE-TOKEN")
		w.Header().Set("Content-Type", "application/json")

		switch path := r.URL.EscapedPath(); {
		case path == project+"/merge_requests/5" && r.Method == http.MethodGet:
			_, _ = io.WriteString(w, `{
				"iid": 5,
				"title": "Refactor",
				"description": "Implements #8",
				"source_branch": "feature",
				"target_branch": "main",
				"sha": "head5",
				"labels": ["api"],
				"web_url": "https://gitlab.com/acme/api/-/merge_requests/5",
				"author": {"id": 3, "username": "carol", "name": "Carol"}
			}`)

		case path == project+"/merge_requests/5" && r.Method == http.MethodPut:
			var body struct {
				Description string `json:"description"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			rec.descriptions = append(rec.descriptions, body.Description)
			_, _ = io.WriteString(w, `{"iid": 5}`)

		case path == project+"/merge_requests/5/diffs":
			if r.URL.Query().Get("page") == "2" {
				_, _ = io.WriteString(w, `[{"old_path": "old.go", "new_path": "gone.go", "deleted_file": true, "a_mode": "100644", "diff": "@@ -1 +0,0 @@\n-x\n"}]`)
				return
			}
			w.Header().Set("X-Next-Page", "2")
			_, _ = io.WriteString(w, `[
				{"old_path": "a.go", "new_path": "a.go", "diff": "@@ -1 +1,2 @@\n a\n+b\n"},
				{"old_path": "new.go", "new_path": "new.go", "new_file": true, "b_mode": "100644", "diff": "@@ -0,0 +1 @@\n+n\n"},
				{"old_path": "from.go", "new_path": "to.go", "renamed_file": true, "diff": ""}
			]`)

		case path == project+"/repository/files/src%2Fa%2Ego/raw":
			assert.Equal(t, "head5", r.URL.Query().Get("ref"))
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "package a\n")

		case path == project+"/repository/files/missing%2Ego/raw":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"404 File Not Found"}`)

		case path == project+"/merge_requests/5/notes":
			var body struct {
				Body string `json:"body"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			rec.notes = append(rec.notes, body.Body)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id": 11}`)

		default:
			t.Errorf("unexpected request %s %s", r.Method, path)
			w.WriteHeader(http.StatusTeapot)
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)

	p, err := New(model.ProviderConfig{BaseURL: srv.URL, Token: "glpat"},
		model.Target{Provider: "gitlab", Owner: "acme", Repo: "api", Number: 5})
	require.NoError(t, err)
	return p
}

func TestProvider(t *testing.T) {
	rec := &recorder{}
	p := newTestProvider(t, rec)
	ctx := context.Background()

	pr, err := p.GetPullRequestDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, pr.ID)
	assert.Equal(t, "main", pr.BaseBranch)
	assert.Equal(t, "head5", pr.SourceCommit)
	assert.Equal(t, "carol", pr.Author.Username)
	assert.Equal(t, []string{"api"}, pr.Labels)
	assert.Equal(t, []string{"#8"}, pr.RelatedIssues)
	assert.Equal(t, "glpat", rec.token)

	diff, err := p.GetPullRequestDiff(ctx)
	require.NoError(t, err)

	changes := diffparser.Parse(diff)
	require.Len(t, changes, 4)
	assert.Equal(t, "a.go", changes[0].FilePath)
	assert.Equal(t, model.FileModified, changes[0].Status)
	assert.Equal(t, []int{2}, changes[0].ChangedLines)
	assert.Equal(t, model.FileAdded, changes[1].Status)
	assert.Equal(t, model.FileRenamed, changes[2].Status)
	assert.Equal(t, "from.go", changes[2].PreviousFilePath)
	assert.Equal(t, model.FileDeleted, changes[3].Status)

	content, err := p.GetFileContent(ctx, "src/a.go", "head5")
	require.NoError(t, err)
	assert.Equal(t, "package a\n", content)

	content, err = p.GetFileContent(ctx, "missing.go", "head5")
	require.NoError(t, err)
	assert.Empty(t, content)

	require.NoError(t, p.PostReview(ctx, "review"))
	assert.Equal(t, []string{"review"}, rec.notes)

	require.NoError(t, p.UpdatePullRequestBody(ctx, "desc"))
	assert.Equal(t, []string{"desc"}, rec.descriptions)

	assert.Equal(t, "/acme/api/-/blob/abc/a.go#L2", p.Permalink("a.go", "abc", 2)[len(p.webURL):])
}

func TestWebhook(t *testing.T) {
	w := NewWebhook(model.ProviderConfig{WebhookSecret: "tok", BotUsername: "falcon"})

	require.NoError(t, w.ValidateWebhook(nil, "tok"))
	require.Error(t, w.ValidateWebhook(nil, "nope"))

	event, err := w.ParseWebhookEvent([]byte(`{
		"object_kind": "merge_request",
		"user": {"id": 2, "username": "carol"},
		"project": {"id": 1, "path_with_namespace": "acme/backend/api"},
		"object_attributes": {"iid": 5, "action": "open", "title": "Refactor"},
		"reviewers": [{"username": "falcon"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, model.Target{Provider: "gitlab", Owner: "acme/backend", Repo: "api", Number: 5}, event.Target)
	assert.Equal(t, []string{"falcon"}, event.Reviewers)
	assert.True(t, w.IsReviewEvent(event))

	event, err = w.ParseWebhookEvent([]byte(`{
		"object_kind": "merge_request",
		"user": {"username": "carol"},
		"project": {"path_with_namespace": "acme/api"},
		"object_attributes": {"iid": 5, "action": "merge"}
	}`))
	require.NoError(t, err)
	assert.False(t, w.IsReviewEvent(event))

	event, err = w.ParseWebhookEvent([]byte(`{
		"object_kind": "note",
		"user": {"username": "carol"},
		"project": {"path_with_namespace": "acme/api"},
		"object_attributes": {"note": "/falcon summary", "noteable_type": "MergeRequest"},
		"merge_request": {"iid": 5, "title": "Refactor"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 5, event.Target.Number)
	assert.True(t, w.IsReviewEvent(event))
	assert.Equal(t, model.ModeSummary, event.Mode())
}
