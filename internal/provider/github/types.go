package github

type webhookUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

type webhookPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest *struct {
		Number             int           `json:"number"`
		Title              string        `json:"title"`
		RequestedReviewers []webhookUser `json:"requested_reviewers"`
	} `json:"pull_request"`
	RequestedReviewer *webhookUser `json:"requested_reviewer"`
	Issue             *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		// PullRequest is set only when the issue is a pull request
		PullRequest *struct {
			URL string `json:"url"`
		} `json:"pull_request"`
	} `json:"issue"`
	Comment *struct {
		Body string `json:"body"`
	} `json:"comment"`
	Repository struct {
		Name  string      `json:"name"`
		Owner webhookUser `json:"owner"`
	} `json:"repository"`
	Sender webhookUser `json:"sender"`
}
