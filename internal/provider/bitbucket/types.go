package bitbucket

type user struct {
	UUID        string `json:"uuid"`
	AccountID   string `json:"account_id"`
	Nickname    string `json:"nickname"`
	DisplayName string `json:"display_name"`
}

type endpoint struct {
	Branch struct {
		Name string `json:"name"`
	} `json:"branch"`
	Commit struct {
		Hash string `json:"hash"`
	} `json:"commit"`
}

type pullRequest struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	State       string   `json:"state"`
	Source      endpoint `json:"source"`
	Destination endpoint `json:"destination"`
	Author      user     `json:"author"`
	Reviewers   []user   `json:"reviewers"`
	Links       struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

type content struct {
	Raw string `json:"raw"`
}

type commentRequest struct {
	Content content `json:"content"`
}

type updateRequest struct {
	Description string `json:"description"`
}

type webhookPayload struct {
	Actor       user         `json:"actor"`
	PullRequest *pullRequest `json:"pullrequest"`
	Comment     *struct {
		Content content `json:"content"`
	} `json:"comment"`
	Repository struct {
		FullName string `json:"full_name"`
		Name     string `json:"name"`
	} `json:"repository"`
}
