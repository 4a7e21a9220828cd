package models

import "time"

// User identifies the searcher. The host application issues identities;
// this module only carries them through to the visibility check.
type User struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
}

// Anonymous is the identity used when no user is attached to a request.
// It carries id 0, which the visibility check treats as "public projects
// only".
func Anonymous() User {
	return User{}
}

// SearchResult is a normalized search hit. Instances are immutable once
// built by the pipeline; callers receive their own slice.
type SearchResult struct {
	Kind        string              `json:"kind"`
	ID          int                 `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Timestamp   time.Time           `json:"timestamp"`
	ProjectName string              `json:"project_name"`
	ProjectID   *int                `json:"project_id,omitempty"`
	Score       float64             `json:"score"`
	Highlights  map[string][]string `json:"highlights,omitempty"`
}

// KindIssue is the only result kind the engine currently produces.
const KindIssue = "issue"

// ClassicOptions mirror the host application's keyword-search switches.
type ClassicOptions struct {
	AllWords    bool
	TitlesOnly  bool
	Attachments bool
	OpenOnly    bool
	Offset      int
	Limit       int
}

// ClassicResult is the already-paginated output of the classic keyword
// search collaborator.
type ClassicResult struct {
	Results     []SearchResult
	Total       int
	CountByType map[string]int
}
