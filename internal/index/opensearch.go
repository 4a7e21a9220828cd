// Package index talks to the two search upstreams: the OpenSearch
// issue index and the remote RASS semantic engine. The two clients have
// deliberately different failure contracts; see each type's doc.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Hit is one raw result from the issue index.
type Hit struct {
	ID        string              `json:"_id"`
	Score     float64             `json:"_score"`
	Source    IssueSource         `json:"_source"`
	Highlight map[string][]string `json:"highlight"`
}

// IssueSource is the indexed issue document.
type IssueSource struct {
	ID             int     `json:"id"`
	Subject        string  `json:"subject"`
	Description    string  `json:"description"`
	ProjectName    string  `json:"project_name"`
	ProjectID      *int    `json:"project_id"`
	TrackerName    string  `json:"tracker_name"`
	StatusName     string  `json:"status_name"`
	PriorityName   string  `json:"priority_name"`
	AuthorName     string  `json:"author_name"`
	AssignedToName string  `json:"assigned_to_name"`
	CreatedOn      string  `json:"created_on"`
	UpdatedOn      string  `json:"updated_on"`
	Similarity     float64 `json:"similarity_score"`
}

// SearchResponse is the `hits.hits` envelope of an index search.
type SearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// Client executes query documents against the OpenSearch issue index.
//
// Search failures never surface as errors: a transport problem, a
// non-success status or an unparseable body all degrade to an empty
// response, logged, so the caller can fall back to classic search.
type Client struct {
	baseURL  string
	index    string
	username string
	password string
	http     *http.Client
	logger   zerolog.Logger
}

func NewClient(baseURL, index, username, password string, logger zerolog.Logger) *Client {
	if index == "" {
		index = "issues"
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		index:    index,
		username: username,
		password: password,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Search posts the query document to the index and returns the parsed
// response, or an empty response on any failure.
func (c *Client) Search(ctx context.Context, doc map[string]any) SearchResponse {
	var empty SearchResponse

	body, err := json.Marshal(doc)
	if err != nil {
		c.logger.Error().Err(err).Msg("search query not marshalable")
		return empty
	}

	url := c.baseURL + "/" + c.index + "/_search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("building index request failed")
		return empty
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("index search failed")
		return empty
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("index search returned non-200")
		return empty
	}

	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn().Err(err).Msg("index response not parseable")
		return empty
	}
	return out
}
