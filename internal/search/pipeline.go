package search

import (
	"time"

	"github.com/rasslabs/issuesearch/internal/index"
	"github.com/rasslabs/issuesearch/pkg/models"
)

// The result pipeline: permission filter, normalization, scope and
// project filters, pagination. Every step is stable (relative order of
// ties is preserved) and trusts the upstream score ordering; there is
// no re-sort. None of these functions can fail.

// FilterVisible retains hits whose issue id is in the allow-set. An
// empty allow-set yields zero results.
func FilterVisible(hits []index.Hit, visible map[int]struct{}) []index.Hit {
	out := make([]index.Hit, 0, len(hits))
	for _, hit := range hits {
		if _, ok := visible[hit.Source.ID]; ok {
			out = append(out, hit)
		}
	}
	return out
}

// Normalize maps a raw index hit into a SearchResult, substituting safe
// defaults for absent fields: empty strings for text, now for a missing
// or unparseable timestamp, zero for a missing score.
func Normalize(hit index.Hit, now time.Time) models.SearchResult {
	score := hit.Score
	if score < 0 {
		score = 0
	}
	return models.SearchResult{
		Kind:        models.KindIssue,
		ID:          hit.Source.ID,
		Title:       hit.Source.Subject,
		Description: hit.Source.Description,
		Timestamp:   parseTime(hit.Source.CreatedOn, now),
		ProjectName: hit.Source.ProjectName,
		ProjectID:   hit.Source.ProjectID,
		Score:       score,
		Highlights:  hit.Highlight,
	}
}

// NormalizeEngineResult does the same for a remote-engine result.
func NormalizeEngineResult(r index.EngineResult, now time.Time) models.SearchResult {
	score := r.Score
	if score < 0 {
		score = 0
	}
	return models.SearchResult{
		Kind:        models.KindIssue,
		ID:          r.ID,
		Title:       r.Subject,
		Description: r.Description,
		Timestamp:   parseTime(r.CreatedAt, now),
		ProjectName: r.Project,
		ProjectID:   r.ProjectID,
		Score:       score,
		Highlights:  r.Highlights,
	}
}

// FilterScope drops all results when the caller restricts to a kind
// subset that excludes issues; the engine only produces issue results.
func FilterScope(results []models.SearchResult, scope []string) []models.SearchResult {
	if len(scope) == 0 {
		return results
	}
	for _, kind := range scope {
		if kind == models.KindIssue || kind == "issues" {
			return results
		}
	}
	return []models.SearchResult{}
}

// FilterProjects retains results matching the requested project ids.
func FilterProjects(results []models.SearchResult, projectIDs []int) []models.SearchResult {
	if len(projectIDs) == 0 {
		return results
	}
	wanted := make(map[int]struct{}, len(projectIDs))
	for _, id := range projectIDs {
		wanted[id] = struct{}{}
	}
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.ProjectID == nil {
			continue
		}
		if _, ok := wanted[*r.ProjectID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Paginate slices the ordered list at a zero-based offset. An offset at
// or past the end yields an empty page; limit <= 0 means "to the end".
// Negative offsets are treated as zero.
func Paginate(results []models.SearchResult, offset, limit int) []models.SearchResult {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []models.SearchResult{}
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return results[offset:end]
}

func parseTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}
