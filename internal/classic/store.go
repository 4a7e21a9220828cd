package classic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rasslabs/issuesearch/pkg/models"
)

// Store runs keyword searches directly against the issue database. It
// backs the classic search path and resolves issue visibility for the
// semantic paths.
type Store struct {
	pool *pgxpool.Pool
}

// IssueStore defines the methods that the Store must implement.
type IssueStore interface {
	Search(ctx context.Context, q string, user models.User, scope []string, opt models.ClassicOptions) (models.ClassicResult, error)
	VisibleIssueIDs(ctx context.Context, user models.User, candidates []int) (map[int]struct{}, error)
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Search tokenizes the query and matches issues on subject and
// description (plus attachment filenames when asked). AllWords
// requires every token to match; otherwise any token suffices.
func (s *Store) Search(ctx context.Context, q string, user models.User, scope []string, opt models.ClassicOptions) (models.ClassicResult, error) {
	empty := models.ClassicResult{
		Results:     []models.SearchResult{},
		CountByType: map[string]int{},
	}

	if len(scope) > 0 && !scopeIncludesIssues(scope) {
		return empty, nil
	}
	tokens := tokenize(q)
	if len(tokens) == 0 {
		return empty, nil
	}

	args := []any{user.ID}
	ai := 2

	where := visibleSQL
	if opt.OpenOnly {
		where += " AND st.is_closed = FALSE"
	}

	var tokenConds []string
	for _, tok := range tokens {
		var fields []string
		fields = append(fields, fmt.Sprintf("i.subject ILIKE '%%' || $%d || '%%'", ai))
		if !opt.TitlesOnly {
			fields = append(fields, fmt.Sprintf("i.description ILIKE '%%' || $%d || '%%'", ai))
		}
		if opt.Attachments {
			fields = append(fields, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM attachments a WHERE a.container_type = 'Issue' AND a.container_id = i.id AND (a.filename ILIKE '%%' || $%d || '%%' OR a.description ILIKE '%%' || $%d || '%%'))",
				ai, ai))
		}
		tokenConds = append(tokenConds, "("+strings.Join(fields, " OR ")+")")
		args = append(args, tok)
		ai++
	}
	joiner := " OR "
	if opt.AllWords {
		joiner = " AND "
	}
	where += " AND (" + strings.Join(tokenConds, joiner) + ")"

	limit := opt.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opt.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
SELECT
  i.id, i.subject, COALESCE(i.description, ''), i.created_on,
  p.id, p.name,
  COUNT(*) OVER() AS total
FROM issues i
JOIN projects p ON p.id = i.project_id
JOIN issue_statuses st ON st.id = i.status_id
WHERE %s
ORDER BY i.created_on DESC, i.id DESC
LIMIT %d OFFSET %d;
`, where, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return models.ClassicResult{}, err
	}
	defer rows.Close()

	total := 0
	results := []models.SearchResult{}
	for rows.Next() {
		var r models.SearchResult
		var projectID int
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Timestamp, &projectID, &r.ProjectName, &total); err != nil {
			return models.ClassicResult{}, err
		}
		r.Kind = models.KindIssue
		r.ProjectID = &projectID
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return models.ClassicResult{}, err
	}

	counts := map[string]int{}
	if total > 0 {
		counts[models.KindIssue] = total
	}
	return models.ClassicResult{Results: results, Total: total, CountByType: counts}, nil
}

// VisibleIssueIDs returns the subset of candidate ids the user may see:
// issues in public projects, plus projects the user is a member of.
func (s *Store) VisibleIssueIDs(ctx context.Context, user models.User, candidates []int) (map[int]struct{}, error) {
	visible := make(map[int]struct{}, len(candidates))
	if len(candidates) == 0 {
		return visible, nil
	}

	const q = `
SELECT i.id
FROM issues i
JOIN projects p ON p.id = i.project_id
WHERE i.id = ANY($2) AND ` + visibleSQL

	rows, err := s.pool.Query(ctx, q, user.ID, candidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		visible[id] = struct{}{}
	}
	return visible, rows.Err()
}

// visibleSQL is the shared visibility predicate; $1 is the user id.
// Anonymous users carry id 0 and only ever match public projects.
const visibleSQL = `(p.is_public = TRUE OR i.author_id = $1 OR EXISTS (
  SELECT 1 FROM members m WHERE m.project_id = p.id AND m.user_id = $1
))`

func scopeIncludesIssues(scope []string) bool {
	for _, kind := range scope {
		if kind == models.KindIssue || kind == "issues" {
			return true
		}
	}
	return false
}

// tokenize lowercases and splits the query on whitespace, dropping
// empty tokens.
func tokenize(q string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(q)))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
