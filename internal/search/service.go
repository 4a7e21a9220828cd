package search

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rasslabs/issuesearch/internal/index"
	"github.com/rasslabs/issuesearch/internal/query"
	"github.com/rasslabs/issuesearch/pkg/models"
)

// QueryEmbedder produces a query embedding. It never fails; on provider
// trouble it degrades to a deterministic local vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) []float32
}

// IndexSearcher runs a query document against the search index. It
// returns an empty response on any failure.
type IndexSearcher interface {
	Search(ctx context.Context, doc map[string]any) index.SearchResponse
}

// EngineSearcher talks to the remote semantic search engine.
type EngineSearcher interface {
	Configured() bool
	Search(ctx context.Context, q string, k int, filters map[string]any, userLogin string) ([]index.EngineResult, error)
}

// Visibility resolves which of the candidate issue ids the user may
// see.
type Visibility interface {
	VisibleIssueIDs(ctx context.Context, user models.User, candidates []int) (map[int]struct{}, error)
}

// ClassicSearcher is the keyword search the orchestrator falls back to.
type ClassicSearcher interface {
	Search(ctx context.Context, q string, user models.User, scope []string, opt models.ClassicOptions) (models.ClassicResult, error)
}

// Settings are the tunables the orchestrator re-reads on every request,
// so an operator change takes effect without a restart.
type Settings struct {
	DefaultAlgorithm string
	DefaultThreshold float64
	RassPageSize     int
}

// SettingsSource supplies the current settings. Implementations may
// read a config store, a database row, or return a fixed snapshot.
type SettingsSource interface {
	Current() Settings
}

// StaticSettings is a SettingsSource that always returns the same
// snapshot.
type StaticSettings Settings

func (s StaticSettings) Current() Settings { return Settings(s) }

// Options control a direct index search.
type Options struct {
	Algorithm string
	// Threshold zero or negative selects the configured default; a
	// strictly positive value is passed through as given.
	Threshold  float64
	Scope      []string
	ProjectIDs []int
	Offset     int
	Limit      int
}

// RassOptions control a remote-engine search.
type RassOptions struct {
	Page    int
	PerPage int
	Scope   []string
}

// Request is one toggle-driven search.
type Request struct {
	Semantic bool
	Page     int
	PerPage  int
	Scope    []string
	Classic  models.ClassicOptions
}

// Response is what every search path resolves to, so callers cannot
// tell a fallback from a first-choice answer by shape.
type Response struct {
	Results     []models.SearchResult `json:"results"`
	Total       int                   `json:"total"`
	CountByType map[string]int        `json:"count_by_type"`
}

func emptyResponse() Response {
	return Response{Results: []models.SearchResult{}, CountByType: map[string]int{}}
}

// Service orchestrates the search paths: direct index queries, the
// remote engine, and the classic keyword fallback.
type Service struct {
	embedder QueryEmbedder
	idx      IndexSearcher
	engine   EngineSearcher
	classic  ClassicSearcher
	authz    Visibility
	settings SettingsSource
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(embedder QueryEmbedder, idx IndexSearcher, engine EngineSearcher, classic ClassicSearcher, authz Visibility, settings SettingsSource, logger zerolog.Logger) *Service {
	return &Service{
		embedder: embedder,
		idx:      idx,
		engine:   engine,
		classic:  classic,
		authz:    authz,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// SemanticSearch runs a query against the index with the selected
// strategy and pushes the raw hits through the result pipeline. It
// never returns an error; every failure mode degrades to an empty
// list.
func (s *Service) SemanticSearch(ctx context.Context, q string, user models.User, opts Options) []models.SearchResult {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.SearchResult{}
	}

	settings := s.settings.Current()
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = settings.DefaultAlgorithm
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = settings.DefaultThreshold
	}

	strategy := query.ParseStrategy(algorithm)
	var vector []float32
	if strategy != query.StrategyLexical {
		vector = s.embedder.Embed(ctx, q)
	}

	doc := query.Build(query.NewSpec(q, algorithm, threshold, vector))
	resp := s.idx.Search(ctx, doc)
	hits := resp.Hits.Hits
	if len(hits) == 0 {
		return []models.SearchResult{}
	}

	candidates := make([]int, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, hit.Source.ID)
	}
	visible, err := s.authz.VisibleIssueIDs(ctx, user, candidates)
	if err != nil {
		// Fail closed: an unanswerable permission check releases
		// nothing.
		s.logger.Warn().Err(err).Str("query", q).Msg("visibility check failed, dropping results")
		return []models.SearchResult{}
	}
	hits = FilterVisible(hits, visible)

	now := s.now()
	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Normalize(hit, now))
	}
	results = FilterScope(results, opts.Scope)
	results = FilterProjects(results, opts.ProjectIDs)
	return Paginate(results, opts.Offset, opts.Limit)
}

// RassSemanticSearch asks the remote engine first and falls back to the
// classic keyword search when the engine is unconfigured or fails. A
// well-formed empty answer from the engine is a success, not a reason
// to fall back.
func (s *Service) RassSemanticSearch(ctx context.Context, q string, user models.User, opts RassOptions) Response {
	q = strings.TrimSpace(q)
	if q == "" {
		return emptyResponse()
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = s.settings.Current().RassPageSize
	}
	if perPage < 1 {
		perPage = 10
	}

	if !s.engine.Configured() {
		s.logger.Debug().Msg("rass engine not configured, using classic search")
		return s.classicSearch(ctx, q, user, opts.Scope, page, perPage)
	}

	// The engine only accepts a result count, so fetch through the
	// requested page and slice locally.
	engineResults, err := s.engine.Search(ctx, q, page*perPage, nil, user.Login)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", q).Msg("rass engine search failed, falling back to classic search")
		return s.classicSearch(ctx, q, user, opts.Scope, page, perPage)
	}

	results := s.release(ctx, q, user, engineResults)
	results = FilterScope(results, opts.Scope)
	total := len(results)
	results = Paginate(results, (page-1)*perPage, perPage)
	return Response{
		Results:     results,
		Total:       total,
		CountByType: map[string]int{models.KindIssue: total},
	}
}

// Search is the toggle-driven entry point: semantic off means classic
// search untouched, semantic on means the engine path with its
// fallback.
func (s *Service) Search(ctx context.Context, q string, user models.User, req Request) Response {
	if !req.Semantic {
		page := req.Page
		if page < 1 {
			page = 1
		}
		perPage := req.PerPage
		if perPage < 1 {
			perPage = s.settings.Current().RassPageSize
		}
		if perPage < 1 {
			perPage = 10
		}
		return s.classicSearchOpt(ctx, q, user, req.Scope, page, perPage, req.Classic)
	}
	return s.RassSemanticSearch(ctx, q, user, RassOptions{Page: req.Page, PerPage: req.PerPage, Scope: req.Scope})
}

// release applies the permission filter and normalization to engine
// results.
func (s *Service) release(ctx context.Context, q string, user models.User, engineResults []index.EngineResult) []models.SearchResult {
	if len(engineResults) == 0 {
		return []models.SearchResult{}
	}
	candidates := make([]int, 0, len(engineResults))
	for _, r := range engineResults {
		candidates = append(candidates, r.ID)
	}
	visible, err := s.authz.VisibleIssueIDs(ctx, user, candidates)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", q).Msg("visibility check failed, dropping results")
		return []models.SearchResult{}
	}
	now := s.now()
	results := make([]models.SearchResult, 0, len(engineResults))
	for _, r := range engineResults {
		if _, ok := visible[r.ID]; !ok {
			continue
		}
		results = append(results, NormalizeEngineResult(r, now))
	}
	return results
}

func (s *Service) classicSearch(ctx context.Context, q string, user models.User, scope []string, page, perPage int) Response {
	return s.classicSearchOpt(ctx, q, user, scope, page, perPage, models.ClassicOptions{})
}

func (s *Service) classicSearchOpt(ctx context.Context, q string, user models.User, scope []string, page, perPage int, opt models.ClassicOptions) Response {
	opt.Offset = (page - 1) * perPage
	opt.Limit = perPage
	res, err := s.classic.Search(ctx, q, user, scope, opt)
	if err != nil {
		s.logger.Error().Err(err).Str("query", q).Msg("classic search failed")
		return emptyResponse()
	}
	results := res.Results
	if results == nil {
		results = []models.SearchResult{}
	}
	counts := res.CountByType
	if counts == nil {
		counts = map[string]int{}
	}
	return Response{Results: results, Total: res.Total, CountByType: counts}
}
