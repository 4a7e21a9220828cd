package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"

	"github.com/rasslabs/issuesearch/internal/ai"
	"github.com/rasslabs/issuesearch/internal/auth"
	"github.com/rasslabs/issuesearch/internal/classic"
	"github.com/rasslabs/issuesearch/internal/config"
	"github.com/rasslabs/issuesearch/internal/index"
	"github.com/rasslabs/issuesearch/internal/search"
	"github.com/rasslabs/issuesearch/pkg/models"
)

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("issuesearch-api", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Str("provider", cfg.Provider).Str("log_level", cfg.LogLevel).Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting issuesearch api")

	ctx := context.Background()

	// Embedding providers. The configured provider gets a real client;
	// everything degrades to the deterministic local provider.
	clientConfig := &ai.ClientConfig{
		APIKey:     cfg.APIKey,
		EmbedModel: cfg.EmbedModel,
		Endpoint:   cfg.Endpoint,
		ProjectID:  cfg.ProjectID,
		Location:   cfg.Location,
		Dim:        cfg.Dim,
	}
	clients := make(map[ai.Provider]ai.Client)
	provider := ai.ParseProvider(strings.ToLower(cfg.Provider))
	if provider != ai.ProviderLocal {
		clientConfig.Provider = provider
		c, err := ai.NewClient(ctx, clientConfig)
		if err != nil {
			log.Fatalf("Failed to create embedding client: %v", err)
		}
		clients[provider] = c
	}

	cache := ai.NewCache(cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second, cfg.CacheEnabled)
	embedder := ai.NewEmbedder(clients, func() ai.Provider { return ai.ParseProvider(strings.ToLower(cfg.Provider)) }, cache, cfg.Dim, logger)
	logger.Info().Int("embedding_dim", embedder.Dim()).Str("embed_model", cfg.EmbedModel).Msg("embedder initialized")

	// Initialize auth with configuration
	auth.InitializeAuth(cfg.Auth.JwtSecret, cfg.Auth.Enabled)

	st, err := classic.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	idx := index.NewClient(cfg.OpenSearchURL, cfg.OpenSearchIndex, cfg.OpenSearchUser, cfg.OpenSearchPass, logger)
	engine := index.NewEngineClient(cfg.RassEngineURL, cfg.RassAPIKey, logger)
	settings := search.StaticSettings{
		DefaultAlgorithm: cfg.DefaultAlgorithm,
		DefaultThreshold: cfg.DefaultThreshold,
		RassPageSize:     cfg.RassPageSize,
	}

	svc := search.NewService(embedder, idx, engine, st, st, settings, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	// Auth status endpoint (always available)
	mux.HandleFunc("/auth/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]bool{"enabled": auth.IsAuthEnabled()})
		if err != nil {
			http.Error(w, "Failed to encode response", 500)
		}
	})

	mux.HandleFunc("/search", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query().Get("q")
		user := auth.GetUserFromContext(r)

		req := search.Request{
			Semantic: semanticRequested(r),
			Page:     queryInt(r, "page", 1),
			PerPage:  queryInt(r, "per_page", 0),
			Scope:    queryList(r, "scope"),
			Classic: models.ClassicOptions{
				AllWords:    queryBool(r, "all_words"),
				TitlesOnly:  queryBool(r, "titles_only"),
				Attachments: queryBool(r, "attachments"),
				OpenOnly:    queryBool(r, "open_issues"),
			},
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		res := svc.Search(ctx, q, user, req)

		writeJSON(w, res)
		hlog.FromRequest(r).Info().Str("path", "/search").Str("q", q).Bool("semantic", req.Semantic).Int("total", res.Total).Dur("dur", time.Since(start)).Msg("served")
	}))

	mux.HandleFunc("/rass/search", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query().Get("q")
		user := auth.GetUserFromContext(r)

		opts := search.RassOptions{
			Page:    queryInt(r, "page", 1),
			PerPage: queryInt(r, "per_page", 0),
			Scope:   queryList(r, "scope"),
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		res := svc.RassSemanticSearch(ctx, q, user, opts)

		writeJSON(w, res)
		hlog.FromRequest(r).Info().Str("path", "/rass/search").Str("q", q).Int("total", res.Total).Dur("dur", time.Since(start)).Msg("served")
	}))

	mux.HandleFunc("/semantic/search", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query().Get("q")
		user := auth.GetUserFromContext(r)

		opts := search.Options{
			Algorithm: r.URL.Query().Get("algorithm"),
			Scope:     queryList(r, "scope"),
			Offset:    queryInt(r, "offset", 0),
			Limit:     queryInt(r, "limit", 0),
		}
		if v := r.URL.Query().Get("threshold"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				opts.Threshold = f
			}
		}
		for _, raw := range queryList(r, "project_id") {
			if id, err := strconv.Atoi(raw); err == nil {
				opts.ProjectIDs = append(opts.ProjectIDs, id)
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		res := svc.SemanticSearch(ctx, q, user, opts)

		writeJSON(w, res)
		hlog.FromRequest(r).Info().Str("path", "/semantic/search").Str("q", q).Str("algorithm", opts.Algorithm).Int("count", len(res)).Dur("dur", time.Since(start)).Msg("served")
	}))

	mux.HandleFunc("/embeddings/stats", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			embedder.ClearCache()
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, embedder.CacheStats())
	}))

	// Embeds a sample text with an explicit provider so operators can
	// verify credentials without touching search traffic.
	mux.HandleFunc("/embeddings/test", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Provider string `json:"provider"`
			Text     string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if body.Text == "" {
			body.Text = "issue search embedding check"
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		vector := embedder.EmbedUsing(ctx, ai.ParseProvider(body.Provider), body.Text)

		writeJSON(w, map[string]any{
			"provider":  ai.ParseProvider(body.Provider),
			"dimension": len(vector),
			"sample":    vector[:min(8, len(vector))],
		})
	}))

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func queryBool(r *http.Request, name string) bool {
	return parseBool(r.URL.Query().Get(name))
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// semanticRequested reports whether the request asks for semantic search.
// The semantic query parameter wins when present; otherwise the
// semantic_search cookie carries the per-session preference.
func semanticRequested(r *http.Request) bool {
	if r.URL.Query().Has("semantic") {
		return queryBool(r, "semantic")
	}
	if c, err := r.Cookie("semantic_search"); err == nil {
		return parseBool(c.Value)
	}
	return false
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
