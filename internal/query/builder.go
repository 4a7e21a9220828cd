// Package query builds OpenSearch query documents for the three
// retrieval strategies. Build is a pure function: embeddings are
// computed by the caller and passed in.
package query

// Strategy selects how a query is translated into a search request.
type Strategy string

const (
	StrategySemantic Strategy = "semantic"
	StrategyHybrid   Strategy = "hybrid"
	StrategyLexical  Strategy = "lexical"
)

// ParseStrategy maps a requested algorithm name onto the closed
// strategy set. Unrecognized values select hybrid.
func ParseStrategy(name string) Strategy {
	switch Strategy(name) {
	case StrategySemantic, StrategyLexical:
		return Strategy(name)
	default:
		return StrategyHybrid
	}
}

// MaxResults caps every query document's size. Downstream pagination
// operates on this capped set, so pages beyond the cap are never fully
// satisfiable; the ceiling bounds both engine load and pipeline cost.
const MaxResults = 50

// DefaultThreshold is the similarity cutoff used when none is given.
const DefaultThreshold = 0.6

// Spec is the validated input to Build.
type Spec struct {
	Query     string
	Strategy  Strategy
	Threshold float64
	// Vector is the query embedding; required by the semantic and
	// hybrid strategies, ignored by lexical.
	Vector []float32
}

// NewSpec validates and defaults the raw request values.
func NewSpec(text, algorithm string, threshold float64, vector []float32) Spec {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return Spec{
		Query:     text,
		Strategy:  ParseStrategy(algorithm),
		Threshold: threshold,
		Vector:    vector,
	}
}

// Weighted fields for lexical matching: subject highest, then
// description and project name, then the remaining metadata unweighted.
var weightedFields = []string{
	"subject^3",
	"description^2",
	"project_name^2",
	"tracker_name",
	"status_name",
	"priority_name",
	"author_name",
	"assigned_to_name",
	"search_text",
}

var sourceFields = []string{
	"id", "subject", "description", "project_name", "project_id",
	"tracker_name", "status_name", "priority_name",
	"author_name", "assigned_to_name", "created_on", "updated_on",
}

// Build constructs the search request document for the selected
// strategy.
func Build(spec Spec) map[string]any {
	var q map[string]any
	switch spec.Strategy {
	case StrategySemantic:
		q = semanticQuery(spec)
	case StrategyLexical:
		q = lexicalQuery(spec)
	default:
		q = hybridQuery(spec)
	}

	return map[string]any{
		"query":     q,
		"size":      MaxResults,
		"_source":   sourceFields,
		"highlight": highlightSpec(),
	}
}

// semanticQuery is a k-nearest match against the precomputed embedding
// field, restricted to candidates whose similarity score meets the
// threshold (hard cutoff).
func semanticQuery(spec Spec) map[string]any {
	return map[string]any{
		"bool": map[string]any{
			"must": []any{
				knnClause(spec.Vector),
			},
			"filter": []any{
				map[string]any{
					"range": map[string]any{
						"similarity_score": map[string]any{"gte": spec.Threshold},
					},
				},
			},
		},
	}
}

// hybridQuery disjoins the lexical match, the vector match and a
// boosted threshold clause (soft preference); at least one must match.
func hybridQuery(spec Spec) map[string]any {
	return map[string]any{
		"bool": map[string]any{
			"should": []any{
				multiMatchClause(spec.Query),
				knnClause(spec.Vector),
				map[string]any{
					"range": map[string]any{
						"similarity_score": map[string]any{
							"gte":   spec.Threshold,
							"boost": 2.0,
						},
					},
				},
			},
			"minimum_should_match": 1,
		},
	}
}

func lexicalQuery(spec Spec) map[string]any {
	return multiMatchClause(spec.Query)
}

func multiMatchClause(text string) map[string]any {
	return map[string]any{
		"multi_match": map[string]any{
			"query":     text,
			"fields":    weightedFields,
			"type":      "best_fields",
			"fuzziness": "AUTO",
		},
	}
}

func knnClause(vector []float32) map[string]any {
	return map[string]any{
		"knn": map[string]any{
			"embedding": map[string]any{
				"vector": vector,
				"k":      MaxResults,
			},
		},
	}
}

func highlightSpec() map[string]any {
	return map[string]any{
		"fields": map[string]any{
			"subject":      map[string]any{},
			"description":  map[string]any{},
			"project_name": map[string]any{},
			"search_text":  map[string]any{},
		},
	}
}
