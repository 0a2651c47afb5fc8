package relational

import "time"

// RepoKind distinguishes an active, ingested repository from a reference
// repository kept only to donate patterns.
type RepoKind string

const (
	RepoActive    RepoKind = "active"
	RepoReference RepoKind = "reference"
)

// Repository is the repositories row.
type Repository struct {
	ID           int
	Name         string
	SourceURL    string
	Kind         RepoKind
	ActiveRepoID *int
	LastUpdated  time.Time
}

// CodeSnippet is the code_snippets row.
type CodeSnippet struct {
	ID                int
	RepoID            int
	FilePath          string
	AST               string
	Embedding         []float32
	EnrichedFeatures  map[string]interface{}
	UpdatedAt         time.Time
}

// DocKind enumerates the recognized document kinds.
type DocKind string

const (
	DocMarkdown      DocKind = "markdown"
	DocInline        DocKind = "inline"
	DocDocstring     DocKind = "docstring"
	DocPatternSample DocKind = "pattern-sample"
)

// Doc is the repo_docs row.
type Doc struct {
	ID              int
	FilePath        string
	Content         string
	Kind            DocKind
	Version         int
	ClusterID       *int
	RelatedCodePath string
	Embedding       []float32
	Metadata        map[string]interface{}
	QualityMetrics  map[string]interface{}
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DocRelation is the repo_doc_relations row.
type DocRelation struct {
	RepoID    int
	DocID     int
	IsPrimary bool
	CreatedAt time.Time
}

// DocVersion is the doc_versions row.
type DocVersion struct {
	ID             int
	DocID          int
	Content        string
	Version        int
	ChangesSummary string
	CreatedAt      time.Time
}

// DocCluster is the doc_clusters row.
type DocCluster struct {
	ID          int
	Name        string
	Description string
	Metadata    map[string]interface{}
	CreatedAt   time.Time
}

// PatternType identifies which of the three pattern variants a row holds.
type PatternType string

const (
	PatternCode PatternType = "code-pattern"
	PatternDoc  PatternType = "doc-pattern"
	PatternArch PatternType = "arch-pattern"
)

// Pattern is the code_patterns row. Language is only meaningful for
// PatternCode rows.
type Pattern struct {
	ID            int
	RepoID        int
	Type          PatternType
	Language      string
	FilePath      string
	SampleContent string
	Confidence    float64
	Embedding     []float32
	Elements      map[string]interface{}
	Success       bool
	CreatedAt     time.Time
}

// PatternMetric is the pattern_metrics row, tracking how often a pattern's
// recommendation was applied versus accepted.
type PatternMetric struct {
	ID            int
	PatternID     int
	AppliedCount  int
	AcceptedCount int
	LastAppliedAt *time.Time
}

// PatternRelationship is the pattern_relationships row, e.g. a
// CrossRepositoryPattern's DERIVED_FROM link recorded relationally for
// querying without touching the graph store.
type PatternRelationship struct {
	ID               int
	SourcePatternID  int
	RelatedPatternID int
	RelationType     string
	Confidence       float64
}
