package relational

import "context"

// Schema is the DDL applied at startup. It mirrors §6's table list exactly;
// the ivfflat indexes require the vector extension to already be installed.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS repositories (
	id SERIAL PRIMARY KEY,
	repo_name TEXT UNIQUE NOT NULL,
	source_url TEXT,
	repo_type TEXT NOT NULL DEFAULT 'active',
	active_repo_id INTEGER REFERENCES repositories(id) ON DELETE SET NULL,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS code_snippets (
	id SERIAL PRIMARY KEY,
	repo_id INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	ast TEXT,
	embedding VECTOR(768),
	enriched_features JSONB,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(repo_id, file_path)
);
CREATE INDEX IF NOT EXISTS code_snippets_embedding_idx ON code_snippets USING ivfflat (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS doc_clusters (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS repo_docs (
	id SERIAL PRIMARY KEY,
	file_path TEXT NOT NULL,
	content TEXT NOT NULL,
	doc_type TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	cluster_id INTEGER REFERENCES doc_clusters(id),
	related_code_path TEXT,
	embedding VECTOR(768),
	metadata JSONB,
	quality_metrics JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS repo_docs_embedding_idx ON repo_docs USING ivfflat (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS repo_doc_relations (
	repo_id INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	doc_id INTEGER NOT NULL REFERENCES repo_docs(id) ON DELETE CASCADE,
	is_primary BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (repo_id, doc_id)
);

CREATE TABLE IF NOT EXISTS doc_versions (
	id SERIAL PRIMARY KEY,
	doc_id INTEGER NOT NULL REFERENCES repo_docs(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	version INTEGER NOT NULL,
	changes_summary TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(doc_id, version)
);

CREATE TABLE IF NOT EXISTS code_patterns (
	id SERIAL PRIMARY KEY,
	repo_id INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	pattern_type TEXT NOT NULL,
	language TEXT,
	file_path TEXT,
	sample_content TEXT,
	confidence DOUBLE PRECISION NOT NULL,
	embedding VECTOR(768),
	elements JSONB,
	success BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS code_patterns_embedding_idx ON code_patterns USING ivfflat (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS pattern_metrics (
	id SERIAL PRIMARY KEY,
	pattern_id INTEGER NOT NULL UNIQUE REFERENCES code_patterns(id) ON DELETE CASCADE,
	applied_count INTEGER NOT NULL DEFAULT 0,
	accepted_count INTEGER NOT NULL DEFAULT 0,
	last_applied_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS pattern_relationships (
	id SERIAL PRIMARY KEY,
	source_pattern_id INTEGER NOT NULL REFERENCES code_patterns(id) ON DELETE CASCADE,
	related_pattern_id INTEGER NOT NULL REFERENCES code_patterns(id) ON DELETE CASCADE,
	relationship_type TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	UNIQUE(source_pattern_id, related_pattern_id, relationship_type)
);
`

// Migrate applies Schema idempotently. Safe to call on every startup.
func Migrate(ctx context.Context, s *Store) error {
	return s.Exec(ctx, Schema)
}
