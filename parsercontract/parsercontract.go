// Package parsercontract defines the boundary to the external
// code-understanding collaborator: the component that turns a source file
// into an AST, language tag, and extracted features. It is explicitly out
// of scope for this module — parsing itself is not reimplemented — but the
// interface is load-bearing for upsert_code_snippet, store_parsed_content,
// and pattern extraction.
package parsercontract

import "context"

// Capability tags what a given parser implementation can produce for a
// file, letting callers degrade gracefully instead of assuming every parser
// supports every feature.
type Capability int

const (
	SupportsAST Capability = 1 << iota
	SupportsFeatures
	SupportsPatterns
)

// Kind distinguishes the parser backend that produced a ParsedFile, so
// downstream pattern extraction can apply backend-specific heuristics.
type Kind string

const (
	KindTreeSitter Kind = "tree-sitter"
	KindCustom     Kind = "custom"
	KindUnknown    Kind = "unknown"
)

// ParsedFile is the result of parsing one source file.
type ParsedFile struct {
	FilePath string
	Language string
	Kind     Kind
	AST      string
	Features map[string]interface{}
}

// Parser is the external collaborator's contract. Implementations live
// outside this module; a deterministic stub is provided for tests.
type Parser interface {
	Supports(capability Capability) bool
	Parse(ctx context.Context, filePath string, content []byte) (*ParsedFile, error)
}
