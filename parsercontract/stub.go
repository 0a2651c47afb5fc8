package parsercontract

import (
	"context"
	"path/filepath"
	"strings"
)

// StubParser is a deterministic Parser used by tests and local development
// when no real tree-sitter/custom parser is wired in. It never fails; an
// unrecognized extension yields an empty AST with KindUnknown, matching the
// "processing errors downgrade to a null/absent feature" policy.
type StubParser struct{}

func (StubParser) Supports(capability Capability) bool {
	return capability&(SupportsAST|SupportsFeatures) != 0
}

func (StubParser) Parse(ctx context.Context, filePath string, content []byte) (*ParsedFile, error) {
	lang := languageFromExtension(filePath)
	kind := KindCustom
	if lang == "" {
		kind = KindUnknown
	}
	return &ParsedFile{
		FilePath: filePath,
		Language: lang,
		Kind:     kind,
		AST:      string(content),
		Features: map[string]interface{}{
			"line_count": strings.Count(string(content), "\n") + 1,
		},
	}, nil
}

func languageFromExtension(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".md":
		return "markdown"
	default:
		return ""
	}
}
