package relational

import (
	"fmt"
	"strconv"
	"strings"
)

// vectorLiteral renders a float32 embedding as the pgvector text literal
// format ("[0.1,0.2,...]"), the simplest integration path that avoids an
// extra driver-level vector codec dependency.
func vectorLiteral(v []float32) interface{} {
	if v == nil {
		return nil
	}
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ","))
}

// parseVector reverses vectorLiteral for scanned rows.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return []float32{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parsing vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
