package txcoord

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialCommit_ErrorIncludesBothFailures(t *testing.T) {
	err := &PartialCommit{
		RelationalCommitted: true,
		GraphErr:            errors.New("neo4j unavailable"),
		CompensationErr:     errors.New("tx already closed"),
	}
	msg := err.Error()
	assert.Contains(t, msg, "neo4j unavailable")
	assert.Contains(t, msg, "tx already closed")
}

func TestPartialCommit_UnwrapReturnsGraphErr(t *testing.T) {
	graphErr := errors.New("graph failure")
	err := &PartialCommit{GraphErr: graphErr}
	assert.ErrorIs(t, err, graphErr)
}
