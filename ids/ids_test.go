package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_ReturnsValidUUID(t *testing.T) {
	id := New()
	assert.True(t, Valid(id))
}

func TestNewScoped_PrefixedAndValid(t *testing.T) {
	id := NewScoped("pat")
	assert.True(t, strings.HasPrefix(id, "pat_"))
	assert.True(t, Valid(id))
}

func TestValid_RejectsGarbage(t *testing.T) {
	assert.False(t, Valid("not-a-uuid"))
	assert.False(t, Valid("pat_not-a-uuid"))
	assert.False(t, Valid(""))
}

func TestValid_AcceptsUnderscoreInPrefixOnly(t *testing.T) {
	id := NewScoped("doc_ref")
	assert.True(t, Valid(id))
}
