package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func TestClassifyNoCodeGraphIsMemory(t *testing.T) {
	assert.Equal(t, types.RouteMemory, Classify("what uses getUserById", false))
}

func TestClassifyStructuralIsCode(t *testing.T) {
	assert.Equal(t, types.RouteCode, Classify("what calls getUserById(", true))
}

func TestClassifyStructuralAndSemanticIsHybrid(t *testing.T) {
	assert.Equal(t, types.RouteHybrid, Classify("why did we decide what calls getUserById", true))
}

func TestClassifyPlainQueryIsMemory(t *testing.T) {
	assert.Equal(t, types.RouteMemory, Classify("what is the auth timeout policy", true))
}

func TestExtractIdentifiersFindsCamelCaseAndCallSyntax(t *testing.T) {
	ids := ExtractIdentifiers("does getUserById( call validateToken and also foo")
	assert.Contains(t, ids, "getUserById")
	assert.Contains(t, ids, "validateToken")
	assert.NotContains(t, ids, "foo")
}

func TestExtractIdentifiersDeduplicates(t *testing.T) {
	ids := ExtractIdentifiers("getUserById calls getUserById again")
	count := 0
	for _, id := range ids {
		if id == "getUserById" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
