package mergeguard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mergeguard/mergeguard"
)

func TestDependencyGraph_Walks(t *testing.T) {
	t.Parallel()

	// handlers -> service -> models, plus an unrelated file.
	g := mergeguard.NewDependencyGraph()
	g.AddEdge("api/handlers.py", "users/service.py")
	g.AddEdge("users/service.py", "users/models.py")
	g.AddEdge("docs/render.py", "docs/theme.py")

	dependents := g.Dependents("users/models.py", 3)
	assert.Contains(t, dependents, "users/service.py")
	assert.Contains(t, dependents, "api/handlers.py")
	assert.NotContains(t, dependents, "docs/render.py")

	dependencies := g.Dependencies("api/handlers.py", 3)
	assert.Contains(t, dependencies, "users/service.py")
	assert.Contains(t, dependencies, "users/models.py")
	assert.NotContains(t, dependencies, "docs/theme.py")

	// Depth caps the traversal one hop at a time.
	assert.NotContains(t, g.Dependencies("api/handlers.py", 1), "users/models.py")
	assert.Contains(t, g.Dependencies("api/handlers.py", 1), "users/service.py")

	// Self-edges are ignored and the start never reports itself.
	g.AddEdge("a.py", "a.py")
	assert.Empty(t, g.Dependents("a.py", 3))
}
