//go:build unit

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestColorFormatter verifies leaf values pass through the color stage as a
// Continue transformation and containers are skipped.
func TestColorFormatter(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.SetFinalize(false, nil)
	m.Register(NewColorFormatter(DefaultColorScheme()))

	// Styling depends on the terminal profile, so assert on content rather
	// than exact escape sequences.
	assert.Contains(t, m.Format(nil, 5), "5")
	assert.Contains(t, m.Format(nil, "hi"), "hi")
	assert.Contains(t, m.Format(nil, nil), "nil")
	assert.Contains(t, m.Format(nil, true), "true")

	// Containers fall through to default rendering.
	assert.Contains(t, m.Format(nil, []int{1, 2}), "[")
}
