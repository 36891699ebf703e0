package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("  hello\n\tworld  "))
	assert.Equal(t, "", Normalize("   \n\t "))
	assert.Equal(t, "a b c", Normalize("a  b   c"))
}

func TestIsIndexable(t *testing.T) {
	assert.True(t, IsIndexable("a sentence long enough to index"))
	assert.False(t, IsIndexable("        42        "))
	assert.False(t, IsIndexable("p. 7"))
	assert.False(t, IsIndexable(""))
	// Exactly at the threshold after normalization.
	assert.True(t, IsIndexable("ab cd ef g\n"))
}
