package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderSequential(t *testing.T) {
	r := NewReader([]byte("ab\nc"))

	c, ok := r.Read()
	require.True(t, ok)
	assert.Equal(t, byte('a'), c)
	assert.Equal(t, 1, r.Line())
	assert.Equal(t, 1, r.Column())

	c, _ = r.Read()
	assert.Equal(t, byte('b'), c)
	assert.Equal(t, 2, r.Column())

	c, _ = r.Read() // the newline belongs to line 1
	assert.Equal(t, byte('\n'), c)
	assert.Equal(t, 1, r.Line())

	c, _ = r.Read()
	assert.Equal(t, byte('c'), c)
	assert.Equal(t, 2, r.Line())
	assert.Equal(t, 1, r.Column())

	_, ok = r.Read()
	assert.False(t, ok)
	assert.Equal(t, 2, r.Line())
}

func TestReaderRewind(t *testing.T) {
	r := NewReader([]byte("xyz"))

	r.Read()
	r.Read()
	r.Rewind()

	c, ok := r.Read()
	require.True(t, ok)
	assert.Equal(t, byte('y'), c)

	r.Rewind()
	r.Rewind()
	r.Rewind() // at the start, extra rewinds are no-ops

	c, _ = r.Read()
	assert.Equal(t, byte('x'), c)
}

func TestReaderEmpty(t *testing.T) {
	r := NewReader(nil)

	_, ok := r.Read()
	assert.False(t, ok)
	assert.Equal(t, 1, r.Line())
	assert.Equal(t, 0, r.Column())
}
