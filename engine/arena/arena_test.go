package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slot struct {
	value int
}

func TestPoolAllocatesInCreationOrder(t *testing.T) {
	p := NewPool[slot]("test", 4)

	var got []Handle
	for i := 0; i < 4; i++ {
		h, s, err := p.Alloc()
		require.NoError(t, err)
		require.NotNil(t, s)
		s.value = i * 10
		got = append(got, h)
	}

	assert.Equal(t, []Handle{0, 1, 2, 3}, got)
	assert.Equal(t, 4, p.Len())
	for i, h := range got {
		assert.True(t, h.Valid())
		assert.Equal(t, i*10, p.Get(h).value)
	}
}

func TestPoolExhaustionLeavesCountUnchanged(t *testing.T) {
	p := NewPool[slot]("test", 2)
	_, _, err := p.Alloc()
	require.NoError(t, err)
	_, _, err = p.Alloc()
	require.NoError(t, err)

	h, s, err := p.Alloc()
	assert.Equal(t, InvalidHandle, h)
	assert.False(t, h.Valid())
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrAllocationExhausted))
	assert.Equal(t, 2, p.Len())
}

func TestPoolGetOutOfRangePanics(t *testing.T) {
	p := NewPool[slot]("test", 2)
	_, _, err := p.Alloc()
	require.NoError(t, err)

	require.PanicsWithError(t, "contract violation: test handle #1 out of range [0,1)", func() {
		p.Get(1)
	})
	require.Panics(t, func() { p.Get(InvalidHandle) })
}

func TestPoolClearResetsEverything(t *testing.T) {
	p := NewPool[slot]("test", 2)
	_, s, _ := p.Alloc()
	s.value = 7
	p.Clear()

	assert.Equal(t, 0, p.Len())
	h, s, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, Handle(0), h)
	assert.Equal(t, 0, s.value)
}

func TestHandleString(t *testing.T) {
	assert.Equal(t, "none", InvalidHandle.String())
	assert.Equal(t, "#3", Handle(3).String())
}
