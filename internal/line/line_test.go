package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine_AddGet(t *testing.T) {
	l := New(4)
	l.Add(1.5)
	l.Add(2.5)
	l.Add(3.5)

	require.Equal(t, 3, l.Size())
	for i, want := range []float64{1.5, 2.5, 3.5} {
		got, err := l.Get(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	last, err := l.Last()
	require.NoError(t, err)
	assert.Equal(t, 3.5, last)
}

func TestLine_OutOfRange(t *testing.T) {
	l := FromValues([]float64{1, 2})

	for _, idx := range []int{-1, 2, 100} {
		_, err := l.Get(idx)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", idx)
	}

	_, err := l.FromEnd(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = l.FromEnd(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = New(0).Last()
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestLine_FromEnd(t *testing.T) {
	l := FromValues([]float64{10, 20, 30, 40})

	v, err := l.FromEnd(0)
	require.NoError(t, err)
	assert.Equal(t, 40.0, v)

	v, err = l.FromEnd(3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestLine_ClearKeepsNothing(t *testing.T) {
	l := FromValues([]float64{1, 2, 3})
	l.Clear()

	assert.Equal(t, 0, l.Size())
	assert.Empty(t, l.Values())

	l.Add(9)
	v, err := l.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)
}

func TestLine_TailAndContains(t *testing.T) {
	l := FromValues([]float64{1, 2, 3, 4, 5})

	assert.Equal(t, []float64{4, 5}, l.Tail(2))
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, l.Tail(10))
	assert.Nil(t, l.Tail(0))

	assert.True(t, l.Contains(4, 2))
	assert.False(t, l.Contains(3, 2))
	assert.True(t, l.Contains(1, 99))
	assert.False(t, l.Contains(1, 0))
}

func TestLine_ValuesIsACopy(t *testing.T) {
	l := FromValues([]float64{1, 2})
	vals := l.Values()
	vals[0] = 100

	v, _ := l.Get(0)
	assert.Equal(t, 1.0, v)

	clone := l.Clone()
	clone.Add(3)
	assert.Equal(t, 2, l.Size())
	assert.Equal(t, 3, clone.Size())
}
