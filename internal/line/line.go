// Package line provides Line, the append-only numeric series every strategy
// builds from candles and exposes for charting and crossing checks.
package line

import (
	"github.com/pkg/errors"
)

// ErrIndexOutOfRange is returned when a read goes beyond the computed points.
var ErrIndexOutOfRange = errors.New("line index out of range")

// Line is an ordered, index-addressable, append-only sequence of points.
// Indices are contiguous from 0 and chronological. Points are never mutated;
// Clear is the only way to drop them.
type Line struct {
	points []float64
}

// New creates an empty line with room for capacity points.
func New(capacity int) *Line {
	if capacity < 0 {
		capacity = 0
	}
	return &Line{points: make([]float64, 0, capacity)}
}

// Add appends a point.
func (l *Line) Add(point float64) {
	l.points = append(l.points, point)
}

// Get returns the point at index.
func (l *Line) Get(index int) (float64, error) {
	if index < 0 || index >= len(l.points) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "get %d of %d", index, len(l.points))
	}
	return l.points[index], nil
}

// FromEnd returns the point k bars before the newest one (k=0 is the newest).
func (l *Line) FromEnd(k int) (float64, error) {
	if k < 0 || k >= len(l.points) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "lookback %d of %d", k, len(l.points))
	}
	return l.points[len(l.points)-1-k], nil
}

// Last returns the newest point.
func (l *Line) Last() (float64, error) {
	if len(l.points) == 0 {
		return 0, errors.Wrap(ErrIndexOutOfRange, "last of empty line")
	}
	return l.points[len(l.points)-1], nil
}

// Size returns the number of points.
func (l *Line) Size() int { return len(l.points) }

// Clear drops every point, keeping the backing storage for the next rebuild.
func (l *Line) Clear() { l.points = l.points[:0] }

// Values returns a copy of all points.
func (l *Line) Values() []float64 {
	out := make([]float64, len(l.points))
	copy(out, l.points)
	return out
}

// Tail returns a copy of the trailing n points (fewer if the line is shorter).
func (l *Line) Tail(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n > len(l.points) {
		n = len(l.points)
	}
	out := make([]float64, n)
	copy(out, l.points[len(l.points)-n:])
	return out
}

// Contains reports whether value equals one of the trailing n points.
// Used for duplicate suppression of crossing points.
func (l *Line) Contains(value float64, n int) bool {
	if n > len(l.points) {
		n = len(l.points)
	}
	for i := len(l.points) - n; i < len(l.points); i++ {
		if l.points[i] == value {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the line.
func (l *Line) Clone() *Line {
	return &Line{points: l.Values()}
}

// FromValues builds a line holding a copy of values.
func FromValues(values []float64) *Line {
	l := New(len(values))
	l.points = append(l.points, values...)
	return l
}
