package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestScheduler_FiresWhenDue(t *testing.T) {
	s := New(t0)
	fired := 0
	task := s.After(700*time.Millisecond, func() { fired++ })

	assert.Equal(t, 0, s.Advance(t0.Add(699*time.Millisecond)))
	assert.Equal(t, 0, fired)
	assert.False(t, task.Done())

	assert.Equal(t, 1, s.Advance(t0.Add(700*time.Millisecond)))
	assert.Equal(t, 1, fired)
	assert.True(t, task.Done())

	// Never fires twice
	s.Advance(t0.Add(2 * time.Second))
	assert.Equal(t, 1, fired)
}

func TestScheduler_CancelIsNoOp(t *testing.T) {
	s := New(t0)
	fired := false
	task := s.After(100*time.Millisecond, func() { fired = true })
	task.Cancel()

	assert.Equal(t, 0, s.Advance(t0.Add(time.Second)))
	assert.False(t, fired)
	assert.True(t, task.Done())
	assert.Equal(t, 0, s.Pending())

	// Cancelling twice or cancelling nil must not panic
	task.Cancel()
	var nilTask *Task
	nilTask.Cancel()
	assert.True(t, nilTask.Done())
}

func TestScheduler_OrderAndChaining(t *testing.T) {
	s := New(t0)
	var order []string

	s.After(200*time.Millisecond, func() { order = append(order, "b") })
	s.After(100*time.Millisecond, func() {
		order = append(order, "a")
		s.After(50*time.Millisecond, func() { order = append(order, "a2") })
	})
	s.After(200*time.Millisecond, func() { order = append(order, "c") })

	ran := s.Advance(t0.Add(time.Second))
	require.Equal(t, 4, ran)
	assert.Equal(t, []string{"a", "a2", "b", "c"}, order)
}

func TestScheduler_CancelAll(t *testing.T) {
	s := New(t0)
	a := s.After(time.Millisecond, func() { t.Fatal("should not fire") })
	b := s.After(time.Second, func() { t.Fatal("should not fire") })
	assert.Equal(t, 2, s.Pending())

	s.CancelAll()
	assert.Equal(t, 0, s.Pending())
	assert.True(t, a.Done())
	assert.True(t, b.Done())
	assert.Equal(t, 0, s.Advance(t0.Add(time.Minute)))
}

func TestScheduler_ClockNeverMovesBackwards(t *testing.T) {
	s := New(t0)
	s.Advance(t0.Add(time.Second))
	s.Advance(t0)
	assert.Equal(t, t0.Add(time.Second), s.Now())

	task := s.After(-time.Second, func() {})
	assert.Equal(t, s.Now(), task.Due())
	assert.NotEqual(t, task.ID().String(), "")
}
