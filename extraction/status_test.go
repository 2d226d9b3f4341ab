package extraction

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_ZeroValue(t *testing.T) {
	var s Status

	assert.Equal(t, "", s.LatestMessage())
	assert.Empty(t, s.History())
	assert.False(t, s.CancellationRequested())

	s.Report("first")
	assert.Equal(t, "first", s.LatestMessage())
}

func TestStatus_Report(t *testing.T) {
	s := NewStatus()

	s.Report("one")
	s.Report("two")

	assert.Equal(t, []string{"one", "two"}, s.History())
	assert.Equal(t, "two", s.LatestMessage())
}

func TestStatus_HistoryIsSnapshot(t *testing.T) {
	s := NewStatus()
	s.Report("one")

	snapshot := s.History()
	snapshot[0] = "changed"
	s.Report("two")

	assert.Equal(t, []string{"one", "two"}, s.History())
}

func TestStatus_ConcurrentReports(t *testing.T) {
	s := NewStatus()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Report(fmt.Sprintf("message %d", i))
			_ = s.LatestMessage()
		}(i)
	}
	wg.Wait()

	history := s.History()
	assert.Len(t, history, 100, "no report may be lost")
	for i := 0; i < 100; i++ {
		assert.Contains(t, history, fmt.Sprintf("message %d", i))
	}
	assert.Contains(t, history, s.LatestMessage())
}

func TestStatus_Cancellation(t *testing.T) {
	s := NewStatus()

	s.RequestCancellation()
	assert.True(t, s.CancellationRequested())

	s.Report("something")
	s.Reset()

	assert.False(t, s.CancellationRequested())
	assert.Empty(t, s.History())
	assert.Equal(t, "", s.LatestMessage())
}
