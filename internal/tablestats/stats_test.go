package tablestats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsPerTable(t *testing.T) {
	tr := NewTracker()

	tr.RecordHandComplete("t1")
	tr.RecordHandComplete("t1")
	tr.RecordTimeout("t1")
	tr.RecordHandComplete("t2")

	s1 := tr.Snapshot("t1")
	assert.Equal(t, 2, s1.HandsCompleted)
	assert.Equal(t, 1, s1.Timeouts)

	s2 := tr.Snapshot("t2")
	assert.Equal(t, 1, s2.HandsCompleted)
	assert.Equal(t, 0, s2.Timeouts)

	assert.Len(t, tr.All(), 2)
}

func TestTrackerUnknownTableIsZeroValue(t *testing.T) {
	tr := NewTracker()
	s := tr.Snapshot("missing")
	assert.Equal(t, 0, s.HandsCompleted)
}

func TestTrackerRemove(t *testing.T) {
	tr := NewTracker()
	tr.RecordHandComplete("t1")
	tr.Remove("t1")
	assert.Len(t, tr.All(), 0)
}
