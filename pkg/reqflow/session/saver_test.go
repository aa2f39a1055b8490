package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSave struct {
	nodeID string
	x, y   float64
}

type saveRecorder struct {
	mu    sync.Mutex
	saves []recordedSave
}

func (r *saveRecorder) persist(nodeID string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, recordedSave{nodeID, x, y})
}

func (r *saveRecorder) snapshot() []recordedSave {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedSave, len(r.saves))
	copy(out, r.saves)
	return out
}

func TestPositionSaver_RescheduleKeepsLatestCoordinates(t *testing.T) {
	rec := &saveRecorder{}
	saver := newPositionSaver(time.Hour, rec.persist)

	saver.schedule("n1", 1, 1)
	saver.schedule("n1", 2, 2)
	saver.schedule("n1", 3, 3)
	saver.flush("n1")

	saves := rec.snapshot()
	require.Len(t, saves, 1)
	assert.Equal(t, recordedSave{"n1", 3, 3}, saves[0])
}

func TestPositionSaver_FlushWithoutPendingIsNoop(t *testing.T) {
	rec := &saveRecorder{}
	saver := newPositionSaver(time.Hour, rec.persist)

	saver.flush("n1")
	assert.Empty(t, rec.snapshot())
}

func TestPositionSaver_FlushClearsPending(t *testing.T) {
	rec := &saveRecorder{}
	saver := newPositionSaver(time.Hour, rec.persist)

	saver.schedule("n1", 1, 1)
	saver.flush("n1")
	saver.flush("n1")
	assert.Len(t, rec.snapshot(), 1)
}

func TestPositionSaver_FlushAllCoversEveryNode(t *testing.T) {
	rec := &saveRecorder{}
	saver := newPositionSaver(time.Hour, rec.persist)

	saver.schedule("n1", 1, 1)
	saver.schedule("n2", 2, 2)
	saver.flushAll()

	saves := rec.snapshot()
	assert.Len(t, saves, 2)
}

func TestPositionSaver_TimerFiresAfterQuietPeriod(t *testing.T) {
	rec := &saveRecorder{}
	saver := newPositionSaver(10*time.Millisecond, rec.persist)

	saver.schedule("n1", 5, 6)
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 2*time.Second, 2*time.Millisecond)
	assert.Equal(t, recordedSave{"n1", 5, 6}, rec.snapshot()[0])
}
