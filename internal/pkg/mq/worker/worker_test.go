package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcker struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *fakeAcker) Ack(uint64, bool) error { a.acked++; return nil }
func (a *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}
func (a *fakeAcker) Reject(uint64, bool) error { return nil }

type fakeReconciler struct {
	mu     sync.Mutex
	ids    []uint64
	sweeps int
	err    error
}

func (r *fakeReconciler) Reconcile(_ context.Context, fileID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, fileID)
	return r.err
}

func (r *fakeReconciler) Sweep(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps++
	return 0, nil
}

func (r *fakeReconciler) sweepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweeps
}

func delivery(t *testing.T, acker *fakeAcker, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: body}
}

func TestReconcileWorker_Handle(t *testing.T) {
	body, err := json.Marshal(models.ReconcileTask{FileID: 17})
	require.NoError(t, err)

	t.Run("AcksOnSuccess", func(t *testing.T) {
		rec := &fakeReconciler{}
		acker := &fakeAcker{}
		NewReconcileWorker(rec).Handle(delivery(t, acker, body))
		assert.Equal(t, []uint64{17}, rec.ids)
		assert.Equal(t, 1, acker.acked)
		assert.Zero(t, acker.nacked)
	})

	t.Run("DropsMalformedMessage", func(t *testing.T) {
		rec := &fakeReconciler{}
		acker := &fakeAcker{}
		NewReconcileWorker(rec).Handle(delivery(t, acker, []byte("{")))
		assert.Empty(t, rec.ids)
		assert.Equal(t, 1, acker.nacked)
		assert.False(t, acker.requeue)
	})

	t.Run("FailureIsNotRequeued", func(t *testing.T) {
		rec := &fakeReconciler{err: errors.New("storage down")}
		acker := &fakeAcker{}
		NewReconcileWorker(rec).Handle(delivery(t, acker, body))
		assert.Equal(t, 1, acker.nacked)
		assert.False(t, acker.requeue)
		assert.Zero(t, acker.acked)
	})
}

type recordingPublisher struct {
	queue string
	body  []byte
	err   error
}

func (p *recordingPublisher) Publish(queue string, body []byte) error {
	p.queue, p.body = queue, body
	return p.err
}

func TestReconcilePublisher(t *testing.T) {
	pub := &recordingPublisher{}
	require.NoError(t, NewReconcilePublisher(pub).ScheduleReconcile(context.Background(), 5))
	assert.Equal(t, ReconcileDelayQueueName, pub.queue)

	var task models.ReconcileTask
	require.NoError(t, json.Unmarshal(pub.body, &task))
	assert.Equal(t, uint64(5), task.FileID)

	pub.err = errors.New("channel closed")
	assert.Error(t, NewReconcilePublisher(pub).ScheduleReconcile(context.Background(), 6))
}

func TestSweeper_RunsUntilCancelled(t *testing.T) {
	rec := &fakeReconciler{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(rec, 5*time.Millisecond).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rec.sweepCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type fakeSyncer struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (s *fakeSyncer) Reindex(context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	return 0, 0, s.err
}

func (s *fakeSyncer) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func TestIndexSync(t *testing.T) {
	t.Run("OnceWhenIntervalIsZero", func(t *testing.T) {
		syncer := &fakeSyncer{err: errors.New("cluster red")}
		NewIndexSync(syncer, 0).Run(context.Background())
		assert.Equal(t, 1, syncer.runCount())
	})

	t.Run("RepeatsUntilCancelled", func(t *testing.T) {
		syncer := &fakeSyncer{}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			NewIndexSync(syncer, 5*time.Millisecond).Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return syncer.runCount() >= 3 }, time.Second, 5*time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("index sync did not stop")
		}
	})
}
