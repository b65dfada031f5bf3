package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/mhsanaei/3x-accounts/database"
	"github.com/mhsanaei/3x-accounts/database/model"
	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/util/common"
	"github.com/mhsanaei/3x-accounts/util/metrics"
)

type EventKind string

const (
	EventUserCreated    EventKind = "user.created"
	EventUserActivation EventKind = "user.activation"
	EventUserPolicy     EventKind = "user.policy"
	EventPolicyQuota    EventKind = "policy.quota"
)

// SyncEvent announces a committed local change that the proxy backend must learn about.
// Events carry ids only; handlers reload current state from storage.
type SyncEvent struct {
	ID        uuid.UUID
	Kind      EventKind
	UserId    int
	PolicyId  int
	CreatedAt time.Time
}

// EventPublisher accepts sync events after the corresponding change was persisted.
type EventPublisher interface {
	Publish(ctx context.Context, kind EventKind, id int) error
}

// SyncQueue delivers sync events to a fixed pool of workers. Publishing never performs
// network I/O; it blocks only while the buffer is full.
type SyncQueue struct {
	sync    *SyncService
	workers int
	metrics *metrics.Metrics

	events chan SyncEvent
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// closed before Stop takes mu, so publishers blocked on a full buffer give up
	stopping chan struct{}
	stopOnce sync.Once

	started atomic.Bool
	pending atomic.Int64
	handled atomic.Int64
	failed  atomic.Int64
}

func NewSyncQueue(syncService *SyncService, size, workers int, m *metrics.Metrics) *SyncQueue {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &SyncQueue{
		sync:    syncService,
		workers: workers,
		metrics: m,
		events:  make(chan SyncEvent, size),

		stopping: make(chan struct{}),
	}
}

// Start launches the workers. ctx bounds the remote calls made by handlers; cancelling
// it does not stop the workers, Stop does.
func (q *SyncQueue) Start(ctx context.Context) {
	if !q.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

// Stop refuses new events, waits for queued events to be handled and for the workers
// to exit.
func (q *SyncQueue) Stop() {
	q.stopOnce.Do(func() { close(q.stopping) })

	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Publish enqueues an event. For user events id is the user id, for policy events the
// policy id.
func (q *SyncQueue) Publish(ctx context.Context, kind EventKind, id int) error {
	event := SyncEvent{ID: uuid.New(), Kind: kind, CreatedAt: time.Now()}
	if kind == EventPolicyQuota {
		event.PolicyId = id
	} else {
		event.UserId = id
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	q.metrics.SetQueueDepth(int(q.pending.Inc()))
	select {
	case q.events <- event:
		logger.Debugf("sync event %s queued: %s %d", event.ID, kind, id)
		return nil
	case <-ctx.Done():
		q.metrics.SetQueueDepth(int(q.pending.Dec()))
		return ctx.Err()
	case <-q.stopping:
		q.metrics.SetQueueDepth(int(q.pending.Dec()))
		return ErrQueueClosed
	}
}

// Stats returns the number of handled and failed events.
func (q *SyncQueue) Stats() (handled, failed int64) {
	return q.handled.Load(), q.failed.Load()
}

func (q *SyncQueue) work(ctx context.Context) {
	defer q.wg.Done()
	for event := range q.events {
		q.metrics.SetQueueDepth(int(q.pending.Dec()))
		err := q.dispatch(ctx, event)
		q.handled.Inc()
		if err != nil {
			q.failed.Inc()
			logger.Warningf("sync event %s (%s) failed: %v", event.ID, event.Kind, err)
		}
		q.metrics.ObserveEvent(string(event.Kind), err)
	}
}

func (q *SyncQueue) dispatch(ctx context.Context, event SyncEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = common.NewErrorf("handler panic: %v", p)
		}
	}()

	switch event.Kind {
	case EventPolicyQuota:
		return q.handlePolicyQuota(ctx, event.PolicyId)
	case EventUserCreated, EventUserActivation, EventUserPolicy:
		user, err := loadUser(ctx, event.UserId)
		if err != nil {
			return err
		}
		switch event.Kind {
		case EventUserCreated:
			err = q.sync.OnUserCreatedWithAccountName(ctx, user)
		case EventUserActivation:
			err = q.sync.OnUserActivationChanged(ctx, user)
		default:
			err = q.sync.SyncUser(ctx, user)
		}
		if errors.Is(err, ErrNotProvisioned) {
			return nil
		}
		return err
	}
	return common.NewErrorf("unknown sync event kind %q", event.Kind)
}

func (q *SyncQueue) handlePolicyQuota(ctx context.Context, policyId int) error {
	db := database.GetDB().WithContext(ctx)

	policy := &model.TrafficPolicy{}
	if err := db.First(policy, policyId).Error; err != nil {
		if database.IsNotFound(err) {
			return nil
		}
		return err
	}

	var users []*model.User
	if err := db.Where("traffic_policy_id = ?", policyId).Order("id").Find(&users).Error; err != nil {
		return err
	}

	result := q.sync.OnPolicyQuotaChanged(ctx, policy, users)
	logger.Infof("policy %d quota %s: %s", policy.Id, common.FormatTraffic(policy.Quota), result.Summary("synced"))
	return result.Err()
}

func loadUser(ctx context.Context, id int) (*model.User, error) {
	user := &model.User{}
	err := database.GetDB().WithContext(ctx).Preload("TrafficPolicy").First(user, id).Error
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	return user, err
}
