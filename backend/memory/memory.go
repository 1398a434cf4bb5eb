// Package memory implements an in-memory backend.Backend intended for
// tests and single-process hosts rather than production durability:
// everything lives in maps guarded by one mutex, nothing survives a
// restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

const (
	orchestrationLockDuration = 2 * time.Minute
	deferredPumpInterval      = 25 * time.Millisecond
	readyQueueCapacity        = 1024
)

// orchestrationRecord is the committed-plus-in-flight state for one
// instance. history holds committed events; pending holds inbound events a
// future turn hasn't consumed yet.
type orchestrationRecord struct {
	instanceID   string
	instance     *protos.OrchestrationInstance
	parent       *backend.ParentPointer
	tags         map[string]string
	customStatus *wrapperspb.StringValue

	history []*protos.HistoryEvent
	pending []*protos.HistoryEvent

	locked        bool
	lockToken     string
	lockExpiry    time.Time
	readyEnqueued bool
}

// stateSnapshot builds a backend.RuntimeState view over the record's
// committed history, reusing RuntimeState's own Name/RuntimeStatus/
// CreatedTime/CompletedTime scanning instead of duplicating that logic here.
func (r *orchestrationRecord) stateSnapshot() *backend.RuntimeState {
	s := backend.NewRuntimeStateFromHistory(r.instance, append([]*protos.HistoryEvent(nil), r.history...))
	s.Parent = r.parent
	s.Tags = r.tags
	s.CustomStatus = r.customStatus
	return s
}

func (r *orchestrationRecord) metadata() *api.OrchestrationMetadata {
	s := r.stateSnapshot()
	name, _ := s.Name()
	created, _ := s.CreatedTime()
	updated := created
	if completedAt, ok := s.CompletedTime(); ok {
		updated = completedAt
	}
	m := &api.OrchestrationMetadata{
		InstanceID:    api.InstanceID(r.instanceID),
		Name:          name,
		RuntimeStatus: s.RuntimeStatus(),
		CreatedAt:     created,
		LastUpdatedAt: updated,
	}
	for _, e := range r.history {
		if es := e.GetExecutionStarted(); es != nil {
			m.SerializedInput = es.Input.GetValue()
		}
		if ec := e.GetExecutionCompleted(); ec != nil {
			m.SerializedOutput = ec.Result.GetValue()
			m.FailureDetails = ec.FailureDetails
		}
	}
	if r.customStatus != nil {
		m.SerializedCustomStatus = r.customStatus.GetValue()
	}
	return m
}

// activityRecord is one locked-or-lockable activity invocation.
type activityRecord struct {
	instanceID string
	taskID     int32
	event      *protos.HistoryEvent // TaskScheduled

	locked    bool
	lockToken string
}

// deferredMessage is a WorkMessage with a future ScheduledStartTime (spec
// §4.1, timer fan-out), parked until the pump promotes it.
type deferredMessage struct {
	dueAt            time.Time
	targetInstanceID string
	event            *protos.HistoryEvent
}

// Backend is the in-memory backend.Backend.
type Backend struct {
	mu         sync.Mutex
	instances  map[string]*orchestrationRecord
	activities map[string]*activityRecord
	deferred   []*deferredMessage

	readyOrch chan string
	readyAct  chan string

	logger backend.Logger

	cancelPump context.CancelFunc
	pumpDone   chan struct{}
}

var _ backend.Backend = (*Backend)(nil)

// NewBackend returns an empty, unstarted in-memory Backend.
func NewBackend(logger backend.Logger) *Backend {
	if logger == nil {
		logger = backend.DefaultLogger()
	}
	return &Backend{
		instances:  make(map[string]*orchestrationRecord),
		activities: make(map[string]*activityRecord),
		readyOrch:  make(chan string, readyQueueCapacity),
		readyAct:   make(chan string, readyQueueCapacity),
		logger:     logger,
	}
}

func (b *Backend) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancelPump = cancel
	b.pumpDone = make(chan struct{})
	go func() {
		defer close(b.pumpDone)
		b.runDeferredPump(ctx)
	}()
	return nil
}

func (b *Backend) Stop(ctx context.Context) error {
	if b.cancelPump != nil {
		b.cancelPump()
	}
	if b.pumpDone == nil {
		return nil
	}
	select {
	case <-b.pumpDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) runDeferredPump(ctx context.Context) {
	ticker := time.NewTicker(deferredPumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.promoteDueDeferred()
		}
	}
}

func (b *Backend) promoteDueDeferred() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	remaining := b.deferred[:0]
	for _, d := range b.deferred {
		if d.dueAt.After(now) {
			remaining = append(remaining, d)
			continue
		}
		rec, ok := b.instances[d.targetInstanceID]
		if ok && !rec.stateSnapshot().IsCompleted() {
			rec.pending = append(rec.pending, d.event)
			b.offerOrchestration(d.targetInstanceID)
		}
	}
	b.deferred = remaining
}

// offerOrchestration marks instanceID ready-to-run exactly once even under
// concurrent callers. This is the documented ReadyToRunQueue fix (spec
// §9c): a naive implementation offers to the queue first and marks
// "enqueued" second, leaving a window where two producers racing
// AddNewOrchestrationEvent calls both observe "not enqueued" and double-push
// the same instance, letting two turns race for the same pending events.
// Callers must hold b.mu; check-and-mark happens under that single lock so
// there is no such window here.
func (b *Backend) offerOrchestration(instanceID string) {
	rec := b.instances[instanceID]
	if rec == nil || rec.readyEnqueued {
		return
	}
	rec.readyEnqueued = true
	select {
	case b.readyOrch <- instanceID:
	default:
		go func() { b.readyOrch <- instanceID }()
	}
}

func (b *Backend) offerActivity(key string) {
	select {
	case b.readyAct <- key:
	default:
		go func() { b.readyAct <- key }()
	}
}

func (b *Backend) CreateOrchestrationInstance(ctx context.Context, e *protos.HistoryEvent, opts ...backend.OrchestrationIDReusePolicy) error {
	es := e.GetExecutionStarted()
	if es == nil {
		return fmt.Errorf("memory: CreateOrchestrationInstance requires an ExecutionStarted event")
	}
	instanceID := es.OrchestrationInstance.InstanceId
	dedupe := backend.ResolveCreateInstanceOptions(opts...)

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.instances[instanceID]; ok && statusIn(existing.stateSnapshot().RuntimeStatus(), dedupe) {
		return backend.ErrAlreadyStarted
	}

	rec := &orchestrationRecord{
		instanceID: instanceID,
		instance:   es.OrchestrationInstance,
		tags:       es.Tags,
		pending:    []*protos.HistoryEvent{e},
	}
	b.instances[instanceID] = rec
	b.offerOrchestration(instanceID)
	return nil
}

func (b *Backend) AddNewOrchestrationEvent(ctx context.Context, id api.InstanceID, e *protos.HistoryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.instances[string(id)]
	if !ok {
		return backend.ErrInstanceNotFound
	}
	if rec.stateSnapshot().IsCompleted() {
		return nil // events for a completed instance are silently dropped
	}
	var due time.Time
	if es := e.GetExecutionStarted(); es != nil && es.ScheduledStartTimestamp != nil {
		due = es.ScheduledStartTimestamp.AsTime()
	} else if tf := e.GetTimerFired(); tf != nil && tf.FireAt != nil {
		due = tf.FireAt.AsTime()
	}
	if due.After(time.Now()) {
		b.deferred = append(b.deferred, &deferredMessage{dueAt: due, targetInstanceID: string(id), event: e})
		return nil
	}
	rec.pending = append(rec.pending, e)
	b.offerOrchestration(string(id))
	return nil
}

func (b *Backend) GetOrchestrationWorkItem(ctx context.Context) (backend.WorkItem, error) {
	for {
		select {
		case instanceID := <-b.readyOrch:
			if wi, ok := b.lockOrchestration(instanceID); ok {
				return wi, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Backend) lockOrchestration(instanceID string) (*backend.OrchestrationWorkItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.instances[instanceID]
	if !ok {
		return nil, false
	}
	rec.readyEnqueued = false
	if rec.locked || len(rec.pending) == 0 {
		return nil, false
	}
	rec.locked = true
	rec.lockToken = uuid.NewString()
	rec.lockExpiry = time.Now().Add(orchestrationLockDuration)

	events := rec.pending
	rec.pending = nil

	return &backend.OrchestrationWorkItem{
		InstanceID: api.InstanceID(instanceID),
		NewEvents:  events,
		Parent:     rec.parent,
		LockedBy:   rec.lockToken,
		PopReceipt: rec.lockToken,
	}, true
}

func (b *Backend) GetOrchestrationRuntimeState(ctx context.Context, wi *backend.OrchestrationWorkItem) (*backend.RuntimeState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.instances[string(wi.InstanceID)]
	if !ok {
		return nil, backend.ErrInstanceNotFound
	}
	return rec.stateSnapshot(), nil
}

func (b *Backend) CompleteOrchestrationWorkItem(ctx context.Context, wi *backend.OrchestrationWorkItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.instances[string(wi.InstanceID)]
	if !ok {
		return backend.ErrInstanceNotFound
	}
	if rec.lockToken != wi.LockedBy {
		return fmt.Errorf("memory: completing work item for %q with a stale lock", wi.InstanceID)
	}

	committed := append([]*protos.HistoryEvent(nil), wi.State.OldEvents()...)
	committed = append(committed, wi.State.NewEvents()...)
	rec.history = committed
	rec.instance = wi.State.Instance
	rec.parent = wi.State.Parent
	rec.tags = wi.State.Tags
	rec.customStatus = wi.State.CustomStatus
	rec.locked = false
	rec.lockToken = ""

	if wi.Outbound != nil {
		for _, m := range wi.Outbound.ActivityMessages {
			b.enqueueActivityLocked(m)
		}
		for _, m := range wi.Outbound.TimerMessages {
			b.deferMessageLocked(m)
		}
		for _, m := range wi.Outbound.OrchestratorMessages {
			b.deliverOrchestratorMessageLocked(m)
		}
	}

	if !rec.stateSnapshot().IsCompleted() && len(rec.pending) > 0 {
		b.offerOrchestration(string(wi.InstanceID))
	}
	return nil
}

func (b *Backend) enqueueActivityLocked(m *backend.WorkMessage) {
	taskID := m.Message.Event.EventId
	key := activityKey(m.Message.TargetInstanceID, taskID)
	b.activities[key] = &activityRecord{
		instanceID: m.Message.TargetInstanceID,
		taskID:     taskID,
		event:      m.Message.Event,
	}
	b.offerActivity(key)
}

func (b *Backend) deferMessageLocked(m *backend.WorkMessage) {
	due := time.Now()
	if m.ScheduledStartTime != nil {
		due = *m.ScheduledStartTime
	}
	b.deferred = append(b.deferred, &deferredMessage{
		dueAt:            due,
		targetInstanceID: m.Message.TargetInstanceID,
		event:            m.Message.Event,
	})
}

// deliverOrchestratorMessageLocked routes a cross-instance message: sub-
// orchestration instantiation (auto-creating the target record, parented
// via the event's ParentInstance info), event-sent/raised delivery, and
// parent-completion notifications.
func (b *Backend) deliverOrchestratorMessageLocked(m *backend.WorkMessage) {
	target := m.Message.TargetInstanceID
	rec, ok := b.instances[target]
	if !ok {
		es := m.Message.Event.GetExecutionStarted()
		if es == nil {
			return // no such instance and this message can't create one: drop
		}
		rec = &orchestrationRecord{instanceID: target, instance: es.OrchestrationInstance, tags: es.Tags}
		if pi := es.ParentInstance; pi != nil {
			rec.parent = &backend.ParentPointer{
				Instance:    pi.OrchestrationInstance,
				Name:        pi.Name.GetValue(),
				Version:     pi.Version.GetValue(),
				ScheduledID: pi.TaskScheduledId,
			}
		}
		b.instances[target] = rec
	} else if rec.stateSnapshot().IsCompleted() {
		return
	}
	rec.pending = append(rec.pending, m.Message.Event)
	b.offerOrchestration(target)
}

func (b *Backend) AbandonOrchestrationWorkItem(ctx context.Context, wi *backend.OrchestrationWorkItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.instances[string(wi.InstanceID)]
	if !ok {
		return backend.ErrInstanceNotFound
	}
	rec.locked = false
	rec.lockToken = ""
	rec.pending = append(wi.NewEvents, rec.pending...)
	b.offerOrchestration(string(wi.InstanceID))
	return nil
}

func (b *Backend) RenewOrchestrationLock(ctx context.Context, wi *backend.OrchestrationWorkItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.instances[string(wi.InstanceID)]
	if !ok {
		return backend.ErrInstanceNotFound
	}
	if rec.lockToken != wi.LockedBy {
		return fmt.Errorf("memory: cannot renew a stale lock for %q", wi.InstanceID)
	}
	rec.lockExpiry = time.Now().Add(orchestrationLockDuration)
	return nil
}

func (b *Backend) ReleaseOrchestrationLock(ctx context.Context, wi *backend.OrchestrationWorkItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.instances[string(wi.InstanceID)]
	if !ok {
		return backend.ErrInstanceNotFound
	}
	rec.locked = false
	rec.lockToken = ""
	return nil
}

func (b *Backend) GetActivityWorkItem(ctx context.Context) (backend.WorkItem, error) {
	for {
		select {
		case key := <-b.readyAct:
			if wi, ok := b.lockActivity(key); ok {
				return wi, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Backend) lockActivity(key string) (*backend.ActivityWorkItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ar, ok := b.activities[key]
	if !ok || ar.locked {
		return nil, false
	}
	ar.locked = true
	ar.lockToken = uuid.NewString()
	return &backend.ActivityWorkItem{
		InstanceID: api.InstanceID(ar.instanceID),
		NewEvent:   ar.event,
		TaskID:     ar.taskID,
		LockedBy:   ar.lockToken,
		PopReceipt: ar.lockToken,
	}, true
}

func (b *Backend) CompleteActivityWorkItem(ctx context.Context, wi *backend.ActivityWorkItem) error {
	key := activityKey(string(wi.InstanceID), wi.TaskID)
	b.mu.Lock()
	ar, ok := b.activities[key]
	if ok {
		delete(b.activities, key)
	}
	b.mu.Unlock()
	if !ok {
		return backend.ErrNotFound
	}
	if ar.lockToken != wi.LockedBy {
		return fmt.Errorf("memory: completing activity %s with a stale lock", key)
	}
	return b.AddNewOrchestrationEvent(ctx, wi.InstanceID, wi.Result)
}

func (b *Backend) AbandonActivityWorkItem(ctx context.Context, wi *backend.ActivityWorkItem) error {
	key := activityKey(string(wi.InstanceID), wi.TaskID)
	b.mu.Lock()
	defer b.mu.Unlock()
	ar, ok := b.activities[key]
	if !ok {
		return backend.ErrNotFound
	}
	ar.locked = false
	ar.lockToken = ""
	b.offerActivity(key)
	return nil
}

func (b *Backend) GetOrchestrationMetadata(ctx context.Context, id api.InstanceID) (*api.OrchestrationMetadata, error) {
	b.mu.Lock()
	rec, ok := b.instances[string(id)]
	b.mu.Unlock()
	if !ok {
		return nil, backend.ErrInstanceNotFound
	}
	return rec.metadata(), nil
}

func (b *Backend) QueryOrchestrationStates(ctx context.Context, filter backend.InstanceQuery) (*backend.QueryResult, error) {
	b.mu.Lock()
	ids := make([]string, 0, len(b.instances))
	for id := range b.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	metas := make([]*api.OrchestrationMetadata, 0, len(ids))
	for _, id := range ids {
		metas = append(metas, b.instances[id].metadata())
	}
	b.mu.Unlock()

	filtered := metas[:0]
	for _, m := range metas {
		if matchesFilter(m, filter) {
			filtered = append(filtered, m)
		}
	}

	offset := 0
	if filter.ContinuationToken != "" {
		if n, err := strconv.Atoi(filter.ContinuationToken); err == nil {
			offset = n
		}
	}
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := len(filtered)
	var next string
	if filter.PageSize > 0 && offset+filter.PageSize < len(filtered) {
		end = offset + filter.PageSize
		next = strconv.Itoa(end)
	}
	return &backend.QueryResult{Instances: filtered[offset:end], ContinuationToken: next}, nil
}

func matchesFilter(m *api.OrchestrationMetadata, f backend.InstanceQuery) bool {
	if len(f.Statuses) > 0 && !statusIn(m.RuntimeStatus, f.Statuses) {
		return false
	}
	if f.CreatedTimeFrom != nil && m.CreatedAt.Before(*f.CreatedTimeFrom) {
		return false
	}
	if f.CreatedTimeTo != nil && m.CreatedAt.After(*f.CreatedTimeTo) {
		return false
	}
	if f.InstanceIDPrefix != "" && !strings.HasPrefix(string(m.InstanceID), f.InstanceIDPrefix) {
		return false
	}
	return true
}

func statusIn(s protos.OrchestrationStatus, set []protos.OrchestrationStatus) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

func (b *Backend) PurgeOrchestrationState(ctx context.Context, id api.InstanceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.instances[string(id)]
	if !ok {
		return backend.ErrInstanceNotFound
	}
	if !rec.stateSnapshot().IsCompleted() {
		return fmt.Errorf("%w: orchestration %q has not reached a terminal status", backend.ErrUnsupported, id)
	}
	delete(b.instances, string(id))
	for key, ar := range b.activities {
		if ar.instanceID == string(id) {
			delete(b.activities, key)
		}
	}
	return nil
}

func (b *Backend) ForceTerminateOrchestration(ctx context.Context, id api.InstanceID, reason string) error {
	e := helpers.NewExecutionTerminatedEvent(wrapperspb.String(reason))
	return b.AddNewOrchestrationEvent(ctx, id, e)
}

func activityKey(instanceID string, taskID int32) string {
	return fmt.Sprintf("%s#%d", instanceID, taskID)
}
