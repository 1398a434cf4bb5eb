package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shubham1172/durabletask-go/internal/protos"
)

// lockRenewalMargin is the fixed period at which the hub renews a claimed
// orchestration lock (see startLockRenewal).
const lockRenewalMargin = time.Minute

// hubQueueCapacity bounds how many dequeued-but-not-yet-claimed work items
// the hub holds at once.
const hubQueueCapacity = 100

// FastPathRouter is an optional same-process delivery hint a HubDispatcher
// can be given so an outbound cross-instance message (a sub-orchestration
// create, a sent event, a parent completion) reaches an already-locked
// sibling instance's in-flight turn without waiting on a Backend round
// trip. router.MessageRouter implements this; it is expressed as a narrow
// interface here, rather than importing the router package directly, since
// router already depends on backend for WorkMessage and a direct import
// back would cycle.
type FastPathRouter interface {
	Deliver(instanceID string, msg *WorkMessage) bool
}

// HubDispatcher is the gRPC-facing half of the worker dispatch path: it
// pulls locked work items out of the Backend's queues and hands them to
// whichever remote worker is attached to workItemStream, then correlates
// that worker's completeActivityTask/completeOrchestratorTask calls back to
// the locked item so the Backend can be told the outcome.
//
// The producer loops are gated on workersConnected so an idle hub with no
// attached workers doesn't spin polling an empty Backend.
type HubDispatcher struct {
	be     Backend
	logger Logger
	router FastPathRouter

	workersConnected *AsyncLatch

	mu                   sync.Mutex
	connectedWorkers     int
	activeOrchestrations map[string]*OrchestrationWorkItem
	activeActivities     map[string]*ActivityWorkItem
	disposed             bool

	workItems chan WorkItem

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHubDispatcher builds a HubDispatcher over be. It is not started until
// Start is called.
func NewHubDispatcher(be Backend, logger Logger) *HubDispatcher {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &HubDispatcher{
		be:                   be,
		logger:               logger,
		workersConnected:     NewAsyncLatch(),
		activeOrchestrations: make(map[string]*OrchestrationWorkItem),
		activeActivities:     make(map[string]*ActivityWorkItem),
		workItems:            make(chan WorkItem, hubQueueCapacity),
	}
}

// Start launches the producer loops that keep workItems filled from the
// Backend's ready queues.
func (h *HubDispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.wg.Add(2)
	go h.produce(ctx, h.be.GetOrchestrationWorkItem)
	go h.produce(ctx, h.be.GetActivityWorkItem)
	return nil
}

// Stop halts the producer loops, then abandons every claim the hub still
// holds: a worker mid-turn when the hub shuts down has no way to finish it,
// so its instances and activities are released back to the Backend's ready
// queue immediately rather than left to wait out their store-side lock
// expiry. Stop is idempotent — calling it again after it has already
// disposed of every claim is a no-op.
func (h *HubDispatcher) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}
	done := make(chan struct{})
	go func() { h.wg.Wait(); close(done) }()
	var stopErr error
	select {
	case <-done:
	case <-ctx.Done():
		stopErr = ctx.Err()
	}
	h.disposeClaims(ctx)
	return stopErr
}

// disposeClaims abandons every still-outstanding orchestration and activity
// claim and clears the tracking maps. Safe to call more than once.
func (h *HubDispatcher) disposeClaims(ctx context.Context) {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	h.disposed = true
	orchestrations := h.activeOrchestrations
	activities := h.activeActivities
	h.activeOrchestrations = make(map[string]*OrchestrationWorkItem)
	h.activeActivities = make(map[string]*ActivityWorkItem)
	h.mu.Unlock()

	for instanceID, wi := range orchestrations {
		if err := h.be.AbandonOrchestrationWorkItem(ctx, wi); err != nil {
			h.logger.Warnf("hub: failed to abandon orchestration %q on shutdown: %v", instanceID, err)
		}
	}
	for key, wi := range activities {
		if err := h.be.AbandonActivityWorkItem(ctx, wi); err != nil {
			h.logger.Warnf("hub: failed to abandon activity %q on shutdown: %v", key, err)
		}
	}
}

// SetFastPathRouter attaches an optional FastPathRouter the hub will notify
// of outbound cross-instance messages as a best-effort delivery hint. Safe
// to call before or after Start.
func (h *HubDispatcher) SetFastPathRouter(r FastPathRouter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.router = r
}

// WorkerConnected/WorkerDisconnected ref-count the set of attached
// workItemStream clients; the producer loops only dequeue while the count
// is above zero.
func (h *HubDispatcher) WorkerConnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connectedWorkers++
	h.workersConnected.Set()
}

func (h *HubDispatcher) WorkerDisconnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connectedWorkers--
	if h.connectedWorkers <= 0 {
		h.connectedWorkers = 0
		h.workersConnected.Reset()
	}
}

func (h *HubDispatcher) produce(ctx context.Context, fetch func(context.Context) (WorkItem, error)) {
	defer h.wg.Done()
	for {
		if err := h.workersConnected.WaitAsync(ctx); err != nil {
			return
		}
		wi, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Warnf("hub: failed to dequeue work item: %v", err)
			continue
		}
		select {
		case h.workItems <- wi:
		case <-ctx.Done():
			return
		}
	}
}

// NextWorkItem blocks until a work item is available to hand to a connected
// worker over workItemStream, registering it for later completion/abandon
// correlation.
func (h *HubDispatcher) NextWorkItem(ctx context.Context) (WorkItem, error) {
	select {
	case wi := <-h.workItems:
		h.trackClaim(wi)
		h.startLockRenewal(wi)
		return wi, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HubDispatcher) trackClaim(wi WorkItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch w := wi.(type) {
	case *OrchestrationWorkItem:
		h.activeOrchestrations[string(w.InstanceID)] = w
	case *ActivityWorkItem:
		h.activeActivities[activityDispatchKey(string(w.InstanceID), w.TaskID)] = w
	}
}

// startLockRenewal keeps a claimed orchestration lock alive past its
// original expiry for as long as the hub still considers the item
// outstanding, renewing it every lockRenewalMargin. The lock's actual expiry
// is not consulted, so renewal keeps the lock alive only when the Backend's
// lock duration is longer than lockRenewalMargin.
func (h *HubDispatcher) startLockRenewal(wi WorkItem) {
	owi, ok := wi.(*OrchestrationWorkItem)
	if !ok {
		return
	}
	go func() {
		ticker := time.NewTicker(lockRenewalMargin)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.Lock()
			_, stillClaimed := h.activeOrchestrations[string(owi.InstanceID)]
			h.mu.Unlock()
			if !stillClaimed {
				return
			}
			if err := h.be.RenewOrchestrationLock(context.Background(), owi); err != nil {
				h.logger.Warnf("hub: failed to renew lock for %v: %v", owi.InstanceID, err)
				return
			}
		}
	}()
}

// CompleteOrchestratorTask correlates a worker's OrchestratorResponse back
// to its locked OrchestrationWorkItem, applies the actions, and tells the
// Backend to commit. A continue-as-new turn is still committed through
// CompleteOrchestrationWorkItem: ApplyActions has already replaced
// wi.State's execution in place, so the commit persists the fresh
// execution's seed events rather than a terminal status.
func (h *HubDispatcher) CompleteOrchestratorTask(ctx context.Context, resp *protos.OrchestratorResponse) error {
	h.mu.Lock()
	wi, ok := h.activeOrchestrations[resp.InstanceId]
	if ok {
		delete(h.activeOrchestrations, resp.InstanceId)
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no locked orchestration for instance %q", ErrNotFound, resp.InstanceId)
	}

	outbound, continuedAsNew, err := wi.State.ApplyActions(resp.Actions, resp.CustomStatus)
	if err != nil {
		// The instance's lock must be released on any application failure, or
		// it can never be dispatched again.
		if abandonErr := h.be.AbandonOrchestrationWorkItem(ctx, wi); abandonErr != nil {
			h.logger.Errorf("hub: failed to abandon %q after a failed action application: %v", resp.InstanceId, abandonErr)
		}
		return fmt.Errorf("hub: failed to apply orchestrator actions: %w", err)
	}
	wi.Outbound = outbound
	wi.ContinuedAsNew = continuedAsNew
	h.deliverFastPath(outbound)

	return h.be.CompleteOrchestrationWorkItem(ctx, wi)
}

// deliverFastPath hands each outbound cross-instance message to the
// attached FastPathRouter, if any, as a best-effort latency hint. The
// Backend commit below remains the durable source of truth regardless of
// whether a sibling instance is even locked in this process to receive it.
func (h *HubDispatcher) deliverFastPath(outbound *OutboundMessages) {
	h.mu.Lock()
	r := h.router
	h.mu.Unlock()
	if r == nil || outbound == nil {
		return
	}
	for _, msg := range outbound.OrchestratorMessages {
		if msg.Message == nil {
			continue
		}
		r.Deliver(msg.Message.TargetInstanceID, msg)
	}
}

// CompleteActivityTask correlates a worker's ActivityResponse back to its
// locked ActivityWorkItem and commits the result.
func (h *HubDispatcher) CompleteActivityTask(ctx context.Context, resp *protos.ActivityResponse) error {
	key := activityDispatchKey(resp.InstanceId, resp.TaskId)
	h.mu.Lock()
	wi, ok := h.activeActivities[key]
	if ok {
		delete(h.activeActivities, key)
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no locked activity for %s#%d", ErrNotFound, resp.InstanceId, resp.TaskId)
	}

	if resp.FailureDetails != nil {
		wi.Result = &protos.HistoryEvent{
			EventId: -1,
			TaskFailed: &protos.TaskFailedEvent{
				TaskScheduledId: wi.TaskID,
				FailureDetails:  resp.FailureDetails,
			},
		}
	} else {
		wi.Result = &protos.HistoryEvent{
			EventId: -1,
			TaskCompleted: &protos.TaskCompletedEvent{
				TaskScheduledId: wi.TaskID,
				Result:          resp.Result,
			},
		}
	}
	return h.be.CompleteActivityWorkItem(ctx, wi)
}

// AbandonWorkItem releases a claimed item back to the Backend's ready queue
// without applying any result, used when a worker disconnects mid-turn.
// Pass a non-nil taskID to abandon an activity claim, or nil to abandon an
// orchestration claim.
func (h *HubDispatcher) AbandonWorkItem(ctx context.Context, instanceID string, taskID *int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if taskID != nil {
		key := activityDispatchKey(instanceID, *taskID)
		if wi, ok := h.activeActivities[key]; ok {
			delete(h.activeActivities, key)
			return h.be.AbandonActivityWorkItem(ctx, wi)
		}
		return nil
	}
	if wi, ok := h.activeOrchestrations[instanceID]; ok {
		delete(h.activeOrchestrations, instanceID)
		return h.be.AbandonOrchestrationWorkItem(ctx, wi)
	}
	return nil
}

func activityDispatchKey(instanceID string, taskID int32) string {
	return fmt.Sprintf("%s#%d", instanceID, taskID)
}
