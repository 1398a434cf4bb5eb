// Package task is the public surface user orchestrator and activity code is
// written against: registration (Registry), and the context interfaces
// (OrchestrationContext, ActivityContext) a running turn exposes to that
// code.
package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/shubham1172/durabletask-go/internal/helpers"
)

// OrchestratorFn is a user-authored orchestrator: it drives ctx's awaitable
// primitives and returns a JSON-serializable result or an error.
type OrchestratorFn func(ctx OrchestrationContext) (interface{}, error)

// ActivityFn is a user-authored activity: a plain function invoked once per
// call, with no replay semantics (spec GLOSSARY "Activity").
type ActivityFn func(ctx ActivityContext) (interface{}, error)

// Registry maps orchestrator/activity names to their implementations.
// Registration by function reference derives the name via
// helpers.GetTaskFunctionName, the same helper client.go's
// ScheduleNewOrchestration already depends on.
type Registry struct {
	mu            sync.RWMutex
	orchestrators map[string]OrchestratorFn
	activities    map[string]ActivityFn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		orchestrators: make(map[string]OrchestratorFn),
		activities:    make(map[string]ActivityFn),
	}
}

// AddOrchestrator registers fn under its function name.
func (r *Registry) AddOrchestrator(fn OrchestratorFn) error {
	return r.AddOrchestratorN(helpers.GetTaskFunctionName(fn), fn)
}

// AddOrchestratorN registers fn under an explicit name, for callers that
// want a stable name independent of Go symbol renames.
func (r *Registry) AddOrchestratorN(name string, fn OrchestratorFn) error {
	if name == "" {
		return fmt.Errorf("task: orchestrator name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orchestrators[name]; exists {
		return fmt.Errorf("task: orchestrator %q already registered", name)
	}
	r.orchestrators[name] = fn
	return nil
}

// AddActivity registers fn under its function name.
func (r *Registry) AddActivity(fn ActivityFn) error {
	return r.AddActivityN(helpers.GetTaskFunctionName(fn), fn)
}

// AddActivityN registers fn under an explicit name.
func (r *Registry) AddActivityN(name string, fn ActivityFn) error {
	if name == "" {
		return fmt.Errorf("task: activity name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.activities[name]; exists {
		return fmt.Errorf("task: activity %q already registered", name)
	}
	r.activities[name] = fn
	return nil
}

// GetOrchestrator looks up a registered orchestrator by name.
func (r *Registry) GetOrchestrator(name string) (OrchestratorFn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.orchestrators[name]
	return fn, ok
}

// GetActivity looks up a registered activity by name.
func (r *Registry) GetActivity(name string) (ActivityFn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.activities[name]
	return fn, ok
}

// ActivityContext is the minimal per-invocation surface an activity sees.
type ActivityContext interface {
	context.Context
	// InstanceID is the orchestration instance that scheduled this activity.
	InstanceID() string
	// TaskID is the scheduling event id this invocation correlates to.
	TaskID() int32
	// GetInput deserializes the activity's input into v.
	GetInput(v interface{}) error
}
