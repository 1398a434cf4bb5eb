package api

import (
	"encoding/json"

	"github.com/shubham1172/durabletask-go/internal/protos"
)

// NewOrchestrationOptions mutates a CreateInstanceRequest before it is sent
// to the backend.
type NewOrchestrationOptions func(*protos.CreateInstanceRequest) error

// WithInstanceID pins the new orchestration to a caller-chosen instance ID
// instead of a randomly minted uuid.
func WithInstanceID(id InstanceID) NewOrchestrationOptions {
	return func(req *protos.CreateInstanceRequest) error {
		req.InstanceId = string(id)
		return nil
	}
}

// WithInput serializes v as JSON and attaches it as the orchestration's
// input payload.
func WithInput(v interface{}) NewOrchestrationOptions {
	return func(req *protos.CreateInstanceRequest) error {
		bytes, err := json.Marshal(v)
		if err != nil {
			return err
		}
		req.Input = string(bytes)
		return nil
	}
}

// WithRawInput attaches a pre-serialized input payload verbatim.
func WithRawInput(input string) NewOrchestrationOptions {
	return func(req *protos.CreateInstanceRequest) error {
		req.Input = input
		return nil
	}
}

// WithOrchestrationIDReusePolicy overrides which statuses are considered
// "already active" for the purposes of createInstance's dedupe check
// (default {Pending, Running}).
func WithOrchestrationIDReusePolicy(statuses ...protos.OrchestrationStatus) NewOrchestrationOptions {
	return func(req *protos.CreateInstanceRequest) error {
		req.OrchestrationIdReusePolicy = &protos.OrchestrationIdReusePolicy{OperationStatus: statuses}
		return nil
	}
}

// WithTags attaches an ordered set of key/value tags, copied onto the
// resulting RuntimeState.
func WithTags(tags map[string]string) NewOrchestrationOptions {
	return func(req *protos.CreateInstanceRequest) error {
		req.Tags = tags
		return nil
	}
}

// DefaultDedupeStatuses is the default `dedupeStatuses` set used by
// createInstance when no WithOrchestrationIDReusePolicy is supplied.
func DefaultDedupeStatuses() []protos.OrchestrationStatus {
	return []protos.OrchestrationStatus{
		protos.OrchestrationStatus_ORCHESTRATION_STATUS_PENDING,
		protos.OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING,
	}
}
