// Package protos holds the wire vocabulary shared between the hub and worker
// processes. In the upstream project these types are generated by protoc from
// orchestrator_service.proto; here they are hand-maintained equivalents of that
// generated code, built on the same google.golang.org/protobuf well-known types.
package protos

// OrchestrationStatus mirrors the wire enum for an orchestration's runtime
// status. Values are chosen to match the protobuf enum ordering used by the
// real service definition.
type OrchestrationStatus int32

const (
	OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING OrchestrationStatus = iota
	OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED
	OrchestrationStatus_ORCHESTRATION_STATUS_CONTINUED_AS_NEW
	OrchestrationStatus_ORCHESTRATION_STATUS_FAILED
	OrchestrationStatus_ORCHESTRATION_STATUS_CANCELED
	OrchestrationStatus_ORCHESTRATION_STATUS_TERMINATED
	OrchestrationStatus_ORCHESTRATION_STATUS_PENDING
	OrchestrationStatus_ORCHESTRATION_STATUS_SUSPENDED
)

func (s OrchestrationStatus) String() string {
	switch s {
	case OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING:
		return "RUNNING"
	case OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED:
		return "COMPLETED"
	case OrchestrationStatus_ORCHESTRATION_STATUS_CONTINUED_AS_NEW:
		return "CONTINUED_AS_NEW"
	case OrchestrationStatus_ORCHESTRATION_STATUS_FAILED:
		return "FAILED"
	case OrchestrationStatus_ORCHESTRATION_STATUS_CANCELED:
		return "CANCELED"
	case OrchestrationStatus_ORCHESTRATION_STATUS_TERMINATED:
		return "TERMINATED"
	case OrchestrationStatus_ORCHESTRATION_STATUS_PENDING:
		return "PENDING"
	case OrchestrationStatus_ORCHESTRATION_STATUS_SUSPENDED:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the status represents a finished execution.
func (s OrchestrationStatus) IsTerminal() bool {
	switch s {
	case OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED,
		OrchestrationStatus_ORCHESTRATION_STATUS_FAILED,
		OrchestrationStatus_ORCHESTRATION_STATUS_CANCELED,
		OrchestrationStatus_ORCHESTRATION_STATUS_TERMINATED:
		return true
	default:
		return false
	}
}
