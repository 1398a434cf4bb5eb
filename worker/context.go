package worker

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/task"
)

// orchestrationContext is the task.OrchestrationContext a cursor hands to
// user orchestrator code for one turn. Every method is a thin front for the
// cursor's replay bookkeeping; the context itself holds no state of its own
// beyond the input payload.
type orchestrationContext struct {
	cursor *OrchestrationCursor
	input  []byte
}

func (c *orchestrationContext) InstanceID() string { return c.cursor.instanceID }

func (c *orchestrationContext) GetInput(v interface{}) error {
	if v == nil || len(c.input) == 0 {
		return nil
	}
	return json.Unmarshal(c.input, v)
}

func (c *orchestrationContext) IsReplaying() bool { return c.cursor.replaying }

func (c *orchestrationContext) CurrentUTCDateTime() time.Time { return c.cursor.currentTime }

func (c *orchestrationContext) CallActivity(name string, opts ...task.CallActivityOption) task.Task {
	o := &task.CallActivityOptions{}
	for _, opt := range opts {
		opt(o)
	}
	input, err := marshalOrNil(o.Input)
	if err != nil {
		return failedTask(err)
	}
	return c.cursor.scheduleTask(name, o.Version, input)
}

func (c *orchestrationContext) CallSubOrchestrator(name string, opts ...task.CallSubOrchestratorOption) task.Task {
	o := &task.CallSubOrchestratorOptions{}
	for _, opt := range opts {
		opt(o)
	}
	input, err := marshalOrNil(o.Input)
	if err != nil {
		return failedTask(err)
	}
	return c.cursor.scheduleSubOrchestration(o.InstanceID, name, o.Version, input)
}

func (c *orchestrationContext) CreateTimer(fireAt time.Time) task.Task {
	return c.cursor.scheduleTimer(fireAt)
}

func (c *orchestrationContext) WaitForExternalEvent(name string) task.Task {
	return c.cursor.waitExternalEvent(name)
}

func (c *orchestrationContext) SendEvent(targetInstanceID, eventName string, data interface{}) {
	input, err := marshalOrNil(data)
	if err != nil {
		c.cursor.logger.Warnf("%s: failed to marshal SendEvent payload for %q: %v", c.cursor.instanceID, eventName, err)
		return
	}
	c.cursor.scheduleSendEvent(targetInstanceID, eventName, input)
}

func (c *orchestrationContext) ContinueAsNew(input interface{}, preserveUnprocessedEvents bool) {
	payload, err := marshalOrNil(input)
	if err != nil {
		c.cursor.logger.Warnf("%s: failed to marshal ContinueAsNew input: %v", c.cursor.instanceID, err)
		payload = nil
	}
	c.cursor.continueAsNew(payload, preserveUnprocessedEvents)
}

func (c *orchestrationContext) SetCustomStatus(status string) {
	c.cursor.customStatus = wrapperspb.String(status)
}

func (c *orchestrationContext) NewGUID() uuid.UUID {
	seq := c.cursor.nextGUIDSequence()
	return newDeterministicGUID(c.cursor.instanceID, c.cursor.executionID, seq)
}

func marshalOrNil(v interface{}) (*wrapperspb.StringValue, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(string(b)), nil
}

// failedTask returns an already-resolved Task whose Await always reports
// err, used when argument marshaling fails before an action can even be
// scheduled.
func failedTask(err error) task.Task {
	t := newTask()
	t.resolve(nil, err)
	return t
}
