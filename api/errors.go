package api

import "errors"

// ErrInstanceNotFound is returned by TaskHubClient operations when the
// requested instance does not exist in the configured task hub, as noted on
// FetchOrchestrationMetadata/WaitForOrchestrationStart/WaitForOrchestrationCompletion
// in client.go.
var ErrInstanceNotFound = errors.New("durabletask: no such instance exists")

// ErrAlreadyStarted is returned by ScheduleNewOrchestration when createInstance
// is deduped against an existing non-terminal instance.
var ErrAlreadyStarted = errors.New("durabletask: an orchestration with this instance ID is already running")
