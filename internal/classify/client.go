// Package classify turns one inbound message into a ModerationVerdict by
// submitting a judgement job to an external model service and polling it to a
// terminal state. The engine is deliberately failure-tolerant: any error,
// timeout, or malformed response collapses to a Good verdict so classifier
// downtime never blocks message flow.
package classify

import "context"

// JobState is one state of a judgement job's lifecycle:
//
//	created -> submitted -> {queued, running} -> {completed, failed, expired}
//
// Only completed carries a usable verdict payload.
type JobState string

const (
	JobCreated   JobState = "created"
	JobSubmitted JobState = "submitted"
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobExpired   JobState = "expired"
)

// Terminal reports whether the state ends the job's lifecycle.
func (s JobState) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobExpired:
		return true
	}
	return false
}

// Request is one judgement job submission.
//
// Fields:
//   - Model: model identifier chosen by the selector.
//   - Instructions: fixed system instruction plus the chat's policy prompt.
//   - Input: the message text under judgement.
//   - ImageData / ImageMIME: optional attached photo, raw bytes.
type Request struct {
	Model        string
	Instructions string
	Input        string
	ImageData    []byte
	ImageMIME    string
}

// Job is a point-in-time snapshot of a submitted judgement job.
type Job struct {
	ID     string
	State  JobState
	Output string // raw model output, set only when State is completed
	Error  string // failure detail, set on failed/expired
}

// JudgementClient is the external judgement service boundary. Submit starts
// a job; Poll returns its current snapshot. Implementations decide how the
// asynchronous lifecycle maps onto their transport.
type JudgementClient interface {
	Submit(ctx context.Context, req Request) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (*Job, error)
}
