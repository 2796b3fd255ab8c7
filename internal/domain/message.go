package domain

// JobMessage wraps a dispatched job with its acknowledgement callbacks.
// The worker pool calls Ack on success and Nack on error.
type JobMessage struct {
	Job  *Job
	Ack  func() error
	Nack func(requeue bool) error
}
