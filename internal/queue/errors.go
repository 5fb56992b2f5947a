package queue

import "errors"

var (
	ErrQueueClosed = errors.New("queue: closed")
	errJobPanicked = errors.New("queue: job panicked")
)
