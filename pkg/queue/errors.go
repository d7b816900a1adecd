package queue

import "errors"

var (
	ErrEmptyJobID  = errors.New("queue: job id is empty")
	ErrClosed      = errors.New("queue: dispatcher is closed")
	ErrUnavailable = errors.New("queue: broker unavailable")
	ErrPublish     = errors.New("queue: publish failed")
)
