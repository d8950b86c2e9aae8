package db

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsRetryable reports whether a failed operation may be attempted again.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// Try executes an operation with DefaultMaxRetries, retrying on transient
// MongoDB failures (see IsTransientError).
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsTransientError)
}

// WithRetries executes op up to maxRetries additional times while isRetryable
// accepts the returned error. Attempts are spaced by an incremental backoff.
func WithRetries(op Operation, maxRetries int, isRetryable IsRetryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !isRetryable(err) {
			break
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsTransientError reports network errors, timeouts, and duplicate key
// collisions on generated ids. Unique index violations on other fields are
// not transient and are excluded by IsIDCollision.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	return IsIDCollision(err)
}

// IsIDCollision checks if an error is a duplicate key error (code 11000) on the _id index.
func IsIDCollision(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 && isIDIndexMessage(e.Message) {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 && isIDIndexMessage(e.Message) {
				return true
			}
		}
	}
	return false
}

func isIDIndexMessage(msg string) bool {
	return strings.Contains(msg, "index: _id_")
}
