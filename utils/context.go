package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds a single request's store work.
	DefaultTimeout = 10 * time.Second

	// LongTimeout is for uploads and exports.
	LongTimeout = 30 * time.Second
)

func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}
