package core

import "github.com/google/uuid"

// NewInvocationID returns a fresh identifier for one render invocation.
func NewInvocationID() string {
	return uuid.NewString()
}
