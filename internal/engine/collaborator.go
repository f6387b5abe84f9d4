// FILE: internal/engine/collaborator.go
package engine

import (
	"context"
)

// Collaborator is the external scorer behind a bridge.
// Start blocks until the scorer signals readiness or ctx ends.
// Answers may arrive in any order and for superseded queries.
type Collaborator interface {
	Start(ctx context.Context) error
	Send(q Query) error
	Answers() <-chan Answer
	Close() error
}

// Factory builds a fresh collaborator per game
type Factory func() Collaborator
