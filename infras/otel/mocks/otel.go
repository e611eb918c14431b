package mocks

import (
	"context"
	"sync"

	"medsys/infras/otel"
)

// Otel hands out recording scopes and keeps them in creation order.
type Otel struct {
	mu     sync.Mutex
	scopes []*Scope
}

func (o *Otel) NewScope(ctx context.Context, _, spanName string) (context.Context, otel.Scope) {
	scope := newScope(spanName)

	o.mu.Lock()
	o.scopes = append(o.scopes, scope)
	o.mu.Unlock()

	return ctx, scope
}

// Scope returns the most recent scope opened under spanName, or nil.
func (o *Otel) Scope(spanName string) *Scope {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := len(o.scopes) - 1; i >= 0; i-- {
		if o.scopes[i].Name == spanName {
			return o.scopes[i]
		}
	}

	return nil
}

func NewOtel() otel.Otel {
	return NewRecorder()
}

func NewRecorder() *Otel {
	return &Otel{}
}
