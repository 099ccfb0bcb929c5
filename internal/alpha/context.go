package alpha

import (
	"context"
	"time"

	"github.com/aristath/systrader/internal/platform"
)

// scopeKey is an unexported type so no other package can collide with
// this context key.
type scopeKey struct{}

// scope is the (data_platform, as_of) pair bound for the life of one
// model run. Carried via context.Context rather than a struct field or
// goroutine-local singleton so that concurrent runs with different as_of
// values never observe each other's binding — context values are
// immutable and scoped to the call tree that holds the derived context.
type scope struct {
	store *platform.Store
	asOf  time.Time
}

// withScope returns a context carrying store and asOf for the duration of
// a model run. Only Run (in model.go) constructs one.
func withScope(parent context.Context, store *platform.Store, asOf time.Time) context.Context {
	return context.WithValue(parent, scopeKey{}, &scope{store: store, asOf: asOf})
}

// GetEvents is the alpha engine's side-channel into the platform: it
// forwards to the bound store's GetEvents with as_of fixed to the run's
// timestamp. Called outside a scoped context (i.e. not from within a
// model's ComputeSignals during Run) it fails loudly with
// platform.ErrContextMissing — a programmer error, not a data condition.
func GetEvents(ctx context.Context, ids []uint64, types []string, start, end time.Time) ([]platform.Event, error) {
	s, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return nil, platform.ErrContextMissing
	}
	return s.store.GetEvents(ids, types, start, end, s.asOf)
}
