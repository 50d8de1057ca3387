// Package tenant carries the ambient tenant id through the
// request-processing pipeline (spec.md §3 "Tenant scoping"). It is
// implicit context, not an explicit parameter, so the repository and
// service-client layers can add a tenant filter without every caller
// threading a tenant argument through.
//
// Grounded on runtime/agent/engine/context.go's private-key
// context.WithValue pattern.
package tenant

import "context"

type ctxKey struct{}

// WithTenant returns a child context carrying id as the active tenant.
// An empty id is still stored — callers distinguish "no tenant" from
// "legacy row, never scoped" by checking FromContext's ok return instead.
func WithTenant(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the active tenant id, if any was attached.
func FromContext(ctx context.Context) (id string, ok bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return "", false
	}
	id, ok = v.(string)
	return id, ok
}
