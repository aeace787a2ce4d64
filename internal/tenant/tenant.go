// Package tenant validates tenant access for the scoring engine. The
// engine checks a lead's tenant once per call as a fail-fast gate before
// any per-lead work runs.
package tenant

import "context"

// Validator reports whether a tenant is active. Implementations must be
// safe for concurrent use.
type Validator interface {
	IsActive(ctx context.Context, tenantID string) (bool, error)
}

// Static is a Validator backed by a fixed allowlist, typically loaded from
// configuration. An empty allowlist admits every tenant, which keeps
// single-tenant and development deployments friction-free.
type Static struct {
	active map[string]bool
}

// NewStatic creates a Static validator from a list of active tenant IDs.
func NewStatic(tenantIDs ...string) *Static {
	active := make(map[string]bool, len(tenantIDs))
	for _, id := range tenantIDs {
		active[id] = true
	}
	return &Static{active: active}
}

// IsActive reports whether tenantID is on the allowlist.
func (s *Static) IsActive(_ context.Context, tenantID string) (bool, error) {
	if len(s.active) == 0 {
		return true, nil
	}
	return s.active[tenantID], nil
}
