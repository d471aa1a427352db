package shared

import "context"

// Tenant identifies the company a request operates on and the acting user.
type Tenant struct {
	CompanyID int64
	ActorID   int64
}

type tenantContextKey struct{}

// ContextWithTenant stores the tenant in context.
func ContextWithTenant(ctx context.Context, tenant Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext extracts the tenant from context.
func TenantFromContext(ctx context.Context) (Tenant, bool) {
	tenant, ok := ctx.Value(tenantContextKey{}).(Tenant)
	return tenant, ok
}
