// Package api provides the HTTP REST API for TenAuth.
//
// It exposes the authentication endpoints (register, login, refresh,
// logout, self) and the admin surfaces for users, tenants, and the
// audit trail.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
