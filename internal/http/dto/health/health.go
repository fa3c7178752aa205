package health

import "time"

// ReadyResponse respuesta de /readyz.
// Degradado lleva también el sobre de error estándar (error/code).
type ReadyResponse struct {
	Status      string            `json:"status"` // ok | degraded
	Error       string            `json:"error,omitempty"`
	Code        string            `json:"code,omitempty"`
	Components  map[string]string `json:"components"`
	TenantPools int               `json:"tenantPools"`
	Timestamp   time.Time         `json:"timestamp"`
}
