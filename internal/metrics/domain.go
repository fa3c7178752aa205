package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de dominio. Viven en un paquete aparte para que los services las
// usen sin importar el paquete HTTP.

var (
	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authmanager_tokens_issued_total",
		Help: "Tokens emitidos por tipo y resultado",
	}, []string{"type", "result"}) // result: sent|mail_failed|error

	TokensRedeemed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authmanager_tokens_redeemed_total",
		Help: "Canjes de tokens por tipo y resultado",
	}, []string{"type", "result"}) // result: ok|invalid|wrong_type|used|expired|mismatch|error

	VaultChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authmanager_vault_checks_total",
		Help: "Consultas al vault por resultado",
	}, []string{"result"}) // result: open|locked|whitelisted

	VaultLocks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authmanager_vault_locks_total",
		Help: "Bloqueos de IP por origen",
	}, []string{"source"}) // source: auto|admin
)

// Register registra las métricas de dominio en el registry indicado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{TokensIssued, TokensRedeemed, VaultChecks, VaultLocks} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
