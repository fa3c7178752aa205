package http

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/authmanager/internal/infra/tenantsql"
	"github.com/dropDatabas3/authmanager/internal/metrics"
)

// MetricsConfig agrupa lo necesario para exponer /metrics.
type MetricsConfig struct {
	Registry   *prometheus.Registry // nil = uno nuevo
	Tenants    *tenantsql.Manager
	GlobalPool func() *pgxpool.Pool
}

// Metrics instrumenta el router HTTP y sirve /metrics.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inflight prometheus.Gauge
	handler  http.Handler
}

// NewMetrics registra las métricas HTTP, las de dominio y, si hay pools, un
// collector con el estado del pool del control plane y los de cada tenant.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Requests HTTP por método, ruta y status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests HTTP en curso",
		}),
	}

	collectorsToRegister := []prometheus.Collector{m.requests, m.latency, m.inflight}
	if cfg.Tenants != nil || cfg.GlobalPool != nil {
		collectorsToRegister = append(collectorsToRegister, newPoolCollector(cfg.GlobalPool, cfg.Tenants))
	}
	for _, c := range collectorsToRegister {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	return m, nil
}

// Handler sirve el formato de exposición de Prometheus.
func (m *Metrics) Handler() http.Handler { return m.handler }

// Middleware mide cada request. Va dentro del router chi para poder usar
// el patrón de la ruta como label; sin patrón (404) se normaliza el path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inflight.Inc()
		defer m.inflight.Dec()

		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if route == "" {
			route = normalizePath(r.URL.Path)
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		method := strings.ToUpper(r.Method)
		m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	})
}

// poolCollector lee el estado de los pools en cada scrape.
type poolCollector struct {
	tenants    *tenantsql.Manager
	globalPool func() *pgxpool.Pool

	tenantPools *prometheus.Desc
	tenantConns *prometheus.Desc
	globalConns *prometheus.Desc
}

func newPoolCollector(global func() *pgxpool.Pool, mgr *tenantsql.Manager) *poolCollector {
	return &poolCollector{
		tenants:     mgr,
		globalPool:  global,
		tenantPools: prometheus.NewDesc("tenant_pools_open", "Pools abiertos hacia bases de tenants", nil, nil),
		tenantConns: prometheus.NewDesc("tenant_pool_connections", "Conexiones por base de tenant y estado", []string{"database_id", "state"}, nil),
		globalConns: prometheus.NewDesc("controlplane_pool_connections", "Conexiones del pool del control plane por estado", []string{"state"}, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tenantPools
	ch <- c.tenantConns
	ch <- c.globalConns
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	if c.tenants != nil {
		stats := c.tenants.Stats()
		gauge(c.tenantPools, float64(len(stats)))
		for _, s := range stats {
			gauge(c.tenantConns, float64(s.Open), s.DatabaseID, "open")
			gauge(c.tenantConns, float64(s.InUse), s.DatabaseID, "in_use")
			gauge(c.tenantConns, float64(s.Idle), s.DatabaseID, "idle")
		}
	}

	if c.globalPool == nil {
		return
	}
	if pool := c.globalPool(); pool != nil {
		st := pool.Stat()
		gauge(c.globalConns, float64(st.TotalConns()), "total")
		gauge(c.globalConns, float64(st.AcquiredConns()), "acquired")
		gauge(c.globalConns, float64(st.IdleConns()), "idle")
	}
}

var idSegment = regexp.MustCompile(`^([0-9]+|[0-9a-fA-F-]{16,}|[0-9A-HJKMNP-TV-Z]{26})$`)

// normalizePath colapsa ids (numéricos, uuid/hex, ulid) en ":id" para
// acotar la cardinalidad de los labels.
func normalizePath(p string) string {
	p, _, _ = strings.Cut(p, "?")
	segs := strings.Split(strings.Trim(p, "/"), "/")
	out := segs[:0]
	for _, s := range segs {
		switch {
		case s == "":
		case len(s) > 48 || idSegment.MatchString(s):
			out = append(out, ":id")
		default:
			out = append(out, s)
		}
	}
	return "/" + strings.Join(out, "/")
}
