package domain

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for domain schema loading.
type Metrics struct {
	LoadsTotal       prometheus.Counter
	LoadErrorsTotal  prometheus.Counter
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	Reloads          *prometheus.CounterVec // by result: ok | error
}

// NewMetrics creates and registers the domain metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "usersim_domain_loads_total",
			Help: "Total number of domain schema loads",
		}),
		LoadErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "usersim_domain_load_errors_total",
			Help: "Total number of domain schema loads that failed",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "usersim_domain_cache_hits_total",
			Help: "Total number of registry lookups served from cache",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "usersim_domain_cache_misses_total",
			Help: "Total number of registry lookups that required a load",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usersim_domain_reloads_total",
			Help: "Total number of domain file reloads triggered by the watcher",
		}, []string{"result"}),
	}

	reg.MustRegister(m.LoadsTotal, m.LoadErrorsTotal, m.CacheHitsTotal, m.CacheMissesTotal, m.Reloads)
	return m
}
