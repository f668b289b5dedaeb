package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "handshakes"

// Collectors Prometheus 指标集合
type Collectors struct {
	accepted    prometheus.Counter
	rejected    *prometheus.CounterVec
	push        *prometheus.CounterVec
	sessions    prometheus.Gauge
	removed     prometheus.Counter
	pumpSkipped prometheus.Counter
	stableSince prometheus.Gauge
}

var _ Reporter = (*Collectors)(nil)

// NewCollectors 创建指标并注册到 reg
//
// reg 为 nil 时不注册（指标仍可记录，便于测试）。
func NewCollectors(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepted_total",
			Help:      "Inbound connections accepted into the handshake registry.",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "Inbound connections rejected before a session was created.",
		}, []string{"reason"}),
		push: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_total",
			Help:      "Push connection requests by result.",
		}, []string{"result"}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Handshake sessions currently registered.",
		}),
		removed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_removed_total",
			Help:      "Handshake sessions finished and removed by the pump.",
		}),
		pumpSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_skipped_total",
			Help:      "Pump cycles skipped because the registry lock was contended.",
		}),
		stableSince: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stable_since_seconds",
			Help:      "Unix time of the first stable cycle, 0 when not stable.",
		}),
	}
}

func (c *Collectors) AcceptedConn() { c.accepted.Inc() }

func (c *Collectors) RejectedConn(reason string) { c.rejected.WithLabelValues(reason).Inc() }

func (c *Collectors) PushResult(result string) { c.push.WithLabelValues(result).Inc() }

func (c *Collectors) SessionsActive(n int) { c.sessions.Set(float64(n)) }

func (c *Collectors) SessionsRemoved(n int) {
	if n > 0 {
		c.removed.Add(float64(n))
	}
}

func (c *Collectors) PumpSkipped() { c.pumpSkipped.Inc() }

func (c *Collectors) StableSince(t time.Time) {
	if t.IsZero() {
		c.stableSince.Set(0)
		return
	}
	c.stableSince.Set(float64(t.Unix()))
}
