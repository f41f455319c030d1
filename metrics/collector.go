package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saylorsolutions/intercept/events"
)

var (
	_ events.Observer      = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

type handlerKey struct {
	kind  string
	phase events.Phase
}

type dispatchKey struct {
	kind   string
	result string
}

// Collector is an [events.Observer] that is also a [prometheus.Collector].
// Pass it to registries with [events.WithObserver], and register it with a [prometheus.Registerer].
//
// Bus tags are not used as labels.
type Collector struct {
	activeDesc     *prometheus.Desc
	subscribedDesc *prometheus.Desc
	dispatchedDesc *prometheus.Desc
	duration       *prometheus.HistogramVec

	mux        sync.Mutex
	active     map[handlerKey]int64
	subscribed map[handlerKey]uint64
	dispatched map[dispatchKey]uint64
}

// NewCollector creates a [Collector] with metric names prefixed by namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		activeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "handlers_active"),
			"Number of handlers currently registered.",
			[]string{"kind", "phase"}, nil,
		),
		subscribedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "subscriptions_total"),
			"Number of handlers ever registered.",
			[]string{"kind", "phase"}, nil,
		),
		dispatchedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "dispatches_total"),
			"Number of completed dispatches by result.",
			[]string{"kind", "result"}, nil,
		),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time taken by a dispatch, including handlers and the event itself.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"kind"}),
		active:     map[handlerKey]int64{},
		subscribed: map[handlerKey]uint64{},
		dispatched: map[dispatchKey]uint64{},
	}
}

func (c *Collector) HandlerAdded(kind string, phase events.Phase, _ events.BusTag) {
	key := handlerKey{kind: kind, phase: phase}
	c.mux.Lock()
	defer c.mux.Unlock()
	c.active[key]++
	c.subscribed[key]++
}

func (c *Collector) HandlerRemoved(kind string, phase events.Phase, _ events.BusTag) {
	key := handlerKey{kind: kind, phase: phase}
	c.mux.Lock()
	defer c.mux.Unlock()
	c.active[key]--
}

func (c *Collector) EventDispatched(kind string, _ events.BusTag, stats events.DispatchStats) {
	key := dispatchKey{kind: kind, result: ResultOK}
	if stats.Err != nil {
		key.result = ResultError
	}
	c.duration.WithLabelValues(kind).Observe(stats.Elapsed.Seconds())
	c.mux.Lock()
	defer c.mux.Unlock()
	c.dispatched[key]++
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeDesc
	ch <- c.subscribedDesc
	ch <- c.dispatchedDesc
	c.duration.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mux.Lock()
	for key, n := range c.active {
		ch <- prometheus.MustNewConstMetric(c.activeDesc, prometheus.GaugeValue, float64(n), key.kind, key.phase.String())
	}
	for key, n := range c.subscribed {
		ch <- prometheus.MustNewConstMetric(c.subscribedDesc, prometheus.CounterValue, float64(n), key.kind, key.phase.String())
	}
	for key, n := range c.dispatched {
		ch <- prometheus.MustNewConstMetric(c.dispatchedDesc, prometheus.CounterValue, float64(n), key.kind, key.result)
	}
	c.mux.Unlock()
	c.duration.Collect(ch)
}
