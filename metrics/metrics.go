// Package metrics exports ownership statistics to Prometheus.
package metrics

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/ownership/ptr"
	"github.com/wippyai/ownership/resource"
)

const (
	namespace      = "ownership"
	ptrSubsystem   = "ptr"
	tableSubsystem = "table"
)

// HandleEvents counts table lifecycle events by table and event type.
var HandleEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: tableSubsystem,
		Name:      "events_total",
		Help:      "Total number of handle lifecycle events per table.",
	},
	[]string{"table", "event"},
)

// Table is the part of a handle table the collector reports on.
type Table interface {
	ID() uuid.UUID
	Name() string
	Len() int
}

// Collector reports ptr.ReadStats and the sizes of tracked tables at
// scrape time.
type Collector struct {
	objectsCreated   *prometheus.Desc
	objectsDestroyed *prometheus.Desc
	objectsReleased  *prometheus.Desc
	objectsLive      *prometheus.Desc
	blocksAllocated  *prometheus.Desc
	blocksReleased   *prometheus.Desc
	blocksLive       *prometheus.Desc
	lockFailures     *prometheus.Desc
	castFailures     *prometheus.Desc
	violations       *prometheus.Desc
	leaks            *prometheus.Desc
	tableHandles     *prometheus.Desc

	mu     sync.RWMutex
	tables map[uuid.UUID]Table
}

// NewCollector creates a collector with no tracked tables.
func NewCollector() *Collector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}
	return &Collector{
		objectsCreated:   desc(ptrSubsystem, "objects_created_total", "Objects placed under a handle."),
		objectsDestroyed: desc(ptrSubsystem, "objects_destroyed_total", "Deleters run."),
		objectsReleased:  desc(ptrSubsystem, "objects_released_total", "Objects handed back by Scope.Release."),
		objectsLive:      desc(ptrSubsystem, "objects_live", "Objects currently owned by handles."),
		blocksAllocated:  desc(ptrSubsystem, "blocks_allocated_total", "Counter blocks allocated."),
		blocksReleased:   desc(ptrSubsystem, "blocks_released_total", "Counter blocks released."),
		blocksLive:       desc(ptrSubsystem, "blocks_live", "Counter blocks not yet released."),
		lockFailures:     desc(ptrSubsystem, "lock_failures_total", "Weak promotions of expired objects."),
		castFailures:     desc(ptrSubsystem, "cast_failures_total", "Failed handle conversions."),
		violations:       desc(ptrSubsystem, "violations_total", "Contract violations reported."),
		leaks:            desc(ptrSubsystem, "leaks_total", "Handles garbage collected without Drop."),
		tableHandles:     desc(tableSubsystem, "handles", "Live handles per table.", "table", "id"),
		tables:           make(map[uuid.UUID]Table),
	}
}

// Track adds t to the table size report.
func (c *Collector) Track(t Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[t.ID()] = t
}

// Untrack removes t from the report.
func (c *Collector) Untrack(t Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, t.ID())
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.objectsCreated
	ch <- c.objectsDestroyed
	ch <- c.objectsReleased
	ch <- c.objectsLive
	ch <- c.blocksAllocated
	ch <- c.blocksReleased
	ch <- c.blocksLive
	ch <- c.lockFailures
	ch <- c.castFailures
	ch <- c.violations
	ch <- c.leaks
	ch <- c.tableHandles
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := ptr.ReadStats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}

	counter(c.objectsCreated, s.ObjectsCreated)
	counter(c.objectsDestroyed, s.ObjectsDestroyed)
	counter(c.objectsReleased, s.ObjectsReleased)
	gauge(c.objectsLive, s.LiveObjects())
	counter(c.blocksAllocated, s.BlocksAllocated)
	counter(c.blocksReleased, s.BlocksReleased)
	gauge(c.blocksLive, s.LiveBlocks())
	counter(c.lockFailures, s.LockFailures)
	counter(c.castFailures, s.CastFailures)
	counter(c.violations, s.Violations)
	counter(c.leaks, s.Leaks)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, t := range c.tables {
		ch <- prometheus.MustNewConstMetric(c.tableHandles, prometheus.GaugeValue, float64(t.Len()), t.Name(), id.String())
	}
}

// EventCounter is a resource.Observer that counts events for one table in
// HandleEvents.
type EventCounter struct {
	table string
}

// Observer returns an EventCounter for the named table.
func Observer(table string) *EventCounter {
	return &EventCounter{table: table}
}

func (c *EventCounter) OnResourceEvent(e resource.Event) {
	HandleEvents.WithLabelValues(c.table, e.Type.String()).Inc()
}

// Register registers c and HandleEvents with reg.
func Register(reg prometheus.Registerer, c *Collector) {
	reg.MustRegister(c)
	reg.MustRegister(HandleEvents)
}
