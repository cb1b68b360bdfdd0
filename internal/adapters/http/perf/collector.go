package perf

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultRingSize holds roughly one training day of requests and queries.
const DefaultRingSize = 10000

// EntryKind tells request timings from query timings.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is one timing sample.
type Entry struct {
	Kind       EntryKind
	Path       string // RoutePath of the request, or a QueryLabel
	StatusCode int    // zero for queries
	DurationMs float64
	Timestamp  time.Time
}

// Collector keeps the most recent timings in a fixed ring. Recording never
// allocates; all aggregation is deferred to Snapshot.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	total   atomic.Int64
}

// NewCollector allocates a ring of the given capacity.
// POST: size <= 0 uses DefaultRingSize
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record stores e, overwriting the oldest sample once the ring is full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.next] = e
	c.next = (c.next + 1) % len(c.entries)
	c.mu.Unlock()
	c.total.Add(1)
}

// TotalRecorded counts every sample since startup, including overwritten ones.
func (c *Collector) TotalRecorded() int64 {
	return c.total.Load()
}

// RoutePath names a request for aggregation: "METHOD /path" with every
// session, participant and report ID collapsed to {id}.
func RoutePath(method, path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := uuid.Parse(seg); err == nil {
			segments[i] = "{id}"
		}
	}
	return method + " " + strings.Join(segments, "/")
}

// isStream reports whether a route is a long-lived event stream. Streams stay
// open for minutes, so they are counted but kept out of the latency figures.
func isStream(route string) bool {
	return strings.HasSuffix(route, "/events") || strings.HasSuffix(route, "/events/sessions")
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRequests  int64      `json:"total_requests"`
	ServerErrors   int        `json:"server_errors"`
	Streams        int        `json:"streams"`
	RequestP50Ms   float64    `json:"request_p50_ms"`
	RequestP95Ms   float64    `json:"request_p95_ms"`
	RequestP99Ms   float64    `json:"request_p99_ms"`
	SlowestPaths   []PathStat `json:"slowest_paths"`
	SlowestQueries []PathStat `json:"slowest_queries"`
}

// PathStat aggregates timing for a single route or query label.
type PathStat struct {
	Path    string  `json:"path"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	Count   int     `json:"count"`
	TotalMs float64 `json:"total_ms"`
}

// Snapshot computes aggregated stats from the ring buffer.
// This is expensive (sorts) and should only be called when the admin asks for it.
// PRE: none
// POST: Returns a Snapshot with percentiles and top-N lists; event streams are
// counted in Streams only
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, len(c.entries))
	copy(buf, c.entries)
	c.mu.Unlock()

	var snap Snapshot
	var requestDurations []float64
	requests := statTable{}
	queries := statTable{}

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		switch e.Kind {
		case KindRequest:
			if e.StatusCode >= 500 {
				snap.ServerErrors++
			}
			if isStream(e.Path) {
				snap.Streams++
				continue
			}
			requestDurations = append(requestDurations, e.DurationMs)
			requests.add(e)
		case KindQuery:
			queries.add(e)
		}
	}

	snap.TotalRequests = c.TotalRecorded()
	snap.SlowestPaths = requests.top(topN)
	snap.SlowestQueries = queries.top(topN)

	if len(requestDurations) > 0 {
		sort.Float64s(requestDurations)
		snap.RequestP50Ms = percentile(requestDurations, 50)
		snap.RequestP95Ms = percentile(requestDurations, 95)
		snap.RequestP99Ms = percentile(requestDurations, 99)
	}

	return snap
}

// statTable accumulates per-label timings.
type statTable map[string]*PathStat

func (t statTable) add(e Entry) {
	s, ok := t[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		t[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	s.MaxMs = math.Max(s.MaxMs, e.DurationMs)
}

// top returns at most n labels, slowest average first. Ties sort by label
// so the admin page does not reshuffle between refreshes.
func (t statTable) top(n int) []PathStat {
	list := make([]PathStat, 0, len(t))
	for _, s := range t {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs != list[j].AvgMs {
			return list[i].AvgMs > list[j].AvgMs
		}
		return list[i].Path < list[j].Path
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
