package perf

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_SplitsRequestsAndQueries(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /api/sessions", StatusCode: 200, DurationMs: 10, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /api/sessions", StatusCode: 200, DurationMs: 30, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Path: "SELECT session", DurationMs: 5, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	assert.EqualValues(t, 3, snap.TotalRequests)
	require.Len(t, snap.SlowestPaths, 1)
	assert.Equal(t, PathStat{Path: "GET /api/sessions", AvgMs: 20, MaxMs: 30, Count: 2, TotalMs: 40}, snap.SlowestPaths[0])
	require.Len(t, snap.SlowestQueries, 1)
	assert.Equal(t, "SELECT session", snap.SlowestQueries[0].Path)
}

// A full ring keeps only the newest entries.
func TestCollector_RingOverwrites(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /admin", DurationMs: float64(i), Timestamp: now})
	}

	assert.EqualValues(t, 5, c.TotalRecorded())
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	require.Len(t, snap.SlowestPaths, 1)
	assert.Equal(t, 3, snap.SlowestPaths[0].Count)
	assert.Equal(t, 4.0, snap.SlowestPaths[0].MaxMs)
	assert.Equal(t, 3.0, snap.SlowestPaths[0].AvgMs)
}

func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /play/{id}", DurationMs: float64(i), Timestamp: now})
	}

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	assert.InDelta(t, 50, snap.RequestP50Ms, 1)
	assert.InDelta(t, 95, snap.RequestP95Ms, 1)
	assert.InDelta(t, 99, snap.RequestP99Ms, 1)
}

func TestCollector_SnapshotWindow(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /join", DurationMs: 100, Timestamp: now.Add(-2 * time.Hour)})
	c.Record(Entry{Kind: KindRequest, Path: "GET /admin/sessions/{id}", DurationMs: 10, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Hour), 10)
	require.Len(t, snap.SlowestPaths, 1)
	assert.Equal(t, "GET /admin/sessions/{id}", snap.SlowestPaths[0].Path)
}

func TestCollector_TopNOrdering(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()
	for _, p := range []string{"GET /b", "GET /a", "GET /c"} {
		c.Record(Entry{Kind: KindRequest, Path: p, DurationMs: 7, Timestamp: now})
	}
	c.Record(Entry{Kind: KindRequest, Path: "GET /slow", DurationMs: 70, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 3)
	var got []string
	for _, s := range snap.SlowestPaths {
		got = append(got, s.Path)
	}
	// Equal averages fall back to label order.
	assert.Equal(t, []string{"GET /slow", "GET /a", "GET /b"}, got)
}

func TestRoutePath(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{"GET", "/admin", "GET /admin"},
		{"GET", "/play/5f0c1e52-8c1b-4a7e-9d0e-0b5b6f3c2a11", "GET /play/{id}"},
		{"DELETE", "/api/participants/5f0c1e52-8c1b-4a7e-9d0e-0b5b6f3c2a11/notes/2", "DELETE /api/participants/{id}/notes/2"},
		{"GET", "/admin/sessions/default", "GET /admin/sessions/default"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoutePath(tt.method, tt.path))
	}
}

// Event streams stay open for minutes and must not skew latency figures.
func TestCollector_StreamsAndErrors(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /api/sessions/{id}/events", StatusCode: 200, DurationMs: 600000, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /api/events/sessions", StatusCode: 200, DurationMs: 300000, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "POST /api/generate-image", StatusCode: 504, DurationMs: 55000, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /admin", StatusCode: 200, DurationMs: 4, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	assert.Equal(t, 2, snap.Streams)
	assert.Equal(t, 1, snap.ServerErrors)
	require.Len(t, snap.SlowestPaths, 2)
	assert.Equal(t, "POST /api/generate-image", snap.SlowestPaths[0].Path)
	assert.LessOrEqual(t, snap.RequestP99Ms, 55000.0)
}

func TestCollector_ConcurrentWrites(t *testing.T) {
	c := NewCollector(1000)
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Record(Entry{Kind: KindRequest, Path: "POST /api/participants", DurationMs: float64(n), Timestamp: now})
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1000, c.TotalRecorded())
}

func BenchmarkCollectorRecord_Parallel(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := Entry{Kind: KindRequest, Path: "GET /api/sessions/{id}/dashboard", StatusCode: 200, DurationMs: 1.5, Timestamp: time.Now()}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Record(e)
		}
	})
}

func BenchmarkCollectorSnapshot(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	now := time.Now()
	for i := 0; i < DefaultRingSize; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /api/sessions/{id}/dashboard", StatusCode: 200, DurationMs: float64(i % 100), Timestamp: now})
	}
	since := now.Add(-time.Hour)
	b.ReportAllocs()
	for b.Loop() {
		c.Snapshot(since, 10)
	}
}
