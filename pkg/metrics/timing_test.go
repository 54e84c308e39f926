package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRecordStats(t *testing.T) {
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Errorf("expected count 2, got %d", s.Count)
	}
	if s.TotalMs != 6 || s.AvgMs != 3 || s.MaxMs != 4 || s.MinMs != 2 {
		t.Errorf("unexpected stats: %+v", s)
	}

	m.Reset()
	if m.Count() != 0 || m.Stats().MaxMs != 0 {
		t.Errorf("expected reset metric, got %+v", m.Stats())
	}
}

func TestConcurrentRecord(t *testing.T) {
	m := newTimingMetric("concurrent")
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(ms int) {
			defer wg.Done()
			m.Record(time.Duration(ms) * time.Millisecond)
		}(i)
	}
	wg.Wait()
	s := m.Stats()
	if s.Count != 50 || s.MaxMs != 50 || s.MinMs != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestDisabled(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(false)

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Millisecond)
	if m.Count() != 0 {
		t.Errorf("expected nothing recorded while disabled, got %d", m.Count())
	}
}

func TestTimerAndAllTimingStats(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(true)
	ResetAll()
	defer ResetAll()

	Timer(TreeBuild)()
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "tree_build" || stats[0].Count != 1 {
		t.Errorf("expected one tree_build measurement, got %+v", stats)
	}
}
