package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/adamwoolhether/pakfetch/download"
	"github.com/adamwoolhether/pakfetch/metrics"
)

var _ download.Observer = (*metrics.Metrics)(nil)

func TestMetrics_Observer(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.Verified("a.pak", false)
	m.AttemptStarted("a.pak")
	m.AttemptFailed("a.pak", errors.New("reset"))
	m.AttemptStarted("a.pak")
	m.BytesWritten(512)
	m.BytesWritten(512)
	m.Verified("a.pak", true)
	m.EntryDone(false)
	m.EntryDone(true)
	m.ObserveBatch(3 * time.Second)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{name: "mismatches", c: m.Verifications.WithLabelValues("mismatch"), want: 1},
		{name: "matches", c: m.Verifications.WithLabelValues("match"), want: 1},
		{name: "attempts", c: m.Attempts, want: 2},
		{name: "failures", c: m.AttemptFailures, want: 1},
		{name: "bytes", c: m.Bytes, want: 1024},
		{name: "downloaded", c: m.Entries.WithLabelValues("downloaded"), want: 1},
		{name: "present", c: m.Entries.WithLabelValues("present"), want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tc.c); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}

	if n := testutil.CollectAndCount(m.BatchDuration); n != 1 {
		t.Errorf("batch duration series = %d, want 1", n)
	}
}

func TestMetrics_WatchSlots(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	inUse := 2
	m.WatchSlots(func() int { return inUse }, func() int { return 4 })

	const want = `
# HELP pakfetch_slots_in_use Admission slots currently held by transfers.
# TYPE pakfetch_slots_in_use gauge
pakfetch_slots_in_use 2
# HELP pakfetch_slots_limit Maximum number of concurrent transfers.
# TYPE pakfetch_slots_limit gauge
pakfetch_slots_limit 4
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "pakfetch_slots_in_use", "pakfetch_slots_limit"); err != nil {
		t.Error(err)
	}
}
