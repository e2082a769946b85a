package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"psbroker/internal/stats"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestMirrorSnapshotTracksDeltas(t *testing.T) {
	r := NewRegistry()

	r.MirrorSnapshot(stats.Snapshot{ConnectedClients: 2, PubOperations: 3, SubOperations: 1})
	if got := counterValue(t, r.PubOperations); got != 3 {
		t.Fatalf("expected pub counter at 3, got %v", got)
	}
	if got := counterValue(t, r.ConnectedClients); got != 2 {
		t.Fatalf("expected connected gauge at 2, got %v", got)
	}

	r.MirrorSnapshot(stats.Snapshot{ConnectedClients: 1, PubOperations: 5, SubOperations: 1})
	if got := counterValue(t, r.PubOperations); got != 5 {
		t.Fatalf("expected pub counter at 5 after delta, got %v", got)
	}
	if got := counterValue(t, r.SubOperations); got != 1 {
		t.Fatalf("expected sub counter unchanged at 1, got %v", got)
	}
}
