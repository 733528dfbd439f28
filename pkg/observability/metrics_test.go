package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aretw0/storychain/pkg/domain"
)

func TestMetrics_Hooks(t *testing.T) {
	m := NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnEpochEnd(ctx, &domain.EpochEvent{Epoch: 0, NodeID: "root"})
	hooks.OnEpochEnd(ctx, &domain.EpochEvent{Epoch: 1, NodeID: "node_1"})
	hooks.OnEpochEnd(ctx, &domain.EpochEvent{Epoch: 2, Err: errors.New("boom")})

	hooks.OnInferenceEnd(ctx, &domain.InferenceEvent{Duration: 2 * time.Second})
	hooks.OnInferenceEnd(ctx, &domain.InferenceEvent{Duration: time.Second, Err: errors.New("down")})

	hooks.OnNodeAppended(ctx, &domain.EpochEvent{NodeID: "root"})
	hooks.OnNodeAppended(ctx, &domain.EpochEvent{NodeID: "node_1"})

	if got := testutil.ToFloat64(m.epochsTotal.WithLabelValues("completed")); got != 2 {
		t.Errorf("epochs completed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.epochsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("epochs failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inferenceAttempts.WithLabelValues("ok")); got != 1 {
		t.Errorf("attempts ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inferenceAttempts.WithLabelValues("error")); got != 1 {
		t.Errorf("attempts error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.nodesTotal); got != 2 {
		t.Errorf("nodes = %v, want 2", got)
	}

	// The histogram saw both attempts.
	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var sampleCount uint64
	for _, fam := range families {
		if fam.GetName() == "storychain_inference_duration_seconds" {
			sampleCount = fam.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	if sampleCount != 2 {
		t.Errorf("duration samples = %d, want 2", sampleCount)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Hooks().OnNodeAppended(context.Background(), &domain.EpochEvent{NodeID: "root"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "storychain_nodes_total 1") {
		t.Errorf("metrics output missing node counter:\n%s", body)
	}
}

func TestMetrics_PrivateRegistries(t *testing.T) {
	// Two instances must register without panicking on duplicates.
	a := NewMetrics()
	b := NewMetrics()
	if a.Registry() == b.Registry() {
		t.Error("instances share a registry")
	}
}
