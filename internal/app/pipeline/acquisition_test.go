package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dorsic/sr620/internal/domain"
	"github.com/dorsic/sr620/internal/ports"
)

func TestRunAcquisitionRecoverableErrorsDropSamples(t *testing.T) {
	fatal := errors.New("port vanished")
	smp := &scriptSampler{steps: []step{
		{value: "1.0E7"},
		{err: ports.ErrReadTimeout},
		{err: fmt.Errorf("%w: %q", ports.ErrMalformed, "ERR 40")},
		{value: "2.0E7"},
		{err: fatal},
	}}
	router := &recordingRouter{}
	obs := &mockObs{}

	err := RunAcquisition(context.Background(), smp, router, obs)
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal channel error, got %v", err)
	}

	if len(router.records) != 2 {
		t.Fatalf("expected 2 routed records, got %d", len(router.records))
	}
	if router.records[0].Value != "1.0E7" || router.records[1].Value != "2.0E7" {
		t.Fatalf("unexpected routed values %+v", router.records)
	}
	for _, rec := range router.records {
		if rec.Timestamp.IsZero() || rec.Timestamp.Location() != time.UTC {
			t.Fatalf("expected UTC receipt timestamps, got %v", rec.Timestamp)
		}
	}

	if obs.counters["sr620_read_timeouts_total"] != 1 {
		t.Fatalf("expected 1 timeout counted, got %v", obs.counters)
	}
	if obs.counters["sr620_malformed_responses_total"] != 1 {
		t.Fatalf("expected 1 malformed counted, got %v", obs.counters)
	}
	if obs.counters["sr620_samples_recorded_total"] != 2 {
		t.Fatalf("expected 2 samples counted, got %v", obs.counters)
	}
	if len(obs.criticals) != 1 {
		t.Fatalf("expected the fatal error to be logged critically")
	}
}

func TestRunAcquisitionAppendFailureContinues(t *testing.T) {
	smp := &scriptSampler{steps: []step{
		{value: "1.0E7"},
		{value: "2.0E7"},
		{err: errors.New("stop")},
	}}
	router := &recordingRouter{failFirst: true}
	obs := &mockObs{}

	_ = RunAcquisition(context.Background(), smp, router, obs)

	if len(router.records) != 1 {
		t.Fatalf("expected the second record to be routed, got %d", len(router.records))
	}
	if obs.counters["sr620_append_errors_total"] != 1 {
		t.Fatalf("expected 1 append error counted, got %v", obs.counters)
	}
	if obs.counters["sr620_samples_recorded_total"] != 1 {
		t.Fatalf("expected 1 sample counted, got %v", obs.counters)
	}
}

func TestRunAcquisitionStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	smp := &scriptSampler{blockOn: ctx, steps: []step{{value: "1.0E7"}}}
	router := &recordingRouter{}
	obs := &mockObs{}

	done := make(chan error, 1)
	go func() { done <- RunAcquisition(ctx, smp, router, obs) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cooperative shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("acquisition did not stop after cancel")
	}
}

type step struct {
	value string
	err   error
}

type scriptSampler struct {
	steps   []step
	blockOn context.Context
}

func (s *scriptSampler) ReadValue(ctx context.Context) (string, error) {
	if len(s.steps) == 0 {
		if s.blockOn != nil {
			<-s.blockOn.Done()
			return "", s.blockOn.Err()
		}
		return "", errors.New("script exhausted")
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st.value, st.err
}

func (s *scriptSampler) Close() error { return nil }

type recordingRouter struct {
	records   []domain.Record
	failFirst bool
}

func (r *recordingRouter) Route(rec domain.Record) error {
	if r.failFirst {
		r.failFirst = false
		return errors.New("disk full")
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingRouter) ActivePath() string { return "" }
func (r *recordingRouter) Close() error       { return nil }

type mockObs struct {
	counters  map[string]float64
	gauges    map[string]float64
	errors    []error
	criticals []error
}

func (m *mockObs) LogInfo(string, ...ports.Field) {}

func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.errors = append(m.errors, err)
}

func (m *mockObs) LogCritical(_ string, err error, _ ...ports.Field) {
	m.criticals = append(m.criticals, err)
}

func (m *mockObs) IncCounter(name string, v float64) {
	if m.counters == nil {
		m.counters = make(map[string]float64)
	}
	m.counters[name] += v
}

func (m *mockObs) SetGauge(name string, v float64) {
	if m.gauges == nil {
		m.gauges = make(map[string]float64)
	}
	m.gauges[name] = v
}

func (m *mockObs) ObserveLatency(string, float64) {}
