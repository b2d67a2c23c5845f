package progress

import (
	"testing"
	"time"
)

type fakeClient struct {
	descs      []string
	partials   []int
	steps      int
	successes  int
	failures   int
	loopPeriod time.Duration
}

func (f *fakeClient) Desc(printPrefix, desc string) { f.descs = append(f.descs, desc) }
func (f *fakeClient) Partial(total int, step int)   { f.partials = append(f.partials, step) }
func (f *fakeClient) Step()                         { f.steps++ }
func (f *fakeClient) Success()                      { f.successes++ }
func (f *fakeClient) Failure()                      { f.failures++ }
func (f *fakeClient) LoopWaitDuration() time.Duration {
	if f.loopPeriod == 0 {
		return time.Millisecond
	}
	return f.loopPeriod
}

func TestMultiStepReportsProgress(t *testing.T) {
	fc := &fakeClient{}
	Set(fc)

	p := MultiStep(3, "job", "running %s", "resize")
	p.Partial(1)
	p.Partial(2)
	p.Success()

	if len(fc.descs) != 1 || fc.descs[0] != "running resize" {
		t.Errorf("descs = %v", fc.descs)
	}
	if len(fc.partials) != 2 {
		t.Errorf("partials = %v", fc.partials)
	}
	if fc.successes != 1 {
		t.Errorf("successes = %d, want 1", fc.successes)
	}
}

func TestLoopStepsUntilDone(t *testing.T) {
	fc := &fakeClient{loopPeriod: time.Millisecond}
	Set(fc)

	p := NewLoop("scanning %s", "/dev/sda")
	time.Sleep(10 * time.Millisecond)
	p.Failure()

	if fc.steps == 0 {
		t.Error("expected at least one Step() call")
	}
	if fc.failures != 1 {
		t.Errorf("failures = %d, want 1", fc.failures)
	}
}
