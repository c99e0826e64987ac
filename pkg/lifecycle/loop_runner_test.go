package lifecycle

import (
	"testing"
	"time"
)

func TestLoopRunnerStartStop(t *testing.T) {
	t.Parallel()

	r := NewLoopRunner()
	exited := make(chan struct{})

	if !r.Start(func(stop <-chan struct{}) {
		<-stop
		close(exited)
	}) {
		t.Fatalf("first start returned false")
	}
	if !r.Running() {
		t.Fatalf("runner not reported running")
	}
	if r.Start(func(<-chan struct{}) {}) {
		t.Fatalf("second start must be rejected while running")
	}

	if !r.Stop() {
		t.Fatalf("stop returned false for a running loop")
	}
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatalf("stop returned before the loop exited")
	}
	if r.Running() {
		t.Fatalf("runner still reported running after stop")
	}
	if r.Stop() {
		t.Fatalf("second stop must report nothing was running")
	}
}

func TestLoopRunnerRejectsNilLoop(t *testing.T) {
	t.Parallel()

	r := NewLoopRunner()
	if r.Start(nil) {
		t.Fatalf("nil loop accepted")
	}
}

func TestLoopRunnerRestarts(t *testing.T) {
	t.Parallel()

	r := NewLoopRunner()
	for i := 0; i < 3; i++ {
		ran := make(chan struct{})
		if !r.Start(func(stop <-chan struct{}) {
			close(ran)
			<-stop
		}) {
			t.Fatalf("start %d returned false", i)
		}
		<-ran
		r.Stop()
	}
}
