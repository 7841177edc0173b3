package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSafeGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test task", logrus.New(), func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Task did not run")
	}
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel) // keep test output quiet

	panicked := make(chan struct{})
	SafeGo(context.Background(), time.Second, "panicking task", log, func(ctx context.Context) error {
		defer close(panicked)
		panic("boom")
	})

	select {
	case <-panicked:
	case <-time.After(2 * time.Second):
		t.Fatal("Task did not run")
	}
	// Reaching here without the test process dying is the assertion.
}

func TestSafeGo_TimeoutCancelsContext(t *testing.T) {
	cancelled := make(chan struct{})

	SafeGo(context.Background(), 20*time.Millisecond, "slow task", logrus.New(), func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return nil
	})

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("Context was not cancelled by the timeout")
	}
}

func TestSafeGo_LogsErrors(t *testing.T) {
	var ran atomic.Bool
	done := make(chan struct{})

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	SafeGo(context.Background(), time.Second, "failing task", log, func(ctx context.Context) error {
		ran.Store(true)
		close(done)
		return errors.New("task failed")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Task did not run")
	}
	if !ran.Load() {
		t.Error("Task should have run despite returning an error")
	}
}

func TestSafeGoNoError(t *testing.T) {
	done := make(chan struct{})

	SafeGoNoError(context.Background(), time.Second, "test task", nil, func(ctx context.Context) {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Task did not run")
	}
}
