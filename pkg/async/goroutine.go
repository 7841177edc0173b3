package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// SafeGo executes a function in a goroutine with context cancellation,
// panic recovery, timeout enforcement, and error logging. Use this
// instead of a bare `go func()` for work spawned off request handlers,
// so a panic in background telemetry never crashes the process.
//
// Example:
//
//	SafeGo(r.Context(), 5*time.Second, "request telemetry", log, func(ctx context.Context) error {
//	    recorder.RecordAPIInvocation(name, ok, latency)
//	    return nil
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, log *logrus.Logger, fn func(context.Context) error) {
	if log == nil {
		log = logrus.New()
	}
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"task":  taskName,
					"panic": r,
				}).Errorf("panic in background task:\n%s", string(debug.Stack()))
			}
		}()

		if err := fn(ctx); err != nil {
			log.WithError(err).WithField("task", taskName).Error("background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return
// errors. Still provides panic recovery and context support.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, log *logrus.Logger, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, log, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
