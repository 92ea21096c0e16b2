package utils

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// RecoverFn handles a recovered panic.
type RecoverFn func(r interface{}, stack []byte)

func logPanic(log *zap.Logger, msg string, r interface{}, stack []byte) {
	if log == nil {
		log = logger.Log
	}
	if log == nil {
		fmt.Fprintf(os.Stderr, "[PANIC] %s: %v\n%s\n", msg, r, stack)
		return
	}
	log.Error("[panic] "+msg, zap.Any("panic", r), zap.ByteString("stack", stack))
}

// SafeGo runs fn in a goroutine. A panic is passed to onPanic, or logged when onPanic is nil.
func SafeGo(fn func(), onPanic RecoverFn) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				if onPanic != nil {
					onPanic(r, stack)
					return
				}
				logPanic(nil, "Recovered from panic in goroutine", r, stack)
			}
		}()
		fn()
	}()
}

// RecoverWithLog must be deferred directly. It logs a panic raised during operation and swallows it.
func RecoverWithLog(ctx context.Context, operation string) {
	if r := recover(); r != nil {
		logPanic(logger.FromContext(ctx), "Recovered from panic during "+operation, r, debug.Stack())
	}
}

// WrapWithContextRecovery turns a panic in fn into an error.
func WrapWithContextRecovery(fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger.FromContext(ctx), "Recovered from panic", r, debug.Stack())
				err = fmt.Errorf("panic recovered: %v", r)
			}
		}()
		return fn(ctx)
	}
}
