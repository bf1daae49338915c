package logger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func resetLogger() {
	log = nil
	once = sync.Once{}
}

func TestGetLoggerBeforeInitIsNop(t *testing.T) {
	resetLogger()
	t.Cleanup(resetLogger)

	if GetLogger() == nil {
		t.Fatal("expected nop logger before init")
	}
	Info(context.Background(), "dropped")
}

func TestInitAndContextLogging(t *testing.T) {
	resetLogger()
	t.Cleanup(resetLogger)
	Init("development")
	if GetLogger() == nil {
		t.Fatal("expected logger initialized")
	}

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, CorrelationIDKey, "corr-1")
	ctx = WithOperationID(ctx, "op-1")
	if WithContext(ctx) == nil {
		t.Fatal("expected contextual logger")
	}

	Info(ctx, "info")
	Debug(ctx, "debug")
	Warn(ctx, "warn")
	Error(ctx, "error")
	SetLevel(zapcore.WarnLevel)
}

func TestWithContextNil(t *testing.T) {
	resetLogger()
	t.Cleanup(resetLogger)
	Init("development")
	//nolint:staticcheck // nil context is tolerated on purpose
	if WithContext(nil) == nil {
		t.Fatal("expected base logger for nil context")
	}
}

func TestInit_ProductionAndWithContextWithoutFields(t *testing.T) {
	resetLogger()
	t.Cleanup(resetLogger)

	Init("production")
	if GetLogger() == nil {
		t.Fatal("expected production logger initialized")
	}
	if WithContext(context.Background()) == nil {
		t.Fatal("expected logger without contextual fields")
	}
}

func TestInit_PanicWhenLoggerBuildFails(t *testing.T) {
	resetLogger()
	origBuild := buildLogger
	t.Cleanup(func() {
		buildLogger = origBuild
		resetLogger()
	})

	buildLogger = func(zap.Config) (*zap.Logger, error) {
		return nil, errors.New("build failed")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when logger builder fails")
		}
	}()
	Init("production")
}
