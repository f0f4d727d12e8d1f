package granola

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitProcessorCreated(_ *testing.T) {
	// Should not panic
	emitProcessorCreated(context.Background(), "application/bson", "TestType")
}

func TestEmitDecode(_ *testing.T) {
	ctx := context.Background()
	emitDecodeStart(ctx, "application/bson", "TestType")
	emitDecodeComplete(ctx, "application/bson", "TestType", 40, 2*time.Millisecond, 1, nil)
	emitDecodeComplete(ctx, "application/bson", "TestType", 3, time.Millisecond, 0, ErrTruncated)
}

func TestEmitEncode(_ *testing.T) {
	ctx := context.Background()
	emitEncodeStart(ctx, "application/json", "TestType")
	emitEncodeComplete(ctx, "application/json", "TestType", 128, time.Millisecond, 2, nil)
	emitEncodeComplete(ctx, "application/json", "TestType", 0, time.Millisecond, 0, errors.New("test error"))
}

func TestSignalVariables(t *testing.T) {
	signals := []struct {
		name   string
		signal any
	}{
		{"SignalProcessorCreated", SignalProcessorCreated},
		{"SignalDecodeStart", SignalDecodeStart},
		{"SignalDecodeComplete", SignalDecodeComplete},
		{"SignalEncodeStart", SignalEncodeStart},
		{"SignalEncodeComplete", SignalEncodeComplete},
	}
	for _, s := range signals {
		if s.signal == nil {
			t.Errorf("%s is nil", s.name)
		}
	}
}

func TestKeyVariables(t *testing.T) {
	keys := []struct {
		name string
		key  any
	}{
		{"KeyContentType", KeyContentType},
		{"KeyTypeName", KeyTypeName},
		{"KeySize", KeySize},
		{"KeyDuration", KeyDuration},
		{"KeyError", KeyError},
		{"KeyHashedCount", KeyHashedCount},
		{"KeyRedactedCount", KeyRedactedCount},
	}
	for _, k := range keys {
		if k.key == nil {
			t.Errorf("%s is nil", k.name)
		}
	}
}
