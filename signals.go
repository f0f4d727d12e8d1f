package granola

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for processor events.
var (
	SignalProcessorCreated = capitan.NewSignal("granola.processor.created", "Processor instantiated")
	SignalDecodeStart      = capitan.NewSignal("granola.decode.start", "Decode operation beginning")
	SignalDecodeComplete   = capitan.NewSignal("granola.decode.complete", "Decode operation finished")
	SignalEncodeStart      = capitan.NewSignal("granola.encode.start", "Encode operation beginning")
	SignalEncodeComplete   = capitan.NewSignal("granola.encode.complete", "Encode operation finished")
)

// Keys for typed event data.
var (
	KeyContentType   = capitan.NewStringKey("content_type")
	KeyTypeName      = capitan.NewStringKey("type_name")
	KeySize          = capitan.NewIntKey("size")
	KeyDuration      = capitan.NewDurationKey("duration")
	KeyError         = capitan.NewErrorKey("error")
	KeyHashedCount   = capitan.NewIntKey("hashed_count")
	KeyRedactedCount = capitan.NewIntKey("redacted_count")
)

func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

func emitDecodeStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalDecodeStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

func emitEncodeStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalEncodeStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitDecodeComplete reports a finished decode; size is the input length.
func emitDecodeComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, hashed int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyHashedCount.Field(hashed),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecodeComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalDecodeComplete, fields...)
}

// emitEncodeComplete reports a finished encode; size is the output length.
func emitEncodeComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, redacted int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyRedactedCount.Field(redacted),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncodeComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalEncodeComplete, fields...)
}
