package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Gruvbox-ish palette (warm, muted, easy on eyes)
const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"

	colorFg     = "\x1b[38;5;223m" // soft cream
	colorTime   = "\x1b[38;5;108m" // muted cyan-green
	colorKey    = "\x1b[38;5;109m" // soft blue
	colorNumber = "\x1b[38;5;175m" // muted purple
	colorWarn   = "\x1b[38;5;214m" // soft yellow
	colorWarnBg = "\x1b[48;5;58m"
	colorErr    = "\x1b[38;5;167m" // warm red
	colorErrBg  = "\x1b[48;5;88m"
)

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  Pass complete  routes=12 types=7 duration_ms=84"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
}

func newMinimalEncoder() *minimalEncoder {
	// Base JSON encoder handles field serialization we don't render ourselves
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: enc.Encoder.Clone()}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only shown for WARN and above
	if lvl := levelColorString(ent.Level); lvl != "" {
		final.AppendString("  ")
		final.AppendString(lvl)
	}

	final.AppendString("  ")
	final.AppendString(colorFg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if len(fields) > 0 {
		final.AppendString("  ")
		final.AppendString(renderFields(fields))
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for WARN/ERROR
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return colorBold + colorWarnBg + colorWarn + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + colorErrBg + colorErr + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + colorErrBg + colorErr + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// fieldValue extracts the value from a zap field, handling the common field types
func fieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.BoolType:
		if field.Integer == 1 {
			return "true"
		}
		return "false"
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// renderFields formats structured fields as "key=value" pairs with muted keys
func renderFields(fields []zapcore.Field) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		val := fieldValue(field)
		if val == "" {
			continue
		}
		parts = append(parts, colorKey+field.Key+colorReset+"="+colorNumber+val+colorReset)
	}
	return strings.Join(parts, " ")
}
