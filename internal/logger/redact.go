package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// secretKeys are field names that carry link or session credentials.
var secretKeys = map[string]bool{
	"access_token":       true,
	"refresh_token":      true,
	"token":              true,
	"token_hash":         true,
	"confirmation_token": true,
	"recovery_token":     true,
	"password":           true,
	"apikey":             true,
	"authorization":      true,
}

// redactCore masks string fields named in secretKeys, for fields added with
// With as well as those passed per entry.
type redactCore struct {
	zapcore.Core
}

func (c redactCore) With(fields []zapcore.Field) zapcore.Core {
	return redactCore{c.Core.With(redact(fields))}
}

func (c redactCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c redactCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(e, redact(fields))
}

// redact copies fields only when one of them needs masking.
func redact(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if f.Type != zapcore.StringType || !secretKeys[strings.ToLower(f.Key)] {
			continue
		}
		if out == nil {
			out = append([]zapcore.Field(nil), fields...)
		}
		out[i].String = MaskToken(f.String)
	}
	if out == nil {
		return fields
	}
	return out
}
