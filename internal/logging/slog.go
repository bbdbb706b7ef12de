package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
)

// Attribute keys.
const (
	KeyOperation  = "operation"
	KeyTool       = "tool"
	KeyLocale     = "locale"
	KeyCallerHash = "caller_hash"
	KeySession    = "session_hash"
	KeyStatus     = "status"
	KeyStatusCode = "status_code"
	KeyBody       = "body"
	KeyError      = "error"
)

// maxBodyLen bounds response bodies copied into log records.
const maxBodyLen = 2048

// New returns a text logger writing to w, at debug level when debug is set.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

func Locale(name string) slog.Attr {
	return slog.String(KeyLocale, name)
}

func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// StatusCode is the HTTP status returned by a remote service. Zero means the
// request never got a response.
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Body is a remote response body, truncated.
func Body(body string) slog.Attr {
	if len(body) > maxBodyLen {
		body = body[:maxBodyLen] + "...(truncated)"
	}
	return slog.String(KeyBody, body)
}

// Err returns an error attribute. A nil error yields an empty group, which slog
// omits, so Err(maybeNil) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeCaller hashes a caller reference so log lines of one caller can be
// correlated without exposing the number.
func AnonymizeCaller(ref string) string {
	if ref == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(ref))
	return "caller:" + hex.EncodeToString(hash[:8])
}

func CallerHash(ref string) slog.Attr {
	return slog.String(KeyCallerHash, AnonymizeCaller(ref))
}

// Session hashes a session name. Session names embed the caller number.
func Session(name string) slog.Attr {
	return slog.String(KeySession, AnonymizeCaller(name))
}
