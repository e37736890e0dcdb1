package httpapi

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"dungeond/pkg/types"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// logRequest records one request outcome at info level.
func logRequest(r *http.Request, msg string, status int, dur time.Duration) {
	if requestLogLevel(r) < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Int("status", status).Dur("dur", dur)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg(msg)
		return
	}
	log.Printf("%s path=%s status=%d dur=%s", msg, r.URL.Path, status, dur)
}

// logStreamRecord traces one NDJSON line of an event stream at debug level.
func logStreamRecord(rec types.StreamRecord) {
	if zlog == nil {
		if rec.Lagged > 0 {
			log.Printf("events> lagged=%d topic=%s", rec.Lagged, rec.Topic)
		} else if rec.Event != nil {
			log.Printf("events> topic=%s type=%s nonce=%d", rec.Event.Topic, rec.Event.Type, rec.Event.Nonce)
		}
		return
	}
	if rec.Lagged > 0 {
		zlog.Debug().Uint64("lagged", rec.Lagged).Str("topic", string(rec.Topic)).Msg("events")
		return
	}
	if rec.Event != nil {
		zlog.Debug().
			Str("topic", string(rec.Event.Topic)).
			Str("type", string(rec.Event.Type)).
			Uint64("nonce", rec.Event.Nonce).
			Msg("events")
	}
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("DUNGEOND_LOG_LEVEL"))

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}
