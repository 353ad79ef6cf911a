package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// ClientIPFunc returns the client address recorded for a request.
type ClientIPFunc func(r *http.Request) string

// HTTPRequests logs one line per request and puts a request scoped logger on
// the context, retrievable with zerolog.Ctx.
type HTTPRequests struct {
	logger   zerolog.Logger
	clientIP ClientIPFunc
}

func NewHTTPRequests(logger zerolog.Logger, clientIP ClientIPFunc) *HTTPRequests {
	return &HTTPRequests{logger: logger, clientIP: clientIP}
}

func (h *HTTPRequests) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		lc := h.logger.With().
			Str("method", r.Method).
			Str("path", r.URL.Path)
		if h.clientIP != nil {
			lc = lc.Str("addr", h.clientIP(r))
		}
		ctx := lc.Logger().WithContext(r.Context())

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		var event *zerolog.Event
		switch {
		case rec.status >= 500:
			event = zerolog.Ctx(ctx).Error()
		case rec.status >= 400:
			event = zerolog.Ctx(ctx).Warn()
		default:
			event = zerolog.Ctx(ctx).Info()
		}

		event.
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(started)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
