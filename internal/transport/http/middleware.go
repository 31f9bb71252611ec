package httptransport

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"duel-session/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

// APILogMiddleware logs one JSON line per request through httplog. The
// websocket join code is attached when present.
func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				attrs := []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", routePattern(req)),
				}
				if code := req.URL.Query().Get("session"); code != "" {
					attrs = append(attrs, slog.String("session_code", code))
				}
				if code := chi.URLParam(req, "code"); code != "" {
					attrs = append(attrs, slog.String("session_code", code))
				}
				return attrs
			},
		},
	)
}

func routePattern(req *http.Request) string {
	if rc := chi.RouteContext(req.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return req.URL.Path
}

const maxAdminBody = 64 << 10

// BodyCaptureMiddleware attaches the admin request body and the start of
// the response to the request log. Streams pass through untouched.
func BodyCaptureMiddleware(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStreamRequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			reqBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAdminBody))
			if err != nil {
				WriteHTTPError(w, http.StatusRequestEntityTooLarge, "body_too_large")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(reqBody))

			tw := &teeWriter{ResponseWriter: w, limit: limit}
			next.ServeHTTP(tw, r)

			httplog.SetAttrs(r.Context(),
				slog.Any("request_body", parseMaybeJSON(truncate(reqBody, limit))),
				slog.Any("response_body", parseMaybeJSON(tw.buf.Bytes())),
				slog.Bool("request_body_truncated", len(reqBody) > limit),
				slog.Bool("response_body_truncated", tw.truncated),
			)
		})
	}
}

// teeWriter keeps up to limit bytes of the response.
type teeWriter struct {
	http.ResponseWriter
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (t *teeWriter) Write(p []byte) (int, error) {
	room := t.limit - t.buf.Len()
	switch {
	case room >= len(p):
		t.buf.Write(p)
	case room > 0:
		t.buf.Write(p[:room])
		t.truncated = true
	default:
		t.truncated = len(p) > 0 || t.truncated
	}
	return t.ResponseWriter.Write(p)
}

func (t *teeWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func parseMaybeJSON(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var out any
	if err := json.Unmarshal(b, &out); err == nil {
		return out
	}
	return string(b)
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

// AdminAuthMiddleware guards admin routes. An empty key leaves them open,
// which is only meant for local runs.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !CheckAdminAuth(r, adminKey) {
				metricAdminUnauthorized.Add(1)
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckAdminAuth accepts the key in X-Admin-Key or as a bearer token.
func CheckAdminAuth(r *http.Request, adminKey string) bool {
	got := r.Header.Get("X-Admin-Key")
	if got == "" {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			return false
		}
		got = token
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(adminKey)) == 1
}

// ParsePagination reads limit/offset, clamping limit to [1, ceiling] and
// defaulting it to def.
func ParsePagination(r *http.Request, def, ceiling int) (int, int) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = def
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	limit = min(max(limit, 1), ceiling)
	return limit, offset
}

// isStreamRequest reports long-lived requests whose bodies must not be
// buffered.
func isStreamRequest(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
