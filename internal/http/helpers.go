package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

// authHeader carries the caller identity. Requests without it are
// rejected before any handler runs.
const authHeader = "X-Auth-Username"

// username returns the authenticated caller set by the auth middleware.
func username(r *http.Request) string {
	return r.Header.Get(authHeader)
}

// queryMonth reads the month parameter, defaulting to the current
// calendar month.
func queryMonth(r *http.Request, now func() time.Time) string {
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		return v
	}
	return now().UTC().Format("2006-01")
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	t, err := core.ParseDay(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// queryInt parses an optional integer query parameter, falling back to
// def on absence or garbage.
func queryInt(r *http.Request, name string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryBool treats "true" and "1" as set.
func queryBool(r *http.Request, name string) bool {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	return v == "true" || v == "1"
}

// parseBodyDate parses an optional YYYY-MM-DD string from a JSON body.
// Empty means "not provided".
func parseBodyDate(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	return core.ParseDay(v)
}

// clientIP extracts the caller address, preferring forwarding headers
// set by a reverse proxy.
func clientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		parts := strings.Split(v, ",")
		return strings.TrimSpace(parts[0])
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return v
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
