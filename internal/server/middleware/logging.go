// Package middleware provides HTTP server middleware.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// slowRequestThreshold marks requests worth a separate warning line.
// Pipeline runs block on provider timeouts, so this is generous.
const slowRequestThreshold = 30 * time.Second

// Logging returns a middleware that logs method, path, status and
// latency for every HTTP request, tagged with a request ID.
func Logging(logger log.Logger) middleware.Middleware {
	helper := log.NewHelper(logger)

	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				method    string
				path      string
				ip        string
				requestID string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				method = tr.Operation()
				path = tr.Operation()

				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
					if httpReq.URL.RawQuery != "" {
						path = path + "?" + httpReq.URL.RawQuery
					}
					ip = extractClientIP(httpReq)
					requestID = httpReq.Header.Get("X-Request-ID")
				}
			}
			if requestID == "" {
				requestID = generateRequestID()
			}

			reply, err := handler(ctx, req)

			duration := time.Since(startTime)
			status := 200
			if err != nil {
				status = int(kerrors.FromError(err).Code)
			}

			helper.Infow("http request",
				"request_id", requestID,
				"method", method,
				"path", path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"ip", ip,
			)

			if duration > slowRequestThreshold {
				helper.Warnw("slow request detected",
					"request_id", requestID,
					"method", method,
					"path", path,
					"duration_ms", duration.Milliseconds())
			}

			return reply, err
		}
	}
}

// extractClientIP picks the client address from proxy headers first.
// Priority: X-Real-IP > X-Forwarded-For > RemoteAddr
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	return req.RemoteAddr
}

// generateRequestID returns a short random hex identifier.
func generateRequestID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}
