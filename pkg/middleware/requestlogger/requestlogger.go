// Package requestlogger logs completed API requests and records their latency.
package requestlogger

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carbon-ledger/token-sync/pkg/errorhandler"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/middleware/requestcontext"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Config struct {
	WithRequestHeader    bool     `mapstructure:"request_header"`
	WithRequestQuery     bool     `mapstructure:"request_query"`
	Disable              bool     `mapstructure:"disable"` // Disable logs of successful requests
	HiddenRequestHeaders []string `mapstructure:"hidden_request_headers"`
}

var metricRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "tokensync",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "Duration of API requests",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

func New(config Config) fiber.Handler {
	hiddenRequestHeaders := make(map[string]struct{}, len(config.HiddenRequestHeaders))
	for _, header := range config.HiddenRequestHeaders {
		hiddenRequestHeaders[strings.TrimSpace(strings.ToLower(header))] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		// the error handler has not written the response yet
		status := c.Response().StatusCode()
		if err != nil {
			status = errorhandler.StatusCode(err)
		}
		metricRequestDuration.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Observe(latency.Seconds())

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		if config.Disable && level == slog.LevelInfo {
			return errors.WithStack(err)
		}

		request := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", c.Route().Path),
			slog.String("ip", c.IP()),
			slog.String("request_id", requestcontext.GetRequestId(c.UserContext())),
			slog.String("user_agent", string(c.Context().UserAgent())),
		}
		if config.WithRequestQuery {
			request = append(request, slog.String("query", string(c.Request().URI().QueryString())))
		}
		if config.WithRequestHeader {
			var headers []any
			for k, v := range c.GetReqHeaders() {
				if _, hidden := hiddenRequestHeaders[strings.ToLower(k)]; hidden {
					continue
				}
				headers = append(headers, slog.Any(k, v))
			}
			request = append(request, slog.Group("header", headers...))
		}

		attrs := []slog.Attr{
			slog.String("event", "api_request"),
			slog.Group("request", request...),
			slog.Int("status", status),
			slog.Int64("latency", latency.Milliseconds()),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(c.UserContext(), level, "Request completed", attrs...)
		return errors.WithStack(err)
	}
}
