package server

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// CustomRequestLogger creates a custom request logger middleware
func CustomRequestLogger(sugar *zap.SugaredLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			method := c.Request().Method
			sugar.Infof("HTTP Request: method=%s%s%s, uri=%s%s%s, status=%s%s%s, latency=%s%s%s, ip=%s%s%s",
				methodColor(method), method, "\x1b[0m",
				"\x1b[35m", v.URI, "\x1b[0m",
				statusColor(v.Status), strconv.Itoa(v.Status), "\x1b[0m",
				"\x1b[37m", v.Latency.String(), "\x1b[0m",
				"\x1b[37m", c.RealIP(), "\x1b[0m",
			)
			return nil
		},
	})
}

func statusColor(status int) string {
	switch {
	case status >= 500:
		return "\x1b[31m" // Red
	case status >= 400:
		return "\x1b[33m" // Yellow
	case status >= 300:
		return "\x1b[36m" // Cyan
	default:
		return "\x1b[32m" // Green
	}
}

func methodColor(method string) string {
	switch method {
	case "GET":
		return "\x1b[32m" // Green
	case "POST":
		return "\x1b[33m" // Yellow
	case "PUT":
		return "\x1b[36m" // Cyan
	case "DELETE":
		return "\x1b[31m" // Red
	default:
		return "\x1b[37m" // White
	}
}
