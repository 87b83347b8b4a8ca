package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request with status, latency and
// response size.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()
			log.Printf("%s %s status=%d bytes=%d latency=%s remote=%s",
				req.Method,
				req.RequestURI,
				res.Status,
				res.Size,
				time.Since(start),
				c.RealIP(),
			)

			return err
		}
	}
}
