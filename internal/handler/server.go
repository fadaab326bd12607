package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/rs/zerolog"
)

// NewServer builds the echo server with every route registered. Any origin
// may call the API; the check-in route itself only accepts POST.
func NewServer(h *Handler, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType},
		AllowCredentials: true,
	}))
	e.Use(requestLogger(log))

	e.GET("/", h.Health)
	e.POST("/api/record", h.CheckIn)
	e.GET("/api/qr", h.GuestQR)
	e.POST("/record", h.RecordAttendance)
	e.GET("/records", h.ListAttendance)
	e.POST("/whatsapp", h.SendMessage)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("Request")
			return nil
		}
	}
}
