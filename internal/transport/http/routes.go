package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h *BookingHandler) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/v1")
	v1.POST("/appointments", h.Book)
	v1.GET("/appointments/:id", h.Get)
	v1.POST("/appointments/:id/reschedule", h.Reschedule)
	v1.PATCH("/appointments/:id/status", h.TransitionStatus)
	v1.DELETE("/appointments/:id", h.Delete)

	v1.GET("/stylists", h.ListStylists)
	v1.GET("/stylists/:id/schedule", h.Schedule)
	v1.GET("/services", h.ListServices)
}
