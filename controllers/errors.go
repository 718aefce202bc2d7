package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
	"github.com/Nisha-Mashhood/connectsphere_backend/services"
)

// statusFor maps the scheduling core's error taxonomy onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrPaymentFailure):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrRefundPending):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c echo.Context, err error) error {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Storage errors carry internals the client has no use for
		message = "Internal server error"
	}
	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
	})
}
