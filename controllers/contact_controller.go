package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Nisha-Mashhood/connectsphere_backend/middleware"
	"github.com/Nisha-Mashhood/connectsphere_backend/models"
	"github.com/Nisha-Mashhood/connectsphere_backend/services"
)

// ContactController exposes the chat-routing records bound when a
// collaboration is created
type ContactController struct {
	contacts *services.ContactService
}

// NewContactController creates a new contact controller
func NewContactController(contacts *services.ContactService) *ContactController {
	return &ContactController{contacts: contacts}
}

// ListContacts handles GET /contacts, returning the authenticated party's
// contact records
func (cc *ContactController) ListContacts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	ownerID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	contacts, err := cc.contacts.ListForOwner(ctx, ownerID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Contacts retrieved successfully",
		Data:    contacts,
	})
}
