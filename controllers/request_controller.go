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

// RequestController handles mentor-request API endpoints
type RequestController struct {
	requests *services.RequestService
}

// NewRequestController creates a new request controller
func NewRequestController(requests *services.RequestService) *RequestController {
	return &RequestController{requests: requests}
}

// CreateRequest handles POST /requests
func (rc *RequestController) CreateRequest(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var body models.CreateRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	request, err := rc.requests.CreateRequest(ctx, body)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Mentor request created successfully",
		Data:    request,
	})
}

// GetRequests handles GET /requests?mentorId= / ?userId=
func (rc *RequestController) GetRequests(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if mentorIDHex := c.QueryParam("mentorId"); mentorIDHex != "" {
		mentorID, err := primitive.ObjectIDFromHex(mentorIDHex)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid mentor ID",
			})
		}
		requests, err := rc.requests.ListForMentor(ctx, mentorID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Mentor requests retrieved successfully",
			Data:    requests,
		})
	}

	if userIDHex := c.QueryParam("userId"); userIDHex != "" {
		userID, err := primitive.ObjectIDFromHex(userIDHex)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid user ID",
			})
		}
		requests, err := rc.requests.ListForUser(ctx, userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "User requests retrieved successfully",
			Data:    requests,
		})
	}

	return c.JSON(http.StatusBadRequest, models.Response{
		Status:  http.StatusBadRequest,
		Message: "mentorId or userId query parameter is required",
	})
}

// AcceptRequest handles PATCH /requests/:id/accept
func (rc *RequestController) AcceptRequest(c echo.Context) error {
	return rc.decide(c, models.RequestStatusAccepted)
}

// RejectRequest handles PATCH /requests/:id/reject
func (rc *RequestController) RejectRequest(c echo.Context) error {
	return rc.decide(c, models.RequestStatusRejected)
}

func (rc *RequestController) decide(c echo.Context, decision string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request ID",
		})
	}

	var request *models.MentorRequest
	if decision == models.RequestStatusAccepted {
		request, err = rc.requests.AcceptRequest(ctx, requestID)
	} else {
		request, err = rc.requests.RejectRequest(ctx, requestID)
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Mentor request " + decision,
		Data:    request,
	})
}

// DeleteRequest handles DELETE /requests/:id. Only the requesting user can
// withdraw, and only while the request is still pending.
func (rc *RequestController) DeleteRequest(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request ID",
		})
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	if err := rc.requests.DeletePending(ctx, requestID, userID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Mentor request withdrawn",
	})
}
