package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MentorRequest status values
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// MentorRequest model. A pending, unpaid booking proposal from a user to a
// mentor. Deleted once payment succeeds and a Collaboration replaces it; a
// rejected request is terminal and kept for history.
type MentorRequest struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MentorID     primitive.ObjectID `json:"mentorId" bson:"mentorId"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"`
	SelectedSlot SlotList           `json:"selectedSlot" bson:"selectedSlot"`
	Price        float64            `json:"price" bson:"price"`
	TimePeriod   int                `json:"timePeriod" bson:"timePeriod"` // engagement length in days
	Status       string             `json:"status" bson:"status"`         // "pending", "accepted", "rejected"
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreateRequestBody model for POST /requests
type CreateRequestBody struct {
	MentorID     string   `json:"mentorId" validate:"required"`
	UserID       string   `json:"userId" validate:"required"`
	SelectedSlot SlotList `json:"selectedSlot" validate:"required,min=1,dive"`
	Price        float64  `json:"price" validate:"required,gt=0"`
	TimePeriod   int      `json:"timePeriod" validate:"required,gt=0"`
}
