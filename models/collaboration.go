package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequesterRole identifies which party raised a schedule-change sub-request
type RequesterRole string

const (
	RoleUser   RequesterRole = "user"
	RoleMentor RequesterRole = "mentor"
)

// Valid reports whether the role is one of the two known parties
func (r RequesterRole) Valid() bool {
	return r == RoleUser || r == RoleMentor
}

// Counterpart returns the party that must approve a sub-request raised by r
func (r RequesterRole) Counterpart() RequesterRole {
	if r == RoleUser {
		return RoleMentor
	}
	return RoleUser
}

// Approval states for schedule-change sub-requests. Pending is the only
// non-terminal state: a resolved sub-request is never resolved again.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Refund states for a cancelled collaboration
const (
	RefundStatusRefunded = "refunded"
	RefundStatusPending  = "refund_pending"
)

// Schedule-change request types, used to pick the sub-request array
const (
	ChangeTypeUnavailable = "unavailable"
	ChangeTypeTimeSlot    = "timeSlot"
)

// DateAndReason is one unavailable date with its stated reason
type DateAndReason struct {
	Date   time.Time `json:"date" bson:"date"`
	Reason string    `json:"reason" bson:"reason"`
}

// DateAndNewSlots proposes replacement time slots for one date
type DateAndNewSlots struct {
	Date         time.Time `json:"date" bson:"date"`
	NewTimeSlots []string  `json:"newTimeSlots" bson:"newTimeSlots"`
}

// UnavailableDayRequest marks specific dates as unavailable, pending approval
// by the counterparty. Approval extends the collaboration's end date by the
// number of dates covered.
type UnavailableDayRequest struct {
	ID              primitive.ObjectID `json:"id" bson:"_id"`
	DatesAndReasons []DateAndReason    `json:"datesAndReasons" bson:"datesAndReasons"`
	RequestedBy     RequesterRole      `json:"requestedBy" bson:"requestedBy"`
	RequesterID     primitive.ObjectID `json:"requesterId" bson:"requesterId"`
	ApprovedByID    primitive.ObjectID `json:"approvedById" bson:"approvedById"`
	IsApproved      string             `json:"isApproved" bson:"isApproved"` // "pending", "approved", "rejected"
	Seq             int64              `json:"seq" bson:"seq"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	ResolvedAt      *time.Time         `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

// TemporarySlotChangeRequest proposes alternate time slots for specific dates,
// pending approval by the counterparty. Approval never moves the end date.
type TemporarySlotChangeRequest struct {
	ID               primitive.ObjectID `json:"id" bson:"_id"`
	DatesAndNewSlots []DateAndNewSlots  `json:"datesAndNewSlots" bson:"datesAndNewSlots"`
	RequestedBy      RequesterRole      `json:"requestedBy" bson:"requestedBy"`
	RequesterID      primitive.ObjectID `json:"requesterId" bson:"requesterId"`
	ApprovedByID     primitive.ObjectID `json:"approvedById" bson:"approvedById"`
	IsApproved       string             `json:"isApproved" bson:"isApproved"`
	Seq              int64              `json:"seq" bson:"seq"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	ResolvedAt       *time.Time         `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

// Collaboration model. An active, paid engagement between a user and a mentor.
// The collaboration exclusively owns its sub-request arrays; cancellation is
// terminal but the document stays queryable for history and receipts.
type Collaboration struct {
	ID                   primitive.ObjectID           `json:"id,omitempty" bson:"_id,omitempty"`
	MentorID             primitive.ObjectID           `json:"mentorId" bson:"mentorId"`
	UserID               primitive.ObjectID           `json:"userId" bson:"userId"`
	SourceRequestID      primitive.ObjectID           `json:"sourceRequestId,omitempty" bson:"sourceRequestId,omitempty"`
	SelectedSlot         SlotList                     `json:"selectedSlot" bson:"selectedSlot"`
	Price                float64                      `json:"price" bson:"price"`
	PaymentRef           string                       `json:"paymentRef,omitempty" bson:"paymentRef,omitempty"`
	StartDate            time.Time                    `json:"startDate" bson:"startDate"`
	EndDate              *time.Time                   `json:"endDate,omitempty" bson:"endDate,omitempty"` // nil = open-ended
	IsCancelled          bool                         `json:"isCancelled" bson:"isCancelled"`
	CancelReason         string                       `json:"cancelReason,omitempty" bson:"cancelReason,omitempty"`
	RefundAmount         float64                      `json:"refundAmount,omitempty" bson:"refundAmount,omitempty"`
	RefundStatus         string                       `json:"refundStatus,omitempty" bson:"refundStatus,omitempty"`
	FeedbackGiven        bool                         `json:"feedbackGiven" bson:"feedbackGiven"`
	ChangeSeq            int64                        `json:"-" bson:"changeSeq"`
	UnavailableDays      []UnavailableDayRequest      `json:"unavailableDays" bson:"unavailableDays"`
	TemporarySlotChanges []TemporarySlotChangeRequest `json:"temporarySlotChanges" bson:"temporarySlotChanges"`
	CreatedAt            time.Time                    `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time                    `json:"updatedAt" bson:"updatedAt"`
}

// UnavailableDaysBody model for PATCH /collaborations/:id/unavailable-days
type UnavailableDaysBody struct {
	DatesAndReasons []DateAndReason `json:"datesAndReasons" validate:"required,min=1,dive"`
	RequestedBy     RequesterRole   `json:"requestedBy" validate:"required,oneof=user mentor"`
	RequesterID     string          `json:"requesterId" validate:"required"`
	ApprovedByID    string          `json:"approvedById" validate:"required"`
}

// TemporarySlotChangeBody model for PATCH /collaborations/:id/temporary-slots
type TemporarySlotChangeBody struct {
	DatesAndNewSlots []DateAndNewSlots `json:"datesAndNewSlots" validate:"required,min=1,dive"`
	RequestedBy      RequesterRole     `json:"requestedBy" validate:"required,oneof=user mentor"`
	RequesterID      string            `json:"requesterId" validate:"required"`
	ApprovedByID     string            `json:"approvedById" validate:"required"`
}

// ResolveChangeBody model for PATCH /collaborations/:id/approve
type ResolveChangeBody struct {
	RequestID   string `json:"requestId" validate:"required"`
	IsApproved  string `json:"isApproved" validate:"required,oneof=approved rejected"`
	RequestType string `json:"requestType" validate:"required,oneof=unavailable timeSlot"`
}

// CancelCollaborationBody model for PATCH /collaborations/:id/cancel
type CancelCollaborationBody struct {
	Reason string  `json:"reason" validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}
