// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model. Authentication and profile management live in a separate
// service; the scheduling core only reads identity and contact fields.
type User struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	FullName  string             `json:"fullName" bson:"fullName"`
	UserType  string             `json:"userType" bson:"userType"` // "user", "mentor", "admin"
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Mentor model. A mentor profile attached to a user account.
type Mentor struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId"`
	Specialization string             `json:"specialization,omitempty" bson:"specialization,omitempty"`
	Bio            string             `json:"bio,omitempty" bson:"bio,omitempty"`
	IsApproved     bool               `json:"isApproved" bson:"isApproved"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
