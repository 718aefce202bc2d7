package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact is a chat-routing record binding one participant to the other for
// messaging. Two records are created per collaboration, one per direction, so
// either party's inbox query is a single lookup on ownerId.
type Contact struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID         primitive.ObjectID `json:"ownerId" bson:"ownerId"`
	PeerID          primitive.ObjectID `json:"peerId" bson:"peerId"`
	CollaborationID primitive.ObjectID `json:"collaborationId" bson:"collaborationId"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
}
