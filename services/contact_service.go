package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

// ContactService creates the chat-routing records the messaging layer reads
// once a collaboration exists. The messaging layer itself is a separate
// service; this only binds the two parties.
type ContactService struct {
	DB *mongo.Database
}

// NewContactService creates a new contact service
func NewContactService(db *mongo.Database) *ContactService {
	return &ContactService{DB: db}
}

// Bind creates the two directional contact records between user and mentor.
// Upserts on the (ownerId, peerId) pair so a retried conversion does not
// produce duplicates.
func (s *ContactService) Bind(ctx context.Context, userID, mentorID, collaborationID primitive.ObjectID) error {
	now := time.Now()
	pairs := []struct{ owner, peer primitive.ObjectID }{
		{userID, mentorID},
		{mentorID, userID},
	}

	collection := s.DB.Collection("contacts")
	for _, p := range pairs {
		_, err := collection.UpdateOne(ctx,
			bson.M{"ownerId": p.owner, "peerId": p.peer},
			bson.M{
				"$set": bson.M{"collaborationId": collaborationID},
				"$setOnInsert": bson.M{
					"_id":       primitive.NewObjectID(),
					"ownerId":   p.owner,
					"peerId":    p.peer,
					"createdAt": now,
				},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to bind contact %s -> %s: %w", p.owner.Hex(), p.peer.Hex(), err)
		}
	}
	return nil
}

// ListForOwner returns a party's contact records, newest first
func (s *ContactService) ListForOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Contact, error) {
	cursor, err := s.DB.Collection("contacts").Find(ctx, bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	contacts := []models.Contact{}
	if err = cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}
	return contacts, nil
}
