// config/db.go
package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB establishes connection to MongoDB
func ConnectDB() *mongo.Client {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}

	if mongoURI == "" {
		env := os.Getenv("ENV")
		if env == "development" || env == "dev" {
			mongoURI = "mongodb://localhost:27017"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}

	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(mongoURI))

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal("MongoDB ping error:", err)
	}

	log.Println("Connected to MongoDB")

	setupCollections(client)

	return client
}

// DBName returns the configured database name
func DBName() string {
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "connectsphere"
	}
	return dbName
}

// setupCollections ensures all necessary collections and indexes exist
func setupCollections(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(DBName())

	collections := []string{"users", "mentors", "mentorRequests", "collaborations", "contacts"}
	for _, collName := range collections {
		db.CreateCollection(ctx, collName)
	}

	// Locked-slot computation scans a mentor's requests and collaborations
	requestColl := db.Collection("mentorRequests")
	_, err := requestColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "mentorId", Value: 1}, {Key: "status", Value: 1}},
	})
	if err != nil {
		log.Printf("Error creating mentorRequests index: %v", err)
	}

	collabColl := db.Collection("collaborations")
	for _, keys := range []bson.D{
		{{Key: "mentorId", Value: 1}, {Key: "isCancelled", Value: 1}},
		{{Key: "userId", Value: 1}},
	} {
		if _, err := collabColl.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys}); err != nil {
			log.Printf("Error creating collaborations index: %v", err)
		}
	}

	// Conversion retries look the collaboration up by its source request
	_, err = collabColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sourceRequestId", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	if err != nil {
		log.Printf("Error creating sourceRequestId index: %v", err)
	}

	// One contact record per direction per pair
	contactColl := db.Collection("contacts")
	_, err = contactColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "peerId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("Error creating contacts index: %v", err)
	}

	log.Println("Database collections and indexes setup complete")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
