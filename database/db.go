package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"barberbook/config"
	"barberbook/database/store"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoClient is the global MongoDB client instance.
var MongoClient *mongo.Client

// InitDB initializes the MongoDB connection.
func InitDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(config.AppConfig.DatabaseURL)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("failed to ping MongoDB: %v", err)
	}
	MongoClient = client
	log.Println("Connected to MongoDB successfully!")
}

// Backend is an opened record store together with its lifecycle hooks.
type Backend struct {
	Store store.RecordStore
	// Ping is nil for backends without a remote dependency.
	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// OpenStore opens the record store selected by STORE_BACKEND.
func OpenStore(ctx context.Context, logger *zap.Logger) (*Backend, error) {
	switch config.AppConfig.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory record store; data is lost on restart")
		return &Backend{
			Store: store.NewMemoryStore(),
			Close: func(context.Context) error { return nil },
		}, nil

	case config.BackendFirestore:
		client, err := InitFirestore(ctx)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store: store.NewFirestoreStore(client, logger),
			Close: func(context.Context) error { return client.Close() },
		}, nil

	case config.BackendMongo, "":
		InitDB()
		s := store.NewMongoStore(MongoClient, config.AppConfig.DatabaseName, logger)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return &Backend{
			Store: s,
			Ping:  s.Ping,
			Close: MongoClient.Disconnect,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", config.AppConfig.StoreBackend)
	}
}
