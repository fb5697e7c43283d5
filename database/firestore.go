package database

import (
	"context"
	"fmt"

	"barberbook/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// InitFirestore initializes the Firebase app and returns its Firestore client.
// Without a credentials file the application default credentials are used.
func InitFirestore(ctx context.Context) (*firestore.Client, error) {
	var opts []option.ClientOption
	if path := config.AppConfig.FirebaseCredentialsFile; path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	var fbConfig *firebase.Config
	if id := config.AppConfig.FirebaseProjectID; id != "" {
		fbConfig = &firebase.Config{ProjectID: id}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
	}
	return client, nil
}
