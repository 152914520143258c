package db

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
)

// Firebase app and Firestore client are process-wide singletons.
var (
	app     *firebase.App
	appOnce sync.Once
	appErr  error

	client     *firestore.Client
	clientOnce sync.Once
	clientErr  error
)

// InitApp initializes the Firebase app from base64 encoded service account JSON.
func InitApp(ctx context.Context, encodedCreds, storageBucket string) (*firebase.App, error) {
	appOnce.Do(func() {
		// Decode credentials
		creds, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			appErr = fmt.Errorf("failed to decode Firebase credentials: %w", err)
			return
		}

		// Initialize Firebase App
		var config *firebase.Config
		if storageBucket != "" {
			config = &firebase.Config{StorageBucket: storageBucket}
		}
		app, appErr = firebase.NewApp(ctx, config, option.WithCredentialsJSON(creds))
		if appErr != nil {
			appErr = fmt.Errorf("error initializing Firebase app: %w", appErr)
		}
	})
	return app, appErr
}

// InitFirestore returns the Firestore client of the Firebase app.
func InitFirestore(ctx context.Context, fbApp *firebase.App) (*firestore.Client, error) {
	clientOnce.Do(func() {
		client, clientErr = fbApp.Firestore(ctx)
		if clientErr != nil {
			clientErr = fmt.Errorf("error getting Firestore client: %w", clientErr)
		}
	})
	return client, clientErr
}

// CloseFirestore closes the Firestore client.
func CloseFirestore() {
	if client != nil {
		client.Close()
	}
}

// Store reads and writes the BeachWise collections:
//
//	users/{uid}                  profile
//	users/{uid}/cleanups/{id}    submitted cleanups
//	heatmaps/latest              last heatmap rollup
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

const (
	usersCollection    = "users"
	cleanupsCollection = "cleanups"
	heatmapsCollection = "heatmaps"
	latestHeatmapDoc   = "latest"
)
