// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"context"
	"errors"
	"fmt"
	"os"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// APIKeyEnv is the environment variable holding the Google Maps API key.
const APIKeyEnv = "GOOGLE_MAPS_API_KEY"

// DefaultKeyDisplayName is the display name of the API key looked up through
// Application Default Credentials.
const DefaultKeyDisplayName = "Cercania Maps Key"

// KeyLookup configures ResolveAPIKey.
type KeyLookup struct {
	// DisplayName of the key in the project. Defaults to DefaultKeyDisplayName.
	DisplayName string
	// ProjectID overrides the project found in the credentials.
	ProjectID string
}

// ResolveAPIKey returns the key in GOOGLE_MAPS_API_KEY or, when unset, the
// key found by display name in the ADC project.
func ResolveAPIKey(ctx context.Context, lookup KeyLookup, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		return key, nil
	}

	logger.Info(APIKeyEnv + " is not set, looking the key up with Application Default Credentials")

	key, err := apiKeyFromADC(ctx, lookup, logger)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAPIKeyMissing, err)
	}

	return key, nil
}

func apiKeyFromADC(ctx context.Context, lookup KeyLookup, logger *zap.Logger) (string, error) {
	displayName := lookup.DisplayName
	if displayName == "" {
		displayName = DefaultKeyDisplayName
	}

	projectID := lookup.ProjectID
	if projectID == "" {
		creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return "", fmt.Errorf("finding default credentials: %w", err)
		}

		projectID = creds.ProjectID
	}

	if projectID == "" {
		return "", errors.New("no project id in credentials, set one explicitly")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != displayName {
			continue
		}

		// ListKeys redacts the secret.
		logger.Debug("found api key resource", zap.String("name", key.Name))

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key %q found but its key string is empty", displayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name %q not found in project %s", displayName, projectID)
}
