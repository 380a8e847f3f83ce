package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full environment surface of the service, built once per
// process. Every field the pipeline needs is resolved here so a missing
// variable fails at startup, not mid-invocation.
type Config struct {
	AppwriteEndpoint string
	ProjectID        string
	APIKey           string

	DatabaseID           string
	RecordingsCollection string
	DetectionsCollection string
	UsersCollection      string
	BucketID             string

	ClassifierURL   string
	ClassifyTimeout time.Duration
}

// FromEnv reads the configuration from the environment. Collection
// identifiers and the classify timeout have defaults; everything else is
// required and checked by Validate.
func FromEnv() Config {
	return Config{
		AppwriteEndpoint:     os.Getenv("APPWRITE_FUNCTION_API_ENDPOINT"),
		ProjectID:            os.Getenv("APPWRITE_FUNCTION_PROJECT_ID"),
		APIKey:               os.Getenv("APPWRITE_API_KEY"),
		DatabaseID:           os.Getenv("APPWRITE_DATABASE_ID"),
		RecordingsCollection: envOr("RECORDINGS_COLLECTION_ID", "recordings"),
		DetectionsCollection: envOr("DETECTIONS_COLLECTION_ID", "detections"),
		UsersCollection:      envOr("USERS_COLLECTION_ID", "users"),
		BucketID:             os.Getenv("APPWRITE_BUCKET_ID"),
		ClassifierURL:        os.Getenv("CLASSIFIER_API_URL"),
		ClassifyTimeout:      time.Duration(envInt("CLASSIFY_TIMEOUT_SEC", 180)) * time.Second,
	}
}

// Validate reports every missing required key at once so an operator fixes
// the environment in one pass.
func (c Config) Validate() error {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"APPWRITE_FUNCTION_API_ENDPOINT", c.AppwriteEndpoint},
		{"APPWRITE_FUNCTION_PROJECT_ID", c.ProjectID},
		{"APPWRITE_API_KEY", c.APIKey},
		{"APPWRITE_DATABASE_ID", c.DatabaseID},
		{"APPWRITE_BUCKET_ID", c.BucketID},
		{"CLASSIFIER_API_URL", c.ClassifierURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("configuration incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// WithKey returns a copy of c using the given credential. The invocation
// may carry a scoped key header that overrides the configured one.
func (c Config) WithKey(key string) Config {
	if strings.TrimSpace(key) != "" {
		c.APIKey = key
	}
	return c
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
