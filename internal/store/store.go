// Package store is the domain-level persistence layer: recordings,
// detections and user profiles, addressed by the collection identifiers in
// the configuration.
package store

import (
	"fmt"

	"github.com/google/uuid"

	"birdscout-go/internal/appwrite"
	"birdscout-go/internal/config"
	"birdscout-go/internal/types"
)

type Store struct {
	client *appwrite.Client
	cfg    config.Config
}

// New builds a store over one client handle. Handles are per-invocation;
// nothing here is shared across invocations.
func New(cfg config.Config) *Store {
	return &Store{
		client: appwrite.New(cfg.AppwriteEndpoint, cfg.ProjectID, cfg.APIKey),
		cfg:    cfg,
	}
}

// SetRecordingStatus writes the status field of one recording.
func (s *Store) SetRecordingStatus(recordingID string, status types.Status) error {
	data := map[string]any{"status": status}
	if err := s.client.UpdateDocument(s.cfg.DatabaseID, s.cfg.RecordingsCollection, recordingID, data); err != nil {
		return fmt.Errorf("update recording %s status: %w", recordingID, err)
	}
	return nil
}

// DownloadAudio fetches the audio blob behind a recording's storage key.
func (s *Store) DownloadAudio(s3key string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.cfg.BucketID, s3key)
	if err != nil {
		return nil, fmt.Errorf("download audio %s: %w", s3key, err)
	}
	return data, nil
}

// CreateDetection persists one detection document under a fresh identifier
// and returns it. Detections are write-once; there is no update path.
func (s *Store) CreateDetection(d types.Detection) (string, error) {
	id := uuid.New().String()
	if err := s.client.CreateDocument(s.cfg.DatabaseID, s.cfg.DetectionsCollection, id, d); err != nil {
		return "", fmt.Errorf("create detection for recording %s: %w", d.RecordingID, err)
	}
	return id, nil
}

// ListDetections returns every detection document the store hands back in
// one page. Used by the export tool.
func (s *Store) ListDetections() ([]types.Detection, error) {
	var out []types.Detection
	if err := s.client.ListDocuments(s.cfg.DatabaseID, s.cfg.DetectionsCollection, &out); err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	return out, nil
}

// GetUser fetches the profile document for an account identifier. A miss
// surfaces as an error satisfying appwrite.IsNotFound.
func (s *Store) GetUser(accountID string) (types.User, error) {
	var u types.User
	if err := s.client.GetDocument(s.cfg.DatabaseID, s.cfg.UsersCollection, accountID, &u); err != nil {
		return types.User{}, err
	}
	return u, nil
}

// CreateUser persists a profile document keyed by the account identifier.
func (s *Store) CreateUser(accountID string, u types.User) error {
	if err := s.client.CreateDocument(s.cfg.DatabaseID, s.cfg.UsersCollection, accountID, u); err != nil {
		return fmt.Errorf("create user %s: %w", accountID, err)
	}
	return nil
}

// Ping checks store reachability. Startup only.
func (s *Store) Ping() error {
	return s.client.Ping()
}
