// Package appwrite is a minimal REST client for the document store and blob
// bucket this service talks to. Only the handful of endpoints the pipeline
// uses are covered.
package appwrite

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// APIError is a non-2xx reply from the store, carrying the upstream status
// code so callers can tell a not-found from a real failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store error: status=%d message=%s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a store 404. A lookup miss is a normal
// branch for callers, not a fault.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one store endpoint on behalf of one project/key pair.
type Client struct {
	endpoint string
	project  string
	key      string
	http     *http.Client
}

func New(endpoint, project, key string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		project:  project,
		key:      key,
		http:     httpClient,
	}
}

// GetDocument fetches one document and decodes it into out. Document data
// fields arrive at the top level alongside $id, so out can be a plain model
// struct.
func (c *Client) GetDocument(databaseID, collectionID, documentID string, out any) error {
	path := fmt.Sprintf("/databases/%s/collections/%s/documents/%s", databaseID, collectionID, documentID)
	body, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// CreateDocument creates a document with the given identifier.
func (c *Client) CreateDocument(databaseID, collectionID, documentID string, data any) error {
	path := fmt.Sprintf("/databases/%s/collections/%s/documents", databaseID, collectionID)
	payload := map[string]any{
		"documentId": documentID,
		"data":       data,
	}
	_, err := c.do(http.MethodPost, path, payload)
	return err
}

// UpdateDocument patches the given fields of an existing document.
func (c *Client) UpdateDocument(databaseID, collectionID, documentID string, data any) error {
	path := fmt.Sprintf("/databases/%s/collections/%s/documents/%s", databaseID, collectionID, documentID)
	payload := map[string]any{"data": data}
	_, err := c.do(http.MethodPatch, path, payload)
	return err
}

// ListDocuments fetches a collection's documents and decodes the list into
// out (a pointer to a slice of model structs). No cursor handling; the
// export reads whatever one page returns.
func (c *Client) ListDocuments(databaseID, collectionID string, out any) error {
	path := fmt.Sprintf("/databases/%s/collections/%s/documents", databaseID, collectionID)
	body, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	var page struct {
		Total     int             `json:"total"`
		Documents json.RawMessage `json:"documents"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return fmt.Errorf("decode document list: %w", err)
	}
	if len(page.Documents) == 0 {
		return nil
	}
	if err := json.Unmarshal(page.Documents, out); err != nil {
		return fmt.Errorf("decode document list: %w", err)
	}
	return nil
}

// DownloadFile fetches the raw bytes of one bucket file.
func (c *Client) DownloadFile(bucketID, fileID string) ([]byte, error) {
	path := fmt.Sprintf("/storage/buckets/%s/files/%s/download", bucketID, fileID)
	return c.do(http.MethodGet, path, nil)
}

// Ping checks endpoint reachability. Used at startup only.
func (c *Client) Ping() error {
	_, err := c.do(http.MethodGet, "/health", nil)
	return err
}

func (c *Client) do(method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.endpoint+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Appwrite-Project", c.project)
	req.Header.Set("X-Appwrite-Key", c.key)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}
