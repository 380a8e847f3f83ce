package store

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birdscout-go/internal/appwrite"
	"birdscout-go/internal/config"
	"birdscout-go/internal/types"
)

func testStore(handler http.HandlerFunc) (*Store, *httptest.Server) {
	srv := httptest.NewServer(handler)
	cfg := config.Config{
		AppwriteEndpoint:     srv.URL,
		ProjectID:            "proj",
		APIKey:               "key",
		DatabaseID:           "db",
		RecordingsCollection: "recordings",
		DetectionsCollection: "detections",
		UsersCollection:      "users",
		BucketID:             "bucket",
	}
	return New(cfg), srv
}

func TestSetRecordingStatus(t *testing.T) {
	var gotPath, gotStatus string
	st, srv := testStore(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		var body struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotStatus = body.Data.Status
		_, _ = w.Write([]byte(`{"$id":"rec1"}`))
	})
	defer srv.Close()

	require.NoError(t, st.SetRecordingStatus("rec1", types.StatusProcessing))
	assert.Equal(t, "PATCH /databases/db/collections/recordings/documents/rec1", gotPath)
	assert.Equal(t, "PROCESSING", gotStatus)
}

func TestDownloadAudio(t *testing.T) {
	st, srv := testStore(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/buckets/bucket/files/file1/download", r.URL.Path)
		_, _ = w.Write([]byte("audio"))
	})
	defer srv.Close()

	data, err := st.DownloadAudio("file1")
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), data)
}

func TestCreateDetectionGeneratesID(t *testing.T) {
	var gotID string
	var gotData types.Detection
	st, srv := testStore(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DocumentID string          `json:"documentId"`
			Data       types.Detection `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotID = body.DocumentID
		gotData = body.Data
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"$id":"` + body.DocumentID + `"}`))
	})
	defer srv.Close()

	d := types.Detection{
		RecordingID:     "rec1",
		ScientificName:  []string{"Sparrow"},
		ConfidenceLevel: []int{42},
	}
	id, err := st.CreateDetection(d)
	require.NoError(t, err)
	assert.Equal(t, gotID, id)
	_, parseErr := uuid.Parse(id)
	assert.NoError(t, parseErr)
	assert.Equal(t, "rec1", gotData.RecordingID)
	assert.Equal(t, []string{"Sparrow"}, gotData.ScientificName)
}

func TestGetUserNotFound(t *testing.T) {
	st, srv := testStore(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Document with the requested ID could not be found."}`))
	})
	defer srv.Close()

	_, err := st.GetUser("missing")
	require.Error(t, err)
	assert.True(t, appwrite.IsNotFound(err))
}

func TestListDetections(t *testing.T) {
	st, srv := testStore(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/databases/db/collections/detections/documents", r.URL.Path)
		_, _ = w.Write([]byte(`{"total":1,"documents":[{"$id":"d1","recordings":"rec1","scientificName":["Sparrow"],"confidenceLevel":[42],"timestamp-offset":0}]}`))
	})
	defer srv.Close()

	dets, err := st.ListDetections()
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "rec1", dets[0].RecordingID)
	assert.Equal(t, []string{"Sparrow"}, dets[0].ScientificName)
	assert.Equal(t, []int{42}, dets[0].ConfidenceLevel)
}
