package function

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birdscout-go/internal/config"
	"birdscout-go/internal/trigger"
	"birdscout-go/internal/types"
)

// fakeStoreServer is an httptest stand-in for the document store + bucket,
// recording every call it receives.
type fakeStoreServer struct {
	mu       sync.Mutex
	requests []string // "METHOD path"
	keys     []string // X-Appwrite-Key per request
	statuses []string // status values written to recordings
	users    map[string]types.User
	srv      *httptest.Server
}

func newFakeStoreServer() *fakeStoreServer {
	f := &fakeStoreServer{users: map[string]types.User{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeStoreServer) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.keys = append(f.keys, r.Header.Get("X-Appwrite-Key"))
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/files/") && strings.HasSuffix(r.URL.Path, "/download"):
		_, _ = w.Write([]byte("fake-audio-bytes"))
	case r.Method == http.MethodPatch && strings.Contains(r.URL.Path, "/collections/recordings/documents/"):
		var body struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.statuses = append(f.statuses, body.Data.Status)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"$id":"rec1"}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/collections/detections/documents"):
		_, _ = w.Write([]byte(`{"$id":"det1"}`))
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/collections/users/documents/"):
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		f.mu.Lock()
		u, ok := f.users[id]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Document with the requested ID could not be found."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(u)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/collections/users/documents"):
		var body struct {
			DocumentID string     `json:"documentId"`
			Data       types.User `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.users[body.DocumentID] = body.Data
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"$id":"` + body.DocumentID + `"}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func (f *fakeStoreServer) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeStoreServer) wroteStatus(status string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (f *fakeStoreServer) userRole(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].Role
}

func (f *fakeStoreServer) detectionCreates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if req == "POST /databases/db/collections/detections/documents" {
			n++
		}
	}
	return n
}

func newClassifierServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func testConfig(storeURL, classifierURL string) config.Config {
	return config.Config{
		AppwriteEndpoint:     storeURL,
		ProjectID:            "proj",
		APIKey:               "configured-key",
		DatabaseID:           "db",
		RecordingsCollection: "recordings",
		DetectionsCollection: "detections",
		UsersCollection:      "users",
		BucketID:             "bucket",
		ClassifierURL:        classifierURL,
		ClassifyTimeout:      5 * time.Second,
	}
}

func TestHandleMalformedBody(t *testing.T) {
	st := newFakeStoreServer()
	defer st.srv.Close()
	h := NewHandler(testConfig(st.srv.URL, "http://unused.test"))

	resp, status := h.Handle(trigger.New("", "", []byte("this is not json")))

	assert.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Contains(t, resp.Message, "No valid recording document or action")
	assert.Equal(t, 0, st.requestCount())
}

func TestHandleMissingS3Key(t *testing.T) {
	st := newFakeStoreServer()
	defer st.srv.Close()
	h := NewHandler(testConfig(st.srv.URL, "http://unused.test"))

	resp, status := h.Handle(trigger.New("", "", []byte(`{"$id":"rec1"}`)))

	assert.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Equal(t, 0, st.requestCount())
}

func TestHandleLoopGuardSkips(t *testing.T) {
	st := newFakeStoreServer()
	defer st.srv.Close()
	h := NewHandler(testConfig(st.srv.URL, "http://unused.test"))

	event := "databases.db.collections.recordings.documents.rec1.update"
	for _, status := range []string{"PROCESSING", "COMPLETED", "FAILED"} {
		body := []byte(`{"$id":"rec1","s3key":"file1","status":"` + status + `"}`)
		resp, code := h.Handle(trigger.New(event, "", body))
		assert.Equal(t, http.StatusOK, code)
		assert.False(t, resp.Success)
		assert.Empty(t, resp.Error)
	}
	// zero downstream calls for all three skips
	assert.Equal(t, 0, st.requestCount())
}

func TestHandleQueuedUpdateProceeds(t *testing.T) {
	st := newFakeStoreServer()
	defer st.srv.Close()
	cls := newClassifierServer(t, `{"predictions":[{"class_name":"Passer domesticus","score":0.87}],"bird_detected":true}`)
	defer cls.Close()
	h := NewHandler(testConfig(st.srv.URL, cls.URL))

	event := "databases.db.collections.recordings.documents.rec1.update"
	body := []byte(`{"$id":"rec1","s3key":"file1","status":"QUEUED"}`)
	resp, code := h.Handle(trigger.New(event, "", body))

	assert.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, "Passer domesticus", resp.Predictions[0].ClassName)
	assert.Equal(t, 1, st.detectionCreates())
	assert.True(t, st.wroteStatus("COMPLETED"))
	assert.Eventually(t, func() bool { return st.wroteStatus("PROCESSING") }, time.Second, 10*time.Millisecond)
}

func TestHandleUserProvisioning(t *testing.T) {
	st := newFakeStoreServer()
	defer st.srv.Close()
	h := NewHandler(testConfig(st.srv.URL, "http://unused.test"))

	body := []byte(`{"action":"create_user_doc","userId":"acct1","email":"scout@example.com"}`)

	resp, code := h.Handle(trigger.New("", "", body))
	assert.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	assert.Equal(t, "User doc created", resp.Message)
	assert.Equal(t, "SCOUT", st.userRole("acct1"))

	resp, code = h.Handle(trigger.New("", "", body))
	assert.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	assert.Equal(t, "User doc exists", resp.Message)
}

func TestHandleUserProvisioningMissingID(t *testing.T) {
	st := newFakeStoreServer()
	defer st.srv.Close()
	h := NewHandler(testConfig(st.srv.URL, "http://unused.test"))

	resp, code := h.Handle(trigger.New("", "", []byte(`{"action":"create_user_doc","email":"scout@example.com"}`)))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "missing userId")
	assert.Equal(t, 0, st.requestCount())
}

func TestHandleScopedKeyPassthrough(t *testing.T) {
	st := newFakeStoreServer()
	defer st.srv.Close()
	h := NewHandler(testConfig(st.srv.URL, "http://unused.test"))

	body := []byte(`{"action":"create_user_doc","userId":"acct2","email":"x@example.com"}`)
	_, _ = h.Handle(trigger.New("", "scoped-key", body))

	st.mu.Lock()
	defer st.mu.Unlock()
	require.NotEmpty(t, st.keys)
	for _, k := range st.keys {
		assert.Equal(t, "scoped-key", k)
	}
}

func TestHandleClassifierFaultFailsRecording(t *testing.T) {
	st := newFakeStoreServer()
	defer st.srv.Close()
	cls := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer cls.Close()
	h := NewHandler(testConfig(st.srv.URL, cls.URL))

	resp, code := h.Handle(trigger.New("", "", []byte(`{"$id":"rec1","s3key":"file1","status":"QUEUED"}`)))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.True(t, st.wroteStatus("FAILED"))
	assert.Equal(t, 0, st.detectionCreates())
}
