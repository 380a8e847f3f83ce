// Package classifier wraps the single outbound call to the remote
// acoustic-classification service.
package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"birdscout-go/internal/types"
)

// Defaults for the uploaded clip hint. The mobile client records aac; the
// classifier only uses the hint to pick a decoder.
const (
	DefaultFilename    = "audio.aac"
	DefaultContentType = "audio/aac"
)

// fileField is the multipart field name the classifier expects.
const fileField = "audio_file"

// Client performs one blocking classification call per invocation. The
// timeout bounds the whole call and is tuned to worst-case remote inference
// latency, so it is minutes rather than seconds.
type Client struct {
	url  string
	http *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Classify submits the audio bytes and returns the ranked predictions.
// Transport failures, timeouts and 5xx replies are faults carrying the
// upstream status and body. 4xx replies never panic: the body is inspected
// for an explicit error message, and a decodable prediction payload is
// accepted despite the status.
func (c *Client) Classify(audio []byte, filename, contentType string) (types.ClassifyResult, error) {
	if filename == "" {
		filename = DefaultFilename
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return types.ClassifyResult{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return types.ClassifyResult{}, fmt.Errorf("build upload: %w", err)
	}
	_ = w.Close()

	req, err := http.NewRequest(http.MethodPost, c.url, &b)
	if err != nil {
		return types.ClassifyResult{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return types.ClassifyResult{}, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 500 {
		return types.ClassifyResult{}, fmt.Errorf("classifier server error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode >= 400 {
		if msg := embeddedError(body); msg != "" {
			return types.ClassifyResult{}, fmt.Errorf("classifier rejected request: %s", msg)
		}
		var res types.ClassifyResult
		if err := json.Unmarshal(body, &res); err == nil && len(res.Predictions) > 0 {
			return res, nil
		}
		return types.ClassifyResult{}, fmt.Errorf("classifier rejected request: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res types.ClassifyResult
	if err := json.Unmarshal(body, &res); err != nil {
		return types.ClassifyResult{}, fmt.Errorf("decode classifier response: %v body=%s", err, strings.TrimSpace(string(body)))
	}
	return res, nil
}

// embeddedError pulls an explicit error message out of a 4xx body. The
// service reports faults under either "error" or "detail".
func embeddedError(body []byte) string {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}
