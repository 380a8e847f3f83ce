package types

// Recording is the durable record of one audio capture. It is created by the
// client app in state QUEUED; this service only transitions its status and
// attaches detections.
type Recording struct {
	ID     string `json:"$id"`
	S3Key  string `json:"s3key"`
	Status Status `json:"status,omitempty"`
}

// Detection holds the species predictions for one recording. ScientificName
// and ConfidenceLevel are parallel: index i of one corresponds to index i of
// the other, in the order the classifier ranked them.
type Detection struct {
	RecordingID     string   `json:"recordings"`
	ScientificName  []string `json:"scientificName"`
	ConfidenceLevel []int    `json:"confidenceLevel"`
	TimestampOffset int      `json:"timestamp-offset"`
}

// User is the profile document keyed by the external account identifier.
type User struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// DefaultRole is assigned to every provisioned user profile.
const DefaultRole = "SCOUT"

// Prediction is one ranked classifier result. Score is the raw [0,1] value;
// it is never persisted as-is, only as a rounded percentage.
type Prediction struct {
	ClassName string  `json:"class_name"`
	Score     float64 `json:"score"`
}

// ClassifyResult is the parsed classifier response.
type ClassifyResult struct {
	Predictions      []Prediction `json:"predictions"`
	BirdDetected     bool         `json:"bird_detected"`
	ConfidenceMethod string       `json:"confidence_method,omitempty"`
	ProcessingTime   float64      `json:"processing_time,omitempty"`
	AudioDuration    float64      `json:"audio_duration,omitempty"`
}

// Response is the invocation result envelope. Message carries neutral and
// success outcomes; Error carries fatal faults (returned with status 500).
type Response struct {
	Success          bool         `json:"success"`
	Message          string       `json:"message,omitempty"`
	Error            string       `json:"error,omitempty"`
	Predictions      []Prediction `json:"predictions,omitempty"`
	BirdDetected     *bool        `json:"bird_detected,omitempty"`
	ConfidenceMethod string       `json:"confidence_method,omitempty"`
	ProcessingTime   float64      `json:"processing_time,omitempty"`
	DurationMs       int64        `json:"duration_ms,omitempty"`
}

// Fault builds the failure envelope used for every fatal fault.
func Fault(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// Neutral builds the non-error "nothing to do" envelope.
func Neutral(message string) Response {
	return Response{Success: false, Message: message}
}
