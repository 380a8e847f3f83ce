// Package processor runs the analysis pipeline for one recording:
// download, classify, filter, persist, status transition.
package processor

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"birdscout-go/internal/logger"
	"birdscout-go/internal/types"
)

// Store is the slice of persistence the processor needs.
type Store interface {
	SetRecordingStatus(recordingID string, status types.Status) error
	DownloadAudio(s3key string) ([]byte, error)
	CreateDetection(d types.Detection) (string, error)
}

// Classifier performs the single remote classification call.
type Classifier interface {
	Classify(audio []byte, filename, contentType string) (types.ClassifyResult, error)
}

type Processor struct {
	store      Store
	classifier Classifier
}

func New(store Store, classifier Classifier) *Processor {
	return &Processor{store: store, classifier: classifier}
}

// Process runs one recording through the pipeline and always returns a
// response envelope: a fatal fault becomes a structured failure after a
// best-effort FAILED write, never a panic or a stuck record.
func (p *Processor) Process(rec types.Recording) types.Response {
	start := time.Now()
	log := logger.New().WithFields(logrus.Fields{
		"component":    "processor",
		"recording_id": rec.ID,
		"s3key":        rec.S3Key,
	})
	log.Info("processing recording")

	status := rec.Status
	if status == "" {
		status = types.StatusQueued
	}

	// Best-effort PROCESSING write: detached so a transient status-write
	// issue never blocks the analysis. MarkProcessingDetached is the only
	// unawaited operation in the pipeline; its error ends in the log only.
	status = p.markProcessingDetached(status, rec.ID, log)

	audio, err := p.store.DownloadAudio(rec.S3Key)
	if err != nil {
		return p.fail(status, rec.ID, log, err)
	}
	log.WithField("bytes", len(audio)).Info("audio downloaded")

	res, err := p.classifier.Classify(audio, "", "")
	if err != nil {
		return p.fail(status, rec.ID, log, err)
	}
	if len(res.Predictions) == 0 {
		return p.fail(status, rec.ID, log, errors.New("no predictions returned from classifier"))
	}
	log.WithField("predictions", len(res.Predictions)).Info("classifier responded")

	kept := Filter(res.Predictions)
	if len(kept) == 0 {
		// Every prediction was the sentinel or noise. Normal outcome: the
		// recording completes with no detection document.
		if err := p.transition(status, types.StatusCompleted, rec.ID, log); err != nil {
			return p.fail(status, rec.ID, log, err)
		}
		log.Info("no species detected")
		detected := false
		return types.Response{
			Success:          true,
			Message:          "No species detected",
			BirdDetected:     &detected,
			ConfidenceMethod: res.ConfidenceMethod,
			ProcessingTime:   res.ProcessingTime,
			DurationMs:       time.Since(start).Milliseconds(),
		}
	}

	detID, err := p.store.CreateDetection(BuildDetection(rec.ID, kept))
	if err != nil {
		return p.fail(status, rec.ID, log, err)
	}
	log.WithField("detection_id", detID).WithField("species", len(kept)).Info("detection saved")

	if err := p.transition(status, types.StatusCompleted, rec.ID, log); err != nil {
		return p.fail(status, rec.ID, log, err)
	}

	detected := true
	return types.Response{
		Success:          true,
		Message:          "Analysis completed successfully",
		Predictions:      kept,
		BirdDetected:     &detected,
		ConfidenceMethod: res.ConfidenceMethod,
		ProcessingTime:   res.ProcessingTime,
		DurationMs:       time.Since(start).Milliseconds(),
	}
}

// markProcessingDetached advances the local state to PROCESSING and issues
// the store write without awaiting it. The pipeline's correctness does not
// depend on this write landing.
func (p *Processor) markProcessingDetached(current types.Status, recordingID string, log *logrus.Entry) types.Status {
	if !current.CanTransition(types.StatusProcessing) {
		// Direct HTTP re-runs of a finished recording land here; the
		// analysis proceeds but the terminal status is left alone.
		log.WithField("status", current).Warn("skipping PROCESSING write from terminal status")
		return current
	}
	go func() {
		if err := p.store.SetRecordingStatus(recordingID, types.StatusProcessing); err != nil {
			log.WithError(err).Warn("best-effort PROCESSING write failed")
		}
	}()
	return types.StatusProcessing
}

// transition performs an awaited status write, consulting the state machine
// first.
func (p *Processor) transition(current, next types.Status, recordingID string, log *logrus.Entry) error {
	if !current.CanTransition(next) {
		log.WithField("status", current).WithField("next", next).Warn("skipping status write, transition not allowed")
		return nil
	}
	return p.store.SetRecordingStatus(recordingID, next)
}

// fail is the single fatal-fault handler: one best-effort FAILED write,
// whose own failure is logged and never escalated, then the failure
// envelope.
func (p *Processor) fail(current types.Status, recordingID string, log *logrus.Entry, cause error) types.Response {
	log.WithError(cause).Error("processing failed")
	if current.CanTransition(types.StatusFailed) {
		if err := p.store.SetRecordingStatus(recordingID, types.StatusFailed); err != nil {
			log.WithError(err).Warn("best-effort FAILED write failed")
		}
	}
	return types.Fault(cause)
}
