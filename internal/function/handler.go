// Package function is the invocation entrypoint: it inspects one trigger,
// routes it to user provisioning or recording analysis, and shapes the
// response envelope.
package function

import (
	"net/http"

	"birdscout-go/internal/classifier"
	"birdscout-go/internal/config"
	"birdscout-go/internal/logger"
	"birdscout-go/internal/processor"
	"birdscout-go/internal/store"
	"birdscout-go/internal/trigger"
	"birdscout-go/internal/types"
	"birdscout-go/internal/users"
)

// ActionCreateUserDoc is the explicit action discriminator for user
// provisioning.
const ActionCreateUserDoc = "create_user_doc"

type Handler struct {
	cfg config.Config
}

func NewHandler(cfg config.Config) *Handler {
	return &Handler{cfg: cfg}
}

// Handle runs one invocation and returns the response envelope with the
// HTTP status to send it under. Fatal faults use 500 by convention;
// neutral "nothing to do" outcomes are 200.
func (h *Handler) Handle(trig trigger.Context) (types.Response, int) {
	log := logger.New().WithInvocation(trig.EventType)

	// Each invocation gets its own handles; the trigger may carry a scoped
	// credential overriding the configured key.
	cfg := h.cfg.WithKey(trig.Key)
	st := store.New(cfg)

	if trig.Action() == ActionCreateUserDoc {
		var p struct {
			UserID string `json:"userId"`
			Email  string `json:"email"`
		}
		_ = trig.Decode(&p)
		log.WithField("account_id", p.UserID).Info("user provisioning requested")
		resp, err := users.NewProvisioner(st).Ensure(p.UserID, p.Email)
		if err != nil {
			log.WithError(err).Error("user provisioning failed")
			return types.Fault(err), http.StatusInternalServerError
		}
		return resp, http.StatusOK
	}

	// Not a user action: the payload itself is the candidate recording.
	var rec types.Recording
	_ = trig.Decode(&rec)
	if rec.S3Key == "" {
		log.Info("no recording document or action in payload")
		return types.Neutral("No valid recording document or action found."), http.StatusOK
	}

	if trig.ShouldSkip(rec.Status) {
		log.WithField("status", rec.Status).Info("update event for non-queued recording, skipping")
		return types.Neutral("Recording is not queued, skipping."), http.StatusOK
	}

	cls := classifier.New(cfg.ClassifierURL, cfg.ClassifyTimeout)
	resp := processor.New(st, cls).Process(rec)
	if !resp.Success && resp.Error != "" {
		return resp, http.StatusInternalServerError
	}
	return resp, http.StatusOK
}
