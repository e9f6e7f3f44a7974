package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plstat/internal/shared"
	"github.com/desertthunder/plstat/internal/trigger"
)

const (
	EventHeader     = "X-GitHub-Event"
	DeliveryHeader  = "X-GitHub-Delivery"
	SignatureHeader = "X-Hub-Signature-256"

	// MaxPayloadBytes matches GitHub's webhook payload cap.
	MaxPayloadBytes = 25 << 20
)

// Starter launches a pipeline run in the background.
type Starter interface {
	Start(ev trigger.Event) error
}

// WebhookHandler accepts GitHub push and workflow_dispatch deliveries.
type WebhookHandler struct {
	secret    []byte
	evaluator *trigger.Evaluator
	starter   Starter
	logger    *log.Logger
}

// NewWebhookHandler creates a handler. An empty secret disables signature checks.
func NewWebhookHandler(secret string, evaluator *trigger.Evaluator, starter Starter, logger *log.Logger) *WebhookHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &WebhookHandler{
		secret:    []byte(secret),
		evaluator: evaluator,
		starter:   starter,
		logger:    logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *WebhookHandler) Routes() []string {
	return []string{"/webhook"}
}

// ServeHTTP verifies the delivery, evaluates the trigger and starts a run when it matches.
//
// Responses: 202 accepted, 200 skipped or ignored, 401 bad signature, 409 run in progress.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes+1))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > MaxPayloadBytes {
		http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	if h.evaluator == nil || h.starter == nil {
		http.Error(w, "Pipeline not configured", http.StatusServiceUnavailable)
		return
	}

	if len(h.secret) > 0 && !VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("webhook signature mismatch", "delivery", r.Header.Get(DeliveryHeader))
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	name := r.Header.Get(EventHeader)
	if name == "ping" {
		writeJSON(w, http.StatusOK, map[string]any{"status": "pong"})
		return
	}

	ev, err := trigger.FromPayload(name, body)
	switch {
	case errors.Is(err, shared.ErrUnknownEvent):
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "event": name})
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	decision := h.evaluator.Evaluate(ev)
	if !decision.Run {
		writeJSON(w, http.StatusOK, map[string]any{"status": "skipped", "reason": decision.Reason})
		return
	}

	if err := h.starter.Start(ev); err != nil {
		if errors.Is(err, shared.ErrLocked) {
			writeJSON(w, http.StatusConflict, map[string]any{"status": "busy", "error": err.Error()})
			return
		}
		h.logger.Error("failed to start run", "error", err)
		http.Error(w, "Failed to start run", http.StatusInternalServerError)
		return
	}

	h.logger.Info("run accepted", "event", ev.Kind, "force", decision.ForceUpdate, "delivery", r.Header.Get(DeliveryHeader))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"event":        string(ev.Kind),
		"force_update": decision.ForceUpdate,
		"reason":       decision.Reason,
	})
}

// Sign returns the X-Hub-Signature-256 value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares header against the HMAC-SHA256 of body in constant time.
func VerifySignature(secret, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
