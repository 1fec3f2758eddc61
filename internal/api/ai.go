package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hyperengineering/steward/internal/action"
	"github.com/hyperengineering/steward/internal/intent"
	"github.com/hyperengineering/steward/internal/validation"
)

// ParseRequest is the body of POST /ai/parse.
type ParseRequest struct {
	Input json.RawMessage `json:"input"`
}

// ExecuteRequest is the body of POST /ai/execute.
type ExecuteRequest struct {
	Intent   intent.Intent   `json:"intent"`
	Entities json.RawMessage `json:"entities"`
}

// inputString extracts a required string input from raw JSON.
func inputString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("Input is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.New("Input must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", errors.New("Input is required")
	}
	if utf8.RuneCountInString(s) > validation.MaxInputLength {
		return "", fmt.Errorf("Input exceeds maximum length of %d characters", validation.MaxInputLength)
	}
	return s, nil
}

// Parse handles POST /api/v1/ai/parse
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	input, err := inputString(req.Input)
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.classifier.ClassifyIntent(r.Context(), input))
}

// Execute handles POST /api/v1/ai/execute. Every response, including
// malformed requests, carries the {success, message} body.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())

	var req ExecuteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeOutcome(w, action.Outcome{Message: err.Error(), Status: action.StatusInvalid})
		return
	}
	if req.Intent == "" {
		writeOutcome(w, action.Outcome{Message: "Intent is required", Status: action.StatusInvalid})
		return
	}
	entities, err := intent.DecodeEntities(req.Intent, req.Entities)
	if err != nil {
		msg := "Entities must be an object"
		if raw := bytes.TrimSpace(req.Entities); len(raw) > 0 && raw[0] == '{' {
			msg = "Entities contain invalid values"
		}
		writeOutcome(w, action.Outcome{Message: msg, Status: action.StatusInvalid})
		return
	}

	writeOutcome(w, h.executor.Execute(r.Context(), actor, req.Intent, entities))
}

func writeOutcome(w http.ResponseWriter, out action.Outcome) {
	writeJSON(w, outcomeStatus(out.Status), out)
}

func outcomeStatus(s action.Status) int {
	switch s {
	case action.StatusOK:
		return http.StatusOK
	case action.StatusInvalid:
		return http.StatusBadRequest
	case action.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
