package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rook-computer/captcha/internal/render"
)

const maxVerifyBody = 4 << 10

// ChallengeService is what the API needs from session.Service.
type ChallengeService interface {
	Start(ctx context.Context) (string, *render.Challenge, error)
	Verify(ctx context.Context, id, guess string) (bool, error)
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type challengeResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

type verifyRequest struct {
	ID    string `json:"id"`
	Guess string `json:"guess"`
}

func apiV1Router(svc ChallengeService, logger Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, r *http.Request) { handleStart(w, r, svc, logger) })
	mux.HandleFunc("/challenge/verify", func(w http.ResponseWriter, r *http.Request) { handleVerify(w, r, svc) })
	return mux
}

func handleStart(w http.ResponseWriter, r *http.Request, svc ChallengeService, logger Logger) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	id, ch, err := svc.Start(r.Context())
	if err != nil {
		logger.Errorf("web", "start challenge: %v", err)
		writeAPIError(w, http.StatusServiceUnavailable, "start_failed", "could not create a challenge")
		return
	}
	uri, err := ch.DataURI()
	if err != nil {
		logger.Errorf("web", "encode challenge %s: %v", id, err)
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", "could not encode the challenge image")
		return
	}
	writeJSON(w, http.StatusOK, challengeResponse{ID: id, Image: uri})
}

func handleVerify(w http.ResponseWriter, r *http.Request, svc ChallengeService) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req verifyRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxVerifyBody))
	if err := dec.Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", "body must be a JSON object with id and guess")
		return
	}
	if req.ID == "" {
		writeAPIError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}

	ok, err := svc.Verify(r.Context(), req.ID, req.Guess)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "verify_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: ok})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
