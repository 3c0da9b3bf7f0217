package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"aidesk/internal/service"
	"aidesk/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps service-layer errors onto HTTP statuses. Anything
// unrecognized is logged server-side and reported as a generic 500 so
// internals never leak into responses.
func respondServiceError(w http.ResponseWriter, err error) {
	var validationErr validation.ValidationError
	var policyErr validation.PolicyError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &policyErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidResetToken):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, service.ErrEmailTaken):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
