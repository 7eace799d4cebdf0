package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/farmsight/apiserver/internal/services"
	"github.com/farmsight/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Identity is the authenticated principal attached to the request context.
type Identity struct {
	UserID int
	Email  string
	Role   string
}

func identityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok || identity.UserID < 1 {
		return Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

func withIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MissingFieldsResponse names the required fields absent from a create
// request.
type MissingFieldsResponse struct {
	Error   string          `json:"error"`
	Missing map[string]bool `json:"missing"`
}

// writeServiceError maps service and store errors onto the HTTP contract:
// validation problems are 400, ownership misses and dangling references are
// 404, duplicates are 400, anything else is logged and becomes a generic 500.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		if verr.Missing != nil {
			writeJSON(w, http.StatusBadRequest, MissingFieldsResponse{Error: verr.Message, Missing: verr.Missing})
			return
		}
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrFieldNotOwned):
		writeError(w, http.StatusNotFound, services.ErrFieldNotOwned.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fallback+" not found")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, fallback+" already exists")
	default:
		log.Printf("%s: %v", fallback, err)
		writeError(w, http.StatusInternalServerError, "failed to process "+fallback)
	}
}
