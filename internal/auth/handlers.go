package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
)

const minPasswordLength = 8

// Credentials is the body of register and login requests
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handlers serves the public analyst registration and login endpoints
type Handlers struct {
	service Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service Service) *Handlers {
	return &Handlers{service: service}
}

// Register handles POST /auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if _, err := mail.ParseAddress(creds.Email); err != nil {
		respondError(w, http.StatusBadRequest, "email is not a valid address")
		return
	}
	if len(creds.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	analyst, err := h.service.Register(r.Context(), creds.Email, creds.Password)
	switch {
	case errors.Is(err, ErrAnalystExists):
		respondError(w, http.StatusConflict, "an analyst with this email is already registered")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to register analyst")
		return
	}

	respondJSON(w, http.StatusCreated, analyst)
}

// Login handles POST /auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.service.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer"})
}

// decodeCredentials reads a Credentials body, writing a 400 when it is
// malformed or incomplete
func decodeCredentials(w http.ResponseWriter, r *http.Request) (Credentials, bool) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return creds, false
	}
	if creds.Email == "" || creds.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return creds, false
	}
	return creds, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
