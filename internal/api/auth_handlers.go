package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/pos-settlement/internal/api/middleware"
	"github.com/example/pos-settlement/internal/auth"
)

// OperatorCredentials are the terminal's configured operator account.
// The backend owns business data; operator identity stays local to the
// terminal and is provisioned through the environment.
type OperatorCredentials struct {
	OperatorID   string
	PasswordHash string
	Terminal     string
	Role         string
}

// AuthHandlers handles operator login and token refresh
type AuthHandlers struct {
	creds      OperatorCredentials
	jwtService *auth.JWTService
}

func NewAuthHandlers(creds OperatorCredentials, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		creds:      creds,
		jwtService: jwtService,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	OperatorID string `json:"operator_id"`
	Password   string `json:"password"`
}

// LoginResponse carries the issued tokens
type LoginResponse struct {
	OperatorID  string    `json:"operator_id"`
	Terminal    string    `json:"terminal"`
	Role        string    `json:"role"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login authenticates an operator against the configured credentials
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.OperatorID != h.creds.OperatorID || !auth.CheckPassword(req.Password, h.creds.PasswordHash) {
		respondJSONError(w, "Invalid operator id or password", http.StatusUnauthorized)
		return
	}

	h.respondWithTokens(w, r)
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondJSONError(w, "No refresh token", http.StatusUnauthorized)
		return
	}

	operatorID, err := h.jwtService.ValidateRefreshToken(refreshCookie.Value)
	if err != nil || operatorID != h.creds.OperatorID {
		h.clearAuthCookies(w)
		respondJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	h.respondWithTokens(w, r)
}

// Logout clears the token cookies
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Me returns the authenticated operator's claims
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetOperatorFromContext(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"operator_id": claims.OperatorID,
		"terminal":    claims.Terminal,
		"role":        claims.Role,
	})
}

func (h *AuthHandlers) respondWithTokens(w http.ResponseWriter, r *http.Request) {
	accessToken, accessExpiry, err := h.jwtService.GenerateAccessToken(h.creds.OperatorID, h.creds.Terminal, h.creds.Role)
	if err != nil {
		respondJSONError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	refreshToken, refreshExpiry, err := h.jwtService.GenerateRefreshToken(h.creds.OperatorID)
	if err != nil {
		respondJSONError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/auth/refresh",
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondJSON(w, http.StatusOK, LoginResponse{
		OperatorID:  h.creds.OperatorID,
		Terminal:    h.creds.Terminal,
		Role:        h.creds.Role,
		AccessToken: accessToken,
		ExpiresAt:   accessExpiry,
	})
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/auth/refresh",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
