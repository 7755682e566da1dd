package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"catalog-api/internal/apperr"
	"catalog-api/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserCreated Profile `json:"userCreated"`
	Message     string  `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User Session `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	profile, err := h.service.Register(r.Context(), RegisterInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindConflict, apperr.KindInputValidation:
			writeError(w, http.StatusBadRequest, apperr.MessageOf(err, "Invalid request"))
		default:
			observability.CaptureError(err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{UserCreated: profile, Message: "User created successfully"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	session, err := h.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindInputValidation, apperr.KindNotFound, apperr.KindAuthentication:
			writeError(w, http.StatusBadRequest, apperr.MessageOf(err, "Invalid credentials"))
		default:
			observability.CaptureError(err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{User: session})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshTokenMissing):
			writeError(w, http.StatusUnauthorized, ErrRefreshTokenMissing.Message)
		case apperr.KindOf(err) == apperr.KindAuthentication:
			writeError(w, http.StatusForbidden, apperr.MessageOf(err, ErrRefreshTokenInvalid.Message))
		default:
			observability.CaptureError(err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body logoutRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	loggedOut, err := h.service.Logout(r.Context(), body.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenMissing) {
			writeError(w, http.StatusBadRequest, ErrRefreshTokenMissing.Message)
			return
		}
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !loggedOut {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Info returns the profile of the caller identified by the access token.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrAccessTokenMissing.Message)
		return
	}

	h.writeProfile(w, r, identity.UserID)
}

// UserByID returns the profile named in the path, but only to its owner.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrAccessTokenMissing.Message)
		return
	}
	if r.PathValue("id") != identity.UserID {
		writeError(w, http.StatusForbidden, ErrForbidden.Message)
		return
	}

	h.writeProfile(w, r, identity.UserID)
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, userID string) {
	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusNotFound, ErrUserNotFound.Message)
			return
		}
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// decodeJSON reads the request body into dst. An empty body decodes as {} and
// unknown fields are ignored, so missing values reach the service checks.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
