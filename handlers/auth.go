package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/CrowderSoup/kanban/database"
	"github.com/CrowderSoup/kanban/services"
)

// AuthHandler handles authentication-related endpoints
type AuthHandler struct {
	authService  *services.AuthService
	boardService *services.BoardService
}

func NewAuthHandler(authService *services.AuthService, boardService *services.BoardService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		boardService: boardService,
	}
}

type sessionResponse struct {
	Status string         `json:"status"`
	Token  string         `json:"token"`
	User   *database.User `json:"user"`
}

// RequestMagicLink sends a one-time login link to an email address
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	magicLink, err := h.authService.GenerateMagicLink(req.Email, baseURL(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	resp := map[string]string{
		"status":  "success",
		"message": "Magic link has been sent",
	}
	if h.authService.ExposesMagicLinks() {
		resp["magicLink"] = magicLink
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMagicLink processes a magic link token and redirects to the frontend
func (h *AuthHandler) HandleMagicLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	user, err := h.authService.VerifyMagicLinkToken(r.Context(), token)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	jwtToken, err := h.authService.CreateJWT(user)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	query := url.Values{"token": {jwtToken}, "email": {user.Email}}
	http.Redirect(w, r, "/?"+query.Encode(), http.StatusFound)
}

// SignUp creates a password account and seeds its boards
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req services.SignUpRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	user, err := h.authService.SignUp(r.Context(), req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := h.boardService.Seed(r.Context(), user.UID); err != nil {
		// the first Open seeds again
		slog.Warn("failed to seed boards for new account", "uid", user.UID, "error", err)
	}

	h.startSession(w, r, http.StatusCreated, user)
}

// Login checks an email and password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	h.startSession(w, r, http.StatusOK, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, user *database.User) {
	token, err := h.authService.CreateJWT(user)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, status, sessionResponse{Status: "success", Token: token, User: user})
}

// VerifyToken reports who the bearer token belongs to
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"uid":    identity.UID,
		"email":  identity.Email,
		"status": "valid",
	})
}

// Logout drops the user's in-memory boards. The token itself stays valid
// until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	h.boardService.Close(identity.UID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
