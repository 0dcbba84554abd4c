package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"

	"skillswap/internal/observability"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.-]{3,50}$`)

const (
	maxJSONBodyBytes  = 1 << 20
	minPasswordLength = 6
)

type CookieConfig struct {
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	Secure        bool
}

type Handler struct {
	service *Service
	cookies CookieConfig
	logger  *observability.Logger
}

func NewHandler(service *Service, cookies CookieConfig, logger *observability.Logger) *Handler {
	return &Handler{service: service, cookies: cookies, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	IsActive *bool  `json:"is_active"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	Message string   `json:"message"`
	User    Identity `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	input, problem := validateRegister(body)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	user, session, err := h.service.Register(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		sentry.CaptureException(err)
		h.logger.Error("register_failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusCreated, registerResponse{Message: "user registered", User: user.Identity()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	if strings.TrimSpace(body.Username) == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	session, err := h.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		sentry.CaptureException(err)
		h.logger.Error("login_failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusCreated, messageResponse{Message: "login successful"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		token = cookie.Value
	}

	access, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrMissingToken) {
			writeError(w, http.StatusBadRequest, "missing refresh token")
			return
		}
		if errors.Is(err, ErrInvalidRefreshToken) {
			h.logger.Warn("refresh_rejected", map[string]any{
				"reason": rejectionReason(err),
				"ip":     observability.ClientIP(r),
			})
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		sentry.CaptureException(err)
		h.logger.Error("refresh_failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	http.SetCookie(w, h.cookie(AccessCookieName, access, h.cookies.AccessMaxAge))
	writeJSON(w, http.StatusCreated, messageResponse{Message: "token refreshed"})
}

// Me echoes the identity of the current session. It must sit behind Middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, claims.Identity)
}

func (h *Handler) setSessionCookies(w http.ResponseWriter, session Session) {
	http.SetCookie(w, h.cookie(AccessCookieName, session.AccessToken, h.cookies.AccessMaxAge))
	http.SetCookie(w, h.cookie(RefreshCookieName, session.RefreshToken, h.cookies.RefreshMaxAge))
}

func (h *Handler) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func validateRegister(body registerRequest) (RegisterInput, string) {
	input := RegisterInput{
		Username: NormalizeUsername(body.Username),
		Email:    strings.TrimSpace(body.Email),
		FullName: strings.TrimSpace(body.FullName),
		Password: body.Password,
		IsActive: true,
	}
	if body.IsActive != nil {
		input.IsActive = *body.IsActive
	}

	if !usernameRegex.MatchString(input.Username) {
		return RegisterInput{}, "username format is invalid"
	}
	if input.Email == "" || len(input.Email) > 100 {
		return RegisterInput{}, "email is invalid"
	}
	if addr, err := mail.ParseAddress(input.Email); err != nil || addr.Address != input.Email {
		return RegisterInput{}, "email is invalid"
	}
	if input.FullName == "" || !utf8.ValidString(input.FullName) || utf8.RuneCountInString(input.FullName) > 100 {
		return RegisterInput{}, "full_name is invalid"
	}
	if len(input.Password) < minPasswordLength || len(input.Password) > MaxPasswordBytes {
		return RegisterInput{}, "password must be between 6 and 72 bytes"
	}

	return input, ""
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return ResultExpired
	case errors.Is(err, ErrWrongTokenKind):
		return ResultWrongKind
	default:
		return ResultMalformed
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
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
	writeJSON(w, status, map[string]string{"error": message})
}
