package auth

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campprojects/dashboard/internal/middleware"
	"github.com/campprojects/dashboard/internal/utils"
)

// Handler serves login, logout and session introspection.
type Handler struct {
	db      *gorm.DB
	gate    Authenticator
	log     *zap.Logger
	ttl     time.Duration
	secure  bool
	limiter *loginLimiter
	now     func() time.Time
}

type Options struct {
	SessionTTL    time.Duration
	SecureCookies bool
	LoginRate     float64 // attempts per second per client; <= 0 disables throttling
	LoginBurst    int
}

func NewHandler(d *gorm.DB, gate Authenticator, log *zap.Logger, opts Options) *Handler {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Handler{
		db:      d,
		gate:    gate,
		log:     log.Named("auth"),
		ttl:     ttl,
		secure:  opts.SecureCookies,
		limiter: newLoginLimiter(opts.LoginRate, opts.LoginBurst),
		now:     time.Now,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type MeResponse struct {
	Admin     bool       `json:"admin"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	}
	if value == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	return c
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if ok, wait := h.limiter.allow(clientKey(r), now); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid Data", http.StatusBadRequest)
		return
	}

	if !h.gate.Authenticate(req.Password) {
		h.log.Warn("rejected admin login", zap.String("client", clientKey(r)))
		http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
		return
	}

	// Drop expired sessions while we are here.
	if err := h.db.WithContext(r.Context()).Where("expires_at < ?", now).Delete(&Session{}).Error; err != nil {
		h.log.Warn("failed to prune sessions", zap.Error(err))
	}

	session := Session{
		SessionID: uuid.NewString(),
		Admin:     true,
		ExpiresAt: now.Add(h.ttl),
	}
	if err := h.db.WithContext(r.Context()).Create(&session).Error; err != nil {
		h.log.Error("failed to create session", zap.Error(err))
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.sessionCookie(session.SessionID, session.ExpiresAt))
	h.log.Info("admin login", zap.String("client", clientKey(r)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MeResponse{Admin: true, ExpiresAt: &session.ExpiresAt})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := utils.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(&Session{}, "session_id = ?", s.SessionID).Error; err != nil {
		h.log.Error("failed to delete session", zap.Error(err))
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.sessionCookie("", time.Time{}))
	w.WriteHeader(http.StatusNoContent)
}

// Me never fails: anonymous callers get {"admin": false}.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	resp := MeResponse{Admin: utils.IsAdmin(r.Context())}
	if s, ok := utils.SessionFromContext(r.Context()); ok && resp.Admin {
		resp.ExpiresAt = &s.ExpiresAt
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
