package local

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
	"github.com/smallbiznis/microgrid/internal/auth/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module mounts login, logout and me next to the authenticated API group.
var Module = fx.Module("auth.local",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// Handler serves the username/password login endpoints.
type Handler struct {
	authsvc  authdomain.Service
	sessions *session.Manager
	log      *zap.Logger
}

func NewHandler(authsvc authdomain.Service, sessions *session.Manager, log *zap.Logger) *Handler {
	return &Handler{
		authsvc:  authsvc,
		sessions: sessions,
		log:      log.Named("auth.local.handler"),
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	group := r.Group("/api")
	group.POST("/login", h.Login)
	group.POST("/logout", h.Logout)
	group.GET("/me", h.Me)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool    `json:"success"`
	Role     string  `json:"role"`
	Username string  `json:"username"`
	Hamlet   *string `json:"hamlet"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeLocalError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Username:  req.Username,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		if errors.Is(err, authdomain.ErrInvalidCredentials) {
			writeLocalError(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.log.Error("login failed", zap.String("request_id", requestID(c)), zap.Error(err))
		writeLocalError(c, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	h.sessions.Set(c, result.RawToken, result.ExpiresAt)
	h.log.Info("login created session",
		zap.String("request_id", requestID(c)),
		zap.String("username", result.Username),
		zap.String("role", result.Role),
	)

	c.JSON(http.StatusOK, loginResponse{
		Success:  true,
		Role:     result.Role,
		Username: result.Username,
		Hamlet:   result.Hamlet,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	token, ok := h.sessions.ReadToken(c)
	if !ok {
		writeLocalError(c, http.StatusUnauthorized, "invalid_session")
		return
	}
	if err := h.authsvc.Logout(c.Request.Context(), token); err != nil {
		writeLocalError(c, http.StatusUnauthorized, "invalid_session")
		return
	}

	h.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Me(c *gin.Context) {
	token, ok := h.sessions.ReadToken(c)
	if !ok {
		writeLocalError(c, http.StatusUnauthorized, "invalid_session")
		return
	}
	user, err := h.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeLocalError(c, http.StatusUnauthorized, "invalid_session")
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		Success:  true,
		Role:     user.Role,
		Username: user.Username,
		Hamlet:   user.Hamlet,
	})
}

func writeLocalError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func requestID(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetString("request_id")); v != "" {
		return v
	}
	return strings.TrimSpace(c.GetHeader("X-Request-ID"))
}
