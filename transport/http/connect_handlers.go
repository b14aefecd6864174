package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/listener"
	"github.com/layer-3/pulselink/service"
)

// ConnectHandlers exposes the wallet-connect handshake over HTTP
type ConnectHandlers struct {
	connect  *service.ConnectService
	sink     *service.AuthSink
	listener *listener.Listener
}

// Health answers liveness checks and carries no session data.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func NewConnectHandlers(connect *service.ConnectService, sink *service.AuthSink, l *listener.Listener) *ConnectHandlers {
	return &ConnectHandlers{connect: connect, sink: sink, listener: l}
}

// Start dispatches a new connect request, replacing any pending one
func (h *ConnectHandlers) Start(c *gin.Context) {
	connectURL, err := h.connect.StartConnect(c.Request.Context())
	if err != nil {
		handshakeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": connectURL})
}

// Cancel abandons the pending handshake
func (h *ConnectHandlers) Cancel(c *gin.Context) {
	if err := h.connect.Cancel(c.Request.Context()); err != nil {
		handshakeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cancelled"})
}

// Status reports the handshake state and how the last attempt ended
func (h *ConnectHandlers) Status(c *gin.Context) {
	state, err := h.connect.Status(c.Request.Context())
	if err != nil {
		handshakeError(c, err)
		return
	}

	resp := gin.H{"state": state}
	if h.sink != nil {
		if outcome, ok := h.sink.Outcome(); ok {
			resp["outcome"] = outcomeJSON(outcome)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// DeepLink resolves a redirect through the running listener. Tokens are
// returned only here, to the caller that delivered the redirect, and only once.
func (h *ConnectHandlers) DeepLink(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.listener.Resolve(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, listener.ErrNotRunning) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Listener is not running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deliver deep link"})
		return
	}
	if res.Err != nil {
		handshakeError(c, res.Err)
		return
	}
	if !res.Handled {
		c.JSON(http.StatusOK, gin.H{"handled": false})
		return
	}

	outcome, ok := h.sink.TakeOutcome()
	if !ok || outcome.Failure != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Handshake outcome already taken"})
		return
	}
	if outcome.Err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign_in_failed", "address": outcome.Address})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"handled":       true,
		"address":       outcome.Address,
		"access_token":  outcome.AccessToken,
		"refresh_token": outcome.RefreshToken,
		"token_type":    "Bearer",
	})
}

// outcomeJSON describes an outcome without any credentials.
func outcomeJSON(o service.SignInOutcome) gin.H {
	out := gin.H{"at": o.At.UTC().Format(time.RFC3339)}
	switch {
	case o.Failure != nil:
		out["error"] = o.Failure.Kind
		out["code"] = o.Failure.Code
	case o.Err != nil:
		out["address"] = o.Address
		out["error"] = "sign_in_failed"
	default:
		out["address"] = o.Address
	}
	return out
}

func handshakeError(c *gin.Context, err error) {
	var herr *core.HandshakeError
	if !errors.As(err, &herr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	statusCode := http.StatusBadRequest
	switch herr.Kind {
	case core.KindNoCompatibleApp:
		statusCode = http.StatusUnprocessableEntity
	case core.KindStorageUnavailable:
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"error":   herr.Kind,
		"code":    herr.Code,
		"message": herr.Error(),
	})
}
