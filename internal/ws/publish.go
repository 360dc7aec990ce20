package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/handler"
	"github.com/memberbeat/admin/internal/reconcile"
	"github.com/memberbeat/admin/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

var publishedMessages = map[string]string{
	service.TargetPlans:  service.MsgPlansPublished,
	service.TargetTokens: service.MsgTokensPublished,
}

// StepMessage is sent after every ledger write. Failure details stay in the
// server log.
type StepMessage struct {
	Index int          `json:"index"`
	Op    reconcile.Op `json:"op"`
	OK    bool         `json:"ok"`
}

// DoneMessage closes a publish stream.
type DoneMessage struct {
	Done    bool                   `json:"done"`
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Report  *service.PublishReport `json:"report,omitempty"`
}

// PublishHandler streams the progress of a publish over a WebSocket.
type PublishHandler struct {
	publish *service.PublishService
	auth    *service.AuthService
}

// NewPublishHandler creates a new PublishHandler.
func NewPublishHandler(publish *service.PublishService, auth *service.AuthService) *PublishHandler {
	return &PublishHandler{publish: publish, auth: auth}
}

// Handle upgrades HTTP to WebSocket and runs one publish.
// URL: /api/publish/stream?target=plans|tokens&token=JWT_TOKEN
func (h *PublishHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on a WebSocket handshake
	token := r.URL.Query().Get("token")
	if token == "" {
		handler.Fail(w, http.StatusUnauthorized, "token required")
		return
	}

	claims, err := h.auth.VerifyToken(token)
	if err != nil {
		handler.Fail(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if claims.Role != domain.RoleAdmin {
		handler.Fail(w, http.StatusForbidden, "forbidden: admin access required")
		return
	}

	target := r.URL.Query().Get("target")
	success, ok := publishedMessages[target]
	if !ok {
		handler.Fail(w, http.StatusBadRequest, "unknown publish target")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("🔌 Publish stream for %s opened by %s", target, claims.Email)

	// A client that goes away does not stop the publish; later writes are dropped.
	var writeErr error
	observe := func(s reconcile.Step) {
		if writeErr != nil {
			return
		}
		writeErr = conn.WriteJSON(StepMessage{Index: s.Index, Op: s.Op, OK: s.Err == nil})
		if writeErr != nil {
			log.Printf("[WARN] Publish stream write failed: %v", writeErr)
		}
	}

	report, err := h.publish.Publish(r.Context(), target, observe)
	done := DoneMessage{Done: true, Success: err == nil, Message: success, Report: report}
	if err != nil {
		done.Message = failureMessage(err)
	}
	if writeErr != nil {
		return
	}
	if err := conn.WriteJSON(done); err != nil {
		log.Printf("[WARN] Publish stream write failed: %v", err)
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func failureMessage(err error) string {
	appErr, ok := domain.AsAppError(err)
	if !ok || appErr.Code == http.StatusInternalServerError {
		log.Printf("[ERROR] Publish failed: %v", err)
		return "Server Error"
	}
	return appErr.Message
}
