package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/livescore/internal/adapters/hub"
	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/logger"
)

// ConnectDependencies registers upgraded connections.
type ConnectDependencies interface {
	Connect(identity string, role types.Role, transport hub.Transport) (*hub.Connection, error)
}

// WebsocketHandler upgrades GET /ws and hands the connection to the hub.
type WebsocketHandler struct {
	deps     ConnectDependencies
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewWebsocketHandler creates a websocket handler accepting origins. An
// empty list or "*" accepts any origin.
func NewWebsocketHandler(deps ConnectDependencies, origins []string, l logger.Logger) *WebsocketHandler {
	anyOrigin := len(origins) == 0 || slices.Contains(origins, "*")
	return &WebsocketHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(origins, origin)
			},
		},
		logger: l,
	}
}

// HandleUpgrade handles GET /ws?identity=..&role=... Callers without an
// identity join as anonymous public viewers.
func (h *WebsocketHandler) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	const op = "api.ws"
	identity := strings.TrimSpace(r.URL.Query().Get("identity"))
	role := types.ParseRole(r.URL.Query().Get("role"))
	if identity == "" {
		identity = "public-" + uuid.NewString()
		role = types.RolePublic
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(WrapKind(op, ErrUpgrade, err)))
		return
	}
	c, err := h.deps.Connect(identity, role, conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		_ = conn.Close()
		h.logger.Warn(r.Context(), "connection rejected", logger.String("identity", identity), logger.Error(err))
		return
	}
	h.logger.Debug(r.Context(), "connection opened",
		logger.String("connection_id", c.ID),
		logger.String("identity", identity),
		logger.String("role", string(role)),
	)
}
