package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/notify"
)

// NotifyHandler exposes the Telegram relay over HTTP. It carries no auth.
type NotifyHandler struct {
	relay  *notify.Relay
	logger *zap.Logger
	now    func() time.Time
}

func NewNotifyHandler(relay *notify.Relay, logger *zap.Logger) *NotifyHandler {
	return &NotifyHandler{relay: relay, logger: logger, now: time.Now}
}

type notifyRequest struct {
	Type *string         `json:"type"`
	Data json.RawMessage `json:"data"`
}

func failure(c echo.Context, code int, msg string) error {
	return c.JSON(code, notify.Result{Error: msg})
}

// Send handles POST /notify.
func (h *NotifyHandler) Send(c echo.Context) error {
	var req notifyRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
	}
	if req.Type == nil {
		return failure(c, http.StatusBadRequest, "Missing required field: type")
	}
	if len(req.Data) == 0 || string(req.Data) == "null" {
		return failure(c, http.StatusBadRequest, "Missing required field: data")
	}
	var data map[string]interface{}
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return failure(c, http.StatusBadRequest, "Invalid JSON: data must be an object")
	}

	result := h.relay.Notify(c.Request().Context(), *req.Type, data)
	if !result.Success {
		h.logger.Warn("notification not delivered", zap.String("type", *req.Type), zap.String("error", result.Error))
		return c.JSON(http.StatusInternalServerError, result)
	}
	return c.JSON(http.StatusOK, result)
}

// Info handles GET /notify: ?setup=true sends a test message, anything else
// answers with usage.
func (h *NotifyHandler) Info(c echo.Context) error {
	if c.QueryParam("setup") == "true" {
		result := h.relay.Setup(c.Request().Context())
		msg := "Setup successful! Check your Telegram."
		if !result.Success {
			msg = "Setup failed: " + result.Error
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":   result.Success,
			"message":   msg,
			"timestamp": h.now().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusMethodNotAllowed, map[string]interface{}{
		"success": false,
		"error":   "Method not allowed. Use POST to send notifications.",
		"usage": map[string]interface{}{
			"endpoint":     c.Scheme() + "://" + c.Request().Host + c.Request().URL.Path,
			"method":       http.MethodPost,
			"content_type": echo.MIMEApplicationJSON,
			"body": map[string]string{
				"type": "task_complete|task_start|error|project_complete|budget_warning|help_needed",
				"data": "object with relevant fields",
			},
		},
	})
}
