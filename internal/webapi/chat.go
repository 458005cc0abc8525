package webapi

import (
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/artisanhub/artisanhub/internal/chat"
	"github.com/artisanhub/artisanhub/internal/listing"
	"github.com/artisanhub/artisanhub/internal/webserver"
	"github.com/artisanhub/artisanhub/pkg/metrics"
)

const (
	chatSessionName = "artisanhub_chat"
	chatHistoryKey  = "history"
)

type chatPayload struct {
	Message string `json:"message" validate:"required,min=1,max=1000"`
}

func registerChatRoutes() {
	webserver.ApiPOST("/chat", chatMessage)
	webserver.ApiDELETE("/chat", clearChat)
}

// loadHistory reads the turns kept in the cookie session. History is stored as
// a JSON string so the cookie codec needs no registered types.
func loadHistory(raw interface{}) []listing.Turn {
	s, isStr := raw.(string)
	if !isStr || s == "" {
		return nil
	}
	var turns []listing.Turn
	if err := json.UnmarshalFromString(s, &turns); err != nil {
		return nil
	}
	return turns
}

func chatMessage(c echo.Context) error {
	var payload chatPayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}

	sess, err := session.Get(chatSessionName, c)
	if sess == nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Chat session unavailable", nil)
	}
	if err != nil {
		zap.L().Debug("chat session reset", zap.String("namespace", "chat"), zap.Error(err))
	}
	history := loadHistory(sess.Values[chatHistoryKey])

	reply := GetAppContext(c).Assistant().Reply(c.Request().Context(), payload.Message, history)
	metrics.IncrLabel(metrics.ChatMessages, "source", reply.Source)

	history = append(history,
		listing.Turn{Role: listing.RoleUser, Content: payload.Message},
		listing.Turn{Role: listing.RoleAssistant, Content: reply.Message},
	)
	if len(history) > chat.MaxHistory {
		history = history[len(history)-chat.MaxHistory:]
	}
	if encoded, err := json.MarshalToString(history); err == nil {
		sess.Values[chatHistoryKey] = encoded
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			zap.L().Warn("failed to save chat session", zap.String("namespace", "chat"), zap.Error(err))
		}
	}
	return ok(c, reply)
}

func clearChat(c echo.Context) error {
	sess, _ := session.Get(chatSessionName, c)
	if sess == nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Chat session unavailable", nil)
	}
	delete(sess.Values, chatHistoryKey)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to clear chat", err.Error())
	}
	return okMsg(c, "Chat cleared", nil)
}
