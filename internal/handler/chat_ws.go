package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"hansa/config"
	"hansa/internal/auth"
	"hansa/internal/service"
	"hansa/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	chatWriteWait  = 10 * time.Second
	chatPongWait   = 60 * time.Second
	chatPingPeriod = (chatPongWait * 9) / 10
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsInbound is the client-to-server frame. Which fields matter depends on
// the type:
//
//	join_conversation / leave_conversation / typing: conversation_id
//	message: conversation_id, content, message_type (optional)
//	delivered / read: message_id
type wsInbound struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
	MessageID      uint   `json:"message_id"`
	Content        string `json:"content"`
	MessageType    string `json:"message_type"`
}

// UpgradeChatWS upgrades to a WebSocket authenticated via the token query
// parameter. One socket serves all of the user's conversations; joining a
// room marks the conversation as being viewed, which suppresses in-app
// notifications for it.
func UpgradeChatWS(cfg *config.JWTConfig, hub *ws.Hub, convSvc *service.ConversationService, msgSvc *service.MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		conn, err := chatUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := &ws.Client{
			UserID: claims.UserID,
			Send:   make(chan []byte, 256),
		}
		hub.Register(client)
		defer client.Close()

		conn.SetReadDeadline(time.Now().Add(chatPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(chatPongWait))
			return nil
		})
		go func() {
			ticker := time.NewTicker(chatPingPeriod)
			defer ticker.Stop()
			for {
				select {
				case msg, ok := <-client.Send:
					if !ok {
						return
					}
					conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				case <-ticker.C:
					conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				}
			}
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var msg wsInbound
			if json.Unmarshal(raw, &msg) != nil {
				continue
			}
			switch msg.Type {
			case "join_conversation":
				if _, err := convSvc.Get(msg.ConversationID, claims.UserID); err != nil {
					sendErrorFrame(client, msg.ConversationID, err)
					continue
				}
				hub.JoinRoom(msg.ConversationID, client)
			case "leave_conversation":
				hub.LeaveRoom(msg.ConversationID, client)
			case "typing":
				if !hub.IsViewing(msg.ConversationID, claims.UserID) {
					continue
				}
				hub.ToConversation(msg.ConversationID, claims.UserID, "user_typing", map[string]interface{}{
					"conversation_id": msg.ConversationID,
					"user_id":         claims.UserID,
				})
			case "message":
				if _, err := msgSvc.Send(msg.ConversationID, claims.UserID, msg.Content, msg.MessageType); err != nil {
					sendErrorFrame(client, msg.ConversationID, err)
				}
			case "delivered":
				if err := msgSvc.MarkDelivered(msg.MessageID, claims.UserID); err != nil {
					sendErrorFrame(client, msg.ConversationID, err)
				}
			case "read":
				if err := msgSvc.MarkRead(msg.MessageID, claims.UserID); err != nil {
					sendErrorFrame(client, msg.ConversationID, err)
				}
			}
		}
	}
}

func sendErrorFrame(client *ws.Client, conversationID uint, err error) {
	payload := map[string]interface{}{
		"type":  "error",
		"error": err.Error(),
	}
	if conversationID != 0 {
		payload["conversation_id"] = conversationID
	}
	data, _ := json.Marshal(payload)
	select {
	case client.Send <- data:
	default:
	}
}
