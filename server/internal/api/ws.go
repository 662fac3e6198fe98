package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rootjourney/server/internal/model"
	"rootjourney/server/internal/session"
)

// wsAnswer 是 WebSocket 聊天通道上的入站消息。
type wsAnswer struct {
	Answer string `json:"answer"`
}

// handleChatStream 把一个会话升级为 WebSocket 问答通道：
// 连接建立后先推送当前问题，之后每收到一条回答就回推一轮结果，
// 会话终结后关闭连接。语义与 /ai/chat 完全一致，只是省去轮询。
func (s *Server) handleChatStream(c *gin.Context) {
	sessionID := c.Param("session_id")

	// 升级前先验证会话存在，升级后就只能用 WS 错误帧沟通了
	first, err := s.controller.CurrentQuestion(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		s.log.Error("load session for stream failed", "session_id", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(first); err != nil {
		return
	}
	if first.Status == model.StatusComplete {
		return
	}

	for {
		var msg wsAnswer
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("websocket read failed", "session_id", sessionID, "error", err)
			}
			return
		}

		res, err := s.controller.SubmitAnswer(c.Request.Context(), sessionID, msg.Answer)
		if err != nil {
			_ = conn.WriteJSON(gin.H{"error": "handle answer failed"})
			return
		}
		if err := conn.WriteJSON(res); err != nil {
			return
		}
		if res.Status == model.StatusComplete {
			return
		}
	}
}
