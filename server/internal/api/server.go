package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rootjourney/server/internal/archive"
	"rootjourney/server/internal/dialogue"
	"rootjourney/server/internal/logger"
	"rootjourney/server/internal/model"
	"rootjourney/server/internal/session"
)

type Server struct {
	controller *dialogue.Controller
	archives   *archive.Store
	log        *logger.Logger

	upgrader websocket.Upgrader
}

func NewServer(controller *dialogue.Controller, archives *archive.Store, log *logger.Logger) *Server {
	return &Server{
		controller: controller,
		archives:   archives,
		log:        log.With("component", "api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 开发期允许本地跨域，生产环境应改为白名单
				origin := r.Header.Get("Origin")
				return origin == "" || origin == "http://localhost:5173" || origin == "http://127.0.0.1:5173"
			},
		},
	}
}

func (s *Server) Routes() http.Handler {
	// Gin 统一承载中间件与路由，便于扩展日志/鉴权/限流等能力。
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), s.corsMiddleware())

	engine.GET("/healthz", s.handleHealthz)

	engine.POST("/user/input", s.handleUserInput)
	engine.GET("/ai/question/:session_id", s.handleCurrentQuestion)
	engine.POST("/ai/chat", s.handleChat)

	engine.GET("/session/list", s.handleSessionList)
	engine.GET("/session/:session_id", s.handleSessionGet)
	engine.GET("/session/:session_id/events", s.handleSessionEvents)
	engine.POST("/session/:session_id/archive", s.handleSessionArchive)

	engine.GET("/api/sessions/:session_id/chat", s.handleChatStream)
	return engine
}

// handleHealthz 返回服务健康状态。
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUserInput 处理 /user/input：登记基础信息并开启一轮寻根访谈。
func (s *Server) handleUserInput(c *gin.Context) {
	var req model.UserProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	p, err := s.controller.StartSession(c.Request.Context(), req)
	if err != nil {
		s.log.Error("start session failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "start session failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": p.SessionID,
		"question":   p.CurrentQuestion,
		"step":       p.Step,
	})
}

// handleCurrentQuestion 处理 /ai/question/{session_id}：取回当前待回答的问题。
func (s *Server) handleCurrentQuestion(c *gin.Context) {
	res, err := s.controller.CurrentQuestion(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		s.replyError(c, err, "load question failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// handleChat 处理 /ai/chat：消费一条回答并返回下一步动作。
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
		return
	}

	res, err := s.controller.SubmitAnswer(c.Request.Context(), req.SessionID, req.Answer)
	if err != nil {
		s.replyError(c, err, "handle answer failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleSessionGet 返回会话快照（含 collected_data）。
func (s *Server) handleSessionGet(c *gin.Context) {
	p, err := s.controller.Session(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		s.replyError(c, err, "load session failed")
		return
	}
	c.JSON(http.StatusOK, p)
}

// handleSessionEvents 返回会话的全量时间线事件，用于回放与审计。
func (s *Server) handleSessionEvents(c *gin.Context) {
	events, err := s.controller.Events(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		s.replyError(c, err, "load events failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type archiveRequest struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
}

// handleSessionArchive 手动归档一个会话的当前资料快照。
func (s *Server) handleSessionArchive(c *gin.Context) {
	var req archiveRequest
	// body 可省略，省略时用默认标题
	_ = c.ShouldBindJSON(&req)

	p, err := s.controller.Session(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		s.replyError(c, err, "load session failed")
		return
	}
	rec, err := s.archives.Archive(c.Request.Context(), p, req.Title, req.Notes)
	if err != nil {
		s.log.Error("archive failed", "session_id", p.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleSessionList 返回全部归档记录。
func (s *Server) handleSessionList(c *gin.Context) {
	recs, err := s.archives.List(c.Request.Context())
	if err != nil {
		s.log.Error("list archives failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list archives failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": recs})
}

// replyError 把控制器错误映射为 HTTP 状态：会话不存在是 404，其余是 500。
func (s *Server) replyError(c *gin.Context, err error, msg string) {
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	s.log.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		// 开发期：允许本地 Vite；线上应改为白名单或同源。
		if origin == "http://localhost:5173" || origin == "http://127.0.0.1:5173" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
