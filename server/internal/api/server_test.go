package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"rootjourney/server/internal/archive"
	"rootjourney/server/internal/classify"
	"rootjourney/server/internal/config"
	"rootjourney/server/internal/dialogue"
	"rootjourney/server/internal/facts"
	"rootjourney/server/internal/logger"
	"rootjourney/server/internal/session"
	"rootjourney/server/internal/timeline"
	"rootjourney/server/internal/topic"
)

// fixedGenerator 让接口测试不依赖外部模型：问题走保底问法，抽取结果固定。
type fixedGenerator struct {
	extract facts.Tree
}

func (g *fixedGenerator) Synthesize(context.Context, string, facts.Tree, []string, int) []string {
	return nil
}

func (g *fixedGenerator) Extract(context.Context, string, string, facts.Tree) facts.Tree {
	if g.extract == nil {
		return facts.Tree{}
	}
	return g.extract
}

func (g *fixedGenerator) Clarify(_ context.Context, currentQuestion, _, _ string, _ []string) string {
	return currentQuestion + "（说个大概也行）"
}

func newTestServer(t *testing.T, gen dialogue.Generator) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	archives, err := archive.Open(config.ArchiveConfig{
		Driver: "sqlite",
		DSN:    "file:api_" + t.Name() + "?mode=memory&cache=shared",
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}

	controller := dialogue.New(
		session.NewInMemoryStore(0),
		topic.Default(),
		classify.NewKeywordClassifier(),
		gen,
		timeline.NewInMemoryStore(),
		nil,
		config.DialogueConfig{MinQuestions: 2, CandidateCount: 4, AskedHistoryLimit: 30},
		logger.NewNop(),
	)
	return NewServer(controller, archives, logger.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fixedGenerator{})
	w := doJSON(t, srv.Routes(), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestUserInputThenChatFlow(t *testing.T) {
	srv := newTestServer(t, &fixedGenerator{
		extract: facts.Tree{"self": map[string]any{"origin": "福建泉州"}},
	})
	h := srv.Routes()

	w := doJSON(t, h, http.MethodPost, "/user/input", map[string]string{"name": "陈翔"})
	if w.Code != http.StatusOK {
		t.Fatalf("/user/input code = %d body = %s", w.Code, w.Body.String())
	}
	var started struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
		Step      string `json:"step"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.SessionID == "" || started.Question == "" {
		t.Fatalf("开场响应不完整: %+v", started)
	}

	w = doJSON(t, h, http.MethodGet, "/ai/question/"+started.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("/ai/question code = %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/ai/chat", map[string]string{
		"session_id": started.SessionID,
		"answer":     "我们家是福建泉州的",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("/ai/chat code = %d body = %s", w.Code, w.Body.String())
	}
	var turn struct {
		Status   string `json:"status"`
		Question string `json:"question"`
		Step     string `json:"step"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &turn)
	if turn.Status != "continue" || turn.Question == "" {
		t.Fatalf("轮次结果异常: %+v", turn)
	}

	w = doJSON(t, h, http.MethodGet, "/session/"+started.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("/session code = %d", w.Code)
	}
	var snap struct {
		CollectedData map[string]any `json:"collected_data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &snap)
	if facts.Resolve(snap.CollectedData, "self.origin") != "福建泉州" {
		t.Errorf("collected_data 未体现抽取结果: %+v", snap.CollectedData)
	}

	w = doJSON(t, h, http.MethodGet, "/session/"+started.SessionID+"/events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("/session/:id/events code = %d", w.Code)
	}
	t.Logf("✓ 开场-提问-回答-查询全链路可用")
}

func TestUserInputRequiresName(t *testing.T) {
	srv := newTestServer(t, &fixedGenerator{})
	w := doJSON(t, srv.Routes(), http.MethodPost, "/user/input", map[string]string{"birth_place": "北京"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
}

func TestUnknownSessionMapsTo404(t *testing.T) {
	srv := newTestServer(t, &fixedGenerator{})
	h := srv.Routes()

	if w := doJSON(t, h, http.MethodGet, "/ai/question/ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("/ai/question code = %d, want 404", w.Code)
	}
	if w := doJSON(t, h, http.MethodPost, "/ai/chat", map[string]string{"session_id": "ghost", "answer": "hi"}); w.Code != http.StatusNotFound {
		t.Errorf("/ai/chat code = %d, want 404", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/session/ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("/session code = %d, want 404", w.Code)
	}
}

func TestArchiveAndList(t *testing.T) {
	srv := newTestServer(t, &fixedGenerator{})
	h := srv.Routes()

	w := doJSON(t, h, http.MethodPost, "/user/input", map[string]string{"name": "林芳"})
	var started struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &started)

	w = doJSON(t, h, http.MethodPost, "/session/"+started.SessionID+"/archive", map[string]string{"title": "第一次访谈"})
	if w.Code != http.StatusOK {
		t.Fatalf("archive code = %d body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/session/list", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list code = %d", w.Code)
	}
	var listed struct {
		Sessions []struct {
			SessionID string `json:"session_id"`
			Title     string `json:"title"`
		} `json:"sessions"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed.Sessions) != 1 || listed.Sessions[0].Title != "第一次访谈" {
		t.Errorf("归档列表不符: %+v", listed)
	}
}
