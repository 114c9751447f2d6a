package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/brightsite/internal/service"
	"github.com/brightsite/internal/store"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubGenerator 返回固定文章，避免真实的网络调用。
type stubGenerator struct {
	err error
}

func (s stubGenerator) GenerateArticle(ctx context.Context, req service.ArticleRequest) (store.Post, error) {
	if s.err != nil {
		return store.Post{}, s.err
	}
	return store.Post{
		Title:   "生成的文章",
		Content: "生成的正文。",
		Status:  store.PostStatusPublished,
	}, nil
}

func setupTestAPI(t *testing.T) *API {
	t.Helper()
	return setupTestAPIWithGenerator(t, stubGenerator{})
}

func setupTestAPIWithGenerator(t *testing.T, gen service.ArticleGenerator) *API {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	posts := service.NewPostService(st.Posts)
	articles := service.NewAIArticleService(st.AI, "")

	scheduler, err := service.NewScheduler(st.Schedule, posts, gen, "@every 1m")
	if err != nil {
		t.Fatalf("failed to construct scheduler: %v", err)
	}

	return NewAPI(st, posts, articles, scheduler, t.TempDir(), "/static/uploads")
}

func doJSON(t *testing.T, handler gin.HandlerFunc, method, target string, payload any, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(buf)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = params

	handler(c)
	return w
}

func postInputForTest(title string) service.PostInput {
	return service.PostInput{
		Title:   title,
		Content: "# " + title + "\n\n正文内容。",
		Status:  store.PostStatusPublished,
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}
