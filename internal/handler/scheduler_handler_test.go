package handler

import (
	"net/http"
	"testing"

	"github.com/brightsite/internal/service"
)

func TestSchedulerStartStopStatus(t *testing.T) {
	api := setupTestAPI(t)

	w := doJSON(t, api.StartScheduler, http.MethodPost, "/api/admin/scheduler/start", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	status := body["status"].(map[string]any)
	if status["isRunning"] != true {
		t.Fatalf("expected isRunning true, got %v", status)
	}

	w = doJSON(t, api.StopScheduler, http.MethodPost, "/api/admin/scheduler/stop", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body = decodeBody(t, w)
	status = body["status"].(map[string]any)
	if status["isRunning"] != false {
		t.Fatalf("expected isRunning false, got %v", status)
	}

	w = doJSON(t, api.SchedulerStatus, http.MethodGet, "/api/admin/scheduler/status", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestGenerateNowSuccess(t *testing.T) {
	api := setupTestAPI(t)

	w := doJSON(t, api.GenerateNow, http.MethodPost, "/api/admin/scheduler/generate-now", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	post := body["post"].(map[string]any)
	if post["title"] != "生成的文章" {
		t.Fatalf("unexpected generated post: %v", post)
	}

	posts, err := api.posts.ListPosts(true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 persisted post, got %d", len(posts))
	}
}

func TestGenerateNowQuotaRejectedWithoutForce(t *testing.T) {
	api := setupTestAPI(t)

	// 默认配额为 1，第一次成功
	w := doJSON(t, api.GenerateNow, http.MethodPost, "/api/admin/scheduler/generate-now", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = doJSON(t, api.GenerateNow, http.MethodPost, "/api/admin/scheduler/generate-now", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for quota reached, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, api.GenerateNow, http.MethodPost, "/api/admin/scheduler/generate-now",
		map[string]any{"force": true}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 with force, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGenerateNowNotConfigured(t *testing.T) {
	api := setupTestAPIWithGenerator(t, stubGenerator{err: service.ErrAINotConfigured})

	w := doJSON(t, api.GenerateNow, http.MethodPost, "/api/admin/scheduler/generate-now", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Fatalf("expected success false, got %v", body)
	}
}
