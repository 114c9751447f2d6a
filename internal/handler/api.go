package handler

import (
	"github.com/brightsite/internal/service"
	"github.com/brightsite/internal/store"
)

// API 汇集 HTTP 处理函数共享的依赖。
type API struct {
	posts     *service.PostService
	articles  *service.AIArticleService
	scheduler *service.Scheduler
	store     *store.Store
	uploadDir string
	uploadURL string
}

// NewAPI 构造处理函数集合。
func NewAPI(st *store.Store, posts *service.PostService, articles *service.AIArticleService, scheduler *service.Scheduler, uploadDir, uploadURL string) *API {
	return &API{
		posts:     posts,
		articles:  articles,
		scheduler: scheduler,
		store:     st,
		uploadDir: uploadDir,
		uploadURL: uploadURL,
	}
}
