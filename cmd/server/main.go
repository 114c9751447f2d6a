package main

import (
	"log"

	"github.com/brightsite/internal/config"
	"github.com/brightsite/internal/handler"
	"github.com/brightsite/internal/router"
	"github.com/brightsite/internal/service"
	"github.com/brightsite/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	// .env 仅在本地开发时存在，缺失不报错
	_ = godotenv.Load()

	cfg := config.Load()

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open data store: %v", err)
	}

	posts := service.NewPostService(st.Posts)
	articles := service.NewAIArticleService(st.AI, cfg.TopicsPath)

	scheduler, err := service.NewScheduler(st.Schedule, posts, articles, cfg.SchedulerTickSpec)
	if err != nil {
		log.Fatalf("failed to construct scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	api := handler.NewAPI(st, posts, articles, scheduler, cfg.UploadDir, cfg.UploadURLPath)

	r := router.Setup(api, cfg)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
