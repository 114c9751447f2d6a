package router

import (
	"net/http"

	"github.com/brightsite/internal/config"
	"github.com/brightsite/internal/handler"
	"github.com/gin-gonic/gin"
)

// Setup 配置 Gin 引擎和路由
func Setup(api *handler.API, cfg config.AppConfig) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	// 静态文件服务（上传的图片）
	r.Static(cfg.UploadURLPath, cfg.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// 公开接口：站点渲染方只读消费
	public := r.Group("/api")
	{
		public.GET("/posts", api.ListPublishedPosts)
		public.GET("/posts/:id", api.ShowPublishedPost)
		public.GET("/services", api.GetServices)
		public.GET("/gallery", api.GetGallery)
		public.GET("/slider", api.GetSlider)
		public.GET("/site", api.GetSiteSettings)
	}

	// 后台接口：共享密钥 Bearer Token 保护
	admin := r.Group("/api/admin")
	admin.Use(handler.BearerAuth(cfg.AdminAPIToken))
	{
		admin.GET("/posts", api.GetPosts)
		admin.GET("/posts/:id", api.GetPost)
		admin.POST("/posts", api.CreatePost)
		admin.PUT("/posts/:id", api.UpdatePost)
		admin.DELETE("/posts/:id", api.DeletePost)

		admin.GET("/settings/schedule", api.GetScheduleSettings)
		admin.PUT("/settings/schedule", api.UpdateScheduleSettings)
		admin.GET("/settings/ai", api.GetAISettings)
		admin.PUT("/settings/ai", api.UpdateAISettings)
		admin.POST("/settings/ai/test", api.TestAIConnection)

		admin.GET("/scheduler/status", api.SchedulerStatus)
		admin.POST("/scheduler/start", api.StartScheduler)
		admin.POST("/scheduler/stop", api.StopScheduler)
		admin.POST("/scheduler/generate-now", api.GenerateNow)

		admin.PUT("/services", api.ReplaceServices)
		admin.PUT("/gallery", api.ReplaceGallery)
		admin.PUT("/slider", api.ReplaceSlider)
		admin.GET("/site", api.GetSiteSettings)
		admin.PUT("/site", api.UpdateSiteSettings)

		admin.POST("/upload", api.UploadImage)
	}

	return r
}
