package handler

import (
	"errors"
	"net/http"

	"github.com/brightsite/internal/service"
	"github.com/gin-gonic/gin"
)

// StartScheduler 启动调度器，状态切换立即返回
func (a *API) StartScheduler(c *gin.Context) {
	if err := a.scheduler.Start(); err != nil {
		respondError(c, http.StatusInternalServerError, "调度器启动失败："+err.Error())
		return
	}
	respondOK(c, "调度器已启动", gin.H{"status": a.scheduler.Status()})
}

// StopScheduler 停止调度器，进行中的生成允许跑完
func (a *API) StopScheduler(c *gin.Context) {
	a.scheduler.Stop()
	respondOK(c, "调度器已停止", gin.H{"status": a.scheduler.Status()})
}

// SchedulerStatus 查询调度器状态
func (a *API) SchedulerStatus(c *gin.Context) {
	respondOK(c, "ok", gin.H{"status": a.scheduler.Status()})
}

// GenerateNow 手动触发一次生成。配额已满时需显式 force 放行。
func (a *API) GenerateNow(c *gin.Context) {
	var input struct {
		Force bool `json:"force"`
	}
	// 请求体可以为空，为空时按默认值处理
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if !bindJSON(c, &input, "请求数据格式错误") {
			return
		}
	}

	post, err := a.scheduler.GenerateNow(input.Force)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSchedulerBusy):
			respondError(c, http.StatusConflict, "已有生成任务进行中，请稍后再试")
		case errors.Is(err, service.ErrQuotaReached):
			respondError(c, http.StatusBadRequest, "今日生成配额已用完")
		case errors.Is(err, service.ErrAINotConfigured):
			respondError(c, http.StatusBadRequest, "尚未配置 AI API Key")
		default:
			respondError(c, http.StatusBadGateway, "生成失败："+err.Error())
		}
		return
	}

	respondOK(c, "文章生成成功", gin.H{"post": post, "status": a.scheduler.Status()})
}
