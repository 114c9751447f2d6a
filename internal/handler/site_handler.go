package handler

import (
	"net/http"

	"github.com/brightsite/internal/store"
	"github.com/gin-gonic/gin"
)

// GetServices 获取服务板块内容
func (a *API) GetServices(c *gin.Context) {
	items, err := a.store.Services.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取服务内容失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": items})
}

// ReplaceServices 整体保存服务板块内容
func (a *API) ReplaceServices(c *gin.Context) {
	var items []store.ServiceItem
	if !bindJSON(c, &items, "请求数据格式错误") {
		return
	}
	if err := a.store.Services.Replace(items); err != nil {
		respondError(c, http.StatusInternalServerError, "保存服务内容失败")
		return
	}
	respondOK(c, "服务内容已保存", gin.H{"services": items})
}

// GetGallery 获取图库内容
func (a *API) GetGallery(c *gin.Context) {
	items, err := a.store.Gallery.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取图库失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"gallery": items})
}

// ReplaceGallery 整体保存图库内容
func (a *API) ReplaceGallery(c *gin.Context) {
	var items []store.GalleryImage
	if !bindJSON(c, &items, "请求数据格式错误") {
		return
	}
	if err := a.store.Gallery.Replace(items); err != nil {
		respondError(c, http.StatusInternalServerError, "保存图库失败")
		return
	}
	respondOK(c, "图库已保存", gin.H{"gallery": items})
}

// GetSlider 获取轮播图内容
func (a *API) GetSlider(c *gin.Context) {
	items, err := a.store.Slider.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取轮播图失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"slider": items})
}

// ReplaceSlider 整体保存轮播图内容
func (a *API) ReplaceSlider(c *gin.Context) {
	var items []store.SlideItem
	if !bindJSON(c, &items, "请求数据格式错误") {
		return
	}
	if err := a.store.Slider.Replace(items); err != nil {
		respondError(c, http.StatusInternalServerError, "保存轮播图失败")
		return
	}
	respondOK(c, "轮播图已保存", gin.H{"slider": items})
}

// GetSiteSettings 获取站点基础信息
func (a *API) GetSiteSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": a.store.Site.Get()})
}

// UpdateSiteSettings 整体保存站点基础信息
func (a *API) UpdateSiteSettings(c *gin.Context) {
	var input store.SiteSettings
	if !bindJSON(c, &input, "请求数据格式错误") {
		return
	}
	saved, err := a.store.Site.Put(input)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存站点信息失败")
		return
	}
	respondOK(c, "站点信息已保存", gin.H{"settings": saved})
}
