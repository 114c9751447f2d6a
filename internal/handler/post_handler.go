package handler

import (
	"errors"
	"net/http"

	"github.com/brightsite/internal/service"
	"github.com/brightsite/internal/store"
	"github.com/gin-gonic/gin"
)

// GetPosts 获取文章列表（后台，含草稿）
func (a *API) GetPosts(c *gin.Context) {
	posts, err := a.posts.ListPosts(true)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetPost 获取单篇文章（后台）
func (a *API) GetPost(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.GetPost(id)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// CreatePost 创建新文章
func (a *API) CreatePost(c *gin.Context) {
	var postData struct {
		Title    string   `json:"title"`
		Content  string   `json:"content"`
		Excerpt  string   `json:"excerpt"`
		Author   string   `json:"author"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
		Image    string   `json:"image"`
		Status   string   `json:"status"`
	}
	if !bindJSON(c, &postData, "请求数据格式错误") {
		return
	}

	post, err := a.posts.CreatePost(service.PostInput{
		Title:    postData.Title,
		Content:  postData.Content,
		Excerpt:  postData.Excerpt,
		Author:   postData.Author,
		Category: postData.Category,
		Tags:     postData.Tags,
		Image:    postData.Image,
		Status:   postData.Status,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	respondOK(c, "文章创建成功", gin.H{"post": post})
}

// UpdatePost 更新文章，未提供的字段保持不变
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var patch store.PostPatch
	if !bindJSON(c, &patch, "请求数据格式错误") {
		return
	}

	post, err := a.posts.UpdatePost(id, patch)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "更新文章失败")
		return
	}

	respondOK(c, "文章更新成功", gin.H{"post": post})
}

// DeletePost 删除文章
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	if err := a.posts.DeletePost(id); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除文章失败")
		return
	}

	respondOK(c, "文章删除成功", nil)
}

// ListPublishedPosts 公开的文章列表，仅返回已发布文章
func (a *API) ListPublishedPosts(c *gin.Context) {
	posts, err := a.posts.ListPosts(false)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// ShowPublishedPost 公开的文章详情：累加浏览计数并返回渲染后的正文
func (a *API) ShowPublishedPost(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.GetPost(id)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}
	// 草稿对外不可见，也不计浏览量
	if post.Status != store.PostStatusPublished {
		respondError(c, http.StatusNotFound, "文章不存在")
		return
	}

	post, err = a.posts.IncrementViews(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}

	rendered, err := service.RenderContent(post.Content)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "渲染文章失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post, "html": rendered})
}
