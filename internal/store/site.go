package store

import (
	"log"
	"time"
)

// ServiceItem 是站点"服务"板块的一条内容。
type ServiceItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
	Image       string `json:"image,omitempty"`
	Order       int    `json:"order"`
}

// GalleryImage 是图库中的一张图片。
type GalleryImage struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SlideItem 是首页轮播图的一帧。
type SlideItem struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Image      string `json:"image"`
	ButtonText string `json:"buttonText,omitempty"`
	ButtonLink string `json:"buttonLink,omitempty"`
	Order      int    `json:"order"`
}

// SiteSettings 描述站点的基础信息。
type SiteSettings struct {
	SiteName   string            `json:"siteName"`
	Tagline    string            `json:"tagline,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	Email      string            `json:"email,omitempty"`
	Address    string            `json:"address,omitempty"`
	Social     map[string]string `json:"social,omitempty"`
	LastUpdate *time.Time        `json:"lastUpdate,omitempty"`
}

// Collection 管理一个整体读写的 JSON 列表，供后台一次性保存整份内容。
type Collection[T any] struct {
	doc *Document[[]T]
}

// NewCollection 构造指向 path 的内容集合。
func NewCollection[T any](path string) *Collection[T] {
	return &Collection[T]{doc: NewDocument[[]T](path)}
}

// List 返回集合全部内容，文件不存在视为空集合。
func (c *Collection[T]) List() ([]T, error) {
	items, err := c.doc.Load()
	if err != nil {
		if isNotExist(err) {
			return []T{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Replace 用 items 整体覆盖集合。
func (c *Collection[T]) Replace(items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.doc.Save(items)
}

// SiteStore 持久化站点基础信息。
type SiteStore struct {
	doc *Document[SiteSettings]
}

// NewSiteStore 构造指向 path 的站点信息存储。
func NewSiteStore(path string) *SiteStore {
	return &SiteStore{doc: NewDocument[SiteSettings](path)}
}

// Get 读取站点信息，缺失或损坏时回退默认值。
func (s *SiteStore) Get() SiteSettings {
	settings, err := s.doc.Load()
	if err != nil {
		if !isNotExist(err) {
			log.Printf("[SETTINGS] 站点信息读取失败，回退默认值: %v", err)
		}
		return SiteSettings{SiteName: "BrightSite"}
	}
	if settings.SiteName == "" {
		settings.SiteName = "BrightSite"
	}
	return settings
}

// Put 整体覆盖站点信息并刷新 lastUpdate。
func (s *SiteStore) Put(settings SiteSettings) (SiteSettings, error) {
	if settings.SiteName == "" {
		settings.SiteName = "BrightSite"
	}
	now := time.Now()
	settings.LastUpdate = &now
	if err := s.doc.Save(settings); err != nil {
		return SiteSettings{}, err
	}
	return settings, nil
}
