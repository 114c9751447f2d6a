package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store 汇集站点全部 JSON 后备存储，统一落在同一个数据目录下。
type Store struct {
	Posts    *PostRepository
	Schedule *ScheduleStore
	AI       *AIStore
	Site     *SiteStore
	Services *Collection[ServiceItem]
	Gallery  *Collection[GalleryImage]
	Slider   *Collection[SlideItem]
}

// Open 确保数据目录存在并打开全部集合。
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}

	return &Store{
		Posts:    NewPostRepository(filepath.Join(dataDir, "posts.json")),
		Schedule: NewScheduleStore(filepath.Join(dataDir, "schedule.json")),
		AI:       NewAIStore(filepath.Join(dataDir, "ai.json")),
		Site:     NewSiteStore(filepath.Join(dataDir, "site.json")),
		Services: NewCollection[ServiceItem](filepath.Join(dataDir, "services.json")),
		Gallery:  NewCollection[GalleryImage](filepath.Join(dataDir, "gallery.json")),
		Slider:   NewCollection[SlideItem](filepath.Join(dataDir, "slider.json")),
	}, nil
}
