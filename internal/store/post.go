package store

import (
	"time"
)

const (
	// PostStatusDraft 表示文章尚未对外发布。
	PostStatusDraft = "draft"
	// PostStatusPublished 表示文章已发布。
	PostStatusPublished = "published"
)

// Post 定义了文章模型，以 JSON 数组形式整体持久化，最新文章排在最前。
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Excerpt   string    `json:"excerpt"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Image     string    `json:"image,omitempty"`
	Status    string    `json:"status"`
	Views     int       `json:"views"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Date      string    `json:"date"`
}

// PostPatch 描述一次部分更新，nil 字段保持原值不动。
type PostPatch struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Excerpt  *string   `json:"excerpt"`
	Author   *string   `json:"author"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
	Image    *string   `json:"image"`
	Status   *string   `json:"status"`
}

// PostRepository 管理文章集合的持久化。
// 集合作为一个整体做读-改-写，互斥锁由底层 Document 提供，
// 调用方不需要额外串行化。
type PostRepository struct {
	doc *Document[[]Post]
}

// NewPostRepository 构造指向 path 的文章仓库。
func NewPostRepository(path string) *PostRepository {
	return &PostRepository{doc: NewDocument[[]Post](path)}
}

// ListAll 返回全部文章（最新在前）。文件不存在视为空集合；
// 文件损坏则原样上报，提示存在数据丢失风险。
func (r *PostRepository) ListAll() ([]Post, error) {
	posts, err := r.doc.Load()
	if err != nil {
		if isNotExist(err) {
			return []Post{}, nil
		}
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

// GetByID 按 ID 查找文章。
func (r *PostRepository) GetByID(id int64) (Post, bool, error) {
	posts, err := r.ListAll()
	if err != nil {
		return Post{}, false, err
	}
	for _, post := range posts {
		if post.ID == id {
			return post, true, nil
		}
	}
	return Post{}, false, nil
}

// Append 将文章插入集合头部并整体落盘。
// ID 为空时按创建时间派生（毫秒时间戳），并保证严格大于已有 ID，
// 以维持"唯一且单调递增"的主键约束。
func (r *PostRepository) Append(post Post) (Post, error) {
	err := r.doc.Update(func(posts *[]Post) error {
		now := time.Now()
		if post.CreatedAt.IsZero() {
			post.CreatedAt = now
		}
		if post.UpdatedAt.IsZero() {
			post.UpdatedAt = post.CreatedAt
		}
		if post.Date == "" {
			post.Date = post.CreatedAt.Format("2006-01-02")
		}

		if post.ID == 0 {
			post.ID = post.CreatedAt.UnixMilli()
		}
		for _, existing := range *posts {
			if post.ID <= existing.ID {
				post.ID = existing.ID + 1
			}
		}

		if post.Tags == nil {
			post.Tags = []string{}
		}

		*posts = append([]Post{post}, *posts...)
		return nil
	})
	if err != nil {
		return Post{}, err
	}
	return post, nil
}

// UpdateByID 将补丁合并进指定文章并刷新 updatedAt，返回是否命中。
func (r *PostRepository) UpdateByID(id int64, patch PostPatch) (Post, bool, error) {
	var (
		updated Post
		found   bool
	)

	err := r.doc.Update(func(posts *[]Post) error {
		for i := range *posts {
			if (*posts)[i].ID != id {
				continue
			}
			applyPostPatch(&(*posts)[i], patch)
			(*posts)[i].UpdatedAt = time.Now()
			updated = (*posts)[i]
			found = true
			return nil
		}
		return errSkipSave
	})
	if err != nil && err != errSkipSave {
		return Post{}, false, err
	}
	return updated, found, nil
}

// DeleteByID 删除指定文章，返回是否命中。
func (r *PostRepository) DeleteByID(id int64) (bool, error) {
	var found bool

	err := r.doc.Update(func(posts *[]Post) error {
		for i := range *posts {
			if (*posts)[i].ID == id {
				*posts = append((*posts)[:i], (*posts)[i+1:]...)
				found = true
				return nil
			}
		}
		return errSkipSave
	})
	if err != nil && err != errSkipSave {
		return false, err
	}
	return found, nil
}

// IncrementViews 将浏览计数加一，返回更新后的文章。
func (r *PostRepository) IncrementViews(id int64) (Post, bool, error) {
	var (
		updated Post
		found   bool
	)

	err := r.doc.Update(func(posts *[]Post) error {
		for i := range *posts {
			if (*posts)[i].ID == id {
				(*posts)[i].Views++
				updated = (*posts)[i]
				found = true
				return nil
			}
		}
		return errSkipSave
	})
	if err != nil && err != errSkipSave {
		return Post{}, false, err
	}
	return updated, found, nil
}

// CountOnDate 统计指定本地日期（createdAt 所在日）创建的文章数，
// 供调度器在启动时重建当日配额计数。
func (r *PostRepository) CountOnDate(day time.Time) (int, error) {
	posts, err := r.ListAll()
	if err != nil {
		return 0, err
	}

	target := day.Format("2006-01-02")
	count := 0
	for _, post := range posts {
		if post.CreatedAt.Local().Format("2006-01-02") == target {
			count++
		}
	}
	return count, nil
}

func applyPostPatch(post *Post, patch PostPatch) {
	if patch.Title != nil {
		post.Title = *patch.Title
	}
	if patch.Content != nil {
		post.Content = *patch.Content
	}
	if patch.Excerpt != nil {
		post.Excerpt = *patch.Excerpt
	}
	if patch.Author != nil {
		post.Author = *patch.Author
	}
	if patch.Category != nil {
		post.Category = *patch.Category
	}
	if patch.Tags != nil {
		post.Tags = *patch.Tags
	}
	if patch.Image != nil {
		post.Image = *patch.Image
	}
	if patch.Status != nil {
		post.Status = *patch.Status
	}
}
