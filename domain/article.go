package domain

import "encoding/json"

// UnknownAuthor is the username shown for articles whose author is missing.
const UnknownAuthor = "未知"

// DefaultCategory is applied to new articles created without a category.
const DefaultCategory = "默认分类"

// Author is the public projection of an article's writer.
type Author struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Article is a blog post as returned by the articles endpoints.
type Article struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Content        string  `json:"content,omitempty"`
	Category       string  `json:"category,omitempty"`
	Tags           string  `json:"tags,omitempty"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`
	IsPrivate      bool    `json:"isPrivate"`
	IsDownloadable bool    `json:"isDownloadable"`
	Author         *Author `json:"author,omitempty"`
}

// AuthorName never returns an empty name.
func (a *Article) AuthorName() string {
	if a == nil || a.Author == nil || a.Author.Username == "" {
		return UnknownAuthor
	}
	return a.Author.Username
}

// CanManageArticle reports whether user may edit or delete the article.
func CanManageArticle(user *Identity, article *Article) bool {
	if user == nil || article == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	return article.Author != nil && article.Author.ID != 0 && article.Author.ID == user.ID
}

// Page is the paginated envelope. Content keeps the raw items so callers can
// decode them into the type they expect.
type Page struct {
	Content       []json.RawMessage `json:"content"`
	TotalElements int64             `json:"totalElements"`
	TotalPages    int               `json:"totalPages,omitempty"`
	CurrentPage   int               `json:"currentPage,omitempty"`
	Size          int               `json:"size,omitempty"`
	First         bool              `json:"first,omitempty"`
	Last          bool              `json:"last,omitempty"`
}

// Articles decodes the page content as articles.
func (p *Page) Articles() ([]Article, error) {
	if p == nil {
		return nil, nil
	}
	out := make([]Article, 0, len(p.Content))
	for _, raw := range p.Content {
		var article Article
		if err := json.Unmarshal(raw, &article); err != nil {
			return nil, err
		}
		out = append(out, article)
	}
	return out, nil
}
