package models

import (
	"time"

	"gorm.io/gorm"
)

// Article holds the link metadata shared by every post of the same URL.
// Separated from Post so reposting a link reuses the row.
type Article struct {
	gorm.Model
	Link    string `gorm:"column:link;size:2048;index;not null" json:"link"`
	Source  string `gorm:"column:source;size:255" json:"source"`
	Title   string `gorm:"column:title;size:512" json:"title"`
	Caption string `gorm:"column:caption;type:text" json:"caption"`
	Preview string `gorm:"column:preview;size:2048" json:"preview"`

	Posts []Post `gorm:"foreignKey:ArticleID" json:"posts,omitempty"`
}

type Post struct {
	gorm.Model
	UserID      uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ArticleID   uint      `gorm:"column:article_id;not null" json:"article_id"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	PostedAt    time.Time `gorm:"column:posted_at;not null;index" json:"posted_at"`

	User       *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Article    *Article         `gorm:"foreignKey:ArticleID" json:"article,omitempty"`
	Categories []PostCategory   `gorm:"foreignKey:PostID" json:"categories,omitempty"`
	Comments   []Comment        `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	Likes      []Like           `gorm:"foreignKey:PostID" json:"likes,omitempty"`
	InLists    []CollectionPost `gorm:"foreignKey:PostID" json:"-"`
}

// PostCategory joins posts to the fixed category enumeration.
type PostCategory struct {
	PostID   uint     `gorm:"column:post_id;primaryKey" json:"post_id"`
	Category Category `gorm:"column:category;size:20;primaryKey" json:"category"`
}

func (PostCategory) TableName() string {
	return "post_categories"
}

type Comment struct {
	gorm.Model
	UserID  uint   `gorm:"column:user_id;not null" json:"user_id"`
	PostID  uint   `gorm:"column:post_id;not null;index" json:"post_id"`
	Content string `gorm:"column:content;type:text;not null" json:"content"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type Like struct {
	UserID  uint      `gorm:"column:user_id;primaryKey" json:"user_id"`
	PostID  uint      `gorm:"column:post_id;primaryKey" json:"post_id"`
	LikedAt time.Time `gorm:"column:liked_at" json:"liked_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Like) TableName() string {
	return "likes"
}
