package models

import "gorm.io/gorm"

type Collection struct {
	gorm.Model
	UserID      uint   `gorm:"column:user_id;not null;uniqueIndex:idx_user_collection_title" json:"user_id"`
	Title       string `gorm:"column:title;size:100;not null;uniqueIndex:idx_user_collection_title" json:"title"`
	Emoji       string `gorm:"column:emoji;size:10" json:"emoji"`
	Description string `gorm:"column:description;type:text" json:"description"`
	IsPublic    bool   `gorm:"column:is_public;default:true" json:"is_public"`

	User  *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Posts []CollectionPost `gorm:"foreignKey:CollectionID" json:"posts,omitempty"`
}

// CollectionPost joins collections to posts. Membership is a plain set, so
// the composite key doubles as the idempotency guard.
type CollectionPost struct {
	CollectionID uint `gorm:"column:collection_id;primaryKey" json:"collection_id"`
	PostID       uint `gorm:"column:post_id;primaryKey" json:"post_id"`
}

func (CollectionPost) TableName() string {
	return "collection_posts"
}
