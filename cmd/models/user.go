package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username           string `gorm:"column:username;size:50;uniqueIndex;not null" json:"username"`
	Email              string `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash       string `gorm:"column:password_hash;size:255;not null" json:"-"`
	BioDescription     string `gorm:"column:bio_description;type:text" json:"bio_description"`
	ProfilePicturePath string `gorm:"column:profile_picture_path;size:255" json:"profile_picture_path"`
	Interests          string `gorm:"column:interests;type:text" json:"interests"`

	Posts       []Post       `gorm:"foreignKey:UserID" json:"posts,omitempty"`
	Collections []Collection `gorm:"foreignKey:UserID" json:"collections,omitempty"`
	Comments    []Comment    `gorm:"foreignKey:UserID" json:"comments,omitempty"`
	Likes       []Like       `gorm:"foreignKey:UserID" json:"likes,omitempty"`
}

// Follow is a directed edge: FollowerID follows UserID.
type Follow struct {
	UserID     uint      `gorm:"column:user_id;primaryKey" json:"user_id"`
	FollowerID uint      `gorm:"column:follower_id;primaryKey" json:"follower_id"`
	FollowedAt time.Time `gorm:"column:followed_at" json:"followed_at"`

	FollowedUser *User `gorm:"foreignKey:UserID" json:"followed_user,omitempty"`
	Follower     *User `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
}

func (Follow) TableName() string {
	return "follows"
}

// RevokedToken blacklists an issued token by its jti until natural expiry.
type RevokedToken struct {
	gorm.Model
	JTI string `gorm:"column:jti;size:64;uniqueIndex;not null" json:"jti"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
