package utils

import (
	"time"

	"github.com/flashnews-app/flashnews-server/cmd/models"
)

// PostVisibilityWindow is how long a post stays visible to non-owners.
const PostVisibilityWindow = 24 * time.Hour

// PostVisibleTo applies the 24-hour rule: the owner always sees their post,
// everyone else only while it is strictly younger than the window. All
// comparisons are in UTC; a post exactly 24 hours old is already hidden.
func PostVisibleTo(post *models.Post, userID uint) bool {
	if post.UserID == userID {
		return true
	}
	return time.Now().UTC().Sub(post.PostedAt.UTC()) < PostVisibilityWindow
}
