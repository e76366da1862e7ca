package like

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flashnews-app/flashnews-server/cmd/models"
	"github.com/flashnews-app/flashnews-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/likes/{postId:[0-9]+}", utils.AuthMiddleware(h.db, h.GetLikes)).Methods("GET")
	router.HandleFunc("/likes/{postId:[0-9]+}", utils.AuthMiddleware(h.db, h.LikePost)).Methods("POST")
	router.HandleFunc("/likes/{postId:[0-9]+}", utils.AuthMiddleware(h.db, h.UnlikePost)).Methods("DELETE")
}

// GetLikes lists who liked a post, newest first, gated by the 24-hour rule.
func (h *Handler) GetLikes(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	if !utils.PostVisibleTo(&post, userID) {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to view likes on this post")
		return
	}

	page, perPage := utils.Pagination(r)

	query := h.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Preload("User")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error counting likes")
		return
	}

	var likes []models.Like
	if err := query.Order("liked_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&likes).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving likes")
		return
	}

	likesData := make([]map[string]interface{}, 0, len(likes))
	for _, like := range likes {
		data := map[string]interface{}{
			"user_id":  like.UserID,
			"liked_at": like.LikedAt,
		}
		if like.User != nil {
			data["username"] = like.User.Username
			data["profile_picture"] = like.User.ProfilePicturePath
		}
		likesData = append(likesData, data)
	}

	utils.WriteSuccess(w, http.StatusOK, "Likes fetched successfully", map[string]interface{}{
		"total_likes": total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": utils.TotalPages(total, perPage),
		"likes":       likesData,
	})
}

// LikePost inserts the (user, post) like row. At most one per pair.
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	var existing models.Like
	if err := h.db.Where("user_id = ? AND post_id = ?", userID, post.ID).First(&existing).Error; err == nil {
		utils.WriteError(w, http.StatusBadRequest, "You have already liked this post")
		return
	}

	if !utils.PostVisibleTo(&post, userID) {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to like this post")
		return
	}

	like := models.Like{
		UserID:  userID,
		PostID:  post.ID,
		LikedAt: time.Now().UTC(),
	}

	if err := h.db.Create(&like).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error liking post")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Post liked successfully", nil)
}

// UnlikePost removes the like row; unliking a never-liked post is a 404.
func (h *Handler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["postId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var like models.Like
	if err := h.db.Where("user_id = ? AND post_id = ?", userID, uint(postID)).First(&like).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Like not found")
		return
	}

	var post models.Post
	if err := h.db.First(&post, like.PostID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	if !utils.PostVisibleTo(&post, userID) {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to remove like on this post")
		return
	}

	if err := h.db.Where("user_id = ? AND post_id = ?", userID, post.ID).Delete(&models.Like{}).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error unliking post")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Like removed successfully", nil)
}
