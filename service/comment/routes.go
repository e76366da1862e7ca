package comment

import (
	"encoding/json"
	"net/http"
	"strconv"

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
	router.HandleFunc("/comments/{postId:[0-9]+}", utils.AuthMiddleware(h.db, h.GetComments)).Methods("GET")
	router.HandleFunc("/comments/{postId:[0-9]+}", utils.AuthMiddleware(h.db, h.CreateComment)).Methods("POST")
	router.HandleFunc("/comments/{commentId:[0-9]+}", utils.AuthMiddleware(h.db, h.UpdateComment)).Methods("PUT")
	router.HandleFunc("/comments/{commentId:[0-9]+}", utils.AuthMiddleware(h.db, h.DeleteComment)).Methods("DELETE")
}

// GetComments lists a post's comments, newest first. The post must be visible
// to the requester under the 24-hour rule.
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
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
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to view comments on this post")
		return
	}

	page, perPage := utils.Pagination(r)

	query := h.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Preload("User")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error counting comments")
		return
	}

	var comments []models.Comment
	if err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&comments).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving comments")
		return
	}

	commentsData := make([]map[string]interface{}, 0, len(comments))
	for _, comment := range comments {
		data := map[string]interface{}{
			"comment_id":   comment.ID,
			"comment":      comment.Content,
			"commented_at": comment.CreatedAt,
		}
		if comment.User != nil {
			data["user"] = map[string]interface{}{
				"user_id":         comment.User.ID,
				"username":        comment.User.Username,
				"profile_picture": comment.User.ProfilePicturePath,
			}
		}
		commentsData = append(commentsData, data)
	}

	utils.WriteSuccess(w, http.StatusOK, "Comments fetched successfully", map[string]interface{}{
		"total_comments": total,
		"page":           page,
		"per_page":       perPage,
		"total_pages":    utils.TotalPages(total, perPage),
		"comments":       commentsData,
	})
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
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
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to comment on this post")
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Comment == "" {
		utils.WriteError(w, http.StatusBadRequest, "Comment is required")
		return
	}

	comment := models.Comment{
		UserID:  userID,
		PostID:  post.ID,
		Content: req.Comment,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating comment")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Comment created successfully", map[string]interface{}{
		"comment_id": comment.ID,
	})
}

// UpdateComment replaces a comment's text. Only the author may update, and
// only while the parent post is still visible to them.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["commentId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Comment not found")
		return
	}

	if comment.UserID != userID {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to update this comment")
		return
	}

	var post models.Post
	if err := h.db.First(&post, comment.PostID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	if !utils.PostVisibleTo(&post, userID) {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to update this comment")
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Comment == "" {
		utils.WriteError(w, http.StatusBadRequest, "Comment is required")
		return
	}

	comment.Content = req.Comment
	if err := h.db.Save(&comment).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating comment")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Comment updated successfully", nil)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["commentId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Comment not found")
		return
	}

	if comment.UserID != userID {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to delete this comment")
		return
	}

	var post models.Post
	if err := h.db.First(&post, comment.PostID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	if !utils.PostVisibleTo(&post, userID) {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to delete this comment")
		return
	}

	if err := h.db.Delete(&comment).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting comment")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Comment deleted successfully", nil)
}
