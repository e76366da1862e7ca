package post

import (
	"encoding/json"
	"log"
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
	router.HandleFunc("/posts", utils.AuthMiddleware(h.db, h.CreatePost)).Methods("POST")
	router.HandleFunc("/posts/feed", utils.AuthMiddleware(h.db, h.GetFeed)).Methods("GET")
	router.HandleFunc("/posts/categories", utils.AuthMiddleware(h.db, h.GetCategories)).Methods("GET")
	router.HandleFunc("/posts/user/{userId:[0-9]+}", utils.AuthMiddleware(h.db, h.GetUserPosts)).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", utils.AuthMiddleware(h.db, h.GetPost)).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", utils.AuthMiddleware(h.db, h.UpdatePost)).Methods("PUT")
	router.HandleFunc("/posts/{id:[0-9]+}", utils.AuthMiddleware(h.db, h.DeletePost)).Methods("DELETE")
}

type createPostRequest struct {
	ArticleLink string `json:"article_link"`
	SiteName    string `json:"site_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	// post_ prefix separates the user's text from the article's og:description
	PostDescription string   `json:"post_description"`
	Categories      []string `json:"categories"`
}

// CreatePost shares an article: the Article row is deduplicated by link, the
// Post row is always new.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ArticleLink == "" {
		utils.WriteError(w, http.StatusBadRequest, "Article link is required")
		return
	}

	// Reject oversized category lists before touching the database.
	if len(req.Categories) > models.MaxPostCategories {
		utils.WriteError(w, http.StatusBadRequest, "Maximum of 5 categories allowed")
		return
	}

	tx := h.db.Begin()

	var article models.Article
	result := tx.Where("link = ?", req.ArticleLink).First(&article)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error looking up article")
			return
		}
		article = models.Article{
			Link:    req.ArticleLink,
			Source:  req.SiteName,
			Title:   req.Title,
			Caption: req.Description,
			Preview: req.Image,
		}
		if err := tx.Create(&article).Error; err != nil {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error creating article")
			return
		}
	}

	post := models.Post{
		UserID:      userID,
		ArticleID:   article.ID,
		Description: req.PostDescription,
		PostedAt:    time.Now().UTC(),
	}

	if err := tx.Create(&post).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error creating post")
		return
	}

	if err := insertCategories(tx, post.ID, req.Categories); err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error saving categories")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error saving post")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Post created successfully", map[string]interface{}{
		"post_id": post.ID,
	})
}

// insertCategories adds the recognized categories to a post. Unrecognized
// names are skipped, not fatal; the cap is enforced by callers on the raw list.
func insertCategories(tx *gorm.DB, postID uint, names []string) error {
	for _, name := range names {
		category, ok := models.ParseCategory(name)
		if !ok {
			log.Printf("Skipping unrecognized category %q for post %d", name, postID)
			continue
		}
		pc := models.PostCategory{PostID: postID, Category: category}
		if err := tx.Create(&pc).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetPost returns a single post's detail, gated by the 24-hour rule.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	post, err := LoadPost(h.db, uint(postID))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	if !utils.PostVisibleTo(post, userID) {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to view this post")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Post retrieved successfully", SerializePost(post, userID))
}

type updatePostRequest struct {
	PostDescription *string   `json:"post_description"`
	Categories      *[]string `json:"categories"`
}

// UpdatePost replaces the description and, when provided, the full category
// set. The article itself is immutable.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	if post.UserID != userID {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to update this post")
		return
	}

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Categories != nil && len(*req.Categories) > models.MaxPostCategories {
		utils.WriteError(w, http.StatusBadRequest, "Maximum of 5 categories allowed")
		return
	}

	tx := h.db.Begin()

	if req.PostDescription != nil {
		if err := tx.Model(&post).Update("description", *req.PostDescription).Error; err != nil {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error updating post")
			return
		}
	}

	if req.Categories != nil {
		// Full replacement: delete the old set, insert the new one.
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostCategory{}).Error; err != nil {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error clearing categories")
			return
		}
		if err := insertCategories(tx, post.ID, *req.Categories); err != nil {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error saving categories")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating post")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Post updated successfully", nil)
}

// DeletePost removes a post and everything hanging off it.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	if post.UserID != userID {
		utils.WriteError(w, http.StatusForbidden, "You are not allowed to delete this post")
		return
	}

	tx := h.db.Begin()

	if err := DeletePostCascade(tx, post.ID); err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting post")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting post")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Post deleted successfully", nil)
}

// DeletePostCascade removes a post's categories, comments, likes and
// collection memberships before the post row itself. Callers own the
// transaction.
func DeletePostCascade(tx *gorm.DB, postID uint) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostCategory{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.CollectionPost{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Post{}, postID).Error
}

// GetFeed lists last-24h posts by the user and everyone they follow.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	page, perPage := utils.Pagination(r)

	var follows []models.Follow
	if err := h.db.Where("follower_id = ?", userID).Find(&follows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error loading followings")
		return
	}

	authorIDs := []uint{userID}
	for _, follow := range follows {
		authorIDs = append(authorIDs, follow.UserID)
	}

	threshold := time.Now().UTC().Add(-utils.PostVisibilityWindow)

	query := h.db.Model(&models.Post{}).
		Where("user_id IN ? AND posted_at >= ?", authorIDs, threshold).
		Preload("User").Preload("Article").Preload("Categories").
		Preload("Comments").Preload("Likes")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error counting posts")
		return
	}

	var posts []models.Post
	if err := query.Order("posted_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&posts).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving posts")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Posts fetched successfully", map[string]interface{}{
		"total_posts": total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": utils.TotalPages(total, perPage),
		"posts":       serializePosts(posts, userID),
	})
}

// GetUserPosts lists a user's posts; non-owners only see the last 24 hours.
func (h *Handler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	targetID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	page, perPage := utils.Pagination(r)

	query := h.db.Model(&models.Post{}).
		Where("user_id = ?", uint(targetID)).
		Preload("User").Preload("Article").Preload("Categories").
		Preload("Comments").Preload("Likes")

	if uint(targetID) != currentUserID {
		threshold := time.Now().UTC().Add(-utils.PostVisibilityWindow)
		query = query.Where("posted_at >= ?", threshold)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error counting posts")
		return
	}

	var posts []models.Post
	if err := query.Order("posted_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&posts).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving posts")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Posts fetched successfully", map[string]interface{}{
		"total_posts": total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": utils.TotalPages(total, perPage),
		"posts":       serializePosts(posts, currentUserID),
	})
}

// GetCategories returns the fixed enumeration. No pagination for eight values.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories := make([]map[string]interface{}, 0, len(models.AllCategories()))
	for _, c := range models.AllCategories() {
		categories = append(categories, map[string]interface{}{"category_id": c})
	}

	utils.WriteSuccess(w, http.StatusOK, "Categories fetched successfully", map[string]interface{}{
		"categories": categories,
	})
}

// LoadPost fetches a post with everything its detail view needs.
func LoadPost(db *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	err := db.Preload("User").Preload("Article").Preload("Categories").
		Preload("Comments").Preload("Likes").
		First(&post, postID).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// SerializePost builds the detail payload shared by the single-post, feed and
// collection listings. The post must be loaded via LoadPost (or with the same
// preloads).
func SerializePost(post *models.Post, currentUserID uint) map[string]interface{} {
	isLiked := false
	for _, like := range post.Likes {
		if like.UserID == currentUserID {
			isLiked = true
			break
		}
	}

	categories := make([]models.Category, 0, len(post.Categories))
	for _, pc := range post.Categories {
		categories = append(categories, pc.Category)
	}

	data := map[string]interface{}{
		"post_id":        post.ID,
		"description":    post.Description,
		"posted_at":      post.PostedAt,
		"categories":     categories,
		"comments_count": len(post.Comments),
		"likes_count":    len(post.Likes),
		"is_liked":       isLiked,
	}

	if post.User != nil {
		data["user"] = map[string]interface{}{
			"user_id":         post.User.ID,
			"username":        post.User.Username,
			"bio_description": post.User.BioDescription,
			"profile_picture": post.User.ProfilePicturePath,
		}
	}

	if post.Article != nil {
		data["article"] = map[string]interface{}{
			"article_id": post.Article.ID,
			"link":       post.Article.Link,
			"source":     post.Article.Source,
			"title":      post.Article.Title,
			"caption":    post.Article.Caption,
			"preview":    post.Article.Preview,
		}
	}

	return data
}

func serializePosts(posts []models.Post, currentUserID uint) []map[string]interface{} {
	data := make([]map[string]interface{}, 0, len(posts))
	for i := range posts {
		data = append(data, SerializePost(&posts[i], currentUserID))
	}
	return data
}
