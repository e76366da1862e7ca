package collection

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/flashnews-app/flashnews-server/cmd/models"
	"github.com/flashnews-app/flashnews-server/cmd/utils"
	"github.com/flashnews-app/flashnews-server/service/post"
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
	router.HandleFunc("/collections", utils.AuthMiddleware(h.db, h.CreateCollection)).Methods("POST")
	router.HandleFunc("/collections/user/{userId:[0-9]+}", utils.AuthMiddleware(h.db, h.GetUserCollections)).Methods("GET")
	router.HandleFunc("/collections/{id:[0-9]+}", utils.AuthMiddleware(h.db, h.UpdateCollection)).Methods("PUT")
	router.HandleFunc("/collections/{id:[0-9]+}", utils.AuthMiddleware(h.db, h.DeleteCollection)).Methods("DELETE")
	router.HandleFunc("/collections/{id:[0-9]+}/posts", utils.AuthMiddleware(h.db, h.GetCollectionPosts)).Methods("GET")
	router.HandleFunc("/collections/{id:[0-9]+}/posts/{postId:[0-9]+}", utils.AuthMiddleware(h.db, h.AddPostToCollection)).Methods("POST")
	router.HandleFunc("/collections/{id:[0-9]+}/posts/{postId:[0-9]+}", utils.AuthMiddleware(h.db, h.RemovePostFromCollection)).Methods("DELETE")
}

type createCollectionRequest struct {
	Title       string `json:"title"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"is_public"`
}

func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == "" {
		utils.WriteError(w, http.StatusBadRequest, "Collection title is required")
		return
	}

	// Title uniqueness is per owner; another user may reuse the same title.
	var existing models.Collection
	err = h.db.Where("user_id = ? AND title = ?", userID, req.Title).First(&existing).Error
	if err == nil {
		utils.WriteError(w, http.StatusBadRequest, "A collection with this title already exists for the user")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	collection := models.Collection{
		UserID:      userID,
		Title:       req.Title,
		Emoji:       req.Emoji,
		Description: req.Description,
		IsPublic:    isPublic,
	}

	if err := h.db.Create(&collection).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating collection")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, "Collection created successfully", map[string]interface{}{
		"collection_id": collection.ID,
	})
}

func serializeCollection(c *models.Collection) map[string]interface{} {
	return map[string]interface{}{
		"collection_id":  c.ID,
		"title":          c.Title,
		"emoji":          c.Emoji,
		"description":    c.Description,
		"is_public":      c.IsPublic,
		"created_at":     c.CreatedAt,
		"articles_count": len(c.Posts),
		"user_id":        c.UserID,
	}
}

// GetUserCollections returns the owner's public collections to everyone and
// the private ones only to the owner themselves.
func (h *Handler) GetUserCollections(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	ownerID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var owner models.User
	if err := h.db.First(&owner, ownerID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	var publicCollections []models.Collection
	if err := h.db.Where("user_id = ? AND is_public = ?", owner.ID, true).
		Preload("Posts").Find(&publicCollections).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving collections")
		return
	}

	publicData := make([]map[string]interface{}, 0, len(publicCollections))
	for i := range publicCollections {
		publicData = append(publicData, serializeCollection(&publicCollections[i]))
	}

	data := map[string]interface{}{"public": publicData}

	if owner.ID == currentUserID {
		var privateCollections []models.Collection
		if err := h.db.Where("user_id = ? AND is_public = ?", owner.ID, false).
			Preload("Posts").Find(&privateCollections).Error; err != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Error retrieving collections")
			return
		}
		privateData := make([]map[string]interface{}, 0, len(privateCollections))
		for i := range privateCollections {
			privateData = append(privateData, serializeCollection(&privateCollections[i]))
		}
		data["private"] = privateData
	}

	utils.WriteSuccess(w, http.StatusOK, "Collections fetched successfully", data)
}

// GetCollectionPosts returns the detail of each member post. Posts hidden by
// the 24-hour rule are filtered out rather than failing the whole request.
func (h *Handler) GetCollectionPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	collectionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid collection ID")
		return
	}

	var collection models.Collection
	if err := h.db.First(&collection, collectionID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Collection not found")
		return
	}

	if !collection.IsPublic && collection.UserID != userID {
		utils.WriteError(w, http.StatusNotFound, "Collection not found")
		return
	}

	var memberships []models.CollectionPost
	if err := h.db.Where("collection_id = ?", collection.ID).Find(&memberships).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving collection posts")
		return
	}

	postsData := make([]map[string]interface{}, 0, len(memberships))
	for _, membership := range memberships {
		p, err := post.LoadPost(h.db, membership.PostID)
		if err != nil {
			continue
		}
		if !utils.PostVisibleTo(p, userID) {
			continue
		}
		postsData = append(postsData, post.SerializePost(p, userID))
	}

	utils.WriteSuccess(w, http.StatusOK, "Collection posts fetched successfully", map[string]interface{}{
		"posts": postsData,
	})
}

// AddPostToCollection is idempotent: re-adding an existing member succeeds
// without a second row.
func (h *Handler) AddPostToCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	collectionID, _ := strconv.ParseUint(vars["id"], 10, 64)
	postID, _ := strconv.ParseUint(vars["postId"], 10, 64)

	var collection models.Collection
	if err := h.db.Where("id = ? AND user_id = ?", collectionID, userID).First(&collection).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Collection not found")
		return
	}

	var p models.Post
	if err := h.db.First(&p, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found")
		return
	}

	var existing models.CollectionPost
	err = h.db.Where("collection_id = ? AND post_id = ?", collection.ID, p.ID).First(&existing).Error
	if err == nil {
		utils.WriteSuccess(w, http.StatusOK, "Post already in collection", nil)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	membership := models.CollectionPost{
		CollectionID: collection.ID,
		PostID:       p.ID,
	}

	if err := h.db.Create(&membership).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error adding post to collection")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Post added to collection", nil)
}

func (h *Handler) RemovePostFromCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	collectionID, _ := strconv.ParseUint(vars["id"], 10, 64)
	postID, _ := strconv.ParseUint(vars["postId"], 10, 64)

	var collection models.Collection
	if err := h.db.Where("id = ? AND user_id = ?", collectionID, userID).First(&collection).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Collection not found")
		return
	}

	result := h.db.Where("collection_id = ? AND post_id = ?", collection.ID, uint(postID)).Delete(&models.CollectionPost{})
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error removing post from collection")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusNotFound, "Post not in collection")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Post removed from collection", nil)
}

func (h *Handler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	collectionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid collection ID")
		return
	}

	var collection models.Collection
	if err := h.db.Where("id = ? AND user_id = ?", collectionID, userID).First(&collection).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Collection not found")
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Emoji       *string `json:"emoji"`
		Description *string `json:"description"`
		IsPublic    *bool   `json:"is_public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title != nil {
		collection.Title = *req.Title
	}
	if req.Emoji != nil {
		collection.Emoji = *req.Emoji
	}
	if req.Description != nil {
		collection.Description = *req.Description
	}
	if req.IsPublic != nil {
		collection.IsPublic = *req.IsPublic
	}

	if err := h.db.Save(&collection).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating collection")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Collection updated successfully", nil)
}

func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	collectionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid collection ID")
		return
	}

	var collection models.Collection
	if err := h.db.Where("id = ? AND user_id = ?", collectionID, userID).First(&collection).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Collection not found")
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("collection_id = ?", collection.ID).Delete(&models.CollectionPost{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting collection posts")
		return
	}

	if err := tx.Delete(&collection).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting collection")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting collection")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Collection deleted successfully", nil)
}
