package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
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
	router.HandleFunc("/user/profile", utils.AuthMiddleware(h.db, h.GetProfile)).Methods("GET")
	router.HandleFunc("/user/profile", utils.AuthMiddleware(h.db, h.UpdateProfile)).Methods("PUT")
	router.HandleFunc("/user/profile/picture", utils.AuthMiddleware(h.db, h.UploadProfilePicture)).Methods("POST")
	router.HandleFunc("/user/delete", utils.AuthMiddleware(h.db, h.DeleteAccount)).Methods("DELETE")
	router.HandleFunc("/user/search", utils.AuthMiddleware(h.db, h.SearchUsers)).Methods("GET")
	router.HandleFunc("/user/follow/{id:[0-9]+}", utils.AuthMiddleware(h.db, h.FollowUser)).Methods("POST")
	router.HandleFunc("/user/unfollow/{id:[0-9]+}", utils.AuthMiddleware(h.db, h.UnfollowUser)).Methods("POST")
	router.HandleFunc("/user/following", utils.AuthMiddleware(h.db, h.GetFollowing)).Methods("GET")
	router.HandleFunc("/user/followers", utils.AuthMiddleware(h.db, h.GetFollowers)).Methods("GET")
	router.HandleFunc("/user/uploads/{filename}", h.ServeUpload).Methods("GET")
	router.HandleFunc("/user/{username}", utils.AuthMiddleware(h.db, h.GetUserByUsername)).Methods("GET")
}

func serializeProfile(user *models.User, includeEmail bool) map[string]interface{} {
	data := map[string]interface{}{
		"user_id":         user.ID,
		"username":        user.Username,
		"bio_description": user.BioDescription,
		"profile_picture": user.ProfilePicturePath,
		"interests":       user.Interests,
		"created_at":      user.CreatedAt,
	}
	if includeEmail {
		data["email"] = user.Email
	}
	return data
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "User profile fetched successfully", serializeProfile(&user, true))
}

// GetUserByUsername is the public profile view.
func (h *Handler) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	username := vars["username"]

	var user models.User
	if err := h.db.Where("username = ?", username).First(&user).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "User profile fetched successfully", serializeProfile(&user, false))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	var req struct {
		Username       *string `json:"username"`
		Email          *string `json:"email"`
		BioDescription *string `json:"bio_description"`
		Interests      *string `json:"interests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.BioDescription != nil {
		user.BioDescription = *req.BioDescription
	}
	if req.Interests != nil {
		user.Interests = *req.Interests
	}

	if err := h.db.Save(&user).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating profile")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Profile updated successfully", nil)
}

// DeleteAccount removes the user and everything they own. Dependents go
// first so no orphan rows survive a partial failure.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	tx := h.db.Begin()

	if err := deleteUserCascade(tx, user.ID); err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting account")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting account")
		return
	}

	if user.ProfilePicturePath != "" {
		utils.DeleteProfilePicture(user.ProfilePicturePath)
	}

	utils.WriteSuccess(w, http.StatusOK, "User account deleted successfully", nil)
}

func deleteUserCascade(tx *gorm.DB, userID uint) error {
	var postIDs []uint
	if err := tx.Model(&models.Post{}).Where("user_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
		return err
	}

	if len(postIDs) > 0 {
		for _, m := range []interface{}{&models.PostCategory{}, &models.Comment{}, &models.Like{}, &models.CollectionPost{}} {
			if err := tx.Where("post_id IN ?", postIDs).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error; err != nil {
			return err
		}
	}

	var collectionIDs []uint
	if err := tx.Model(&models.Collection{}).Where("user_id = ?", userID).Pluck("id", &collectionIDs).Error; err != nil {
		return err
	}
	if len(collectionIDs) > 0 {
		if err := tx.Where("collection_id IN ?", collectionIDs).Delete(&models.CollectionPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", collectionIDs).Delete(&models.Collection{}).Error; err != nil {
			return err
		}
	}

	// Comments and likes the user left on other people's posts.
	if err := tx.Where("user_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.Like{}).Error; err != nil {
		return err
	}

	// Follow edges in both directions.
	if err := tx.Where("user_id = ? OR follower_id = ?", userID, userID).Delete(&models.Follow{}).Error; err != nil {
		return err
	}

	return tx.Delete(&models.User{}, userID).Error
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		utils.WriteError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	page, perPage := utils.Pagination(r)

	query := h.db.Model(&models.User{}).Where("username LIKE ?", "%"+q+"%")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error counting users")
		return
	}

	var users []models.User
	if err := query.Offset((page - 1) * perPage).Limit(perPage).Find(&users).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error searching users")
		return
	}

	usersData := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		usersData = append(usersData, serializeProfile(&users[i], false))
	}

	utils.WriteSuccess(w, http.StatusOK, "Users fetched successfully", map[string]interface{}{
		"total_users": total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": utils.TotalPages(total, perPage),
		"users":       usersData,
	})
}

// FollowUser inserts the directed edge current -> target.
func (h *Handler) FollowUser(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	targetID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if uint(targetID) == currentUserID {
		utils.WriteError(w, http.StatusBadRequest, "You cannot follow yourself")
		return
	}

	var target models.User
	if err := h.db.First(&target, targetID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	var existing models.Follow
	err = h.db.Where("user_id = ? AND follower_id = ?", target.ID, currentUserID).First(&existing).Error
	if err == nil {
		utils.WriteError(w, http.StatusBadRequest, "You are already following this user")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	follow := models.Follow{
		UserID:     target.ID,
		FollowerID: currentUserID,
		FollowedAt: time.Now().UTC(),
	}

	if err := h.db.Create(&follow).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error following user")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Successfully followed user", nil)
}

func (h *Handler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	targetID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	result := h.db.Where("user_id = ? AND follower_id = ?", uint(targetID), currentUserID).Delete(&models.Follow{})
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error unfollowing user")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusBadRequest, "You are not following this user")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Successfully unfollowed user", nil)
}

// GetFollowing lists the accounts the current user follows.
func (h *Handler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var follows []models.Follow
	if err := h.db.Where("follower_id = ?", currentUserID).Preload("FollowedUser").Find(&follows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving followings")
		return
	}

	followingData := make([]map[string]interface{}, 0, len(follows))
	for _, follow := range follows {
		data := map[string]interface{}{
			"user_id":     follow.UserID,
			"followed_at": follow.FollowedAt,
		}
		if follow.FollowedUser != nil {
			data["username"] = follow.FollowedUser.Username
		}
		followingData = append(followingData, data)
	}

	utils.WriteSuccess(w, http.StatusOK, "Followings fetched successfully", map[string]interface{}{
		"followed_users": followingData,
	})
}

// GetFollowers lists the accounts following the current user.
func (h *Handler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var follows []models.Follow
	if err := h.db.Where("user_id = ?", currentUserID).Preload("Follower").Find(&follows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving followers")
		return
	}

	followersData := make([]map[string]interface{}, 0, len(follows))
	for _, follow := range follows {
		data := map[string]interface{}{
			"user_id":     follow.FollowerID,
			"followed_at": follow.FollowedAt,
		}
		if follow.Follower != nil {
			data["username"] = follow.Follower.Username
		}
		followersData = append(followersData, data)
	}

	utils.WriteSuccess(w, http.StatusOK, "Followers fetched successfully", map[string]interface{}{
		"followers": followersData,
	})
}

func (h *Handler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(utils.MaxImageSize); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	file, header, err := r.FormFile("picture")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Picture file is required")
		return
	}
	defer file.Close()

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	path, err := utils.SaveProfilePicture(file, header)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid picture upload", err.Error())
		return
	}

	old := user.ProfilePicturePath
	user.ProfilePicturePath = path
	if err := h.db.Save(&user).Error; err != nil {
		utils.DeleteProfilePicture(path)
		utils.WriteError(w, http.StatusInternalServerError, "Error saving profile picture")
		return
	}
	if old != "" {
		utils.DeleteProfilePicture(old)
	}

	utils.WriteSuccess(w, http.StatusOK, "Profile picture updated successfully", map[string]interface{}{
		"profile_picture": path,
	})
}

// ServeUpload exposes stored profile pictures. Extension allowlist and a
// dot-dot check keep it scoped to the upload directory.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	if utils.ContainsDotDot(filename) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid path")
		return
	}

	if !utils.IsAllowedImageExt(filepath.Ext(filename)) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	imagePath := filepath.Join(utils.UploadPath, filepath.Clean(filename))
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		utils.WriteError(w, http.StatusNotFound, "Image not found")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Type", utils.ImageContentType(imagePath))
	http.ServeFile(w, r, imagePath)
}
