package collection_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flashnews-app/flashnews-server/cmd/api"
	"github.com/flashnews-app/flashnews-server/cmd/models"
	"github.com/flashnews-app/flashnews-server/cmd/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type apiResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func setupTest(t *testing.T) (*gorm.DB, http.Handler) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Follow{}, &models.RevokedToken{},
		&models.Article{}, &models.Post{}, &models.PostCategory{},
		&models.Comment{}, &models.Like{},
		&models.Collection{}, &models.CollectionPost{},
	))

	return db, api.NewApiServer(":0", db).Router()
}

func createUser(t *testing.T, db *gorm.DB, username string) (models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("Secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateAccessToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func createPost(t *testing.T, db *gorm.DB, userID uint, age time.Duration) models.Post {
	t.Helper()

	article := models.Article{Link: fmt.Sprintf("http://example.com/%d-%d", userID, time.Now().UnixNano())}
	require.NoError(t, db.Create(&article).Error)

	post := models.Post{
		UserID:    userID,
		ArticleID: article.ID,
		PostedAt:  time.Now().UTC().Add(-age),
	}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, payload interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp apiResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func createCollection(t *testing.T, h http.Handler, token, title string, isPublic bool) uint {
	t.Helper()
	rec, resp := doJSON(t, h, "POST", "/api/collections", token, map[string]interface{}{
		"title":     title,
		"emoji":     "📰",
		"is_public": isPublic,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return uint(resp.Data["collection_id"].(float64))
}

func TestCreateCollectionDuplicateTitle(t *testing.T) {
	db, h := setupTest(t)
	_, aliceToken := createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	createCollection(t, h, aliceToken, "Reads", true)

	rec, _ := doJSON(t, h, "POST", "/api/collections", aliceToken, map[string]interface{}{
		"title": "Reads",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Same title under a different owner is fine.
	rec, _ = doJSON(t, h, "POST", "/api/collections", bobToken, map[string]interface{}{
		"title": "Reads",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateCollectionRequiresTitle(t *testing.T) {
	db, h := setupTest(t)
	_, token := createUser(t, db, "alice")

	rec, _ := doJSON(t, h, "POST", "/api/collections", token, map[string]interface{}{
		"emoji": "📌",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserCollectionsVisibility(t *testing.T) {
	db, h := setupTest(t)
	alice, aliceToken := createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	createCollection(t, h, aliceToken, "Open", true)
	createCollection(t, h, aliceToken, "Secret", false)

	rec, resp := doJSON(t, h, "GET", fmt.Sprintf("/api/collections/user/%d", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Data["public"].([]interface{}), 1)
	_, hasPrivate := resp.Data["private"]
	require.False(t, hasPrivate)

	rec, resp = doJSON(t, h, "GET", fmt.Sprintf("/api/collections/user/%d", alice.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Data["public"].([]interface{}), 1)
	require.Len(t, resp.Data["private"].([]interface{}), 1)
}

func TestAddPostIdempotent(t *testing.T) {
	db, h := setupTest(t)
	alice, aliceToken := createUser(t, db, "alice")

	post := createPost(t, db, alice.ID, 0)
	collectionID := createCollection(t, h, aliceToken, "Reads", true)
	path := fmt.Sprintf("/api/collections/%d/posts/%d", collectionID, post.ID)

	rec, _ := doJSON(t, h, "POST", path, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, h, "POST", path, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Post already in collection", resp.Message)

	var count int64
	db.Model(&models.CollectionPost{}).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestAddPostOwnerOnly(t *testing.T) {
	db, h := setupTest(t)
	alice, aliceToken := createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	post := createPost(t, db, alice.ID, 0)
	collectionID := createCollection(t, h, aliceToken, "Reads", true)

	rec, _ := doJSON(t, h, "POST", fmt.Sprintf("/api/collections/%d/posts/%d", collectionID, post.ID), bobToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollectionPostsFilterHidden(t *testing.T) {
	db, h := setupTest(t)
	alice, aliceToken := createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	fresh := createPost(t, db, alice.ID, 0)
	stale := createPost(t, db, alice.ID, 25*time.Hour)

	collectionID := createCollection(t, h, aliceToken, "Reads", true)
	for _, p := range []models.Post{fresh, stale} {
		require.NoError(t, db.Create(&models.CollectionPost{CollectionID: collectionID, PostID: p.ID}).Error)
	}

	rec, resp := doJSON(t, h, "GET", fmt.Sprintf("/api/collections/%d/posts", collectionID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Data["posts"].([]interface{}), 1)

	// The owner sees both members.
	rec, resp = doJSON(t, h, "GET", fmt.Sprintf("/api/collections/%d/posts", collectionID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Data["posts"].([]interface{}), 2)
}

func TestPrivateCollectionHiddenFromOthers(t *testing.T) {
	db, h := setupTest(t)
	_, aliceToken := createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	collectionID := createCollection(t, h, aliceToken, "Secret", false)

	rec, _ := doJSON(t, h, "GET", fmt.Sprintf("/api/collections/%d/posts", collectionID), bobToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, h, "GET", fmt.Sprintf("/api/collections/%d/posts", collectionID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRemovePostFromCollection(t *testing.T) {
	db, h := setupTest(t)
	alice, aliceToken := createUser(t, db, "alice")

	post := createPost(t, db, alice.ID, 0)
	collectionID := createCollection(t, h, aliceToken, "Reads", true)
	path := fmt.Sprintf("/api/collections/%d/posts/%d", collectionID, post.ID)

	rec, _ := doJSON(t, h, "DELETE", path, aliceToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	_, _ = doJSON(t, h, "POST", path, aliceToken, nil)

	rec, _ = doJSON(t, h, "DELETE", path, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.CollectionPost{}).Count(&count)
	require.Zero(t, count)
}

func TestUpdateCollection(t *testing.T) {
	db, h := setupTest(t)
	_, aliceToken := createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	collectionID := createCollection(t, h, aliceToken, "Reads", true)

	rec, _ := doJSON(t, h, "PUT", fmt.Sprintf("/api/collections/%d", collectionID), bobToken,
		map[string]interface{}{"title": "Stolen"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, h, "PUT", fmt.Sprintf("/api/collections/%d", collectionID), aliceToken,
		map[string]interface{}{"title": "Long reads", "is_public": false})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Collection
	require.NoError(t, db.First(&updated, collectionID).Error)
	require.Equal(t, "Long reads", updated.Title)
	require.False(t, updated.IsPublic)
}

func TestDeleteCollectionCascades(t *testing.T) {
	db, h := setupTest(t)
	alice, aliceToken := createUser(t, db, "alice")

	post := createPost(t, db, alice.ID, 0)
	collectionID := createCollection(t, h, aliceToken, "Reads", true)
	require.NoError(t, db.Create(&models.CollectionPost{CollectionID: collectionID, PostID: post.ID}).Error)

	rec, _ := doJSON(t, h, "DELETE", fmt.Sprintf("/api/collections/%d", collectionID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var collections, memberships int64
	db.Model(&models.Collection{}).Count(&collections)
	db.Model(&models.CollectionPost{}).Count(&memberships)
	require.Zero(t, collections)
	require.Zero(t, memberships)

	// The member post itself survives.
	var posts int64
	db.Model(&models.Post{}).Count(&posts)
	require.EqualValues(t, 1, posts)
}
