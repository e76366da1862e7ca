package user_test

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

func TestGetAndUpdateProfile(t *testing.T) {
	db, h := setupTest(t)
	_, token := createUser(t, db, "alice")

	rec, resp := doJSON(t, h, "GET", "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", resp.Data["username"])
	require.Equal(t, "alice@example.com", resp.Data["email"])

	rec, _ = doJSON(t, h, "PUT", "/api/user/profile", token, map[string]interface{}{
		"bio_description": "news junkie",
		"interests":       "tech,science",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doJSON(t, h, "GET", "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "news junkie", resp.Data["bio_description"])
	require.Equal(t, "tech,science", resp.Data["interests"])
}

func TestGetUserByUsernameOmitsEmail(t *testing.T) {
	db, h := setupTest(t)
	createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	rec, resp := doJSON(t, h, "GET", "/api/user/alice", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", resp.Data["username"])
	_, hasEmail := resp.Data["email"]
	require.False(t, hasEmail)

	rec, _ = doJSON(t, h, "GET", "/api/user/nobody", bobToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFollowUnfollow(t *testing.T) {
	db, h := setupTest(t)
	alice, aliceToken := createUser(t, db, "alice")
	bob, bobToken := createUser(t, db, "bob")

	rec, _ := doJSON(t, h, "POST", fmt.Sprintf("/api/user/follow/%d", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, h, "GET", "/api/user/following", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	following := resp.Data["followed_users"].([]interface{})
	require.Len(t, following, 1)
	require.Equal(t, "alice", following[0].(map[string]interface{})["username"])

	rec, resp = doJSON(t, h, "GET", "/api/user/followers", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	followers := resp.Data["followers"].([]interface{})
	require.Len(t, followers, 1)
	require.Equal(t, "bob", followers[0].(map[string]interface{})["username"])
	_ = bob

	rec, _ = doJSON(t, h, "POST", fmt.Sprintf("/api/user/unfollow/%d", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doJSON(t, h, "GET", "/api/user/following", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Data["followed_users"].([]interface{}), 0)
}

func TestFollowSelf(t *testing.T) {
	db, h := setupTest(t)
	alice, token := createUser(t, db, "alice")

	rec, resp := doJSON(t, h, "POST", fmt.Sprintf("/api/user/follow/%d", alice.ID), token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "You cannot follow yourself", resp.Message)
}

func TestFollowTwice(t *testing.T) {
	db, h := setupTest(t)
	alice, _ := createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	rec, _ := doJSON(t, h, "POST", fmt.Sprintf("/api/user/follow/%d", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, h, "POST", fmt.Sprintf("/api/user/follow/%d", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "You are already following this user", resp.Message)
}

func TestFollowUnknownUser(t *testing.T) {
	db, h := setupTest(t)
	_, token := createUser(t, db, "alice")

	rec, _ := doJSON(t, h, "POST", "/api/user/follow/999", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnfollowNotFollowing(t *testing.T) {
	db, h := setupTest(t)
	alice, _ := createUser(t, db, "alice")
	_, bobToken := createUser(t, db, "bob")

	rec, resp := doJSON(t, h, "POST", fmt.Sprintf("/api/user/unfollow/%d", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "You are not following this user", resp.Message)
}

func TestSearchUsers(t *testing.T) {
	db, h := setupTest(t)
	_, token := createUser(t, db, "alice")
	createUser(t, db, "alicia")
	createUser(t, db, "bob")

	rec, resp := doJSON(t, h, "GET", "/api/user/search?q=ali", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 2, resp.Data["total_users"])

	rec, _ = doJSON(t, h, "GET", "/api/user/search", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAccountCascades(t *testing.T) {
	db, h := setupTest(t)
	alice, aliceToken := createUser(t, db, "alice")
	bob, _ := createUser(t, db, "bob")

	article := models.Article{Link: "http://example.com/a"}
	require.NoError(t, db.Create(&article).Error)
	post := models.Post{UserID: alice.ID, ArticleID: article.ID, PostedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&models.PostCategory{PostID: post.ID, Category: models.CategoryTech}).Error)

	bobPost := models.Post{UserID: bob.ID, ArticleID: article.ID, PostedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&bobPost).Error)

	// Bob interacts with alice's post, alice interacts with bob's.
	require.NoError(t, db.Create(&models.Comment{UserID: bob.ID, PostID: post.ID, Content: "hi"}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: bob.ID, PostID: post.ID, LikedAt: time.Now().UTC()}).Error)
	require.NoError(t, db.Create(&models.Comment{UserID: alice.ID, PostID: bobPost.ID, Content: "yo"}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: alice.ID, PostID: bobPost.ID, LikedAt: time.Now().UTC()}).Error)

	collection := models.Collection{UserID: alice.ID, Title: "Reads", IsPublic: true}
	require.NoError(t, db.Create(&collection).Error)
	require.NoError(t, db.Create(&models.CollectionPost{CollectionID: collection.ID, PostID: bobPost.ID}).Error)

	require.NoError(t, db.Create(&models.Follow{UserID: alice.ID, FollowerID: bob.ID, FollowedAt: time.Now().UTC()}).Error)
	require.NoError(t, db.Create(&models.Follow{UserID: bob.ID, FollowerID: alice.ID, FollowedAt: time.Now().UTC()}).Error)

	rec, _ := doJSON(t, h, "DELETE", "/api/user/delete", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users, posts, categories, comments, likes, collections, memberships, follows int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Post{}).Count(&posts)
	db.Model(&models.PostCategory{}).Count(&categories)
	db.Model(&models.Comment{}).Count(&comments)
	db.Model(&models.Like{}).Count(&likes)
	db.Model(&models.Collection{}).Count(&collections)
	db.Model(&models.CollectionPost{}).Count(&memberships)
	db.Model(&models.Follow{}).Count(&follows)

	require.EqualValues(t, 1, users)
	require.EqualValues(t, 1, posts)
	require.Zero(t, categories)
	require.Zero(t, comments)
	require.Zero(t, likes)
	require.Zero(t, collections)
	require.Zero(t, memberships)
	require.Zero(t, follows)

	// The deleted user's token no longer resolves to a profile.
	rec, _ = doJSON(t, h, "GET", "/api/user/profile", aliceToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeUploadRejectsTraversal(t *testing.T) {
	_, h := setupTest(t)

	req := httptest.NewRequest("GET", "/api/user/uploads/..", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest("GET", "/api/user/uploads/file.txt", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
