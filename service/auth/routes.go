package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/flashnews-app/flashnews-server/cmd/models"
	"github.com/flashnews-app/flashnews-server/cmd/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

type Handler struct {
	db       *gorm.DB
	validate *validator.Validate
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		db:       db,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/logout", utils.AuthMiddleware(h.db, h.HandleLogout)).Methods("POST")
	router.HandleFunc("/refresh", h.HandleRefresh).Methods("POST")
}

type registerRequest struct {
	Username       string `json:"username" validate:"required,min=3,max=50"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	BioDescription string `json:"bio_description"`
	Interests      string `json:"interests"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON input")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing username, email or password")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid registration data", validationDetails(err))
		return
	}

	var existing models.User
	result := h.db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing)
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Database error")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "User already exists")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	user := models.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   string(passwordHash),
		BioDescription: req.BioDescription,
		Interests:      req.Interests,
	}

	if err := h.db.Create(&user).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			utils.WriteError(w, http.StatusBadRequest, "User already exists")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	accessToken, err := utils.GenerateAccessToken(user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating access token")
		return
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating refresh token")
		return
	}

	go func() {
		if err := sendWelcomeEmail(user.Email, user.Username); err != nil {
			log.Printf("Error sending welcome email to %s: %v", user.Email, err)
		}
	}()

	utils.WriteSuccess(w, http.StatusCreated, "User registered successfully", map[string]interface{}{
		"user_id":       user.ID,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing email or password")
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	accessToken, err := utils.GenerateAccessToken(user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating access token")
		return
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating refresh token")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Login successful", map[string]interface{}{
		"user_id":       user.ID,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// HandleLogout blacklists the presented token's jti until its natural expiry.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.ParseToken(utils.BearerToken(r))
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	revoked := models.RevokedToken{JTI: claims.ID}
	if err := h.db.Create(&revoked).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error revoking token")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Successfully logged out", nil)
}

// HandleRefresh exchanges a valid refresh token for a new access token
// without re-authenticating credentials.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	tokenString := utils.BearerToken(r)
	if tokenString == "" {
		utils.WriteError(w, http.StatusUnauthorized, "Authorization header required")
		return
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	if !claims.IsRefreshToken() {
		utils.WriteError(w, http.StatusUnauthorized, "Refresh token required")
		return
	}

	if utils.TokenRevoked(h.db, claims.ID) {
		utils.WriteError(w, http.StatusUnauthorized, "Token has been revoked")
		return
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid user ID in token")
		return
	}

	accessToken, err := utils.GenerateAccessToken(uint(userID))
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating access token")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Token refreshed", map[string]interface{}{
		"access_token": accessToken,
	})
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		if verrs[0].Tag() == "email" {
			return "Invalid email address"
		}
		return fmt.Sprintf("Invalid value for %s", field)
	}
	return "Invalid input"
}

// sendWelcomeEmail is best-effort; skipped entirely when SMTP is not configured.
func sendWelcomeEmail(email, username string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		return nil
	}

	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to FlashNews")
	m.SetBody("text/plain", fmt.Sprintf("Hi %s, your account is ready. Start sharing articles with your followers.", username))

	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)
	return d.DialAndSend(m)
}
