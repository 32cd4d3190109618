package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
)

type AuthService struct {
	users     repository.UserRepository
	redis     *redis.Client
	validator *validator.Validate
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3" example:"testuser"`        // Unique username
	Email           string `json:"email" validate:"required,email" example:"test@example.com"`   // User email address
	Password        string `json:"password" validate:"required,min=6" example:"password123"`     // User password
	ConfirmPassword string `json:"confirm_password" validate:"required" example:"password123"`   // Must match password
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"testuser"`    // Username
	Password string `json:"password" validate:"required" example:"password123"` // User password
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT bearer token
	User    models.User `json:"user"`                                                    // User information
}

func NewAuthService(users repository.UserRepository, redisClient *redis.Client) *AuthService {
	return &AuthService{
		users:     users,
		redis:     redisClient,
		validator: validator.New(),
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new user with username, email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} map[string]any "Registration outcome"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Router /register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req RegisterRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if req.Password != req.ConfirmPassword {
		log.Printf("[AUTH] Registration password mismatch for username: %s", req.Username)
		sendFailure(w, http.StatusOK, "Passwords do not match")
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	user := models.User{Username: req.Username, Email: strings.ToLower(req.Email)}
	created, err := s.users.Create(r.Context(), user, hashedPassword)
	if err != nil {
		switch err {
		case repository.ErrUsernameTaken:
			log.Printf("[AUTH] Registration rejected - username exists: %s", req.Username)
			sendFailure(w, http.StatusOK, "Username already exists")
		case repository.ErrEmailTaken:
			log.Printf("[AUTH] Registration rejected - email exists: %s", req.Email)
			sendFailure(w, http.StatusOK, "Email already exists")
		default:
			log.Printf("[AUTH] User creation failed for %s: %v", req.Username, err)
			SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		}
		return
	}

	log.Printf("[AUTH] User created successfully - ID: %d, Username: %s", created.ID, created.Username)
	sendMessage(w, http.StatusOK, "Registration successful!")
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate user with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Router /login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req LoginRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	user, hashedPassword, err := s.users.FindByUsername(r.Context(), req.Username)
	if err != nil || !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid credentials for username: %s", req.Username)
		sendFailure(w, http.StatusOK, "Invalid username or password")
		return
	}

	token, err := generateJWT(user.ID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for user %d", user.ID)
	sendJSON(w, http.StatusOK, AuthResponse{Success: true, Token: token, User: user})
}

// Logout handles user logout
// @Summary Logout user
// @Description Logout user and blacklist the presented token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]any "Logout successful"
// @Router /logout [get]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		if s.redis != nil {
			if jti, ttl, err := tokenBlacklistEntry(parts[1]); err == nil {
				ctx := context.Background()
				key := fmt.Sprintf("blacklist:%s", jti)
				if err := s.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
					log.Printf("[AUTH] Failed to blacklist token: %v", err)
				}
			}
		}
	}

	sendMessage(w, http.StatusOK, "You have been logged out")
}

// tokenBlacklistEntry extracts the jti and remaining lifetime of a token so
// the blacklist entry expires together with the token itself.
func tokenBlacklistEntry(tokenString string) (string, time.Duration, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return "", 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", 0, fmt.Errorf("invalid claims")
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return "", 0, fmt.Errorf("missing jti claim")
	}

	ttl := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
	if exp, ok := claims["exp"].(float64); ok {
		if remaining := time.Until(time.Unix(int64(exp), 0)); remaining > 0 {
			ttl = remaining
		}
	}

	return jti, ttl, nil
}

func generateJWT(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}
