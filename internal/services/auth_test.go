package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/backend/internal/repository"
)

func setupAuthConfig() {
	viper.Set("jwt.secret_key", "test-secret-key")
	viper.Set("jwt.expiry_hours", 24)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.key_length", 32)
}

func newAuthTestService(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()
	setupAuthConfig()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewAuthService(repository.NewPostgresUserRepository(db), nil), mock
}

func TestPasswordHashing(t *testing.T) {
	setupAuthConfig()

	t.Run("hash and verify round trip", func(t *testing.T) {
		hash, err := hashPassword("password123")
		require.NoError(t, err)

		assert.NotEqual(t, "password123", hash)
		assert.True(t, verifyPassword("password123", hash))
		assert.False(t, verifyPassword("wrongpassword", hash))
	})

	t.Run("same password produces different hashes", func(t *testing.T) {
		first, err := hashPassword("password123")
		require.NoError(t, err)
		second, err := hashPassword("password123")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("malformed hash fails verification", func(t *testing.T) {
		assert.False(t, verifyPassword("password123", "not-a-valid-hash"))
		assert.False(t, verifyPassword("password123", ""))
	})
}

func TestGenerateJWT(t *testing.T) {
	setupAuthConfig()

	tokenString, err := generateJWT(42)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte("test-secret-key"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["user_id"])
	assert.NotEmpty(t, claims["jti"])

	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.Greater(t, exp, float64(time.Now().Unix()))
}

func TestRegister(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		service, mock := newAuthTestService(t)

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("testuser", "test@example.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

		body, _ := json.Marshal(RegisterRequest{
			Username:        "testuser",
			Email:           "test@example.com",
			Password:        "password123",
			ConfirmPassword: "password123",
		})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "Registration successful!", resp["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("password mismatch", func(t *testing.T) {
		service, _ := newAuthTestService(t)

		body, _ := json.Marshal(RegisterRequest{
			Username:        "testuser",
			Email:           "test@example.com",
			Password:        "password123",
			ConfirmPassword: "different456",
		})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "Passwords do not match", resp["message"])
	})

	t.Run("duplicate username", func(t *testing.T) {
		service, mock := newAuthTestService(t)

		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

		body, _ := json.Marshal(RegisterRequest{
			Username:        "testuser",
			Email:           "test@example.com",
			Password:        "password123",
			ConfirmPassword: "password123",
		})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "Username already exists", resp["message"])
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		service, _ := newAuthTestService(t)

		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader([]byte(`{"username":"testuser"}`)))
		w := httptest.NewRecorder()

		service.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogin(t *testing.T) {
	t.Run("successful login returns token", func(t *testing.T) {
		service, mock := newAuthTestService(t)

		hash, err := hashPassword("password123")
		require.NoError(t, err)

		mock.ExpectQuery("SELECT id, username, email, password_hash").
			WithArgs("testuser").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
				AddRow(1, "testuser", "test@example.com", hash, time.Now()))

		body, _ := json.Marshal(LoginRequest{Username: "testuser", Password: "password123"})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "testuser", resp.User.Username)
	})

	t.Run("unknown username", func(t *testing.T) {
		service, mock := newAuthTestService(t)

		mock.ExpectQuery("SELECT id, username, email, password_hash").
			WithArgs("nobody").
			WillReturnError(sql.ErrNoRows)

		body, _ := json.Marshal(LoginRequest{Username: "nobody", Password: "password123"})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "Invalid username or password", resp["message"])
	})

	t.Run("wrong password", func(t *testing.T) {
		service, mock := newAuthTestService(t)

		hash, err := hashPassword("password123")
		require.NoError(t, err)

		mock.ExpectQuery("SELECT id, username, email, password_hash").
			WithArgs("testuser").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
				AddRow(1, "testuser", "test@example.com", hash, time.Now()))

		body, _ := json.Marshal(LoginRequest{Username: "testuser", Password: "wrongpassword"})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "Invalid username or password", resp["message"])
	})
}

func TestLogout(t *testing.T) {
	setupAuthConfig()

	t.Run("without token still succeeds", func(t *testing.T) {
		service := NewAuthService(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		w := httptest.NewRecorder()

		service.Logout(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "You have been logged out", resp["message"])
	})

	t.Run("non-bearer authorization header is ignored", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewAuthService(nil, redisClient)

		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()

		service.Logout(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "You have been logged out", resp["message"])
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("blacklists the presented token", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewAuthService(nil, redisClient)

		tokenString, err := generateJWT(1)
		require.NoError(t, err)

		jti, _, err := tokenBlacklistEntry(tokenString)
		require.NoError(t, err)

		// The blacklist TTL tracks the token's remaining lifetime, so only
		// the command and key are compared.
		redisMock.CustomMatch(func(expected, actual []interface{}) error {
			if len(actual) < 2 || actual[0] != "set" || actual[1] != "blacklist:"+jti {
				return fmt.Errorf("unexpected command: %v", actual)
			}
			return nil
		}).ExpectSet("blacklist:"+jti, "1", 24*time.Hour).SetVal("OK")

		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		service.Logout(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}
