package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/accounts"
	"github.com/kbenslimane/storefront/internal/events"
	"github.com/kbenslimane/storefront/internal/logging"
	auth "github.com/kbenslimane/storefront/internal/middleware/auth"
	"github.com/kbenslimane/storefront/internal/models"
	"github.com/kbenslimane/storefront/internal/validation"
	"github.com/kbenslimane/storefront/internal/verification"
)

type fakeSender struct {
	sent []string
	fail bool
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, body)
	return nil
}

var codePattern = regexp.MustCompile(`\d{6}`)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.RefreshToken{}, &models.VerificationCode{},
		&models.Order{}, &models.OrderLine{},
	)
	if err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newAuthHandler(t *testing.T) (*AuthHandler, *fakeSender, *echo.Echo) {
	db := initTestDB(t)
	sender := &fakeSender{}
	handler := &AuthHandler{
		Accounts: &accounts.Service{
			DB:    db,
			Codes: &verification.Service{DB: db},
			Mail:  sender,
			Log:   logging.New("error"),
		},
		Tokens: &auth.TokenService{
			DB:            db,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
		Producer: &events.Producer{},
	}

	e := echo.New()
	e.Validator = validation.New()
	return handler, sender, e
}

func doJSON(e *echo.Echo, method, target string, payload any) (echo.Context, *httptest.ResponseRecorder) {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSignupConfirmLogin(t *testing.T) {
	handler, sender, e := newAuthHandler(t)

	c, rec := doJSON(e, http.MethodPost, "/auth/signup", map[string]string{
		"email":    "client@example.com",
		"name":     "Client",
		"password": "password123",
	})
	require.NoError(t, handler.Signup(c))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, sender.sent, 1)

	code := codePattern.FindString(sender.sent[0])
	require.Len(t, code, 6)

	c, rec = doJSON(e, http.MethodPost, "/auth/signup/confirm", map[string]string{
		"email": "client@example.com",
		"code":  code,
	})
	require.NoError(t, handler.ConfirmSignup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, models.RoleCustomer, user.Role)
	require.NotEmpty(t, user.ID)

	c, rec = doJSON(e, http.MethodPost, "/auth/login", map[string]string{
		"email":    "client@example.com",
		"password": "password123",
	})
	require.NoError(t, handler.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	require.Equal(t, models.RoleCustomer, resp["role"])
}

func TestSignupInvalidBody(t *testing.T) {
	handler, _, e := newAuthHandler(t)

	c, _ := doJSON(e, http.MethodPost, "/auth/signup", map[string]string{
		"email":    "not-an-email",
		"name":     "x",
		"password": "short",
	})
	err := handler.Signup(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestConfirmWithBadCode(t *testing.T) {
	handler, sender, e := newAuthHandler(t)

	c, _ := doJSON(e, http.MethodPost, "/auth/signup", map[string]string{
		"email":    "client@example.com",
		"name":     "Client",
		"password": "password123",
	})
	require.NoError(t, handler.Signup(c))

	right := codePattern.FindString(sender.sent[0])
	wrong := "000000"
	if right == wrong {
		wrong = "000001"
	}

	c, _ = doJSON(e, http.MethodPost, "/auth/signup/confirm", map[string]string{
		"email": "client@example.com",
		"code":  wrong,
	})
	err := handler.ConfirmSignup(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Equal(t, verification.ErrInvalidCode.Error(), he.Message)
}

func TestLoginWrongPassword(t *testing.T) {
	handler, sender, e := newAuthHandler(t)

	c, _ := doJSON(e, http.MethodPost, "/auth/signup", map[string]string{
		"email":    "client@example.com",
		"name":     "Client",
		"password": "password123",
	})
	require.NoError(t, handler.Signup(c))
	code := codePattern.FindString(sender.sent[0])
	c, _ = doJSON(e, http.MethodPost, "/auth/signup/confirm", map[string]string{
		"email": "client@example.com", "code": code,
	})
	require.NoError(t, handler.ConfirmSignup(c))

	c, _ = doJSON(e, http.MethodPost, "/auth/login", map[string]string{
		"email":    "client@example.com",
		"password": "wrongpassword",
	})
	err := handler.Login(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestPasswordResetEndpoints(t *testing.T) {
	handler, sender, e := newAuthHandler(t)

	// Register and confirm a user first.
	c, _ := doJSON(e, http.MethodPost, "/auth/signup", map[string]string{
		"email": "u@example.com", "name": "U", "password": "password123",
	})
	require.NoError(t, handler.Signup(c))
	c, _ = doJSON(e, http.MethodPost, "/auth/signup/confirm", map[string]string{
		"email": "u@example.com", "code": codePattern.FindString(sender.sent[0]),
	})
	require.NoError(t, handler.ConfirmSignup(c))

	c, rec := doJSON(e, http.MethodPost, "/auth/reset/request", map[string]string{
		"email": "u@example.com",
	})
	require.NoError(t, handler.RequestReset(c))
	require.Equal(t, http.StatusAccepted, rec.Code)

	resetCode := codePattern.FindString(sender.sent[len(sender.sent)-1])
	c, rec = doJSON(e, http.MethodPost, "/auth/reset/verify", map[string]string{
		"email": "u@example.com", "code": resetCode,
	})
	require.NoError(t, handler.VerifyReset(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var verifyResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verifyResp))
	token := verifyResp["reset_token"]
	require.NotEmpty(t, token)

	c, rec = doJSON(e, http.MethodPost, "/auth/reset/confirm", map[string]string{
		"email": "u@example.com", "reset_token": token, "password": "newpassword1",
	})
	require.NoError(t, handler.CompleteReset(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = doJSON(e, http.MethodPost, "/auth/login", map[string]string{
		"email": "u@example.com", "password": "newpassword1",
	})
	require.NoError(t, handler.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// A tampered token gets the one generic message.
	c, _ = doJSON(e, http.MethodPost, "/auth/reset/confirm", map[string]string{
		"email": "u@example.com", "reset_token": "!" + token[1:], "password": "newpassword2",
	})
	err := handler.CompleteReset(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Equal(t, verification.ErrInvalidToken.Error(), he.Message)
}
