package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/models"
	"lumepay/internal/services/apikey"
	"lumepay/internal/services/auth"
	"lumepay/internal/services/waitlist"
	"lumepay/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func TestAuthHandlers(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)
	app := fiber.New()
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)
	app.Post("/logout", withUser(testMerchant), h.Logout)

	svc.On("Register", mock.Anything, auth.RegisterInput{Name: "A", Email: "a@example.com", Password: "longenough"}).
		Return(nil, apperrors.ErrRegistrationClosed)
	svc.On("Login", mock.Anything, "a@example.com", "longenough").
		Return(&auth.Session{Token: "tok", User: testMerchant}, nil)
	svc.On("Login", mock.Anything, "a@example.com", "wrong").
		Return(nil, apperrors.ErrInvalidCredentials)
	svc.On("Logout", mock.Anything, "m1").Return(nil)

	resp, err := app.Test(jsonRequest("POST", "/register", `{"name":"A","email":"a@example.com","password":"longenough"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "REGISTRATION_CLOSED", readJSON(t, resp)["code"])

	resp, err = app.Test(jsonRequest("POST", "/login", `{"email":"a@example.com","password":"longenough"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := readJSON(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "tok", data["token"])
	assert.NotContains(t, data["user"], "password")

	resp, err = app.Test(jsonRequest("POST", "/login", `{"email":"a@example.com","password":"wrong"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	svc.AssertExpectations(t)
}

type MockMerchantService struct {
	mock.Mock
}

func (m *MockMerchantService) UpdateName(ctx context.Context, merchant *models.User, name string) (*models.User, error) {
	args := m.Called(ctx, merchant, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockMerchantService) UpdateBank(ctx context.Context, merchant *models.User, bankName, bankAccount string) (*models.User, error) {
	args := m.Called(ctx, merchant, bankName, bankAccount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestSettingsHandlers(t *testing.T) {
	svc := new(MockMerchantService)
	h := NewSettingsHandler(svc)
	app := fiber.New()
	app.Post("/settings/name", withUser(testMerchant), h.UpdateName)
	app.Post("/settings/bank", withUser(testMerchant), h.UpdateBank)

	svc.On("UpdateName", mock.Anything, testMerchant, "New Name").Return(&models.User{ID: "m1", Name: "New Name"}, nil)
	svc.On("UpdateBank", mock.Anything, testMerchant, "CBE", "123").Return(nil, apperrors.ErrInvalidBankAccount)

	resp, err := app.Test(jsonRequest("POST", "/settings/name", `{"name":"New Name"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/settings/bank", `{"bankName":"CBE","bankAccount":"123"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BANK_ACCOUNT", readJSON(t, resp)["code"])
}

type MockAPIKeyService struct {
	mock.Mock
}

func (m *MockAPIKeyService) Create(ctx context.Context, userID, name string) (*apikey.CreatedKey, error) {
	args := m.Called(ctx, userID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apikey.CreatedKey), args.Error(1)
}

func (m *MockAPIKeyService) List(ctx context.Context, userID string) ([]models.APIKey, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) Get(ctx context.Context, userID, id string) (*models.APIKey, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) Update(ctx context.Context, userID, id string, in apikey.UpdateInput) (*models.APIKey, error) {
	args := m.Called(ctx, userID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func TestAPIKeyHandlers(t *testing.T) {
	svc := new(MockAPIKeyService)
	h := NewAPIKeyHandler(svc)
	app := fiber.New()
	user := withUser(testMerchant)
	app.Post("/keys", user, h.Create)
	app.Get("/keys", user, h.List)
	app.Patch("/keys/:id", user, h.Update)
	app.Delete("/keys/:id", user, h.Delete)

	svc.On("Create", mock.Anything, "m1", "prod").Return(&apikey.CreatedKey{
		APIKey: models.APIKey{ID: "k1", Prefix: "lume_abcdefgh", KeyHash: "secret-hash"},
		Key:    "lume_full",
	}, nil).Once()
	svc.On("Create", mock.Anything, "m1", "prod").Return(nil, apperrors.ErrKeyExists).Once()
	svc.On("List", mock.Anything, "m1").Return([]models.APIKey{{ID: "k1"}}, nil)
	svc.On("Update", mock.Anything, "m1", "k1", mock.MatchedBy(func(in apikey.UpdateInput) bool {
		return in.Enabled != nil && !*in.Enabled && in.Name == nil
	})).Return(&models.APIKey{ID: "k1"}, nil)
	svc.On("Delete", mock.Anything, "m1", "other").Return(apperrors.ErrKeyNotFound)

	resp, err := app.Test(jsonRequest("POST", "/keys", `{"name":"prod"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	key := readJSON(t, resp)["apiKey"].(map[string]interface{})
	assert.Equal(t, "lume_full", key["key"])
	assert.NotContains(t, key, "keyHash")

	resp, err = app.Test(jsonRequest("POST", "/keys", `{"name":"prod"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/keys", nil))
	require.NoError(t, err)
	assert.Len(t, readJSON(t, resp)["apiKeys"], 1)

	resp, err = app.Test(jsonRequest("PATCH", "/keys/k1", `{"enabled":false}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/keys/other", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) GetConfig(ctx context.Context, userID string) (*models.WebhookSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookSettings), args.Error(1)
}

func (m *MockWebhookService) UpdateConfig(ctx context.Context, userID string, in webhook.ConfigInput) (*models.WebhookSettings, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookSettings), args.Error(1)
}

func (m *MockWebhookService) SendTest(ctx context.Context, userID string) (*models.WebhookDelivery, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookDelivery), args.Error(1)
}

func (m *MockWebhookService) ListDeliveries(ctx context.Context, userID string) ([]models.WebhookDelivery, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.WebhookDelivery), args.Error(1)
}

func (m *MockWebhookService) RetryDelivery(ctx context.Context, userID, deliveryID string) error {
	return m.Called(ctx, userID, deliveryID).Error(0)
}

func TestWebhookHandlers(t *testing.T) {
	svc := new(MockWebhookService)
	h := NewWebhookHandler(svc)
	app := fiber.New()
	user := withUser(testMerchant)
	app.Get("/webhooks/config", user, h.GetConfig)
	app.Post("/webhooks/config", user, h.UpdateConfig)
	app.Post("/webhooks/test", user, h.SendTest)
	app.Get("/webhooks/deliveries", user, h.ListDeliveries)
	app.Post("/webhooks/deliveries/:id/retry", user, h.RetryDelivery)

	defaults := models.DefaultWebhookSettings("m1")
	svc.On("GetConfig", mock.Anything, "m1").Return(defaults, nil)
	svc.On("UpdateConfig", mock.Anything, "m1", mock.MatchedBy(func(in webhook.ConfigInput) bool {
		return in.URL != nil && *in.URL == "ftp://x" && in.Enabled == nil
	})).Return(nil, apperrors.ErrInvalidInput.WithDetail("url: must be a valid http(s) URL"))
	svc.On("SendTest", mock.Anything, "m1").Return(nil, apperrors.ErrWebhookNotConfigured)
	svc.On("ListDeliveries", mock.Anything, "m1").Return([]models.WebhookDelivery{{ID: "d1"}, {ID: "d2"}}, nil)
	svc.On("RetryDelivery", mock.Anything, "m1", "d1").Return(nil)
	svc.On("RetryDelivery", mock.Anything, "m1", "d2").Return(apperrors.ErrDeliverySucceeded)
	svc.On("RetryDelivery", mock.Anything, "m1", "d3").Return(apperrors.ErrForbidden)

	resp, err := app.Test(httptest.NewRequest("GET", "/webhooks/config", nil))
	require.NoError(t, err)
	cfg := readJSON(t, resp)["config"].(map[string]interface{})
	assert.Equal(t, false, cfg["enabled"])
	assert.Len(t, cfg["subscriptions"], 2)

	resp, err = app.Test(jsonRequest("POST", "/webhooks/config", `{"url":"ftp://x"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "url: must be a valid http(s) URL", readJSON(t, resp)["message"])

	resp, err = app.Test(httptest.NewRequest("POST", "/webhooks/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/webhooks/deliveries", nil))
	require.NoError(t, err)
	assert.Len(t, readJSON(t, resp)["deliveries"], 2)

	for id, want := range map[string]int{"d1": fiber.StatusAccepted, "d2": fiber.StatusBadRequest, "d3": fiber.StatusForbidden} {
		resp, err = app.Test(httptest.NewRequest("POST", "/webhooks/deliveries/"+id+"/retry", nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, id)
	}
}

type MockWaitlistService struct {
	mock.Mock
}

func (m *MockWaitlistService) Status(ctx context.Context) (models.WaitlistConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.WaitlistConfig), args.Error(1)
}

func (m *MockWaitlistService) RegistrationOpen(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockWaitlistService) Join(ctx context.Context, in waitlist.JoinInput) (bool, error) {
	args := m.Called(ctx, in)
	return args.Bool(0), args.Error(1)
}

func (m *MockWaitlistService) GetConfig(ctx context.Context) (models.WaitlistConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.WaitlistConfig), args.Error(1)
}

func (m *MockWaitlistService) UpdateConfig(ctx context.Context, adminID string, in waitlist.ConfigInput) (models.WaitlistConfig, error) {
	args := m.Called(ctx, adminID, in)
	return args.Get(0).(models.WaitlistConfig), args.Error(1)
}

func (m *MockWaitlistService) Settings(ctx context.Context) ([]models.SystemSetting, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.SystemSetting), args.Error(1)
}

func (m *MockWaitlistService) List(ctx context.Context, offset, limit int) ([]models.WaitlistEntry, int64, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]models.WaitlistEntry), args.Get(1).(int64), args.Error(2)
}

func TestWaitlistHandlers(t *testing.T) {
	svc := new(MockWaitlistService)
	h := NewWaitlistHandler(svc)
	admin := &models.User{ID: "admin-1", IsAdmin: true}
	app := fiber.New()
	app.Get("/waitlist/status", h.Status)
	app.Post("/waitlist/join", h.Join)
	app.Post("/admin/waitlist/config", withUser(admin), h.UpdateConfig)
	app.Get("/admin/waitlist", withUser(admin), h.List)
	app.Get("/admin/settings", withUser(admin), h.ListSettings)

	svc.On("Status", mock.Anything).Return(models.DefaultWaitlistConfig, nil)
	svc.On("Join", mock.Anything, waitlist.JoinInput{Email: "new@example.com"}).Return(true, nil)
	svc.On("Join", mock.Anything, waitlist.JoinInput{Email: "old@example.com"}).Return(false, nil)
	svc.On("UpdateConfig", mock.Anything, "admin-1", mock.MatchedBy(func(in waitlist.ConfigInput) bool {
		return in.Enabled != nil && !*in.Enabled && in.Message == nil
	})).Return(models.WaitlistConfig{Enabled: false, Message: "m"}, nil)
	svc.On("List", mock.Anything, 0, 10).Return([]models.WaitlistEntry{{Email: "new@example.com"}}, int64(1), nil)
	svc.On("Settings", mock.Anything).Return([]models.SystemSetting{
		{Key: models.SettingWaitlistEnabled, Value: models.JSON{"enabled": true}},
	}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/waitlist/status", nil))
	require.NoError(t, err)
	assert.Equal(t, true, readJSON(t, resp)["enabled"])

	resp, err = app.Test(jsonRequest("POST", "/waitlist/join", `{"email":"new@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/waitlist/join", `{"email":"old@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/admin/waitlist/config", `{"enabled":false}`))
	require.NoError(t, err)
	assert.Equal(t, false, readJSON(t, resp)["enabled"])

	resp, err = app.Test(httptest.NewRequest("GET", "/admin/waitlist", nil))
	require.NoError(t, err)
	assert.Len(t, readJSON(t, resp)["data"], 1)

	resp, err = app.Test(httptest.NewRequest("GET", "/admin/settings", nil))
	require.NoError(t, err)
	settings := readJSON(t, resp)["settings"].([]interface{})
	require.Len(t, settings, 1)
	assert.Equal(t, models.SettingWaitlistEnabled, settings[0].(map[string]interface{})["key"])
}

func TestHealthHandler(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	app := fiber.New()
	app.Get("/ok", NewHealthHandler(map[string]Pinger{"database": up, "redis": up}).Check)
	app.Get("/degraded", NewHealthHandler(map[string]Pinger{"database": up, "redis": down}).Check)

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", readJSON(t, resp)["status"])

	resp, err = app.Test(httptest.NewRequest("GET", "/degraded", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	body := readJSON(t, resp)
	assert.Equal(t, "unavailable", body["services"].(map[string]interface{})["redis"])
}
