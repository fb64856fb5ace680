package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/models"
	"lumepay/internal/services/apikey"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Authenticate(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockGate struct {
	mock.Mock
}

func (m *MockGate) Authenticate(ctx context.Context, raw string) (*apikey.Principal, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apikey.Principal), args.Error(1)
}

func (m *MockGate) Admit(ctx context.Context, raw string) (*apikey.Principal, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apikey.Principal), args.Error(1)
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestSessionAuth(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("Authenticate", mock.Anything, "good").Return(&models.User{ID: "user-1"}, nil)
	sessions.On("Authenticate", mock.Anything, "stale").Return(nil, apperrors.ErrInvalidSession)

	app := fiber.New()
	app.Get("/me", NewAuthMiddleware(sessions, zerolog.Nop()).Handler, func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).ID)
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid token", header: "Bearer good", status: fiber.StatusOK},
		{name: "missing header", header: "", status: fiber.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: fiber.StatusUnauthorized},
		{name: "stale token", header: "Bearer stale", status: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, "user-1", string(body))
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("Authenticate", mock.Anything, "admin").Return(&models.User{ID: "a", IsAdmin: true}, nil)
	sessions.On("Authenticate", mock.Anything, "merchant").Return(&models.User{ID: "m"}, nil)

	app := fiber.New()
	app.Get("/admin", NewAuthMiddleware(sessions, zerolog.Nop()).Handler, AdminOnly, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for token, want := range map[string]int{"admin": fiber.StatusNoContent, "merchant": fiber.StatusForbidden} {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, token)
	}
}

func TestRequireAPIKey(t *testing.T) {
	principal := &apikey.Principal{Key: &models.APIKey{ID: "k1", UserID: "m1"}, Merchant: &models.User{ID: "m1"}}
	gate := new(MockGate)
	gate.On("Admit", mock.Anything, "lume_ok").Return(principal, nil)
	gate.On("Admit", mock.Anything, "lume_broke").Return(nil, apperrors.ErrInsufficientCredits)
	gate.On("Admit", mock.Anything, "").Return(nil, apperrors.ErrUnauthenticated)

	app := fiber.New()
	app.Post("/intent", NewAPIKeyMiddleware(gate).Require, func(c *fiber.Ctx) error {
		return c.SendString(CurrentPrincipal(c).Key.ID)
	})

	tests := []struct {
		key    string
		status int
		code   string
	}{
		{key: "lume_ok", status: fiber.StatusOK},
		{key: "lume_broke", status: fiber.StatusPaymentRequired, code: "INSUFFICIENT_CREDITS"},
		{key: "", status: fiber.StatusUnauthorized, code: "UNAUTHENTICATED"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("POST", "/intent", nil)
		if tt.key != "" {
			req.Header.Set(APIKeyHeader, tt.key)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode)
		if tt.code != "" {
			assert.Equal(t, tt.code, decode(t, resp.Body)["code"])
		}
	}
}

func TestOptionalAPIKey(t *testing.T) {
	principal := &apikey.Principal{Key: &models.APIKey{ID: "k1", UserID: "m1"}, Merchant: &models.User{ID: "m1"}}
	gate := new(MockGate)
	gate.On("Authenticate", mock.Anything, "lume_ok").Return(principal, nil)
	gate.On("Authenticate", mock.Anything, "lume_off").Return(nil, apperrors.ErrKeyDisabled)

	app := fiber.New()
	app.Get("/intent", NewAPIKeyMiddleware(gate).Optional, func(c *fiber.Ctx) error {
		if CurrentPrincipal(c) == nil {
			return c.SendString("anonymous")
		}
		return c.SendString("merchant")
	})

	for key, want := range map[string]string{"": "anonymous", "lume_ok": "merchant"} {
		req := httptest.NewRequest("GET", "/intent", nil)
		if key != "" {
			req.Header.Set(APIKeyHeader, key)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, want, string(body))
	}

	req := httptest.NewRequest("GET", "/intent", nil)
	req.Header.Set(APIKeyHeader, "lume_off")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	gate.AssertNotCalled(t, "Admit", mock.Anything, mock.Anything)
}

type memoryReplayStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
}

func newMemoryReplayStore() *memoryReplayStore {
	return &memoryReplayStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *memoryReplayStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return false, errors.New("redis down")
	}
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (s *memoryReplayStore) SetWithTTL(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	s.ttls[key] = ttl
	return nil
}

func (s *memoryReplayStore) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	s.data[key] = raw
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryReplayStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
		delete(s.ttls, k)
	}
	return nil
}

func (s *memoryReplayStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func idempotentApp(store ReplayStore, calls *int) *fiber.App {
	principal := &apikey.Principal{Key: &models.APIKey{ID: "k1", UserID: "m1"}, Merchant: &models.User{ID: "m1"}}
	app := fiber.New()
	app.Post("/intent",
		func(c *fiber.Ctx) error {
			c.Locals(localPrincipal, principal)
			return c.Next()
		},
		Idempotency(store, zerolog.Nop()),
		func(c *fiber.Ctx) error {
			*calls++
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": *calls})
		},
	)
	return app
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	app := idempotentApp(store, &calls)

	send := func(key string) (*fiberResponse, error) {
		req := httptest.NewRequest("POST", "/intent", nil)
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		resp, err := app.Test(req)
		if err != nil {
			return nil, err
		}
		return &fiberResponse{status: resp.StatusCode, hit: resp.Header.Get(IdempotencyHitHeader), body: decode(t, resp.Body)}, nil
	}

	first, err := send("abc")
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, first.status)
	assert.Empty(t, first.hit)

	second, err := send("abc")
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, second.status)
	assert.Equal(t, "true", second.hit)
	assert.Equal(t, first.body, second.body)
	assert.Equal(t, 1, calls)
	assert.Equal(t, IdempotencyTTL, store.ttls["idempotency:m1:abc"])

	_, err = send("")
	require.NoError(t, err)
	_, err = send("")
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "requests without a key are never replayed")
}

func TestIdempotencyBypassesFailingStore(t *testing.T) {
	store := newMemoryReplayStore()
	store.failGet = true
	calls := 0
	app := idempotentApp(store, &calls)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/intent", nil)
		req.Header.Set(IdempotencyHeader, "abc")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryReplayStore()
	principal := &apikey.Principal{Key: &models.APIKey{ID: "k1", UserID: "m1"}, Merchant: &models.User{ID: "m1"}}

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	app := fiber.New()
	app.Post("/pay",
		func(c *fiber.Ctx) error {
			c.Locals(localPrincipal, principal)
			return c.Next()
		},
		Idempotency(store, zerolog.Nop()),
		func(c *fiber.Ctx) error {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
			}
			return c.JSON(fiber.Map{"success": true})
		},
	)

	newReq := func() *http.Request {
		req := httptest.NewRequest("POST", "/pay", nil)
		req.Header.Set(IdempotencyHeader, "tx-1")
		return req
	}

	firstStatus := make(chan int, 1)
	go func() {
		resp, err := app.Test(newReq(), -1)
		if err != nil {
			firstStatus <- 0
			return
		}
		firstStatus <- resp.StatusCode
	}()
	<-entered

	resp, err := app.Test(newReq(), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "IDEMPOTENCY_IN_PROGRESS", decode(t, resp.Body)["code"])

	close(release)
	assert.Equal(t, fiber.StatusOK, <-firstStatus)

	resp, err = app.Test(newReq(), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(IdempotencyHitHeader))
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotencyReleasesClaimOnServerError(t *testing.T) {
	store := newMemoryReplayStore()
	principal := &apikey.Principal{Key: &models.APIKey{ID: "k1", UserID: "m1"}, Merchant: &models.User{ID: "m1"}}

	calls := 0
	app := fiber.New()
	app.Post("/pay",
		func(c *fiber.Ctx) error {
			c.Locals(localPrincipal, principal)
			return c.Next()
		},
		Idempotency(store, zerolog.Nop()),
		func(c *fiber.Ctx) error {
			calls++
			if calls == 1 {
				return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"code": "VERIFICATION_UNAVAILABLE"})
			}
			return c.JSON(fiber.Map{"success": true})
		},
	)

	for _, want := range []int{fiber.StatusBadGateway, fiber.StatusOK} {
		req := httptest.NewRequest("POST", "/pay", nil)
		req.Header.Set(IdempotencyHeader, "tx-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode)
	}
	assert.Equal(t, 2, calls)
	assert.True(t, store.has("idempotency:m1:tx-1"))
	assert.Equal(t, IdempotencyTTL, store.ttls["idempotency:m1:tx-1"])
}

type fiberResponse struct {
	status int
	hit    string
	body   map[string]interface{}
}
