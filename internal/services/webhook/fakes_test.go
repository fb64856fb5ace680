package webhook

import (
	"context"
	"sync"

	"lumepay/internal/models"
	"lumepay/internal/repositories"

	"github.com/google/uuid"
)

// memoryStore is an in-memory repositories.WebhookRepository.
type memoryStore struct {
	mu         sync.Mutex
	settings   map[string]*models.WebhookSettings
	deliveries []models.WebhookDelivery
}

func newMemoryStore() *memoryStore {
	return &memoryStore{settings: map[string]*models.WebhookSettings{}}
}

func (s *memoryStore) GetSettings(ctx context.Context, userID string) (*models.WebhookSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.settings[userID]
	if !ok {
		return nil, repositories.ErrSettingsNotFound
	}
	cp := *ws
	return &cp, nil
}

func (s *memoryStore) SaveSettings(ctx context.Context, ws *models.WebhookSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ws
	s.settings[ws.UserID] = &cp
	return nil
}

func (s *memoryStore) CreateDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	s.deliveries = append(s.deliveries, *d)
	return nil
}

func (s *memoryStore) GetDelivery(ctx context.Context, id string) (*models.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliveries {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, repositories.ErrDeliveryNotFound
}

func (s *memoryStore) ListDeliveries(ctx context.Context, userID string, limit int) ([]models.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WebhookDelivery
	for i := len(s.deliveries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.deliveries[i].UserID == userID {
			out = append(out, s.deliveries[i])
		}
	}
	return out, nil
}

func (s *memoryStore) Deliveries() []models.WebhookDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WebhookDelivery(nil), s.deliveries...)
}

func strPtr(s string) *string { return &s }

func enabledSettings(userID, url string) *models.WebhookSettings {
	ws := models.DefaultWebhookSettings(userID)
	ws.Enabled = true
	ws.URL = strPtr(url)
	ws.Secret = strPtr("whsec-test")
	return ws
}
