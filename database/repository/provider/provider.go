package providerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barberbook/database/store"
	"barberbook/models"
	"barberbook/utils"

	"go.uber.org/zap"
)

// DocumentProviderRepo implements ProviderRepository on a RecordStore.
type DocumentProviderRepo struct {
	store   store.RecordStore
	cache   utils.Cache
	nameTTL time.Duration
	logger  *zap.Logger
}

// NewDocumentProviderRepo creates a provider repository. Provider names are
// cached for nameTTL; pass utils.NoopCache{} to disable caching.
func NewDocumentProviderRepo(s store.RecordStore, cache utils.Cache, nameTTL time.Duration, logger *zap.Logger) *DocumentProviderRepo {
	if cache == nil {
		cache = utils.NoopCache{}
	}
	return &DocumentProviderRepo{store: s, cache: cache, nameTTL: nameTTL, logger: logger}
}

func (r *DocumentProviderRepo) GetByID(ctx context.Context, id string) (*models.ProviderProfile, error) {
	doc, err := r.store.Get(ctx, store.KindProviders, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("provider %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider with id %s: %w", id, err)
	}
	p, ok := decodeProvider(doc)
	if !ok {
		r.logger.Warn("providerRepo: quarantined malformed provider", zap.String("providerID", id))
		return nil, fmt.Errorf("provider %s is malformed: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (r *DocumentProviderRepo) GetAll(ctx context.Context) ([]models.ProviderProfile, error) {
	docs, err := r.store.Query(ctx, store.KindProviders, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve providers: %w", err)
	}
	providers := make([]models.ProviderProfile, 0, len(docs))
	for _, doc := range docs {
		p, ok := decodeProvider(doc)
		if !ok {
			r.logger.Warn("providerRepo: quarantined malformed provider", zap.String("providerID", doc.ID()))
			continue
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func (r *DocumentProviderRepo) GetService(ctx context.Context, id string) (*models.Service, error) {
	doc, err := r.store.Get(ctx, store.KindServices, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("service %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch service with id %s: %w", id, err)
	}
	name, ok := doc.String("name")
	price, okPrice := doc.Decimal("price")
	if !ok || !okPrice || price.IsNegative() {
		r.logger.Warn("providerRepo: quarantined malformed service", zap.String("serviceID", id))
		return nil, fmt.Errorf("service %s is malformed: %w", id, models.ErrNotFound)
	}
	return &models.Service{ID: id, Name: name, Price: price}, nil
}

func (r *DocumentProviderRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Get(ctx, store.KindProviders, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DocumentProviderRepo) GetName(ctx context.Context, id string) string {
	key := "providerName:" + id
	if name, err := r.cache.Get(ctx, key); err == nil {
		return name
	}

	p, err := r.GetByID(ctx, id)
	if err != nil || p.Name == "" {
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			r.logger.Warn("providerRepo: failed to resolve provider name", zap.String("providerID", id), zap.Error(err))
		}
		return UnknownProviderName
	}
	if err := r.cache.Set(ctx, key, p.Name, r.nameTTL); err != nil {
		r.logger.Debug("providerRepo: failed to cache provider name", zap.String("providerID", id), zap.Error(err))
	}
	return p.Name
}

func (r *DocumentProviderRepo) Create(ctx context.Context, p models.ProviderProfile) error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("%w: provider id and name are required", models.ErrInvalidInput)
	}
	services := make([]any, 0, len(p.ServiceIDs))
	for _, id := range p.ServiceIDs {
		services = append(services, id)
	}
	doc := store.Document{
		"name":        p.Name,
		"description": p.Description,
		"image":       p.Image,
		"phone":       p.Phone,
		"email":       p.Email,
		"services":    services,
	}
	if err := r.store.Set(ctx, store.KindProviders, p.ID, doc); err != nil {
		return fmt.Errorf("failed to create provider %s: %w", p.ID, err)
	}
	return nil
}

func (r *DocumentProviderRepo) CreateService(ctx context.Context, s models.Service) error {
	doc := store.Document{
		"name":  s.Name,
		"price": s.Price.InexactFloat64(),
	}
	if err := r.store.Set(ctx, store.KindServices, s.ID, doc); err != nil {
		return fmt.Errorf("failed to create service %s: %w", s.ID, err)
	}
	return nil
}

// decodeProvider requires a name; the remaining profile fields are optional.
func decodeProvider(doc store.Document) (models.ProviderProfile, bool) {
	name, ok := doc.String("name")
	if !ok {
		return models.ProviderProfile{}, false
	}
	return models.ProviderProfile{
		ID:          doc.ID(),
		Name:        name,
		Description: doc.OptionalString("description"),
		Image:       doc.OptionalString("image"),
		Phone:       doc.OptionalString("phone"),
		Email:       doc.OptionalString("email"),
		ServiceIDs:  doc.Strings("services"),
	}, true
}
