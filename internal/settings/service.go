package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/internal/audit"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/redis"
)

// KeyEngineerApprovalLimit is seeded by the initial migration.
const KeyEngineerApprovalLimit = "engineer_approval_limit"

// Cache is the slice of the Redis client the settings service uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// Service reads and writes workflow settings with a Redis read-through
// cache. Writes invalidate the cached entry; cache failures degrade to the
// database and never fail the request.
type Service interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Set(ctx context.Context, input SetInput) (*models.Setting, error)
}

// SetInput captures an upsert of one setting by an admin.
type SetInput struct {
	ActorID     uuid.UUID
	Key         string
	Value       string
	Description string
}

type service struct {
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
	auditor  audit.Service
	logg     *logger.Logger
}

// NewService wires a settings service.
func NewService(repo Repository, cache Cache, cacheTTL time.Duration, auditor audit.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("settings logger required")
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &service{repo: repo, cache: cache, cacheTTL: cacheTTL, auditor: auditor, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, key string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}

	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	setting, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading setting")
	}
	if setting == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("setting %q not found", key))
	}

	s.toCache(ctx, setting)
	return setting, nil
}

func (s *service) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing settings")
	}
	return rows, nil
}

func (s *service) Set(ctx context.Context, input SetInput) (*models.Setting, error) {
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	if strings.TrimSpace(input.Value) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "setting value is required")
	}

	setting := &models.Setting{Key: key, Value: input.Value}
	if input.Description != "" {
		description := input.Description
		setting.Description = &description
	}

	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving setting")
	}

	s.invalidate(ctx, key)

	if s.auditor != nil && input.ActorID != uuid.Nil {
		s.auditor.Record(ctx, audit.RecordInput{
			UserID:  input.ActorID,
			Action:  enums.AuditActionSettingUpdated,
			Comment: fmt.Sprintf("Setting %s changed to %s", key, input.Value),
		})
	}
	return setting, nil
}

func (s *service) fromCache(ctx context.Context, key string) *models.Setting {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey("settings", key))
	if err != nil {
		if !redis.IsNil(err) {
			s.logg.Warn(s.logg.WithField(ctx, "setting_key", key), "settings cache read failed")
		}
		return nil
	}
	var setting models.Setting
	if err := json.Unmarshal([]byte(raw), &setting); err != nil {
		return nil
	}
	return &setting
}

func (s *service) toCache(ctx context.Context, setting *models.Setting) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(setting)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey("settings", setting.Key), string(raw), s.cacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "setting_key", setting.Key), "settings cache write failed")
	}
}

func (s *service) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.CacheKey("settings", key)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "setting_key", key), "settings cache invalidation failed")
	}
}
