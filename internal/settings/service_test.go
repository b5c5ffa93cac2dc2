package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/internal/audit"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

var errCacheMiss = errors.New("cache miss")

type fakeSettingsRepo struct {
	byKey     map[string]*models.Setting
	findCalls int
	upserted  []*models.Setting
	upsertErr error
}

func (f *fakeSettingsRepo) FindByKey(_ context.Context, key string) (*models.Setting, error) {
	f.findCalls++
	return f.byKey[key], nil
}

func (f *fakeSettingsRepo) List(_ context.Context) ([]models.Setting, error) {
	var rows []models.Setting
	for _, s := range f.byKey {
		rows = append(rows, *s)
	}
	return rows, nil
}

func (f *fakeSettingsRepo) Upsert(_ context.Context, setting *models.Setting) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, setting)
	if f.byKey == nil {
		f.byKey = map[string]*models.Setting{}
	}
	f.byKey[setting.Key] = setting
	return nil
}

type fakeCache struct {
	entries map[string]string
	getErr  error
	setErr  error
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	raw, ok := f.entries[key]
	if !ok {
		return "", errCacheMiss
	}
	return raw, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = value.(string)
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		f.deleted = append(f.deleted, key)
		delete(f.entries, key)
	}
	return nil
}

func (f *fakeCache) CacheKey(parts ...string) string {
	return "td:cache:" + strings.Join(parts, ":")
}

type settingsAuditor struct {
	records []audit.RecordInput
}

func (a *settingsAuditor) Record(_ context.Context, input audit.RecordInput) {
	a.records = append(a.records, input)
}

func (a *settingsAuditor) ListByExpense(context.Context, uuid.UUID, pagination.Params) (*audit.Page, error) {
	return &audit.Page{}, nil
}

func (a *settingsAuditor) ListByUser(context.Context, uuid.UUID, pagination.Params) (*audit.Page, error) {
	return &audit.Page{}, nil
}

func newSettingsService(t *testing.T, repo Repository, cache Cache, auditor audit.Service) Service {
	t.Helper()
	svc, err := NewService(repo, cache, time.Minute, auditor, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seededRepo(key, value string) *fakeSettingsRepo {
	return &fakeSettingsRepo{byKey: map[string]*models.Setting{
		key: {Key: key, Value: value},
	}}
}

func expectSettingsCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("code = %s, want %s (%v)", typed.Code(), code, err)
	}
}

func TestGet_MissFillsCache(t *testing.T) {
	repo := seededRepo(KeyEngineerApprovalLimit, "2000")
	cache := newFakeCache()
	svc := newSettingsService(t, repo, cache, nil)

	setting, err := svc.Get(context.Background(), KeyEngineerApprovalLimit)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if setting.Value != "2000" {
		t.Fatalf("value = %q, want 2000", setting.Value)
	}
	if repo.findCalls != 1 {
		t.Fatalf("find calls = %d, want 1", repo.findCalls)
	}
	if _, ok := cache.entries["td:cache:settings:"+KeyEngineerApprovalLimit]; !ok {
		t.Fatalf("setting should be cached after a miss")
	}
}

func TestGet_HitSkipsRepo(t *testing.T) {
	repo := seededRepo(KeyEngineerApprovalLimit, "2000")
	cache := newFakeCache()
	raw, _ := json.Marshal(models.Setting{Key: KeyEngineerApprovalLimit, Value: "2500"})
	cache.entries["td:cache:settings:"+KeyEngineerApprovalLimit] = string(raw)
	svc := newSettingsService(t, repo, cache, nil)

	setting, err := svc.Get(context.Background(), KeyEngineerApprovalLimit)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if setting.Value != "2500" {
		t.Fatalf("cached value should win, got %q", setting.Value)
	}
	if repo.findCalls != 0 {
		t.Fatalf("repo should not be hit on a cache hit")
	}
}

func TestGet_CacheFailureFallsBackToRepo(t *testing.T) {
	repo := seededRepo(KeyEngineerApprovalLimit, "2000")
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	svc := newSettingsService(t, repo, cache, nil)

	setting, err := svc.Get(context.Background(), KeyEngineerApprovalLimit)
	if err != nil {
		t.Fatalf("Get should degrade to the database: %v", err)
	}
	if setting.Value != "2000" {
		t.Fatalf("value = %q, want 2000", setting.Value)
	}
}

func TestGet_CorruptCacheEntryIgnored(t *testing.T) {
	repo := seededRepo(KeyEngineerApprovalLimit, "2000")
	cache := newFakeCache()
	cache.entries["td:cache:settings:"+KeyEngineerApprovalLimit] = "{not json"
	svc := newSettingsService(t, repo, cache, nil)

	setting, err := svc.Get(context.Background(), KeyEngineerApprovalLimit)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if setting.Value != "2000" || repo.findCalls != 1 {
		t.Fatalf("corrupt cache entry should fall through to the repo")
	}
}

func TestGet_UnknownKeyNotFound(t *testing.T) {
	svc := newSettingsService(t, &fakeSettingsRepo{}, newFakeCache(), nil)

	_, err := svc.Get(context.Background(), "no_such_key")
	expectSettingsCode(t, err, pkgerrors.CodeNotFound)
}

func TestGet_BlankKeyRejected(t *testing.T) {
	svc := newSettingsService(t, &fakeSettingsRepo{}, newFakeCache(), nil)

	_, err := svc.Get(context.Background(), "   ")
	expectSettingsCode(t, err, pkgerrors.CodeValidation)
}

func TestGet_NilCacheWorks(t *testing.T) {
	repo := seededRepo(KeyEngineerApprovalLimit, "2000")
	svc := newSettingsService(t, repo, nil, nil)

	setting, err := svc.Get(context.Background(), KeyEngineerApprovalLimit)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if setting.Value != "2000" {
		t.Fatalf("value = %q", setting.Value)
	}
}

func TestSet_UpsertsInvalidatesAndAudits(t *testing.T) {
	repo := seededRepo(KeyEngineerApprovalLimit, "2000")
	cache := newFakeCache()
	cacheKey := "td:cache:settings:" + KeyEngineerApprovalLimit
	cache.entries[cacheKey] = `{"key":"engineer_approval_limit","value":"2000"}`
	auditor := &settingsAuditor{}
	svc := newSettingsService(t, repo, cache, auditor)

	actorID := uuid.New()
	setting, err := svc.Set(context.Background(), SetInput{
		ActorID:     actorID,
		Key:         KeyEngineerApprovalLimit,
		Value:       "3000",
		Description: "raised for Q2 travel",
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if setting.Value != "3000" {
		t.Fatalf("value = %q, want 3000", setting.Value)
	}
	if setting.Description == nil || *setting.Description != "raised for Q2 travel" {
		t.Fatalf("description not carried through")
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("upserts = %d, want 1", len(repo.upserted))
	}
	if _, ok := cache.entries[cacheKey]; ok {
		t.Fatalf("stale cache entry should be invalidated")
	}
	if len(auditor.records) != 1 {
		t.Fatalf("audit records = %d, want 1", len(auditor.records))
	}
	record := auditor.records[0]
	if record.UserID != actorID || record.Action != enums.AuditActionSettingUpdated {
		t.Fatalf("unexpected audit record %+v", record)
	}
	if !strings.Contains(record.Comment, "3000") {
		t.Fatalf("audit comment should name the new value, got %q", record.Comment)
	}
}

func TestSet_ValidatesInput(t *testing.T) {
	svc := newSettingsService(t, &fakeSettingsRepo{}, newFakeCache(), nil)

	_, err := svc.Set(context.Background(), SetInput{Value: "3000"})
	expectSettingsCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Set(context.Background(), SetInput{Key: KeyEngineerApprovalLimit, Value: "  "})
	expectSettingsCode(t, err, pkgerrors.CodeValidation)
}

func TestSet_RepoFailureSurfacesInternal(t *testing.T) {
	repo := &fakeSettingsRepo{upsertErr: errors.New("write failed")}
	svc := newSettingsService(t, repo, newFakeCache(), nil)

	_, err := svc.Set(context.Background(), SetInput{
		ActorID: uuid.New(),
		Key:     KeyEngineerApprovalLimit,
		Value:   "3000",
	})
	expectSettingsCode(t, err, pkgerrors.CodeInternal)
}

func TestList_ReturnsAllRows(t *testing.T) {
	repo := seededRepo(KeyEngineerApprovalLimit, "2000")
	repo.byKey["notification_retention_days"] = &models.Setting{Key: "notification_retention_days", Value: "90"}
	svc := newSettingsService(t, repo, newFakeCache(), nil)

	rows, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}
