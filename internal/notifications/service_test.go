package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

type fakeNotificationsRepo struct {
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	countFn       func(ctx context.Context, userID uuid.UUID) (int64, error)
	markReadFn    func(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
}

func (f *fakeNotificationsRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeNotificationsRepo) Create(context.Context, *models.Notification) error { return nil }

func (f *fakeNotificationsRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeNotificationsRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx, userID)
	}
	return 0, nil
}

func (f *fakeNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, userID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeNotificationsRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, userID, now)
	}
	return 0, nil
}

func (f *fakeNotificationsRepo) DeleteReadBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newNotificationsService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func expectNotificationsCode(t *testing.T, err error, code pkgerrors.Code) {
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

func TestNewService_RequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}

func TestList_RequiresUser(t *testing.T) {
	svc := newNotificationsService(t, &fakeNotificationsRepo{})

	_, err := svc.List(context.Background(), ListParams{})
	expectNotificationsCode(t, err, pkgerrors.CodeValidation)
}

func TestList_PassesRawLimitThrough(t *testing.T) {
	var got listNotificationsParams
	repo := &fakeNotificationsRepo{
		listFn: func(_ context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
			got = params
			return nil, nil, nil
		},
	}
	svc := newNotificationsService(t, repo)

	userID := uuid.New()
	if _, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 15, UnreadOnly: true}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if got.Limit != 15 {
		t.Fatalf("limit = %d, want 15", got.Limit)
	}
	if !got.UnreadOnly || got.UserID != userID {
		t.Fatalf("unexpected query params %+v", got)
	}
}

func TestList_DecodesCursor(t *testing.T) {
	cursorID := uuid.New()
	cursorAt := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	var got listNotificationsParams
	repo := &fakeNotificationsRepo{
		listFn: func(_ context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
			got = params
			return nil, nil, nil
		},
	}
	svc := newNotificationsService(t, repo)

	encoded := pagination.EncodeCursor(pagination.Cursor{CreatedAt: cursorAt, ID: cursorID})
	if _, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: encoded}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if got.Cursor == nil || got.Cursor.ID != cursorID || !got.Cursor.CreatedAt.Equal(cursorAt) {
		t.Fatalf("cursor not decoded: %+v", got.Cursor)
	}
}

func TestList_RejectsGarbageCursor(t *testing.T) {
	svc := newNotificationsService(t, &fakeNotificationsRepo{})

	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "%%%not-base64"})
	expectNotificationsCode(t, err, pkgerrors.CodeValidation)
}

func TestList_EncodesNextCursor(t *testing.T) {
	nextID := uuid.New()
	nextAt := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
	repo := &fakeNotificationsRepo{
		listFn: func(_ context.Context, _ listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
			rows := []models.Notification{{ID: uuid.New(), UserID: uuid.New()}}
			return rows, &pagination.Cursor{CreatedAt: nextAt, ID: nextID}, nil
		},
	}
	svc := newNotificationsService(t, repo)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(result.Items))
	}
	cursor, err := pagination.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if cursor.ID != nextID {
		t.Fatalf("cursor id = %s, want %s", cursor.ID, nextID)
	}
}

func TestList_NoCursorOnLastPage(t *testing.T) {
	repo := &fakeNotificationsRepo{
		listFn: func(_ context.Context, _ listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
			return []models.Notification{{ID: uuid.New()}}, nil, nil
		},
	}
	svc := newNotificationsService(t, repo)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.Cursor != "" {
		t.Fatalf("last page should have no cursor, got %q", result.Cursor)
	}
}

func TestUnreadCount(t *testing.T) {
	repo := &fakeNotificationsRepo{
		countFn: func(_ context.Context, _ uuid.UUID) (int64, error) { return 7, nil },
	}
	svc := newNotificationsService(t, repo)

	count, err := svc.UnreadCount(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 7 {
		t.Fatalf("count = %d, want 7", count)
	}

	_, err = svc.UnreadCount(context.Background(), uuid.Nil)
	expectNotificationsCode(t, err, pkgerrors.CodeValidation)
}

func TestMarkRead_Succeeds(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	repo := &fakeNotificationsRepo{
		markReadFn: func(_ context.Context, gotUser, gotNotification uuid.UUID, now time.Time) (notificationMarkResult, error) {
			if gotUser != userID || gotNotification != notificationID {
				t.Fatalf("wrong ids passed to repo")
			}
			if now.IsZero() {
				t.Fatalf("read timestamp should be set")
			}
			return notificationMarkResult{Found: true, Updated: true}, nil
		},
	}
	svc := newNotificationsService(t, repo)

	if err := svc.MarkRead(context.Background(), userID, notificationID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
}

func TestMarkRead_NotFoundForOtherUsersRow(t *testing.T) {
	repo := &fakeNotificationsRepo{
		markReadFn: func(_ context.Context, _, _ uuid.UUID, _ time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	svc := newNotificationsService(t, repo)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	expectNotificationsCode(t, err, pkgerrors.CodeNotFound)
}

func TestMarkRead_ValidatesIDs(t *testing.T) {
	svc := newNotificationsService(t, &fakeNotificationsRepo{})

	err := svc.MarkRead(context.Background(), uuid.Nil, uuid.New())
	expectNotificationsCode(t, err, pkgerrors.CodeValidation)

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.Nil)
	expectNotificationsCode(t, err, pkgerrors.CodeValidation)
}

func TestMarkAllRead_ReturnsUpdatedCount(t *testing.T) {
	repo := &fakeNotificationsRepo{
		markAllReadFn: func(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) { return 4, nil },
	}
	svc := newNotificationsService(t, repo)

	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4", count)
	}
}

func TestMarkAllRead_WrapsRepoError(t *testing.T) {
	repo := &fakeNotificationsRepo{
		markAllReadFn: func(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
			return 0, errors.New("update failed")
		},
	}
	svc := newNotificationsService(t, repo)

	_, err := svc.MarkAllRead(context.Background(), uuid.New())
	expectNotificationsCode(t, err, pkgerrors.CodeDependency)
}
