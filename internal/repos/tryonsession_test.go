package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/types"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.TryOnSession{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("prod")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newSession(userID uuid.UUID, status types.TryOnStatus, createdAt time.Time) *types.TryOnSession {
	return &types.TryOnSession{
		SessionID:  uuid.New(),
		UserID:     userID,
		Status:     status,
		MaxRetries: 3,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestTryOnSessionRepoOwnership(t *testing.T) {
	db := testDB(t)
	repo := NewTryOnSessionRepo(db, testLogger(t))
	ctx := context.Background()

	owner := uuid.New()
	stranger := uuid.New()

	created, err := repo.Create(ctx, nil, newSession(owner, types.TryOnStatusPending, time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByIDForUser(ctx, nil, owner, created.SessionID)
	if err != nil {
		t.Fatalf("get for owner: %v", err)
	}
	if got == nil || got.SessionID != created.SessionID {
		t.Fatalf("expected session for owner, got %+v", got)
	}

	// A session owned by someone else looks exactly like a missing one.
	got, err = repo.GetByIDForUser(ctx, nil, stranger, created.SessionID)
	if err != nil {
		t.Fatalf("get for stranger: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for non-owner, got %+v", got)
	}

	ok, err := repo.DeleteByIDForUser(ctx, nil, stranger, created.SessionID)
	if err != nil {
		t.Fatalf("delete for stranger: %v", err)
	}
	if ok {
		t.Fatal("non-owner delete should report not found")
	}

	ok, err = repo.DeleteByIDForUser(ctx, nil, owner, created.SessionID)
	if err != nil {
		t.Fatalf("delete for owner: %v", err)
	}
	if !ok {
		t.Fatal("owner delete should succeed")
	}
}

func TestTryOnSessionRepoListOrdering(t *testing.T) {
	db := testDB(t)
	repo := NewTryOnSessionRepo(db, testLogger(t))
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		s := newSession(userID, types.TryOnStatusPending, base.Add(time.Duration(i)*time.Minute))
		if _, err := repo.Create(ctx, nil, s); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, s.SessionID)
	}

	sessions, err := repo.ListByUserID(ctx, nil, userID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	// Newest first.
	if sessions[0].SessionID != ids[2] || sessions[2].SessionID != ids[0] {
		t.Fatalf("unexpected ordering: %s, %s, %s", sessions[0].SessionID, sessions[1].SessionID, sessions[2].SessionID)
	}

	limited, err := repo.ListByUserID(ctx, nil, userID, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 sessions with limit, got %d", len(limited))
	}
}

func TestTryOnSessionRepoUpdateFields(t *testing.T) {
	db := testDB(t)
	repo := NewTryOnSessionRepo(db, testLogger(t))
	ctx := context.Background()

	userID := uuid.New()
	s := newSession(userID, types.TryOnStatusPending, time.Now().Add(-time.Minute))
	if _, err := repo.Create(ctx, nil, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	started := time.Now()
	ok, err := repo.UpdateFields(ctx, nil, s.SessionID, map[string]interface{}{
		"status":              types.TryOnStatusInProgress,
		"progress_percentage": 10,
		"started_at":          started,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("update should affect one row")
	}

	got, err := repo.GetByID(ctx, nil, s.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.TryOnStatusInProgress {
		t.Fatalf("status = %s, want %s", got.Status, types.TryOnStatusInProgress)
	}
	if got.ProgressPercentage != 10 {
		t.Fatalf("progress = %d, want 10", got.ProgressPercentage)
	}
	if got.StartedAt == nil {
		t.Fatal("started_at should be set")
	}
	if !got.UpdatedAt.After(s.UpdatedAt) {
		t.Fatalf("updated_at should advance: %v -> %v", s.UpdatedAt, got.UpdatedAt)
	}

	ok, err = repo.UpdateFields(ctx, nil, uuid.New(), map[string]interface{}{"status": types.TryOnStatusFailed})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Fatal("update of missing session should report not found")
	}
}

func TestTryOnSessionRepoUpdateFieldsIfActive(t *testing.T) {
	db := testDB(t)
	repo := NewTryOnSessionRepo(db, testLogger(t))
	ctx := context.Background()

	userID := uuid.New()
	active := newSession(userID, types.TryOnStatusInProgress, time.Now())
	done := newSession(userID, types.TryOnStatusCancelled, time.Now())
	for _, s := range []*types.TryOnSession{active, done} {
		if _, err := repo.Create(ctx, nil, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	ok, err := repo.UpdateFieldsIfActive(ctx, nil, active.SessionID, map[string]interface{}{
		"status": types.TryOnStatusFailed,
	})
	if err != nil {
		t.Fatalf("update active: %v", err)
	}
	if !ok {
		t.Fatal("expected active session to be updated")
	}

	ok, err = repo.UpdateFieldsIfActive(ctx, nil, done.SessionID, map[string]interface{}{
		"status": types.TryOnStatusFailed,
	})
	if err != nil {
		t.Fatalf("update terminal: %v", err)
	}
	if ok {
		t.Fatal("terminal session must not be updated")
	}
	got, err := repo.GetByID(ctx, nil, done.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.TryOnStatusCancelled {
		t.Fatalf("status = %s, want cancelled untouched", got.Status)
	}
}

func TestTryOnSessionRepoListTerminalOlderThan(t *testing.T) {
	db := testDB(t)
	repo := NewTryOnSessionRepo(db, testLogger(t))
	ctx := context.Background()

	userID := uuid.New()
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	oldDone := newSession(userID, types.TryOnStatusCompleted, old)
	oldFailed := newSession(userID, types.TryOnStatusFailed, old)
	oldRunning := newSession(userID, types.TryOnStatusInProgress, old)
	freshDone := newSession(userID, types.TryOnStatusCompleted, fresh)
	for _, s := range []*types.TryOnSession{oldDone, oldFailed, oldRunning, freshDone} {
		if _, err := repo.Create(ctx, nil, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	stale, err := repo.ListTerminalOlderThan(ctx, nil, cutoff, 0)
	if err != nil {
		t.Fatalf("list terminal: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("expected 2 stale sessions, got %d", len(stale))
	}
	for _, s := range stale {
		if !s.Status.Terminal() {
			t.Fatalf("non-terminal session returned: %s", s.Status)
		}
		if s.SessionID == oldRunning.SessionID {
			t.Fatal("in-progress session must never be swept")
		}
	}

	capped, err := repo.ListTerminalOlderThan(ctx, nil, cutoff, 1)
	if err != nil {
		t.Fatalf("list terminal capped: %v", err)
	}
	if len(capped) != 1 {
		t.Fatalf("expected batch of 1, got %d", len(capped))
	}
}
