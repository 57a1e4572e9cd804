package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/szonjajakab/ponpa/internal/platform/logger"
	"github.com/szonjajakab/ponpa/internal/types"
)

type TryOnSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.TryOnSession) (*types.TryOnSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.TryOnSession, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionID uuid.UUID) (*types.TryOnSession, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.TryOnSession, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, updates map[string]interface{}) (bool, error)
	UpdateFieldsIfActive(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, updates map[string]interface{}) (bool, error)
	DeleteByIDForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionID uuid.UUID) (bool, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (bool, error)
	ListTerminalOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*types.TryOnSession, error)
}

type tryOnSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTryOnSessionRepo(db *gorm.DB, baseLog *logger.Logger) TryOnSessionRepo {
	return &tryOnSessionRepo{db: db, log: baseLog.With("repo", "TryOnSessionRepo")}
}

func (r *tryOnSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.TryOnSession) (*types.TryOnSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if session == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *tryOnSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.TryOnSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil, nil
	}
	var session types.TryOnSession
	err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByIDForUser treats ownership as part of the lookup key: a session that
// exists but belongs to another user is reported as not found.
func (r *tryOnSessionRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionID uuid.UUID) (*types.TryOnSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || sessionID == uuid.Nil {
		return nil, nil
	}
	var session types.TryOnSession
	err := transaction.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *tryOnSessionRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.TryOnSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var sessions []*types.TryOnSession
	if userID == uuid.Nil {
		return sessions, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *tryOnSessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.TryOnSession{}).
		Where("session_id = ?", sessionID).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// UpdateFieldsIfActive applies the partial update only while the session
// is still in a non-terminal state, so a late failure or progress write
// can never overwrite a completed, failed or cancelled session.
func (r *tryOnSessionRepo) UpdateFieldsIfActive(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(ctx).
		Model(&types.TryOnSession{}).
		Where("session_id = ? AND status NOT IN ?", sessionID, []types.TryOnStatus{
			types.TryOnStatusCompleted,
			types.TryOnStatusFailed,
			types.TryOnStatusCancelled,
		}).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *tryOnSessionRepo) DeleteByIDForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || sessionID == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Delete(&types.TryOnSession{})
	return res.RowsAffected > 0, res.Error
}

func (r *tryOnSessionRepo) DeleteByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&types.TryOnSession{})
	return res.RowsAffected > 0, res.Error
}

// ListTerminalOlderThan returns completed, failed and cancelled sessions
// created before cutoff, oldest first, capped at limit when limit > 0.
// In-flight sessions are never returned, no matter how old they are.
func (r *tryOnSessionRepo) ListTerminalOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*types.TryOnSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []types.TryOnStatus{
			types.TryOnStatusCompleted,
			types.TryOnStatusFailed,
			types.TryOnStatusCancelled,
		}, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var sessions []*types.TryOnSession
	err := query.Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
