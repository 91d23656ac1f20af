package authflowrepo

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/jrsteele09/go-idp-login/internal/errors"
	"github.com/jrsteele09/go-idp-login/pkce"
	"gorm.io/gorm"
)

// authAttemptRecord is the row layout of the auth_attempts table.
// Times are unix nanoseconds so expiry comparisons behave the same on every dialect.
type authAttemptRecord struct {
	State        string `gorm:"primaryKey;size:128"`
	CodeVerifier string `gorm:"size:128"`
	Nonce        string `gorm:"size:128"`
	Used         bool   `gorm:"not null;default:false"`
	CreatedAtNS  int64  `gorm:"not null"`
	ExpiresAtNS  int64  `gorm:"not null;index"`
}

func (authAttemptRecord) TableName() string {
	return "auth_attempts"
}

func (rec authAttemptRecord) toAttempt() AuthAttempt {
	return AuthAttempt{
		State:        rec.State,
		CodeVerifier: rec.CodeVerifier,
		Nonce:        rec.Nonce,
		Used:         rec.Used,
		CreatedAt:    time.Unix(0, rec.CreatedAtNS),
		ExpiresAt:    time.Unix(0, rec.ExpiresAtNS),
	}
}

// GormRepo keeps attempts in a SQL table so several service instances can share them.
type GormRepo struct {
	db  *gorm.DB
	ttl time.Duration
	now Clock
}

var _ Repo = (*GormRepo)(nil)

// NewGormRepo migrates the auth_attempts table and returns a repo backed by db.
func NewGormRepo(db *gorm.DB, ttl time.Duration, opts ...Option) (*GormRepo, error) {
	if db == nil {
		return nil, errors.New("[authflowrepo NewGormRepo] db cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := db.AutoMigrate(&authAttemptRecord{}); err != nil {
		return nil, apperrors.Wrapf(err, "[authflowrepo NewGormRepo] migrate")
	}
	o := applyOptions(opts)
	return &GormRepo{db: db, ttl: ttl, now: o.clock}, nil
}

// Create inserts a new unused attempt, replacing an expired one with the same state
func (r *GormRepo) Create(ctx context.Context, state string, attempt AuthAttempt) error {
	if state == "" {
		return apperrors.Wrapf(ErrInvalidArgument, "[authflowrepo Create] empty state")
	}

	if attempt.CodeVerifier != "" && !pkce.ValidVerifier(attempt.CodeVerifier) {
		return apperrors.Wrapf(ErrInvalidArgument, "[authflowrepo Create] malformed code verifier")
	}

	now := r.now()
	rec := authAttemptRecord{
		State:        state,
		CodeVerifier: attempt.CodeVerifier,
		Nonce:        attempt.Nonce,
		CreatedAtNS:  now.UnixNano(),
		ExpiresAtNS:  now.Add(r.ttl).UnixNano(),
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var live int64
		if err := tx.Model(&authAttemptRecord{}).
			Where("state = ? AND expires_at_ns > ?", state, rec.CreatedAtNS).
			Count(&live).Error; err != nil {
			return apperrors.Wrapf(err, "[authflowrepo Create] lookup")
		}
		if live > 0 {
			return ErrConflict
		}

		if err := tx.Where("state = ?", state).Delete(&authAttemptRecord{}).Error; err != nil {
			return apperrors.Wrapf(err, "[authflowrepo Create] clear expired")
		}

		if err := tx.Create(&rec).Error; err != nil {
			if apperrors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return apperrors.Wrapf(err, "[authflowrepo Create] insert")
		}
		return nil
	})
}

// Consume flips used with a conditional UPDATE; only the caller whose update touches
// the row has consumed the attempt.
func (r *GormRepo) Consume(ctx context.Context, state string) (AuthAttempt, error) {
	if state == "" {
		return AuthAttempt{}, ErrNotFound
	}

	now := r.now().UnixNano()
	var rec authAttemptRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&authAttemptRecord{}).
			Where("state = ? AND used = ? AND expires_at_ns > ?", state, false, now).
			Update("used", true)
		if res.Error != nil {
			return apperrors.Wrapf(res.Error, "[authflowrepo Consume] update")
		}

		if res.RowsAffected == 0 {
			var existing authAttemptRecord
			err := tx.Where("state = ?", state).Take(&existing).Error
			if apperrors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return apperrors.Wrapf(err, "[authflowrepo Consume] lookup")
			}
			if existing.ExpiresAtNS <= now {
				return ErrNotFound
			}
			return ErrAlreadyUsed
		}

		if err := tx.Where("state = ?", state).Take(&rec).Error; err != nil {
			return apperrors.Wrapf(err, "[authflowrepo Consume] read")
		}
		return nil
	})
	if err != nil {
		return AuthAttempt{}, err
	}
	return rec.toAttempt(), nil
}

// PurgeExpired deletes every row past its expiry
func (r *GormRepo) PurgeExpired(ctx context.Context) (int, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at_ns <= ?", r.now().UnixNano()).
		Delete(&authAttemptRecord{})
	if res.Error != nil {
		return 0, apperrors.Wrapf(res.Error, "[authflowrepo PurgeExpired]")
	}
	return int(res.RowsAffected), nil
}
