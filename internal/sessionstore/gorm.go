package sessionstore

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go-deep-research/internal/types"
)

// SessionRecord is the gorm table backing GormStore. Diary and References
// round-trip through datatypes.JSON rather than normalized child tables,
// matching the teacher's preference for a single migrated struct per
// domain object over a join-heavy schema.
type SessionRecord struct {
	ID         string `gorm:"primaryKey;size:64"`
	Question   string `gorm:"type:text;not null"`
	Status     string `gorm:"size:32;not null;index"`
	Answer     string `gorm:"type:text"`
	References datatypes.JSON
	Diary      datatypes.JSON
	Error      string `gorm:"type:text"`
	TokensUsed uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GormStore is the production Store, backed by Postgres or SQLite via
// internal/db.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db as a Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, id, question string) error {
	rec := SessionRecord{
		ID:       id,
		Question: question,
		Status:   string(StatusProcessing),
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *GormStore) UpdateProgress(ctx context.Context, id string, diary []types.DiaryEntry, tokensUsed uint64) error {
	blob, err := json.Marshal(diary)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", id).Updates(map[string]any{
		"diary":       datatypes.JSON(blob),
		"tokens_used": tokensUsed,
	}).Error
}

func (s *GormStore) Complete(ctx context.Context, id, answer string, refs []types.Reference, tokensUsed uint64) error {
	blob, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", id).Updates(map[string]any{
		"status":      string(StatusCompleted),
		"answer":      answer,
		"references":  datatypes.JSON(blob),
		"tokens_used": tokensUsed,
	}).Error
}

func (s *GormStore) Fail(ctx context.Context, id, reason string) error {
	return s.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", id).Updates(map[string]any{
		"status": string(StatusFailed),
		"error":  reason,
	}).Error
}

func (s *GormStore) AwaitingInput(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", id).
		Update("status", string(StatusInputRequired)).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (Session, error) {
	var rec SessionRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return recordToSession(rec), nil
}

func (s *GormStore) List(ctx context.Context, limit int) ([]Session, error) {
	var recs []SessionRecord
	q := s.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordToSession(rec))
	}
	return out, nil
}

func recordToSession(rec SessionRecord) Session {
	sess := Session{
		ID:         rec.ID,
		Question:   rec.Question,
		Status:     Status(rec.Status),
		Answer:     rec.Answer,
		Error:      rec.Error,
		TokensUsed: rec.TokensUsed,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if len(rec.Diary) > 0 {
		_ = json.Unmarshal(rec.Diary, &sess.Diary)
	}
	if len(rec.References) > 0 {
		_ = json.Unmarshal(rec.References, &sess.References)
	}
	return sess
}
