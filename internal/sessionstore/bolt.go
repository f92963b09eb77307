package sessionstore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"go-deep-research/internal/types"
)

var sessionsBucket = []byte("sessions")

// BoltStore is a single-file embedded Store for cmd/research-cli's
// run-without-a-server mode: a local operator still wants `research-cli
// list`/`get` to see past runs after the process exits, without standing
// up Postgres. It round-trips the full Session through JSON the way
// GormStore round-trips Diary/References, since bbolt only deals in
// byte slices.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (creating if absent) the bbolt file at path and
// ensures its sessions bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) put(sess Session) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(sess.ID), blob)
	})
}

func (s *BoltStore) get(id string) (Session, error) {
	var sess Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		blob := tx.Bucket(sessionsBucket).Get([]byte(id))
		if blob == nil {
			return ErrNotFound
		}
		return json.Unmarshal(blob, &sess)
	})
	return sess, err
}

func (s *BoltStore) Create(ctx context.Context, id, question string) error {
	now := time.Now()
	return s.put(Session{
		ID:        id,
		Question:  question,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *BoltStore) UpdateProgress(ctx context.Context, id string, diary []types.DiaryEntry, tokensUsed uint64) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.Diary = diary
	sess.TokensUsed = tokensUsed
	sess.UpdatedAt = time.Now()
	return s.put(sess)
}

func (s *BoltStore) Complete(ctx context.Context, id, answer string, refs []types.Reference, tokensUsed uint64) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.Status = StatusCompleted
	sess.Answer = answer
	sess.References = refs
	sess.TokensUsed = tokensUsed
	sess.UpdatedAt = time.Now()
	return s.put(sess)
}

func (s *BoltStore) Fail(ctx context.Context, id, reason string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.Status = StatusFailed
	sess.Error = reason
	sess.UpdatedAt = time.Now()
	return s.put(sess)
}

func (s *BoltStore) AwaitingInput(ctx context.Context, id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.Status = StatusInputRequired
	sess.UpdatedAt = time.Now()
	return s.put(sess)
}

func (s *BoltStore) Get(ctx context.Context, id string) (Session, error) {
	return s.get(id)
}

func (s *BoltStore) List(ctx context.Context, limit int) ([]Session, error) {
	var out []Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, v []byte) error {
			var sess Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return err
			}
			out = append(out, sess)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
