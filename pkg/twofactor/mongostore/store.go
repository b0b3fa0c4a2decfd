// Package mongostore persists two-factor records in a MongoDB collection,
// one document per user keyed by the user id.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/twofactor/pkg/twofactor"
)

// DefaultCollection is the collection used by New.
const DefaultCollection = "two_factor_secrets"

var ErrNilSecret = errors.New("mongostore: nil secret")

type document struct {
	UserID          string     `bson:"_id"`
	Secret          string     `bson:"secret"`
	Enabled         bool       `bson:"enabled"`
	Verified        bool       `bson:"verified"`
	BackupCodes     []string   `bson:"backup_codes"`
	BackupCodesUsed int        `bson:"backup_codes_used"`
	LastUsedAt      *time.Time `bson:"last_used_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toDocument(s *twofactor.Secret) document {
	codes := s.BackupCodes
	if codes == nil {
		codes = []string{}
	}
	return document{
		UserID:          s.UserID,
		Secret:          s.Secret,
		Enabled:         s.Enabled,
		Verified:        s.Verified,
		BackupCodes:     codes,
		BackupCodesUsed: s.BackupCodesUsed,
		LastUsedAt:      s.LastUsedAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (d document) secret() *twofactor.Secret {
	return &twofactor.Secret{
		UserID:          d.UserID,
		Secret:          d.Secret,
		Enabled:         d.Enabled,
		Verified:        d.Verified,
		BackupCodes:     d.BackupCodes,
		BackupCodesUsed: d.BackupCodesUsed,
		LastUsedAt:      d.LastUsedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// Store implements twofactor.Storage.
type Store struct {
	coll *mongo.Collection
}

// New uses DefaultCollection of db.
func New(db *mongo.Database) *Store {
	return NewWithCollection(db.Collection(DefaultCollection))
}

func NewWithCollection(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

func (s *Store) GetSecret(ctx context.Context, userID string) (*twofactor.Secret, error) {
	var doc document
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, twofactor.ErrSecretNotFound
		}
		return nil, err
	}
	return doc.secret(), nil
}

func (s *Store) CreateSecret(ctx context.Context, rec *twofactor.Secret) error {
	if rec == nil {
		return ErrNilSecret
	}
	if rec.UserID == "" {
		return twofactor.ErrMissingUserID
	}

	if _, err := s.coll.InsertOne(ctx, toDocument(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return twofactor.ErrAlreadyEnrolled
		}
		return err
	}
	return nil
}

func (s *Store) UpdateSecret(ctx context.Context, rec *twofactor.Secret) error {
	if rec == nil {
		return ErrNilSecret
	}

	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: rec.UserID}}, toDocument(rec))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return twofactor.ErrSecretNotFound
	}
	return nil
}

func (s *Store) DeleteSecret(ctx context.Context, userID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: userID}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return twofactor.ErrSecretNotFound
	}
	return nil
}
