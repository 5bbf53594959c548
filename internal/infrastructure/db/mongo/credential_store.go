package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shopsphere/session-gateway/internal/core/domain"
	"github.com/shopsphere/session-gateway/internal/core/ports"
)

const credentialCollection = "session_credentials"

// CredentialStore persists per-role credential pairs in MongoDB. One
// document holds both halves of a pair, so the both-or-neither write
// contract falls out of the document model.
type CredentialStore struct {
	coll      *mongo.Collection
	sessionID string
}

// NewCredentialStore scopes a store to one session's documents.
func NewCredentialStore(db *mongo.Database, sessionID string) *CredentialStore {
	return &CredentialStore{coll: db.Collection(credentialCollection), sessionID: sessionID}
}

type credentialDoc struct {
	ID        string `bson:"_id"`
	SessionID string `bson:"session_id"`
	Role      string `bson:"role"`
	Profile   string `bson:"profile"`
	Token     string `bson:"token"`
	UpdatedAt int64  `bson:"updated_at"`
}

func (s *CredentialStore) Write(ctx context.Context, role domain.Role, profile json.RawMessage, token string) error {
	doc := credentialDoc{
		ID:        s.docID(role),
		SessionID: s.sessionID,
		Role:      string(role),
		Profile:   string(profile),
		Token:     token,
		UpdatedAt: time.Now().UTC().Unix(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("credential write: %w", err)
	}
	return nil
}

func (s *CredentialStore) Read(ctx context.Context, role domain.Role) (*ports.CredentialRecord, error) {
	var doc credentialDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": s.docID(role)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNoCredentials
		}
		return nil, fmt.Errorf("credential read: %w", err)
	}
	if doc.Token == "" {
		return nil, domain.ErrNoCredentials
	}

	return &ports.CredentialRecord{
		Profile: json.RawMessage(doc.Profile),
		Token:   doc.Token,
	}, nil
}

func (s *CredentialStore) Erase(ctx context.Context, role domain.Role) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": s.docID(role)}); err != nil {
		return fmt.Errorf("credential erase: %w", err)
	}
	return nil
}

func (s *CredentialStore) docID(role domain.Role) string {
	return fmt.Sprintf("%s:%s", s.sessionID, role)
}
