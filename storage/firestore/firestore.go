// Package firestore provides a Firestore implementation of the usersync.UserStore
// interface. This implementation uses Google Cloud Firestore as the remote
// table-backed store for user records.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mihaimyh/usersync/pkg/usersync"
)

const defaultCollection = "users"

// Store implements usersync.UserStore using Google Cloud Firestore
type Store struct {
	client     *firestore.Client
	collection string
}

// Config holds Firestore store configuration
type Config struct {
	// Collection is the Firestore collection holding user records
	// Default: "users"
	Collection string
}

// New creates a new Firestore store adapter
func New(client *firestore.Client, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	if config.Collection == "" {
		config.Collection = defaultCollection
	}

	return &Store{
		client:     client,
		collection: config.Collection,
	}, nil
}

// Insert implements usersync.UserStore
func (s *Store) Insert(ctx context.Context, fields usersync.Fields) (*usersync.UserRecord, error) {
	data := usersync.SerializeFields(fields)

	id := data.String(usersync.FieldID)
	if id == "" {
		return nil, usersync.NewStoreError(s.collection, "insert", usersync.ErrMissingUserID)
	}

	now := time.Now().UTC()
	data[usersync.FieldCreatedAt] = now
	data[usersync.FieldUpdatedAt] = now

	doc := s.client.Collection(s.collection).Doc(id)
	if _, err := doc.Create(ctx, map[string]interface{}(data)); err != nil {
		return nil, usersync.NewStoreError(s.collection, "insert", err)
	}

	return recordFromData(id, data), nil
}

// Update implements usersync.UserStore
func (s *Store) Update(ctx context.Context, id string, fields usersync.Fields) (*usersync.UserRecord, error) {
	data := usersync.SerializeFields(fields)
	delete(data, usersync.FieldID)
	delete(data, usersync.FieldCreatedAt)
	data[usersync.FieldUpdatedAt] = time.Now().UTC()

	doc := s.client.Collection(s.collection).Doc(id)

	// A merge write would create the document if it is missing; check first
	// so a non-matching id stays a no-op.
	snap, err := doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, usersync.NewStoreError(s.collection, "update", err)
	}
	if !snap.Exists() {
		return nil, nil
	}

	if _, err := doc.Set(ctx, map[string]interface{}(data), firestore.MergeAll); err != nil {
		return nil, usersync.NewStoreError(s.collection, "update", err)
	}

	snap, err = doc.Get(ctx)
	if err != nil {
		return nil, usersync.NewStoreError(s.collection, "update", err)
	}

	return recordFromSnapshot(snap), nil
}

// GetByID implements usersync.UserStore
func (s *Store) GetByID(ctx context.Context, id string) (*usersync.UserRecord, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, usersync.NewStoreError(s.collection, "get", err)
	}

	if !snap.Exists() {
		return nil, nil
	}

	return recordFromSnapshot(snap), nil
}

// GetAll implements usersync.UserStore
func (s *Store) GetAll(ctx context.Context) ([]*usersync.UserRecord, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var records []*usersync.UserRecord
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, usersync.NewStoreError(s.collection, "get_all", err)
		}
		records = append(records, recordFromSnapshot(snap))
	}
	return records, nil
}

// Delete implements usersync.UserStore
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	doc := s.client.Collection(s.collection).Doc(id)

	// Firestore deletes are idempotent and do not report whether a document
	// existed; read first to get the row-deleted signal.
	snap, err := doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, usersync.NewStoreError(s.collection, "delete", err)
	}
	if !snap.Exists() {
		return false, nil
	}

	if _, err := doc.Delete(ctx); err != nil {
		return false, usersync.NewStoreError(s.collection, "delete", err)
	}
	return true, nil
}

// GetByEmail implements usersync.UserStore
func (s *Store) GetByEmail(ctx context.Context, email string) (*usersync.UserRecord, error) {
	return s.getByField(ctx, usersync.FieldEmail, email)
}

// GetByStripeCustomerID implements usersync.UserStore
func (s *Store) GetByStripeCustomerID(ctx context.Context, customerID string) (*usersync.UserRecord, error) {
	return s.getByField(ctx, usersync.FieldStripeCustomerID, customerID)
}

// UpdateStripeInfo implements usersync.UserStore
func (s *Store) UpdateStripeInfo(ctx context.Context, userID string, fields usersync.Fields) (*usersync.UserRecord, error) {
	return s.Update(ctx, userID, usersync.StripeInfoFields(fields))
}

func (s *Store) getByField(ctx context.Context, field, value string) (*usersync.UserRecord, error) {
	iter := s.client.Collection(s.collection).
		Where(field, "==", value).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, nil
	}
	if err != nil {
		return nil, usersync.NewStoreError(s.collection, "get", err)
	}

	return recordFromSnapshot(snap), nil
}

func recordFromSnapshot(snap *firestore.DocumentSnapshot) *usersync.UserRecord {
	return recordFromData(snap.Ref.ID, snap.Data())
}

func recordFromData(id string, data map[string]interface{}) *usersync.UserRecord {
	return &usersync.UserRecord{
		ID:               id,
		Email:            getString(data, usersync.FieldEmail),
		Phone:            getString(data, usersync.FieldPhone),
		Username:         getString(data, usersync.FieldUsername),
		FirstName:        getString(data, usersync.FieldFirstName),
		LastName:         getString(data, usersync.FieldLastName),
		FullName:         getString(data, usersync.FieldFullName),
		StripeCustomerID: getString(data, usersync.FieldStripeCustomerID),
		IsSubscribed:     getBool(data, usersync.FieldIsSubscribed),
		StripePlanID:     getString(data, usersync.FieldStripePlanID),
		CreatedAt:        getTime(data, usersync.FieldCreatedAt),
		UpdatedAt:        getTime(data, usersync.FieldUpdatedAt),
	}
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

func getTime(data map[string]interface{}, key string) time.Time {
	if v, ok := data[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}
