// Package memory provides an in-memory implementation of the usersync.UserStore
// interface. This implementation is primarily intended for testing and development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mihaimyh/usersync/pkg/usersync"
)

const collectionName = "users"

// Store implements usersync.UserStore using an in-memory map
type Store struct {
	mu      sync.RWMutex
	records map[string]*usersync.UserRecord
}

// New creates a new in-memory store adapter
func New() *Store {
	return &Store{
		records: make(map[string]*usersync.UserRecord),
	}
}

// Insert implements usersync.UserStore
func (s *Store) Insert(_ context.Context, fields usersync.Fields) (*usersync.UserRecord, error) {
	data := usersync.SerializeFields(fields)

	id := data.String(usersync.FieldID)
	if id == "" {
		return nil, usersync.NewStoreError(collectionName, "insert", usersync.ErrMissingUserID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec := &usersync.UserRecord{CreatedAt: now, UpdatedAt: now}
	applyFields(rec, data)

	s.records[id] = rec

	recCopy := *rec
	return &recCopy, nil
}

// Update implements usersync.UserStore
func (s *Store) Update(_ context.Context, id string, fields usersync.Fields) (*usersync.UserRecord, error) {
	data := usersync.SerializeFields(fields)
	delete(data, usersync.FieldID)
	delete(data, usersync.FieldCreatedAt)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}

	applyFields(rec, data)
	rec.UpdatedAt = time.Now().UTC()

	recCopy := *rec
	return &recCopy, nil
}

// GetByID implements usersync.UserStore
func (s *Store) GetByID(_ context.Context, id string) (*usersync.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}

	// Return a copy to prevent external mutations
	recCopy := *rec
	return &recCopy, nil
}

// GetAll implements usersync.UserStore
func (s *Store) GetAll(_ context.Context) ([]*usersync.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*usersync.UserRecord, 0, len(s.records))
	for _, rec := range s.records {
		recCopy := *rec
		out = append(out, &recCopy)
	}
	return out, nil
}

// Delete implements usersync.UserStore
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

// GetByEmail implements usersync.UserStore
func (s *Store) GetByEmail(_ context.Context, email string) (*usersync.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.Email == email {
			recCopy := *rec
			return &recCopy, nil
		}
	}
	return nil, nil
}

// GetByStripeCustomerID implements usersync.UserStore
func (s *Store) GetByStripeCustomerID(_ context.Context, customerID string) (*usersync.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.StripeCustomerID == customerID {
			recCopy := *rec
			return &recCopy, nil
		}
	}
	return nil, nil
}

// UpdateStripeInfo implements usersync.UserStore
func (s *Store) UpdateStripeInfo(ctx context.Context, userID string, fields usersync.Fields) (*usersync.UserRecord, error) {
	return s.Update(ctx, userID, usersync.StripeInfoFields(fields))
}

// applyFields copies recognized field values onto rec. Unknown keys are
// dropped, matching the column allow-list of the SQL backend.
func applyFields(rec *usersync.UserRecord, fields usersync.Fields) {
	for key, value := range fields {
		switch key {
		case usersync.FieldID:
			if v, ok := value.(string); ok {
				rec.ID = v
			}
		case usersync.FieldEmail:
			if v, ok := value.(string); ok {
				rec.Email = v
			}
		case usersync.FieldPhone:
			if v, ok := value.(string); ok {
				rec.Phone = v
			}
		case usersync.FieldUsername:
			if v, ok := value.(string); ok {
				rec.Username = v
			}
		case usersync.FieldFirstName:
			if v, ok := value.(string); ok {
				rec.FirstName = v
			}
		case usersync.FieldLastName:
			if v, ok := value.(string); ok {
				rec.LastName = v
			}
		case usersync.FieldFullName:
			if v, ok := value.(string); ok {
				rec.FullName = v
			}
		case usersync.FieldStripeCustomerID:
			if v, ok := value.(string); ok {
				rec.StripeCustomerID = v
			}
		case usersync.FieldIsSubscribed:
			if v, ok := value.(bool); ok {
				rec.IsSubscribed = v
			}
		case usersync.FieldStripePlanID:
			if v, ok := value.(string); ok {
				rec.StripePlanID = v
			}
		}
	}
}
