package usersync

import "context"

// UserStore defines the interface for user record persistence.
// All methods use concrete types from this package to avoid import cycles.
//
// Lookup methods return (nil, nil) when no record matches; only transport
// or store-side failures produce an error, and those are always a
// *StoreError naming the collection.
type UserStore interface {
	// Insert persists a new record. It stamps created_at and updated_at
	// with a single shared timestamp before writing. Returns the created
	// record, or nil if the store reports no rows written.
	Insert(ctx context.Context, fields Fields) (*UserRecord, error)

	// Update applies a partial update matched by id. The id and created_at
	// keys are stripped from fields before writing; updated_at is stamped.
	// Returns the updated record, or nil if no row matched.
	Update(ctx context.Context, id string, fields Fields) (*UserRecord, error)

	// GetByID returns the record with the given primary id, or nil.
	GetByID(ctx context.Context, id string) (*UserRecord, error)

	// GetAll returns every record in the collection. Order is whatever the
	// store hands back.
	GetAll(ctx context.Context) ([]*UserRecord, error)

	// Delete removes the record matched by id and reports whether any row
	// was deleted.
	Delete(ctx context.Context, id string) (bool, error)

	// GetByEmail returns the first record with a matching email, or nil.
	// Used when no stronger key is known yet.
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)

	// GetByStripeCustomerID returns the first record linked to the given
	// Stripe customer id, or nil.
	GetByStripeCustomerID(ctx context.Context, customerID string) (*UserRecord, error)

	// UpdateStripeInfo updates the payment-linkage fields of a record.
	// Keys outside stripe_customer_id, is_subscribed and stripe_plan_id
	// are dropped before the update is applied.
	UpdateStripeInfo(ctx context.Context, userID string, fields Fields) (*UserRecord, error)
}

// StripeInfoFields restricts fields to the payment-linkage allow-list.
// UpdateStripeInfo implementations apply this before writing so a payment
// event can never overwrite identity-owned fields.
func StripeInfoFields(fields Fields) Fields {
	out := make(Fields, 3)
	for _, key := range []string{FieldStripeCustomerID, FieldIsSubscribed, FieldStripePlanID} {
		if v, ok := fields[key]; ok {
			out[key] = v
		}
	}
	return out
}
