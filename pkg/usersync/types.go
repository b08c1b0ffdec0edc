// Package usersync defines the core types for synchronizing user records
// from external webhook providers into a single user store.
package usersync

import "time"

// Record field names as they appear in the users collection.
// Normalizers build partial updates keyed by these names.
const (
	FieldID               = "id"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldUsername         = "username"
	FieldFirstName        = "first_name"
	FieldLastName         = "last_name"
	FieldFullName         = "full_name"
	FieldStripeCustomerID = "stripe_customer_id"
	FieldIsSubscribed     = "is_subscribed"
	FieldStripePlanID     = "stripe_plan_id"
	FieldCreatedAt        = "created_at"
	FieldUpdatedAt        = "updated_at"
)

// UserRecord is the sole persisted entity. The primary key is supplied by
// the identity provider; it is never generated locally.
type UserRecord struct {
	ID               string    `json:"id"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Username         string    `json:"username,omitempty"`
	FirstName        string    `json:"first_name,omitempty"`
	LastName         string    `json:"last_name,omitempty"`
	FullName         string    `json:"full_name,omitempty"`
	StripeCustomerID string    `json:"stripe_customer_id,omitempty"`
	IsSubscribed     bool      `json:"is_subscribed"`
	StripePlanID     string    `json:"stripe_plan_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Fields is a partial record update. Keys use the Field* constants; absent
// keys leave the stored value untouched.
type Fields map[string]any

// String returns the string value for key, or "" if the key is absent or
// not a string.
func (f Fields) String(key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Clone returns a shallow copy so callers can mutate without aliasing.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
