package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/usersync/pkg/usersync"
)

func TestInsert_StampsTimestamps(t *testing.T) {
	store := New()
	ctx := context.Background()

	rec, err := store.Insert(ctx, usersync.Fields{
		usersync.FieldID:    "u1",
		usersync.FieldEmail: "a@b.com",
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "u1", rec.ID)
	assert.Equal(t, "a@b.com", rec.Email)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt, "insert stamps both timestamps with one value")
}

func TestInsert_MissingID(t *testing.T) {
	store := New()

	_, err := store.Insert(context.Background(), usersync.Fields{
		usersync.FieldEmail: "a@b.com",
	})
	require.Error(t, err)

	var storeErr *usersync.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "users", storeErr.Collection)
}

func TestUpdate_StripsIDAndCreatedAt(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.Insert(ctx, usersync.Fields{usersync.FieldID: "u1"})
	require.NoError(t, err)

	updated, err := store.Update(ctx, "u1", usersync.Fields{
		usersync.FieldID:        "attacker-id",
		usersync.FieldCreatedAt: time.Unix(0, 0),
		usersync.FieldEmail:     "new@b.com",
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, "u1", updated.ID, "id is immutable")
	assert.Equal(t, created.CreatedAt, updated.CreatedAt, "created_at is immutable")
	assert.Equal(t, "new@b.com", updated.Email)
	assert.True(t, !updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestUpdate_NoMatch(t *testing.T) {
	store := New()

	rec, err := store.Update(context.Background(), "missing", usersync.Fields{
		usersync.FieldEmail: "x@b.com",
	})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetByID_Miss(t *testing.T) {
	store := New()

	rec, err := store.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetByEmail(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Insert(ctx, usersync.Fields{
		usersync.FieldID:    "u1",
		usersync.FieldEmail: "a@b.com",
	})
	require.NoError(t, err)

	rec, err := store.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.ID)

	rec, err = store.GetByEmail(ctx, "nobody@b.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetByStripeCustomerID(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Insert(ctx, usersync.Fields{
		usersync.FieldID:               "u1",
		usersync.FieldStripeCustomerID: "cus_42",
	})
	require.NoError(t, err)

	rec, err := store.GetByStripeCustomerID(ctx, "cus_42")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.ID)
}

func TestDelete_ReportsWhetherRowExisted(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Insert(ctx, usersync.Fields{usersync.FieldID: "u1"})
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGetAll(t *testing.T) {
	store := New()
	ctx := context.Background()

	records, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = store.Insert(ctx, usersync.Fields{usersync.FieldID: "u1"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, usersync.Fields{usersync.FieldID: "u2"})
	require.NoError(t, err)

	records, err = store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUpdateStripeInfo_AllowList(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Insert(ctx, usersync.Fields{
		usersync.FieldID:    "u1",
		usersync.FieldEmail: "a@b.com",
	})
	require.NoError(t, err)

	rec, err := store.UpdateStripeInfo(ctx, "u1", usersync.Fields{
		usersync.FieldStripeCustomerID: "cus_1",
		usersync.FieldEmail:            "injected@b.com",
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "cus_1", rec.StripeCustomerID)
	assert.Equal(t, "a@b.com", rec.Email, "payment updates must not touch identity fields")
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	rec, err := store.Insert(ctx, usersync.Fields{usersync.FieldID: "u1"})
	require.NoError(t, err)

	rec.Email = "mutated@b.com"

	fresh, err := store.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, fresh.Email)
}
