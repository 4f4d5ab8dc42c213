package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/category/dto"
	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/database/dbtest"
	"github.com/fekuna/omnipos-pos-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteCategory(merchantID, externalID, name string, sort int) *model.Category {
	now := time.Now().UTC()
	return &model.Category{
		BaseModel:  model.BaseModel{CreatedAt: now, UpdatedAt: now},
		MerchantID: merchantID,
		ExternalID: &externalID,
		Name:       name,
		SortOrder:  sort,
		IsActive:   true,
	}
}

func TestUpsertByExternalIDOutcomes(t *testing.T) {
	db := dbtest.New(t)
	m := dbtest.SeedMerchant(t, db, "M1", "tok")
	repo := NewPGRepository(db)
	ctx := context.Background()

	first := remoteCategory(m.ID, "C1", "Drinks", 1)
	outcome, err := repo.UpsertByExternalID(ctx, db, first)
	require.NoError(t, err)
	assert.Equal(t, database.Inserted, outcome)

	before, err := repo.FindByID(ctx, m.ID, first.ID)
	require.NoError(t, err)

	again := remoteCategory(m.ID, "C1", "Drinks", 1)
	outcome, err = repo.UpsertByExternalID(ctx, db, again)
	require.NoError(t, err)
	assert.Equal(t, database.Unchanged, outcome)
	assert.Equal(t, first.ID, again.ID)

	after, err := repo.FindByID(ctx, m.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	renamed := remoteCategory(m.ID, "C1", "Beverages", 1)
	outcome, err = repo.UpsertByExternalID(ctx, db, renamed)
	require.NoError(t, err)
	assert.Equal(t, database.Updated, outcome)

	assert.Equal(t, 1, dbtest.Count(t, db, "categories", ""))
}

func TestExternalIDIsScopedPerMerchant(t *testing.T) {
	db := dbtest.New(t)
	m1 := dbtest.SeedMerchant(t, db, "M1", "tok")
	m2 := dbtest.SeedMerchant(t, db, "M2", "tok")
	repo := NewPGRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertByExternalID(ctx, db, remoteCategory(m1.ID, "C1", "Drinks", 0))
	require.NoError(t, err)
	outcome, err := repo.UpsertByExternalID(ctx, db, remoteCategory(m2.ID, "C1", "Drinks", 0))
	require.NoError(t, err)
	assert.Equal(t, database.Inserted, outcome)

	id, err := repo.FindIDByExternalID(ctx, db, m2.ID, "C1")
	require.NoError(t, err)
	require.NotNil(t, id)

	missing, err := repo.FindIDByExternalID(ctx, db, m2.ID, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindAllFilters(t *testing.T) {
	db := dbtest.New(t)
	m := dbtest.SeedMerchant(t, db, "M1", "tok")
	repo := NewPGRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertByExternalID(ctx, db, remoteCategory(m.ID, "C1", "Synced", 2))
	require.NoError(t, err)

	now := time.Now().UTC()
	manual := &model.Category{BaseModel: model.BaseModel{ID: "manual-1", CreatedAt: now, UpdatedAt: now}, MerchantID: m.ID, Name: "Manual", SortOrder: 1}
	require.NoError(t, repo.Create(ctx, manual))

	all, total, err := repo.FindAll(ctx, &dto.CategoryFilters{MerchantID: m.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Manual", all[0].Name)

	synced := true
	only, total, err := repo.FindAll(ctx, &dto.CategoryFilters{MerchantID: m.ID, Synced: &synced})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Synced", only[0].Name)

	active := true
	_, total, err = repo.FindAll(ctx, &dto.CategoryFilters{MerchantID: m.ID, IsActive: &active, PageSize: 1, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
