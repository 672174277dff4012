package postgres

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	domain "pokedex-user-service/internal/domain/user"
	pkgerrors "pokedex-user-service/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&UserSchema{}, &PokemonSchema{})
	require.NoError(t, err)

	return db
}

func setupRepo(t *testing.T) *UserRepoPG {
	return NewUserRepoPG(setupTestDB(t), zaptest.NewLogger(t))
}

func seedUser(t *testing.T, repo *UserRepoPG, pokemonIDs []int64) *domain.User {
	created, err := repo.Create(context.Background(), &domain.User{
		Username:   "ash",
		Email:      "ash@example.com",
		Password:   "pikachu123",
		PokemonIDs: pokemonIDs,
	})
	require.NoError(t, err)
	return created
}

func TestUserRepoPG_CreateAndGet_RoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created := seedUser(t, repo, []int64{1, 25})
	require.NotZero(t, created.ID)
	assert.Equal(t, []int64{1, 25}, created.PokemonIDs)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ash", got.Username)
	assert.Equal(t, "ash@example.com", got.Email)
	// Order must survive the serialize/deserialize round trip
	assert.Equal(t, []int64{1, 25}, got.PokemonIDs)
}

func TestUserRepoPG_Create_EmptyPokemonList(t *testing.T) {
	repo := setupRepo(t)

	created := seedUser(t, repo, nil)
	assert.Equal(t, []int64{}, created.PokemonIDs)

	got, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{}, got.PokemonIDs)
}

func TestUserRepoPG_Create_SyncsOwnershipRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepoPG(db, zaptest.NewLogger(t))

	created := seedUser(t, repo, []int64{7, 4})

	var rows []PokemonSchema
	require.NoError(t, db.Where("owner_id = ?", created.ID).Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(4), rows[0].ID)
	assert.Equal(t, int64(7), rows[1].ID)
}

func TestUserRepoPG_Create_DuplicateIDsKeepSequence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepoPG(db, zaptest.NewLogger(t))

	created := seedUser(t, repo, []int64{25, 25, 1})
	assert.Equal(t, []int64{25, 25, 1}, created.PokemonIDs)

	got, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{25, 25, 1}, got.PokemonIDs)

	// One ownership row per distinct species id
	var rows []PokemonSchema
	require.NoError(t, db.Where("owner_id = ?", created.ID).Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(25), rows[1].ID)
}

func TestUserRepoPG_ReplacePokemonIDs_DuplicateIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepoPG(db, zaptest.NewLogger(t))
	ctx := context.Background()

	created := seedUser(t, repo, []int64{1})

	updated, err := repo.ReplacePokemonIDs(ctx, created.ID, []int64{7, 7, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 7, 4}, updated.PokemonIDs)

	var rows []PokemonSchema
	require.NoError(t, db.Where("owner_id = ?", created.ID).Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(4), rows[0].ID)
	assert.Equal(t, int64(7), rows[1].ID)
}

func TestUserRepoPG_GetByID_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetByID(context.Background(), 999)
	require.Error(t, err)

	var nf *pkgerrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUserRepoPG_List(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Username: "ash", Email: "ash@example.com", Password: "pikachu123", PokemonIDs: []int64{1}})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.User{Username: "misty", Email: "misty@example.com", Password: "starmie456", PokemonIDs: []int64{120, 121}})
	require.NoError(t, err)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ash", users[0].Username)
	assert.Equal(t, []int64{120, 121}, users[1].PokemonIDs)
}

func TestUserRepoPG_Update_PartialFields(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created := seedUser(t, repo, []int64{1, 25})

	email := "ash.ketchum@example.com"
	updated, err := repo.Update(ctx, created.ID, domain.Update{Email: &email})
	require.NoError(t, err)

	// Untouched fields keep their values
	assert.Equal(t, "ash", updated.Username)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, []int64{1, 25}, updated.PokemonIDs)
}

func TestUserRepoPG_Update_ReplacesPokemonListWholesale(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepoPG(db, zaptest.NewLogger(t))
	ctx := context.Background()

	created := seedUser(t, repo, []int64{1, 25})

	ids := []int64{4, 7}
	updated, err := repo.Update(ctx, created.ID, domain.Update{PokemonIDs: &ids})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7}, updated.PokemonIDs)

	// Replacement, not a union: the old ownership rows must be detached
	var owned []PokemonSchema
	require.NoError(t, db.Where("owner_id = ?", created.ID).Order("id").Find(&owned).Error)
	require.Len(t, owned, 2)
	assert.Equal(t, int64(4), owned[0].ID)
	assert.Equal(t, int64(7), owned[1].ID)

	var detached PokemonSchema
	require.NoError(t, db.First(&detached, 25).Error)
	assert.Nil(t, detached.OwnerID)
}

func TestUserRepoPG_Update_NotFound(t *testing.T) {
	repo := setupRepo(t)

	username := "nobody"
	_, err := repo.Update(context.Background(), 999, domain.Update{Username: &username})
	require.Error(t, err)

	var nf *pkgerrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUserRepoPG_ReplacePokemonIDs(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created := seedUser(t, repo, []int64{1, 25})

	updated, err := repo.ReplacePokemonIDs(ctx, created.ID, []int64{4, 7})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7}, updated.PokemonIDs)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7}, got.PokemonIDs)
}

func TestUserRepoPG_ReplacePokemonIDs_Empty(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created := seedUser(t, repo, []int64{1, 25})

	updated, err := repo.ReplacePokemonIDs(ctx, created.ID, []int64{})
	require.NoError(t, err)
	assert.Equal(t, []int64{}, updated.PokemonIDs)
}

func TestUserRepoPG_ReplacePokemonIDs_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.ReplacePokemonIDs(context.Background(), 999, []int64{1})
	require.Error(t, err)

	var nf *pkgerrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUserRepoPG_Delete_ReturnsPriorState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepoPG(db, zaptest.NewLogger(t))
	ctx := context.Background()

	created := seedUser(t, repo, []int64{1, 25})

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, "ash", deleted.Username)
	assert.Equal(t, []int64{1, 25}, deleted.PokemonIDs)

	// Gone afterwards, ownership rows included
	_, err = repo.GetByID(ctx, created.ID)
	var nf *pkgerrors.NotFoundError
	assert.ErrorAs(t, err, &nf)

	var count int64
	require.NoError(t, db.Model(&PokemonSchema{}).Where("owner_id = ?", created.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUserRepoPG_Delete_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Delete(context.Background(), 999)
	require.Error(t, err)

	var nf *pkgerrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
