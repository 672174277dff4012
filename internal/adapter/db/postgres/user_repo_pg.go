package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "pokedex-user-service/internal/domain/user"
	pkgerrors "pokedex-user-service/pkg/errors"
)

// UserRepoPG implements the user repository using PostgreSQL and GORM.
// Every check-then-mutate operation runs inside a single transaction so a
// concurrent request targeting the same id cannot slip between the
// existence check and the write.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

func notFound() *pkgerrors.NotFoundError {
	return pkgerrors.NewNotFoundError("user", "User not found")
}

func toDomain(m *UserSchema) *domain.User {
	return &domain.User{
		ID:         m.ID,
		Username:   m.Username,
		Email:      m.Email,
		Password:   m.Password,
		PokemonIDs: []int64(m.PokemonIDs),
	}
}

// List retrieves all users with their pokemon id lists materialized.
func (r *UserRepoPG) List(ctx context.Context) ([]domain.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]domain.User, len(models))
	for i := range models {
		users[i] = *toDomain(&models[i])
	}
	return users, nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("user not found", zap.Int64("id", id))
			return nil, notFound()
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toDomain(&model), nil
}

// Create inserts a new user row and its ownership rows in one transaction.
func (r *UserRepoPG) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		Username:   u.Username,
		Email:      u.Email,
		Password:   u.Password,
		PokemonIDs: Int64List(u.PokemonIDs),
	}
	if model.PokemonIDs == nil {
		model.PokemonIDs = Int64List{}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return claimPokemons(tx, model.ID, model.PokemonIDs)
	})
	if err != nil {
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, err
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return toDomain(&model), nil
}

// Update applies a partial update to an existing user. The existence check
// and the mutation share one transaction; a present PokemonIDs field
// replaces the owned list wholesale and resyncs the ownership table.
func (r *UserRepoPG) Update(ctx context.Context, id int64, upd domain.Update) (*domain.User, error) {
	var model UserSchema

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound()
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		updates := map[string]any{}
		if upd.Username != nil {
			updates["username"] = *upd.Username
		}
		if upd.Email != nil {
			updates["email"] = *upd.Email
		}
		if upd.Password != nil {
			updates["password"] = *upd.Password
		}
		if upd.PokemonIDs != nil {
			updates["pokemon_ids"] = Int64List(*upd.PokemonIDs)
			if err := resyncPokemons(tx, id, Int64List(*upd.PokemonIDs)); err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&UserSchema{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
		}

		return tx.First(&model, id).Error
	})
	if err != nil {
		if isNotFound(err) {
			r.log.Warn("user not found for update", zap.Int64("id", id))
		} else {
			r.log.Error("failed to update user in db", zap.Error(err), zap.Int64("id", id))
		}
		return nil, err
	}

	r.log.Info("user updated in db", zap.Int64("id", id))
	return toDomain(&model), nil
}

// Delete removes a user and its ownership rows atomically, returning the
// record's prior state.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) (*domain.User, error) {
	var prior UserSchema

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&prior, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound()
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		if err := tx.Where("owner_id = ?", id).Delete(&PokemonSchema{}).Error; err != nil {
			return fmt.Errorf("failed to delete pokemon ownership rows: %w", err)
		}

		if err := tx.Delete(&UserSchema{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			r.log.Warn("user not found for delete", zap.Int64("id", id))
		} else {
			r.log.Error("failed to delete user in db", zap.Error(err), zap.Int64("id", id))
		}
		return nil, err
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return toDomain(&prior), nil
}

// ReplacePokemonIDs overwrites the user's owned list wholesale in one
// transaction and returns the updated record.
func (r *UserRepoPG) ReplacePokemonIDs(ctx context.Context, id int64, pokemonIDs []int64) (*domain.User, error) {
	ids := pokemonIDs
	return r.Update(ctx, id, domain.Update{PokemonIDs: &ids})
}

// resyncPokemons detaches every ownership row held by the user and claims
// the new set. Must run inside the caller's transaction.
func resyncPokemons(tx *gorm.DB, userID int64, ids Int64List) error {
	if err := tx.Model(&PokemonSchema{}).Where("owner_id = ?", userID).Update("owner_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach pokemon ownership rows: %w", err)
	}
	return claimPokemons(tx, userID, ids)
}

// claimPokemons upserts one ownership row per distinct species id, taking
// over rows that already exist for another owner. Ids may repeat in the
// serialized list; the batch must not, or postgres rejects the upsert for
// touching the same row twice.
func claimPokemons(tx *gorm.DB, userID int64, ids Int64List) error {
	if len(ids) == 0 {
		return nil
	}

	rows := make([]PokemonSchema, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, pid := range ids {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		owner := userID
		rows = append(rows, PokemonSchema{ID: pid, OwnerID: &owner})
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to claim pokemon ownership rows: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *pkgerrors.NotFoundError
	return errors.As(err, &nf)
}
