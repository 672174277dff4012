package cached

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"pokedex-user-service/internal/adapter/cache"
	domain "pokedex-user-service/internal/domain/user"
	"pokedex-user-service/internal/usecase/user"
)

// CachedUserRepository implements user.Repository with record caching. It
// wraps the persistent repository and invalidates cached records after
// every mutation so exposed pokemon id lists always reflect the store.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) user.Repository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// List delegates to the DB repository.
func (r *CachedUserRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.dbRepo.List(ctx)
}

// GetByID retrieves a user by ID using the cache-aside pattern.
func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
		} else if cachedUser != nil {
			return cachedUser, nil
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	key := fmt.Sprintf("user:%d", id)
	result, err, _ := r.group.Do(key, func() (any, error) {
		// Another request may have populated the cache while we waited
		if r.cache != nil {
			cachedUser, err := r.cache.Get(ctx, id)
			if err == nil && cachedUser != nil {
				return cachedUser, nil
			}
		}

		u, err := r.dbRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			if err := r.cache.Set(ctx, u); err != nil {
				r.log.Warn("failed to cache user", zap.Int64("id", id), zap.Error(err))
			}
		}

		return u, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*domain.User), nil
}

// Create delegates to the DB repository.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.dbRepo.Create(ctx, u)
}

// Update updates the user in DB and invalidates the cached record.
func (r *CachedUserRepository) Update(ctx context.Context, id int64, upd domain.Update) (*domain.User, error) {
	updated, err := r.dbRepo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id, "update")
	return updated, nil
}

// Delete deletes the user from DB and invalidates the cached record.
func (r *CachedUserRepository) Delete(ctx context.Context, id int64) (*domain.User, error) {
	deleted, err := r.dbRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id, "delete")
	return deleted, nil
}

// ReplacePokemonIDs replaces the list in DB and invalidates the cached
// record.
func (r *CachedUserRepository) ReplacePokemonIDs(ctx context.Context, id int64, pokemonIDs []int64) (*domain.User, error) {
	updated, err := r.dbRepo.ReplacePokemonIDs(ctx, id, pokemonIDs)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id, "replace pokemon ids")
	return updated, nil
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id int64, op string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to invalidate cache",
			zap.Int64("id", id), zap.String("operation", op), zap.Error(err))
	}
}
