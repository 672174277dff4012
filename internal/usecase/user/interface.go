package user

import (
	"context"

	domain "pokedex-user-service/internal/domain/user"
)

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*UserWithPokemon, error)
	CreateUser(ctx context.Context, in CreateUserRequest) (*User, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, id int64) (*User, error)
	ReplacePokemonIDs(ctx context.Context, in ReplacePokemonIDsRequest) (*User, error)
}

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (plain PostgreSQL, cached) to be used interchangeably.
type Repository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	Update(ctx context.Context, id int64, upd domain.Update) (*domain.User, error)
	Delete(ctx context.Context, id int64) (*domain.User, error)
	ReplacePokemonIDs(ctx context.Context, id int64, pokemonIDs []int64) (*domain.User, error)
}

// PokemonLookup defines the interface for the external Pokemon lookup
// service used to enrich single-user reads.
type PokemonLookup interface {
	Fetch(ctx context.Context, ids []int64) ([]domain.Pokemon, error)
}
