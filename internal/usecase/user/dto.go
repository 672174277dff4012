package user

import (
	domain "pokedex-user-service/internal/domain/user"
)

// CreateUserRequest represents the request payload for creating a new user.
// PokemonIDs defaults to an empty sequence when omitted.
type CreateUserRequest struct {
	Username   string  `json:"username" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=6"`
	PokemonIDs []int64 `json:"pokemonIds"`
}

// UpdateUserRequest represents the request payload for a partial user
// update. Nil fields are left untouched; present fields carry the same
// constraints as on create.
type UpdateUserRequest struct {
	ID         int64    `json:"-"`
	Username   *string  `json:"username" validate:"omitempty,min=1"`
	Email      *string  `json:"email" validate:"omitempty,email"`
	Password   *string  `json:"password" validate:"omitempty,min=6"`
	PokemonIDs *[]int64 `json:"pokemonIds"`
}

// ReplacePokemonIDsRequest represents the request payload for replacing a
// user's pokemon list wholesale. The field is required; a present empty
// array is valid, a missing field is not.
type ReplacePokemonIDsRequest struct {
	ID         int64    `json:"-"`
	PokemonIDs *[]int64 `json:"pokemonIds" validate:"required"`
}

// User is the response DTO for user records. It never carries the password.
type User struct {
	ID         int64
	Username   string
	Email      string
	PokemonIDs []int64
}

// UserWithPokemon is the response DTO for single-user fetch, enriched with
// live name data from the lookup service.
type UserWithPokemon struct {
	User
	Pokemons []domain.Pokemon
}

func toDTO(u *domain.User) *User {
	ids := u.PokemonIDs
	if ids == nil {
		ids = []int64{}
	}
	return &User{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		PokemonIDs: ids,
	}
}
