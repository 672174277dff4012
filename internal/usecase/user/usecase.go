package user

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "pokedex-user-service/internal/domain/user"
	pkgerrors "pokedex-user-service/pkg/errors"
)

// usecase implements the business logic for user management operations. It
// validates incoming requests, delegates persistence to the repository, and
// enriches single-user reads through the lookup client.
type usecase struct {
	repo     Repository          // Repository for data access
	lookup   PokemonLookup       // External Pokemon lookup client
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

// New creates a new Usecase with the provided repository, lookup client,
// and logger.
func New(repo Repository, lookup PokemonLookup, log *zap.Logger) Usecase {
	return &usecase{
		repo:     repo,
		lookup:   lookup,
		log:      log,
		validate: newValidator(),
	}
}

// newValidator builds a validator that reports fields by their json names,
// matching the wire-level payload the client actually sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// check runs all field validations and collects every failure into a single
// ValidationError. It never short-circuits on the first bad field.
func (uc *usecase) check(in any) error {
	err := uc.validate.Struct(in)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.NewInternalError("request validation failed", err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "min":
			if e.Param() == "1" {
				messages = append(messages, fmt.Sprintf("%s must not be empty", e.Field()))
			} else {
				messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
			}
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return pkgerrors.NewValidationError(messages...)
}

// ListUsers returns all user records.
func (uc *usecase) ListUsers(ctx context.Context) ([]User, error) {
	domainUsers, err := uc.repo.List(ctx)
	if err != nil {
		uc.log.Error("failed to list users", zap.Error(err))
		return nil, err
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = *toDTO(&domainUsers[i])
	}
	return users, nil
}

// GetUser returns one user enriched with live Pokemon name data for every
// owned species id. A failed lookup fails the whole request.
func (uc *usecase) GetUser(ctx context.Context, id int64) (*UserWithPokemon, error) {
	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pokemons, err := uc.lookup.Fetch(ctx, u.PokemonIDs)
	if err != nil {
		uc.log.Error("failed to enrich user with pokemon data", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &UserWithPokemon{
		User:     *toDTO(u),
		Pokemons: pokemons,
	}, nil
}

// CreateUser validates the request and inserts a new user record.
// PokemonIDs defaults to an empty sequence when omitted.
func (uc *usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	uc.log.Info("creating user", zap.String("username", in.Username), zap.String("email", in.Email))

	if err := uc.check(in); err != nil {
		uc.log.Warn("create user validation failed", zap.Error(err))
		return nil, err
	}

	ids := in.PokemonIDs
	if ids == nil {
		ids = []int64{}
	}

	created, err := uc.repo.Create(ctx, &domain.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   in.Password,
		PokemonIDs: ids,
	})
	if err != nil {
		uc.log.Error("failed to create user", zap.Error(err))
		return nil, err
	}
	return toDTO(created), nil
}

// UpdateUser validates the request and applies only the fields present.
func (uc *usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	uc.log.Info("updating user", zap.Int64("id", in.ID))

	if err := uc.check(in); err != nil {
		uc.log.Warn("update user validation failed", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	updated, err := uc.repo.Update(ctx, in.ID, domain.Update{
		Username:   in.Username,
		Email:      in.Email,
		Password:   in.Password,
		PokemonIDs: in.PokemonIDs,
	})
	if err != nil {
		uc.log.Warn("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}
	return toDTO(updated), nil
}

// DeleteUser removes a user and returns the record's prior state.
func (uc *usecase) DeleteUser(ctx context.Context, id int64) (*User, error) {
	uc.log.Info("deleting user", zap.Int64("id", id))

	deleted, err := uc.repo.Delete(ctx, id)
	if err != nil {
		uc.log.Warn("failed to delete user", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toDTO(deleted), nil
}

// ReplacePokemonIDs validates the request and overwrites the user's owned
// list wholesale.
func (uc *usecase) ReplacePokemonIDs(ctx context.Context, in ReplacePokemonIDsRequest) (*User, error) {
	uc.log.Info("replacing pokemon ids", zap.Int64("id", in.ID))

	if err := uc.check(in); err != nil {
		uc.log.Warn("replace pokemon ids validation failed", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	updated, err := uc.repo.ReplacePokemonIDs(ctx, in.ID, *in.PokemonIDs)
	if err != nil {
		uc.log.Warn("failed to replace pokemon ids", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}
	return toDTO(updated), nil
}
