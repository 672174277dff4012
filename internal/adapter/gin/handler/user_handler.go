package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "pokedex-user-service/internal/domain/user"
	"pokedex-user-service/internal/usecase/user"
	pkgerrors "pokedex-user-service/pkg/errors"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// UserResponse represents the HTTP response for user data. It never carries
// the password.
type UserResponse struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	PokemonIDs []int64 `json:"pokemonIds"`
}

// UserWithPokemonResponse represents the single-user response enriched with
// live Pokemon name data.
type UserWithPokemonResponse struct {
	UserResponse
	Pokemons []domain.Pokemon `json:"pokemons"`
}

// MessageResponse represents a fixed-message error response
type MessageResponse struct {
	Message string `json:"message"`
}

// ValidationFailedResponse represents a validation error response carrying
// the itemized field messages.
type ValidationFailedResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func toResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		PokemonIDs: u.PokemonIDs,
	}
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error("list users failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = toResponse(&users[i])
	}
	c.JSON(http.StatusOK, resp)
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	resp, err := h.uc.GetUser(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserWithPokemonResponse{
		UserResponse: toResponse(&resp.User),
		Pokemons:     resp.Pokemons,
	})
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req user.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid create user request body", zap.Error(err))
		h.validationFailed(c, bindErrorMessages(err))
		return
	}

	created, err := h.uc.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(created))
}

// UpdateUser handles PUT /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	var req user.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid update user request body", zap.Int64("id", id), zap.Error(err))
		h.validationFailed(c, bindErrorMessages(err))
		return
	}
	req.ID = id

	updated, err := h.uc.UpdateUser(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(updated))
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	deleted, err := h.uc.DeleteUser(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(deleted))
}

// ReplacePokemonIDs handles PUT /users/:id/pokemon
func (h *UserHandler) ReplacePokemonIDs(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	var req user.ReplacePokemonIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid replace pokemon ids request body", zap.Int64("id", id), zap.Error(err))
		h.validationFailed(c, bindErrorMessages(err))
		return
	}
	req.ID = id

	updated, err := h.uc.ReplacePokemonIDs(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(updated))
}

// userID parses the :id path parameter, answering 400 when it is not a
// valid number.
func (h *UserHandler) userID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.log.Warn("invalid user id", zap.String("id", idStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, MessageResponse{Message: "User ID must be a valid number"})
		return 0, false
	}
	return id, true
}

func (h *UserHandler) validationFailed(c *gin.Context, messages []string) {
	c.JSON(http.StatusBadRequest, ValidationFailedResponse{
		Message: "Validation failed",
		Errors:  messages,
	})
}

// handleError converts usecase errors to appropriate HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	var vErr *pkgerrors.ValidationError
	if errors.As(err, &vErr) {
		h.validationFailed(c, vErr.Errors)
		return
	}

	var nfErr *pkgerrors.NotFoundError
	if errors.As(err, &nfErr) {
		c.JSON(http.StatusNotFound, MessageResponse{Message: nfErr.Error()})
		return
	}

	var upErr *pkgerrors.UpstreamError
	if errors.As(err, &upErr) {
		h.log.Error("upstream lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, MessageResponse{Message: "Pokemon lookup failed"})
		return
	}

	h.log.Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, MessageResponse{Message: "Internal server error"})
}

// bindErrorMessages shapes JSON binding failures into the same itemized
// message list the validation layer produces.
func bindErrorMessages(err error) []string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []string{fmt.Sprintf("%s must be %s", typeErr.Field, friendlyType(typeErr.Type))}
	}
	return []string{"request body must be valid JSON"}
}

func friendlyType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return "an array of numbers"
	case reflect.String:
		return "a string"
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float64:
		return "a number"
	default:
		return "a valid " + t.String()
	}
}
