package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "pokedex-user-service/internal/domain/user"
	"pokedex-user-service/internal/usecase/user"
	pkgerrors "pokedex-user-service/pkg/errors"
)

// MockUsecase is a mock implementation of the user.Usecase interface.
type MockUsecase struct {
	mock.Mock
}

func (m *MockUsecase) ListUsers(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

func (m *MockUsecase) GetUser(ctx context.Context, id int64) (*user.UserWithPokemon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.UserWithPokemon), args.Error(1)
}

func (m *MockUsecase) CreateUser(ctx context.Context, in user.CreateUserRequest) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsecase) UpdateUser(ctx context.Context, in user.UpdateUserRequest) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsecase) DeleteUser(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUsecase) ReplacePokemonIDs(ctx context.Context, in user.ReplacePokemonIDsRequest) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func setupRouter(t *testing.T) (*gin.Engine, *MockUsecase) {
	gin.SetMode(gin.TestMode)
	uc := new(MockUsecase)
	h := NewUserHandler(uc, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/users", h.ListUsers)
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUser)
	r.PUT("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
	r.PUT("/users/:id/pokemon", h.ReplacePokemonIDs)
	return r, uc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListUsers_NeverExposesPassword(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("ListUsers", mock.Anything).Return([]user.User{
		{ID: 1, Username: "ash", Email: "ash@example.com", PokemonIDs: []int64{1, 25}},
	}, nil)

	w := doJSON(t, r, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.NotContains(t, resp[0], "password")
	assert.Equal(t, "ash", resp[0]["username"])
	assert.Equal(t, []any{float64(1), float64(25)}, resp[0]["pokemonIds"])
}

func TestGetUser_IncludesPokemonData(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("GetUser", mock.Anything, int64(1)).Return(&user.UserWithPokemon{
		User: user.User{ID: 1, Username: "ash", Email: "ash@example.com", PokemonIDs: []int64{25}},
		Pokemons: []domain.Pokemon{
			{ID: 25, Name: "pikachu"},
		},
	}, nil)

	w := doJSON(t, r, http.MethodGet, "/users/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserWithPokemonResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Pokemons, 1)
	assert.Equal(t, int64(25), resp.Pokemons[0].ID)
	assert.Equal(t, "pikachu", resp.Pokemons[0].Name)
}

func TestGetUser_NotFound(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("GetUser", mock.Anything, int64(999)).
		Return(nil, pkgerrors.NewNotFoundError("user", "User not found"))

	w := doJSON(t, r, http.MethodGet, "/users/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, w.Body.String())
}

func TestGetUser_InvalidID(t *testing.T) {
	r, uc := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/users/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"User ID must be a valid number"}`, w.Body.String())
	uc.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestGetUser_UpstreamFailure(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("GetUser", mock.Anything, int64(1)).
		Return(nil, pkgerrors.NewUpstreamError("pokeapi", errors.New("status 500")))

	w := doJSON(t, r, http.MethodGet, "/users/1", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"message":"Pokemon lookup failed"}`, w.Body.String())
}

func TestCreateUser_Created(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("CreateUser", mock.Anything, user.CreateUserRequest{
		Username:   "ash",
		Email:      "ash@example.com",
		Password:   "pikachu123",
		PokemonIDs: []int64{1},
	}).Return(&user.User{ID: 1, Username: "ash", Email: "ash@example.com", PokemonIDs: []int64{1}}, nil)

	w := doJSON(t, r, http.MethodPost, "/users", gin.H{
		"username":   "ash",
		"email":      "ash@example.com",
		"password":   "pikachu123",
		"pokemonIds": []int64{1},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(t, resp, "password")
	assert.Equal(t, float64(1), resp["id"])
}

func TestCreateUser_ValidationFailed(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("CreateUser", mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewValidationError("username is required", "email must be a valid email"))

	w := doJSON(t, r, http.MethodPost, "/users", gin.H{"email": "nope", "password": "pikachu123"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ValidationFailedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Validation failed", resp.Message)
	assert.Equal(t, []string{"username is required", "email must be a valid email"}, resp.Errors)
}

func TestCreateUser_MalformedJSON(t *testing.T) {
	r, uc := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{"username":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp ValidationFailedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Validation failed", resp.Message)
	assert.Equal(t, []string{"request body must be valid JSON"}, resp.Errors)
	uc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestCreateUser_PokemonIDsNotAnArray(t *testing.T) {
	r, uc := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/users", gin.H{
		"username":   "ash",
		"email":      "ash@example.com",
		"password":   "pikachu123",
		"pokemonIds": "not-an-array",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ValidationFailedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Validation failed", resp.Message)
	assert.Equal(t, []string{"pokemonIds must be an array of numbers"}, resp.Errors)
	uc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestUpdateUser_PartialBody(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("UpdateUser", mock.Anything, mock.MatchedBy(func(in user.UpdateUserRequest) bool {
		return in.ID == 1 && in.Username != nil && *in.Username == "red" &&
			in.Email == nil && in.Password == nil && in.PokemonIDs == nil
	})).Return(&user.User{ID: 1, Username: "red", Email: "ash@example.com", PokemonIDs: []int64{}}, nil)

	w := doJSON(t, r, http.MethodPut, "/users/1", gin.H{"username": "red"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "red", resp.Username)
	uc.AssertExpectations(t)
}

func TestUpdateUser_NotFound(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("UpdateUser", mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewNotFoundError("user", "User not found"))

	w := doJSON(t, r, http.MethodPut, "/users/999", gin.H{"username": "red"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, w.Body.String())
}

func TestDeleteUser_ReturnsDeletedRecord(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("DeleteUser", mock.Anything, int64(1)).
		Return(&user.User{ID: 1, Username: "ash", Email: "ash@example.com", PokemonIDs: []int64{1, 25}}, nil)

	w := doJSON(t, r, http.MethodDelete, "/users/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int64{1, 25}, resp.PokemonIDs)
}

func TestReplacePokemonIDs_OK(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("ReplacePokemonIDs", mock.Anything, mock.MatchedBy(func(in user.ReplacePokemonIDsRequest) bool {
		return in.ID == 1 && in.PokemonIDs != nil && len(*in.PokemonIDs) == 2
	})).Return(&user.User{ID: 1, Username: "ash", Email: "ash@example.com", PokemonIDs: []int64{4, 7}}, nil)

	w := doJSON(t, r, http.MethodPut, "/users/1/pokemon", gin.H{"pokemonIds": []int64{4, 7}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int64{4, 7}, resp.PokemonIDs)
}

func TestReplacePokemonIDs_MissingField(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("ReplacePokemonIDs", mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewValidationError("pokemonIds is required"))

	w := doJSON(t, r, http.MethodPut, "/users/1/pokemon", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ValidationFailedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"pokemonIds is required"}, resp.Errors)
}

func TestListUsers_InternalError(t *testing.T) {
	r, uc := setupRouter(t)
	uc.On("ListUsers", mock.Anything).Return(nil, errors.New("connection reset"))

	w := doJSON(t, r, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, w.Body.String())
}
