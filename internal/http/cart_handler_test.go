package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// one registry per test binary; prometheus panics on double registration
var testMetrics = metrics.NewCartMetrics("test")

type cartServiceMock struct {
	cart *domain.Cart
	user *domain.User
	err  error
}

func (c cartServiceMock) GetCart(context.Context, string) (*domain.Cart, error) {
	return c.cart, c.err
}

func (c cartServiceMock) AddItem(context.Context, string, int64, int) (*domain.Cart, error) {
	return c.cart, c.err
}

func (c cartServiceMock) UpdateItem(context.Context, string, int64, int) (*domain.Cart, error) {
	return c.cart, c.err
}

func (c cartServiceMock) DeleteItem(context.Context, string, int64) error {
	return c.err
}

func (c cartServiceMock) Checkout(context.Context, string) (*domain.User, error) {
	return c.user, c.err
}

func setupRouter(mock cartServiceMock) *chi.Mux {
	handler := NewCartHandler(mock, testMetrics, 5*time.Second)
	r := chi.NewRouter()
	r.Use(HeaderAuthMiddleware)
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", handler.GetCart)
		r.Post("/items", handler.AddItem)
		r.Put("/items/{product_id}", handler.UpdateQuantity)
		r.Delete("/items/{product_id}", handler.RemoveItem)
		r.Post("/checkout", handler.Checkout)
	})
	return r
}

func doRequest(t *testing.T, router *chi.Mux, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestGetCart_Success(t *testing.T) {
	router := setupRouter(cartServiceMock{
		cart: &domain.Cart{
			UserID: "u1",
			Items:  []domain.CartItem{{ProductID: 1, Price: 100, Quantity: 2}},
		},
	})

	recorder := doRequest(t, router, "GET", "/cart/", nil, "u1")

	require.Equal(t, http.StatusOK, recorder.Code)
	var cart domain.Cart
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&cart))
	assert.Equal(t, "u1", cart.UserID)
	assert.Len(t, cart.Items, 1)
}

func TestGetCart_Unauthorized(t *testing.T) {
	router := setupRouter(cartServiceMock{})

	recorder := doRequest(t, router, "GET", "/cart/", nil, "")

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "unauthorized", response.Code)
}

func TestGetCart_NotFound(t *testing.T) {
	router := setupRouter(cartServiceMock{err: domain.ErrCartNotFound})

	recorder := doRequest(t, router, "GET", "/cart/", nil, "u1")

	require.Equal(t, http.StatusNotFound, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "user does not have a cart", response.Error)
}

func TestAddItem_Created(t *testing.T) {
	router := setupRouter(cartServiceMock{
		cart: &domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: 1, Quantity: 2}}},
	})

	recorder := doRequest(t, router, "POST", "/cart/items",
		AddItemRequestDTO{ProductID: 1, Quantity: 2}, "u1")

	require.Equal(t, http.StatusCreated, recorder.Code)
}

func TestAddItem_Conflict(t *testing.T) {
	router := setupRouter(cartServiceMock{err: domain.ErrItemAlreadyInCart})

	recorder := doRequest(t, router, "POST", "/cart/items",
		AddItemRequestDTO{ProductID: 1, Quantity: 2}, "u1")

	require.Equal(t, http.StatusConflict, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "product already in cart", response.Error)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	router := setupRouter(cartServiceMock{})

	recorder := doRequest(t, router, "POST", "/cart/items",
		AddItemRequestDTO{ProductID: 1, Quantity: 0}, "u1")

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	router := setupRouter(cartServiceMock{err: domain.ErrProductNotFound})

	recorder := doRequest(t, router, "POST", "/cart/items",
		AddItemRequestDTO{ProductID: 42, Quantity: 2}, "u1")

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "product doesn't exist", response.Error)
}

func TestUpdateQuantity_Success(t *testing.T) {
	router := setupRouter(cartServiceMock{
		cart: &domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: 1, Quantity: 5}}},
	})

	recorder := doRequest(t, router, "PUT", "/cart/items/1",
		UpdateQuantityRequestDTO{Quantity: 5}, "u1")

	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestUpdateQuantity_BadProductID(t *testing.T) {
	router := setupRouter(cartServiceMock{})

	recorder := doRequest(t, router, "PUT", "/cart/items/abc",
		UpdateQuantityRequestDTO{Quantity: 5}, "u1")

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRemoveItem_NoContent(t *testing.T) {
	router := setupRouter(cartServiceMock{})

	recorder := doRequest(t, router, "DELETE", "/cart/items/1", nil, "u1")

	require.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestRemoveItem_NotInCart(t *testing.T) {
	router := setupRouter(cartServiceMock{err: domain.ErrItemNotInCart})

	recorder := doRequest(t, router, "DELETE", "/cart/items/1", nil, "u1")

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "product not in cart", response.Error)
}

func TestCheckout_Success(t *testing.T) {
	router := setupRouter(cartServiceMock{
		user: &domain.User{ID: "u1", WalletBalance: 50},
	})

	recorder := doRequest(t, router, "POST", "/cart/checkout", nil, "u1")

	require.Equal(t, http.StatusOK, recorder.Code)
	var user domain.User
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&user))
	assert.Equal(t, float64(50), user.WalletBalance)
}

func TestCheckout_InsufficientBalance(t *testing.T) {
	router := setupRouter(cartServiceMock{err: domain.ErrInsufficientBalance})

	recorder := doRequest(t, router, "POST", "/cart/checkout", nil, "u1")

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "insufficient balance", response.Error)
}

func TestCheckout_InternalErrorMasked(t *testing.T) {
	router := setupRouter(cartServiceMock{err: domain.Internalf("settlement failed")})

	recorder := doRequest(t, router, "POST", "/cart/checkout", nil, "u1")

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "internal server error", response.Error, "internal details are not leaked")
}
