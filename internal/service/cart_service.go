package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ProductFinder is the slice of the catalog the cart core reads.
type ProductFinder interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// maxSaveAttempts bounds the optimistic-concurrency loop. A stale save
// means another request for the same user won the write; re-read and
// re-apply rather than dropping either update.
const maxSaveAttempts = 3

const checkoutEventType = "checkout.completed"

type CartService struct {
	repo           repository.CartRepository
	users          repository.UserRepository
	products       ProductFinder
	settlement     repository.SettlementStore
	cache          cache.CartCache
	logger         *slog.Logger
	defaultAddress string
	sfg            singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	users repository.UserRepository,
	products ProductFinder,
	settlement repository.SettlementStore,
	cartCache cache.CartCache,
	logger *slog.Logger,
	defaultAddress string,
) *CartService {
	return &CartService{
		repo:           repo,
		users:          users,
		products:       products,
		settlement:     settlement,
		cache:          cartCache,
		logger:         logger,
		defaultAddress: defaultAddress,
	}
}

// GetCart returns the user's cart. A user who never added an item has no
// cart at all, which is a distinct state from an empty cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get failed", "error", err) // log cache error but continue
		}

		cart, errGet := s.repo.FindByOwner(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return nil, domain.ErrCartNotFound
		}
		if errGet != nil {
			return nil, domain.InternalWrap("failed to load cart", errGet)
		}

		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				s.logger.Warn("cache set failed", "error", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem appends a new line item with a snapshot of the product's price.
// The first successful add for a user creates the cart.
func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, domain.InternalWrap("failed to look up product", err)
	}

	item := domain.CartItem{
		ProductID: product.ID,
		Price:     product.Price,
		Quantity:  quantity,
		AddedAt:   time.Now(),
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		cart, errFind := s.repo.FindByOwner(ctx, userID)
		if errors.Is(errFind, repository.ErrCartNotFound) {
			cart = domain.NewCart(userID, item)
			if errCreate := s.repo.Create(ctx, cart); errCreate != nil {
				return nil, domain.InternalWrap("failed to create cart", errCreate)
			}
			s.invalidateCache(userID)
			return cart, nil
		}
		if errFind != nil {
			return nil, domain.InternalWrap("failed to load cart", errFind)
		}

		if cart.ItemIndex(productID) >= 0 {
			return nil, domain.ErrItemAlreadyInCart
		}

		cart.Items = append(cart.Items, item)
		errSave := s.repo.Save(ctx, cart)
		if errors.Is(errSave, repository.ErrStaleCart) {
			continue
		}
		if errSave != nil {
			return nil, domain.InternalWrap("failed to save cart", errSave)
		}

		s.invalidateCache(userID)
		return cart, nil
	}

	return nil, domain.Internalf("cart save contention persisted after %d attempts", maxSaveAttempts)
}

// UpdateItem replaces the line item's quantity. The new value fully
// overwrites the old one, it is not added to it.
func (s *CartService) UpdateItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	cart, err := s.repo.FindByOwner(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, domain.ErrCartMissingOnUpdate
	}
	if err != nil {
		return nil, domain.InternalWrap("failed to load cart", err)
	}

	// Ordered after the cart-existence check
	if _, errProduct := s.products.GetProduct(ctx, productID); errProduct != nil {
		if errors.Is(errProduct, catalog.ErrProductNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.InternalWrap("failed to look up product", errProduct)
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		i := cart.ItemIndex(productID)
		if i < 0 {
			return nil, domain.ErrItemNotInCart
		}

		cart.Items[i].Quantity = quantity
		errSave := s.repo.Save(ctx, cart)
		if errors.Is(errSave, repository.ErrStaleCart) {
			cart, err = s.repo.FindByOwner(ctx, userID)
			if errors.Is(err, repository.ErrCartNotFound) {
				return nil, domain.ErrCartMissingOnUpdate
			}
			if err != nil {
				return nil, domain.InternalWrap("failed to load cart", err)
			}
			continue
		}
		if errSave != nil {
			return nil, domain.InternalWrap("failed to save cart", errSave)
		}

		s.invalidateCache(userID)
		return cart, nil
	}

	return nil, domain.Internalf("cart save contention persisted after %d attempts", maxSaveAttempts)
}

// DeleteItem removes exactly one line item, matched by product id.
func (s *CartService) DeleteItem(ctx context.Context, userID string, productID int64) error {
	cart, err := s.repo.FindByOwner(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.ErrCartMissingOnDelete
	}
	if err != nil {
		return domain.InternalWrap("failed to load cart", err)
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		i := cart.ItemIndex(productID)
		if i < 0 {
			return domain.ErrItemNotInCart
		}

		// Removal is by matched index; quantities may repeat across items
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		errSave := s.repo.Save(ctx, cart)
		if errors.Is(errSave, repository.ErrStaleCart) {
			cart, err = s.repo.FindByOwner(ctx, userID)
			if errors.Is(err, repository.ErrCartNotFound) {
				return domain.ErrCartMissingOnDelete
			}
			if err != nil {
				return domain.InternalWrap("failed to load cart", err)
			}
			continue
		}
		if errSave != nil {
			return domain.InternalWrap("failed to save cart", errSave)
		}

		s.invalidateCache(userID)
		return nil
	}

	return domain.Internalf("cart save contention persisted after %d attempts", maxSaveAttempts)
}

// Checkout runs the precondition chain in order (cart exists, cart not
// empty, address set, balance covers total) and settles atomically:
// wallet debit, cart clear and the checkout event commit together or
// not at all.
func (s *CartService) Checkout(ctx context.Context, userID string) (*domain.User, error) {
	cart, err := s.repo.FindByOwner(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, domain.InternalWrap("failed to load cart", err)
	}

	if len(cart.Items) == 0 {
		return nil, domain.ErrCartEmpty
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.InternalWrap("failed to load user", err)
	}

	if !user.HasSetAddress(s.defaultAddress) {
		return nil, domain.ErrAddressNotSet
	}

	// Totalled from the prices captured in the cart, not the catalog
	total := cart.Total()
	if user.WalletBalance < total {
		return nil, domain.ErrInsufficientBalance
	}

	event, err := newCheckoutEvent(userID, cart, total)
	if err != nil {
		return nil, domain.InternalWrap("failed to build checkout event", err)
	}

	if errSettle := s.settlement.Settle(ctx, userID, total, cart.Version, event); errSettle != nil {
		return nil, domain.InternalWrap("failed to settle checkout", errSettle)
	}

	s.invalidateCache(userID)

	user.WalletBalance -= total
	return user, nil
}

func newCheckoutEvent(userID string, cart *domain.Cart, total float64) (*repository.OutboxEvent, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"user_id":      userID,
		"items":        cart.Items,
		"total_amount": total,
		"completed_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}

	return &repository.OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: userID,
		EventType:   checkoutEventType,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}, nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate failed", "error", err)
	}
}
