package service

import (
	"context"
	"errors"
	"time"

	"ecommerce/pkg/domain/model"
)

type CartService interface {
	Add(ctx context.Context, userID, productID model.ObjectID, quantity int) (*model.Cart, error)
	Remove(ctx context.Context, userID, productID model.ObjectID) (*model.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID model.ObjectID, quantity int) (*model.Cart, error)
	Get(ctx context.Context, userID model.ObjectID) (*model.Cart, error)
}

func NewCartService(repo model.CartRepository, products model.ProductRepository, dispatcher EventDispatcher) CartService {
	return &cartService{repo: repo, products: products, dispatcher: dispatcher}
}

type cartService struct {
	repo       model.CartRepository
	products   model.ProductRepository
	dispatcher EventDispatcher
}

func (s *cartService) Add(ctx context.Context, userID, productID model.ObjectID, quantity int) (*model.Cart, error) {
	product, err := s.inStock(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	line := model.CartLine{ProductID: productID, Quantity: quantity, PriceCents: product.PriceCents}
	now := time.Now().UTC()

	cart, err := s.repo.FindByOwner(ctx, userID)
	switch {
	case errors.Is(err, model.ErrCartNotFound):
		cart = &model.Cart{
			ID:        s.repo.NextID(),
			Owner:     userID,
			Lines:     []model.CartLine{},
			CreatedAt: now,
		}
		if err := cart.Add(line); err != nil {
			return nil, err
		}
		cart.UpdatedAt = now
		if err := s.repo.Create(ctx, cart); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := cart.Add(line); err != nil {
			return nil, err
		}
		cart.UpdatedAt = now
		if err := s.repo.Update(ctx, cart); err != nil {
			return nil, err
		}
	}

	_ = s.dispatcher.Dispatch(model.ProductQuantityChanged{ProductID: productID, Quantity: quantity})
	return cart, nil
}

func (s *cartService) Remove(ctx context.Context, userID, productID model.ObjectID) (*model.Cart, error) {
	if _, err := s.products.Find(ctx, productID, false); err != nil {
		return nil, err
	}

	cart, err := s.ownerCartWith(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if err := cart.Remove(productID); err != nil {
		return nil, err
	}

	cart.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID model.ObjectID, quantity int) (*model.Cart, error) {
	if _, err := s.inStock(ctx, productID, quantity); err != nil {
		return nil, err
	}

	cart, err := s.ownerCartWith(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if err := cart.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}

	cart.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, cart); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ProductQuantityChanged{ProductID: productID, Quantity: quantity})
	return cart, nil
}

func (s *cartService) Get(ctx context.Context, userID model.ObjectID) (*model.Cart, error) {
	return s.repo.FindByOwner(ctx, userID)
}

func (s *cartService) inStock(ctx context.Context, productID model.ObjectID, quantity int) (*model.Product, error) {
	product, err := s.products.Find(ctx, productID, false)
	if err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, model.ErrInsufficientStock
		}
		return nil, err
	}
	if product.Stock < quantity {
		return nil, model.ErrInsufficientStock
	}
	return product, nil
}

// ownerCartWith finds the caller's cart and requires it to hold productID.
func (s *cartService) ownerCartWith(ctx context.Context, userID, productID model.ObjectID) (*model.Cart, error) {
	cart, err := s.repo.FindByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cart.Has(productID) {
		return nil, model.ErrCartNotFound
	}
	return cart, nil
}
