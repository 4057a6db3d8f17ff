package service

import (
	"context"
	"errors"
	"strings"

	"doku-template-store/internal/model"
	"doku-template-store/internal/repository"
)

type AccountService interface {
	GetOrder(ctx context.Context, buyer Buyer, invoiceNumber string) (*model.Order, error)
	GetAccess(ctx context.Context, buyer Buyer, productSlug string) (*model.AccessGrant, error)
}

type accountServiceImpl struct {
	orderRepo  repository.OrderRepository
	accessRepo repository.AccessGrantRepository
}

func NewAccountService(
	orderRepo repository.OrderRepository,
	accessRepo repository.AccessGrantRepository,
) AccountService {
	return &accountServiceImpl{
		orderRepo:  orderRepo,
		accessRepo: accessRepo,
	}
}

// GetOrder hides orders of other buyers behind ErrOrderNotFound.
func (s *accountServiceImpl) GetOrder(ctx context.Context, buyer Buyer, invoiceNumber string) (*model.Order, error) {
	order, err := s.orderRepo.FindByInvoice(ctx, nil, invoiceNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.BuyerEmail != strings.ToLower(strings.TrimSpace(buyer.Email)) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetAccess returns nil without error when the buyer has no active grant.
func (s *accountServiceImpl) GetAccess(ctx context.Context, buyer Buyer, productSlug string) (*model.AccessGrant, error) {
	grant, err := s.accessRepo.FindActive(ctx, nil, buyer.Email, productSlug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return grant, nil
}
