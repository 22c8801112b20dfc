package service

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"radpanel/internal/models"
	"radpanel/internal/repository"
)

// PaymentMethodService manages where customers send money.
type PaymentMethodService struct {
	repos *repository.Repos
}

func (s *PaymentMethodService) List(methodType models.PaymentMethodType, status models.PaymentMethodStatus, limit, page int) ([]models.PaymentMethod, int64, error) {
	return s.repos.PaymentMethods.FindAll(limit, page, methodType, status)
}

func (s *PaymentMethodService) Get(id uint) (*models.PaymentMethod, error) {
	m, err := s.repos.PaymentMethods.FindByID(id)
	if err != nil {
		return nil, notFound(err, "payment method")
	}
	return m, nil
}

// PublicList returns one randomly picked active CARD method plus every
// active SHEBA and CRYPTO method.
func (s *PaymentMethodService) PublicList() ([]models.PaymentMethod, error) {
	active, err := s.repos.PaymentMethods.FindActive()
	if err != nil {
		return nil, err
	}
	var cards, out []models.PaymentMethod
	for _, m := range active {
		if m.Type == models.MethodCard {
			cards = append(cards, m)
			continue
		}
		out = append(out, m)
	}
	if len(cards) > 0 {
		out = append([]models.PaymentMethod{cards[rand.Intn(len(cards))]}, out...)
	}
	return out, nil
}

// buildMethod validates req and returns the method it describes.
func buildMethod(req models.PaymentMethodRequest) (*models.PaymentMethod, error) {
	alias := strings.TrimSpace(req.Alias)
	if alias == "" {
		return nil, validation("alias is required")
	}
	if req.DailyLimitCount < 0 || req.DailyLimitAmount < 0 {
		return nil, validation("daily limits must not be negative")
	}
	status := req.Status
	switch status {
	case "":
		status = models.MethodActive
	case models.MethodActive, models.MethodInactive:
	default:
		return nil, validation("unknown status %q", status)
	}

	cfg, err := models.DecodeMethodConfig(req.Type, req.Config)
	if err != nil {
		if errors.Is(err, models.ErrInvalidMethodConfig) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}
	m := &models.PaymentMethod{
		Alias:            alias,
		Status:           status,
		DailyLimitCount:  req.DailyLimitCount,
		DailyLimitAmount: req.DailyLimitAmount,
		Notes:            req.Notes,
	}
	if err := m.SetConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return m, nil
}

func (s *PaymentMethodService) Create(req models.PaymentMethodRequest) (*models.PaymentMethod, error) {
	m, err := buildMethod(req)
	if err != nil {
		return nil, err
	}
	if err := s.repos.PaymentMethods.Create(m); err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}
	return m, nil
}

func (s *PaymentMethodService) Update(id uint, req models.PaymentMethodRequest) (*models.PaymentMethod, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	m, err := buildMethod(req)
	if err != nil {
		return nil, err
	}
	err = s.repos.PaymentMethods.Update(id, map[string]interface{}{
		"type":               m.Type,
		"alias":              m.Alias,
		"config":             m.Config,
		"status":             m.Status,
		"daily_limit_count":  m.DailyLimitCount,
		"daily_limit_amount": m.DailyLimitAmount,
		"notes":              m.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("update payment method: %w", err)
	}
	return s.Get(id)
}

// Deactivate keeps the row for payments that reference it.
func (s *PaymentMethodService) Deactivate(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.repos.PaymentMethods.Update(id, map[string]interface{}{"status": models.MethodInactive})
}
