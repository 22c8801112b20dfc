package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"radpanel/internal/auth"
	"radpanel/internal/models"
	"radpanel/internal/pkg/utils"
	"radpanel/internal/repository"
)

const minPasswordLength = 6

// UserService manages accounts, agent profiles and self profiles.
type UserService struct {
	repos  *repository.Repos
	hasher auth.Hasher
}

func (s *UserService) checkCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if !utils.ValidUsername(username) {
		return "", validation("username must be 3-32 letters, digits or underscores")
	}
	if len(password) < minPasswordLength {
		return "", validation("password must be at least %d characters", minPasswordLength)
	}
	taken, err := s.repos.Users.ExistsUsername(username)
	if err != nil {
		return "", fmt.Errorf("check username: %w", err)
	}
	if taken {
		return "", ErrUsernameTaken
	}
	return username, nil
}

// createAccount inserts the user, its profile and its wallet in one transaction.
func (s *UserService) createAccount(ctx context.Context, user *models.User, password string, profile func(tx *repository.Repos) error) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.Status = models.UserActive

	err = s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		if err := tx.Users.Create(user); err != nil {
			return err
		}
		if err := profile(tx); err != nil {
			return err
		}
		if user.Role.HasWallet() {
			return tx.Wallets.Create(&models.Wallet{OwnerID: user.ID})
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	return err
}

// CreateAgent creates an AGENT account with its profile and wallet.
func (s *UserService) CreateAgent(ctx context.Context, req models.AgentCreateRequest) (*models.User, error) {
	username, err := s.checkCredentials(req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Email: strings.TrimSpace(req.Email), Role: models.RoleAgent}
	err = s.createAccount(ctx, user, req.Password, func(tx *repository.Repos) error {
		return tx.Users.CreateAgent(&models.Agent{
			UserID:    user.ID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     utils.NormalizeDigits(req.Phone),
			ShopName:  req.ShopName,
			Province:  req.Province,
			City:      req.City,
			Address:   req.Address,
			Notes:     req.Notes,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Users.FindByID(user.ID)
}

// RegisterEndUser creates a self-registered END_USER account.
func (s *UserService) RegisterEndUser(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	username, err := s.checkCredentials(req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Email: strings.TrimSpace(req.Email), Role: models.RoleEndUser}
	err = s.createAccount(ctx, user, req.Password, func(tx *repository.Repos) error {
		return tx.Users.CreateEndUser(&models.EndUser{UserID: user.ID, Phone: utils.NormalizeDigits(req.Phone)})
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Users.FindByID(user.ID)
}

// ListAgents searches agents by name, username, phone or shop.
func (s *UserService) ListAgents(status, query string, limit, page int) ([]models.User, int64, error) {
	return s.repos.Users.FindAll(limit, page, models.RoleAgent, status, strings.TrimSpace(query))
}

// GetAgent returns an AGENT account with profile and wallet.
func (s *UserService) GetAgent(id uint) (*models.User, error) {
	user, err := s.repos.Users.FindByID(id)
	if err != nil {
		return nil, notFound(err, "agent")
	}
	if user.Role != models.RoleAgent {
		return nil, fmt.Errorf("agent %w", ErrNotFound)
	}
	return user, nil
}

func (s *UserService) UpdateAgent(ctx context.Context, id uint, req models.AgentUpdateRequest) (*models.User, error) {
	if _, err := s.GetAgent(id); err != nil {
		return nil, err
	}

	userFields := map[string]interface{}{}
	if req.Email != nil {
		userFields["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			return nil, validation("password must be at least %d characters", minPasswordLength)
		}
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		userFields["password_hash"] = hash
	}

	profile := map[string]interface{}{}
	setIf(profile, "first_name", req.FirstName)
	setIf(profile, "last_name", req.LastName)
	if req.Phone != nil {
		profile["phone"] = utils.NormalizeDigits(*req.Phone)
	}
	setIf(profile, "shop_name", req.ShopName)
	setIf(profile, "province", req.Province)
	setIf(profile, "city", req.City)
	setIf(profile, "address", req.Address)
	setIf(profile, "notes", req.Notes)

	err := s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		if len(userFields) > 0 {
			if err := tx.Users.Update(id, userFields); err != nil {
				return err
			}
		}
		if len(profile) > 0 {
			return tx.Users.UpdateAgent(id, profile)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return s.repos.Users.FindByID(id)
}

// SetAgentStatus enables or disables an agent. Disabled agents cannot sign in.
func (s *UserService) SetAgentStatus(id uint, status models.UserStatus) (*models.User, error) {
	if _, err := s.GetAgent(id); err != nil {
		return nil, err
	}
	if err := s.repos.Users.SetStatus(id, status); err != nil {
		return nil, fmt.Errorf("set agent status: %w", err)
	}
	return s.repos.Users.FindByID(id)
}

// Profile returns the caller's account.
func (s *UserService) Profile(userID uint) (*models.User, error) {
	user, err := s.repos.Users.FindByID(userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// UpdateProfile applies the fields that exist for the caller's role.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req models.ProfileUpdateRequest) (*models.User, error) {
	user, err := s.Profile(userID)
	if err != nil {
		return nil, err
	}

	profile := map[string]interface{}{}
	if req.Phone != nil {
		profile["phone"] = utils.NormalizeDigits(*req.Phone)
	}
	if user.Role == models.RoleAgent {
		setIf(profile, "first_name", req.FirstName)
		setIf(profile, "last_name", req.LastName)
		setIf(profile, "shop_name", req.ShopName)
		setIf(profile, "province", req.Province)
		setIf(profile, "city", req.City)
		setIf(profile, "address", req.Address)
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		if req.Email != nil {
			if err := tx.Users.Update(userID, map[string]interface{}{"email": strings.TrimSpace(*req.Email)}); err != nil {
				return err
			}
		}
		if len(profile) == 0 {
			return nil
		}
		switch user.Role {
		case models.RoleAgent:
			return tx.Users.UpdateAgent(userID, profile)
		case models.RoleEndUser:
			return tx.Users.UpdateEndUser(userID, profile)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.repos.Users.FindByID(userID)
}

func setIf(m map[string]interface{}, column string, v *string) {
	if v != nil {
		m[column] = strings.TrimSpace(*v)
	}
}
