package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"radpanel/internal/pkg/utils"
)

type PaymentMethodType string

const (
	MethodCard   PaymentMethodType = "CARD"
	MethodSheba  PaymentMethodType = "SHEBA"
	MethodCrypto PaymentMethodType = "CRYPTO"
)

type PaymentMethodStatus string

const (
	MethodActive   PaymentMethodStatus = "ACTIVE"
	MethodInactive PaymentMethodStatus = "INACTIVE"
)

// ErrInvalidMethodConfig is returned when a config blob does not match its type.
var ErrInvalidMethodConfig = errors.New("invalid payment method config")

// PaymentMethod maps to the `payment_methods` table. Config holds the
// variant selected by Type; use DecodeConfig to get the typed value.
type PaymentMethod struct {
	ID               uint                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Type             PaymentMethodType   `gorm:"column:type;size:20;index;not null" json:"type"`
	Alias            string              `gorm:"column:alias;size:100;not null" json:"alias"`
	Config           datatypes.JSON      `gorm:"column:config;not null" json:"config"`
	Status           PaymentMethodStatus `gorm:"column:status;size:20;index;not null;default:ACTIVE" json:"status"`
	DailyLimitCount  int                 `gorm:"column:daily_limit_count;default:0" json:"daily_limit_count"`
	DailyLimitAmount int64               `gorm:"column:daily_limit_amount;default:0" json:"daily_limit_amount"`
	Notes            string              `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt        time.Time           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"column:updated_at" json:"updated_at"`
}

func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// IsActive reports whether receipts may be uploaded against the method.
func (m PaymentMethod) IsActive() bool {
	return m.Status == MethodActive
}

// DecodeConfig returns the typed config variant for m.Type.
func (m PaymentMethod) DecodeConfig() (PaymentMethodConfig, error) {
	return DecodeMethodConfig(m.Type, m.Config)
}

// SetConfig validates cfg and stores it, switching Type to the variant's kind.
func (m *PaymentMethod) SetConfig(cfg PaymentMethodConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	m.Type = cfg.Kind()
	m.Config = datatypes.JSON(raw)
	return nil
}

// PaymentMethodConfig is the tagged union over the per-type config shapes.
type PaymentMethodConfig interface {
	Kind() PaymentMethodType
	Validate() error
}

type CardConfig struct {
	CardNumber    string `json:"card_number"`
	AccountHolder string `json:"account_holder"`
	BankName      string `json:"bank_name,omitempty"`
}

func (CardConfig) Kind() PaymentMethodType { return MethodCard }

var cardNumberRe = regexp.MustCompile(`^[0-9]{16}$`)

func (c CardConfig) Validate() error {
	if !cardNumberRe.MatchString(utils.NormalizeDigits(c.CardNumber)) {
		return fmt.Errorf("%w: card_number must be 16 digits", ErrInvalidMethodConfig)
	}
	if strings.TrimSpace(c.AccountHolder) == "" {
		return fmt.Errorf("%w: account_holder is required", ErrInvalidMethodConfig)
	}
	return nil
}

type ShebaConfig struct {
	ShebaNumber   string `json:"sheba_number"`
	AccountHolder string `json:"account_holder"`
	BankName      string `json:"bank_name,omitempty"`
}

func (ShebaConfig) Kind() PaymentMethodType { return MethodSheba }

var shebaRe = regexp.MustCompile(`^IR[0-9]{24}$`)

func (c ShebaConfig) Validate() error {
	sheba := strings.ToUpper(strings.ReplaceAll(c.ShebaNumber, " ", ""))
	if !strings.HasPrefix(sheba, "IR") {
		sheba = "IR" + sheba
	}
	if !shebaRe.MatchString(sheba) {
		return fmt.Errorf("%w: sheba_number must be IR followed by 24 digits", ErrInvalidMethodConfig)
	}
	if strings.TrimSpace(c.AccountHolder) == "" {
		return fmt.Errorf("%w: account_holder is required", ErrInvalidMethodConfig)
	}
	return nil
}

type CryptoConfig struct {
	Coin     string          `json:"coin"`
	Network  string          `json:"network,omitempty"`
	Wallet   string          `json:"wallet"`
	BonusPct decimal.Decimal `json:"bonus_pct"`
}

func (CryptoConfig) Kind() PaymentMethodType { return MethodCrypto }

func (c CryptoConfig) Validate() error {
	if strings.TrimSpace(c.Coin) == "" {
		return fmt.Errorf("%w: coin is required", ErrInvalidMethodConfig)
	}
	if strings.TrimSpace(c.Wallet) == "" {
		return fmt.Errorf("%w: wallet is required", ErrInvalidMethodConfig)
	}
	if c.BonusPct.IsNegative() || c.BonusPct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: bonus_pct must be between 0 and 100", ErrInvalidMethodConfig)
	}
	return nil
}

// Bonus returns the extra credit granted for amount, rounded down.
func (c CryptoConfig) Bonus(amount int64) int64 {
	if c.BonusPct.IsZero() || amount <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(c.BonusPct).Div(decimal.NewFromInt(100)).Floor().IntPart()
}

// DecodeMethodConfig parses raw into the variant selected by t and validates it.
func DecodeMethodConfig(t PaymentMethodType, raw []byte) (PaymentMethodConfig, error) {
	var cfg PaymentMethodConfig
	switch t {
	case MethodCard:
		var c CardConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMethodConfig, err)
		}
		c.CardNumber = utils.NormalizeDigits(c.CardNumber)
		cfg = c
	case MethodSheba:
		var c ShebaConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMethodConfig, err)
		}
		c.ShebaNumber = strings.ToUpper(strings.ReplaceAll(c.ShebaNumber, " ", ""))
		if !strings.HasPrefix(c.ShebaNumber, "IR") {
			c.ShebaNumber = "IR" + c.ShebaNumber
		}
		cfg = c
	case MethodCrypto:
		var c CryptoConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMethodConfig, err)
		}
		cfg = c
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMethodConfig, t)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
