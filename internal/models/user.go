package models

import "time"

// Role is the tagged variant every authorization decision dispatches on.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleAgent   Role = "AGENT"
	RoleEndUser Role = "END_USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleEndUser:
		return true
	}
	return false
}

// HasWallet reports whether accounts of this role own a wallet.
func (r Role) HasWallet() bool {
	return r == RoleAgent || r == RoleEndUser
}

type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserDisabled UserStatus = "DISABLED"
)

// User maps to the `users` table. Role specific data lives in Agent / EndUser.
type User struct {
	ID           uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"column:username;size:64;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"column:email;size:255" json:"email,omitempty"`
	PasswordHash string     `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         Role       `gorm:"column:role;size:20;index;not null" json:"role"`
	Status       UserStatus `gorm:"column:status;size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`

	Agent   *Agent   `gorm:"foreignKey:UserID" json:"agent,omitempty"`
	EndUser *EndUser `gorm:"foreignKey:UserID" json:"end_user,omitempty"`
	Wallet  *Wallet  `gorm:"foreignKey:OwnerID" json:"wallet,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account may sign in.
func (u *User) IsActive() bool {
	return u.Status == UserActive
}

// Agent maps to the `agents` table: the reseller profile of an AGENT user.
type Agent struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	FirstName string    `gorm:"column:first_name;size:100" json:"first_name"`
	LastName  string    `gorm:"column:last_name;size:100" json:"last_name"`
	Phone     string    `gorm:"column:phone;size:32" json:"phone"`
	ShopName  string    `gorm:"column:shop_name;size:200" json:"shop_name"`
	Province  string    `gorm:"column:province;size:100" json:"province"`
	City      string    `gorm:"column:city;size:100" json:"city"`
	Address   string    `gorm:"column:address;type:text" json:"address"`
	Notes     string    `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Agent) TableName() string {
	return "agents"
}

// EndUser maps to the `end_users` table.
type EndUser struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Phone     string    `gorm:"column:phone;size:32" json:"phone"`
	Verified  bool      `gorm:"column:verified;default:false" json:"verified"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (EndUser) TableName() string {
	return "end_users"
}
