package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleCustomer = "customer"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

const (
	PurposeSignup        = "signup"
	PurposeResetPassword = "reset_password"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"unique;not null"          json:"email"`
	Name         string `gorm:"not null"                 json:"name"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
	Blocked      bool   `gorm:"default:false"            json:"blocked"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	Label       string    `gorm:"not null"                     json:"label"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	QtyPerUnit  string    `gorm:"not null"                     json:"qty_per_unit"`
	Unit        string    `gorm:"not null"                     json:"unit"`
	Currency    string    `gorm:"not null"                     json:"currency"`
	CategoryID  *uint     `gorm:"index"                        json:"category_id"`
	Category    *Category `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
}

type PaymentMethod struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null;size:25"  json:"name"`
}

type PriceEntry struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	ProductID       uint            `gorm:"index;not null"              json:"product_id"`
	Product         *Product        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PaymentMethodID uint            `gorm:"index;not null"              json:"payment_method_id"`
	PaymentMethod   *PaymentMethod  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Price           decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"price"`
}

type VerificationCode struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"index;not null"           json:"email"`
	Code      string    `gorm:"not null;size:6"          json:"-"`
	Purpose   string    `gorm:"index;not null"           json:"purpose"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
	Verified  bool      `gorm:"default:false"            json:"verified"`
	Payload   string    `json:"-"`
}

type Order struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID           uint            `gorm:"index;not null"              json:"user_id"`
	ContactMessenger string          `json:"contact_messenger"`
	ContactSocial    string          `json:"contact_social"`
	Total            decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"total"`
	PaymentMethod    string          `gorm:"not null"                    json:"payment_method"`
	ClientNotes      string          `json:"client_notes"`
	StaffNotes       string          `json:"staff_notes"`
	Status           string          `gorm:"index;not null"              json:"status"`
	PlacedAt         time.Time       `gorm:"not null"                    json:"placed_at"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	Lines            []OrderLine     `gorm:"foreignKey:OrderID"          json:"lines,omitempty"`
}

// OrderLine is a denormalized snapshot of a product at the moment the order
// was placed. It deliberately carries no product foreign key so that order
// history survives later product edits and deletions.
type OrderLine struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID     uint            `gorm:"index;not null"              json:"order_id"`
	Label       string          `gorm:"not null"                    json:"label"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	QtyPerUnit  string          `json:"qty_per_unit"`
	Unit        string          `json:"unit"`
	Currency    string          `json:"currency"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"unit_price"`
	Quantity    uint            `gorm:"not null;check:quantity>0"   json:"quantity"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"subtotal"`
}
