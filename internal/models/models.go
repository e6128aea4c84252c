package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed out of s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodZaloPay PaymentMethod = "zalopay"
)

// Prices are stored in VND, which has no minor unit, so int64 carries exact
// amounts end to end.
type Product struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"        json:"id"`
	Name         string         `gorm:"not null;index"              json:"name"`
	Description  string         `json:"description"`
	Price        int64          `gorm:"not null;check:price >= 0"   json:"price"`
	Stock        uint           `json:"stock"`
	CategoryID   *uuid.UUID     `gorm:"type:uuid;index"             json:"category_id,omitempty"`
	Brand        string         `json:"brand,omitempty"`
	Origin       string         `json:"origin,omitempty"`
	Packaging    string         `json:"packaging,omitempty"`
	IsVegetarian bool           `json:"is_vegetarian"`
	IsVegan      bool           `json:"is_vegan"`
	Allergens    string         `json:"allergens,omitempty"`
	Rating       float64        `json:"rating"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index"                       json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Product) TableName() string { return "products" }

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name      string    `gorm:"not null;uniqueIndex"  json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Category) TableName() string { return "categories" }

type Store struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name        string    `gorm:"not null"              json:"name"`
	Address     string    `gorm:"not null"              json:"address"`
	Latitude    float64   `gorm:"not null"              json:"latitude"`
	Longitude   float64   `gorm:"not null"              json:"longitude"`
	PhoneNumber string    `gorm:"not null"              json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (Store) TableName() string { return "stores" }

// Cart is the per-user basket. The unique index on user_id keeps it to one
// cart per user; add-item upserts lines instead of creating new carts.
type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"           json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Active    bool       `gorm:"default:true"                   json:"active"`
	Items     []CartItem `gorm:"foreignKey:CartID"              json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                            json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity  uint      `gorm:"default:1;check:quantity > 0"                    json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ci *CartItem) BeforeCreate(tx *gorm.DB) error {
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string { return "cart_items" }

// Order is an immutable snapshot taken at checkout. Unit prices are copied
// from the catalog at creation time and never follow later price changes.
type Order struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"      json:"id"`
	CartID    uuid.UUID      `gorm:"type:uuid;index;not null"  json:"cart_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;index;not null"  json:"user_id"`
	Items     []OrderItem    `gorm:"foreignKey:OrderID"        json:"items"`
	Total     int64          `gorm:"not null"                  json:"total"`
	Status    OrderStatus    `gorm:"not null;index"            json:"status"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index"                     json:"-"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (Order) TableName() string { return "orders" }

// OrderItem.ProductID is nil for ad hoc lines that never existed in the
// catalog; ProductName is always set.
type OrderItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"         json:"id"`
	OrderID     uuid.UUID  `gorm:"type:uuid;index;not null"     json:"order_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid"                    json:"product_id,omitempty"`
	ProductName string     `gorm:"not null"                     json:"product_name"`
	Quantity    uint       `gorm:"not null;check:quantity > 0"  json:"quantity"`
	UnitPrice   int64      `gorm:"not null"                     json:"unit_price"`
	Notes       string     `json:"notes,omitempty"`
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == uuid.Nil {
		oi.ID = uuid.New()
	}
	return nil
}

func (OrderItem) TableName() string { return "order_items" }

type Payment struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"       json:"id"`
	OrderID        uuid.UUID      `gorm:"type:uuid;index;not null"   json:"order_id"`
	UserID         uuid.UUID      `gorm:"type:uuid;index;not null"   json:"user_id"`
	Amount         int64          `gorm:"not null;check:amount >= 0" json:"amount"`
	Method         PaymentMethod  `gorm:"not null"                   json:"payment_method"`
	TransactionID  string         `gorm:"uniqueIndex;not null"       json:"transaction_id"`
	Status         PaymentStatus  `gorm:"not null;index"             json:"status"`
	PaymentURL     string         `json:"payment_url,omitempty"`
	GatewayOrderID string         `gorm:"index"                      json:"gateway_order_id,omitempty"`
	Description    string         `json:"description,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index"                      json:"-"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Payment) TableName() string { return "payments" }

type Conversation struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Participants string    `gorm:"not null"             json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Conversation) TableName() string { return "conversations" }

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;index;not null"  json:"conversation_id"`
	Sender         string    `gorm:"not null"                  json:"sender"`
	Content        string    `gorm:"not null"                  json:"content"`
	SentAt         time.Time `gorm:"not null"                  json:"sent_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (Message) TableName() string { return "messages" }
