package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a restaurant order
type OrderStatus string

const (
	StatusReceived  OrderStatus = "received"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus evolves independently of OrderStatus.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentOnline:
		return true
	}
	return false
}

type OrderType string

const (
	OrderDineIn   OrderType = "dine-in"
	OrderTakeaway OrderType = "takeaway"
	OrderDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderDineIn, OrderTakeaway, OrderDelivery:
		return true
	}
	return false
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

type Order struct {
	ID                   string               `json:"id" gorm:"primaryKey;size:36"`
	UserID               string               `json:"user_id" gorm:"index;not null"`
	Items                []OrderItem          `json:"items" gorm:"foreignKey:OrderID"`
	OrderType            OrderType            `json:"order_type" gorm:"not null"`
	Status               OrderStatus          `json:"status" gorm:"index;not null"`
	PaymentStatus        PaymentStatus        `json:"payment_status" gorm:"not null"`
	PaymentMethod        PaymentMethod        `json:"payment_method" gorm:"not null"`
	TotalAmount          decimal.Decimal      `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	DeliveryAddress      Address              `json:"delivery_address" gorm:"embedded;embeddedPrefix:delivery_"`
	DeliveryInstructions string               `json:"delivery_instructions"`
	TableNumber          *int                 `json:"table_number,omitempty"`
	SpecialRequests      string               `json:"special_requests"`
	EstimatedReadyAt     time.Time            `json:"estimated_ready_at"`
	ActualDeliveryTime   *time.Time           `json:"actual_delivery_time,omitempty"`
	StatusHistory        []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt            time.Time            `json:"created_at" gorm:"index"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID                  string          `json:"id" gorm:"primaryKey;size:36"`
	OrderID             string          `json:"order_id" gorm:"index;not null"`
	MenuItemID          string          `json:"menu_item_id" gorm:"not null"`
	Name                string          `json:"name"` // snapshot name
	Quantity            int             `json:"quantity" gorm:"not null"`
	UnitPrice           decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"` // snapshot price at time of order
	SpecialInstructions string          `json:"special_instructions"`
}

// OrderStatusHistory tracks every status change of an order
type OrderStatusHistory struct {
	ID         string      `json:"id" gorm:"primaryKey;size:36"`
	OrderID    string      `json:"order_id" gorm:"index;not null"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  string      `json:"changed_by"` // user ID who triggered the transition
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
