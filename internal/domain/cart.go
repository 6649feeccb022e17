package domain

import "time"

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Items     []CartItem `bson:"items" json:"items"`
	Version   int64      `bson:"version" json:"-"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// CartItem snapshots the product price at the time the item was added.
// Checkout totals use this snapshot, not a fresh catalog read.
type CartItem struct {
	ProductID int64     `bson:"product_id" json:"product_id"`
	Price     float64   `bson:"price" json:"price"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

func NewCart(userID string, items ...CartItem) *Cart {
	now := time.Now()
	return &Cart{
		UserID:    userID,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ItemIndex returns the position of the line item for productID, or -1.
// Removal and quantity updates go through the index so that items with
// equal quantities are never confused with each other.
func (c *Cart) ItemIndex(productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += float64(item.Quantity) * item.Price
	}
	return total
}
