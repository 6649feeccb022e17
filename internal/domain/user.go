package domain

import "time"

type User struct {
	ID              string    `bson:"_id" json:"id"`
	Email           string    `bson:"email" json:"email"`
	Name            string    `bson:"name" json:"name"`
	WalletBalance   float64   `bson:"wallet_balance" json:"wallet_balance"`
	ShippingAddress string    `bson:"shipping_address" json:"shipping_address"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// HasSetAddress reports whether the shipping address has been changed
// from the configured placeholder value.
func (u *User) HasSetAddress(defaultAddress string) bool {
	return u.ShippingAddress != defaultAddress
}
