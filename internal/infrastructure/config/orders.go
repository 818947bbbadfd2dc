package config

// OrdersConfig holds the order ingestion policy
type OrdersConfig struct {
	// Permit orders that resolve to no RMS customer
	AllowWithoutCustomer bool `mapstructure:"allow_without_customer"`

	// Customer id attached to guest orders; 0 means none
	DefaultCustomerID int64 `mapstructure:"default_customer_id"`

	// Reject orders with no customer email
	RequireEmail bool `mapstructure:"require_email"`

	// Name given to customers created from email-only orders
	GuestName string `mapstructure:"guest_name"`

	// RMS store identifier stamped on order headers
	StoreID int `mapstructure:"store_id" validate:"required,min=1"`
}

// DefaultCustomerIDPtr returns the guest customer id, or nil when unset
func (c *OrdersConfig) DefaultCustomerIDPtr() *int64 {
	if c.DefaultCustomerID <= 0 {
		return nil
	}
	id := c.DefaultCustomerID
	return &id
}
