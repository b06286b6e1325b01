package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&User{},
		&IdentityLink{},
		&Service{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Booking{},
		&OTPCode{},
		&OutboxEvent{},
	}
}
