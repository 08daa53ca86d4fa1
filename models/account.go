package models

import "time"

// Account holds a user's credit balance
type Account struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	DiscordID *int64    `db:"discord_id"`
	Credits   int64     `db:"credits"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CanAfford checks if the account holds at least cost credits
func (a *Account) CanAfford(cost int64) bool {
	return a.Credits >= cost
}

// CalculateNewBalance calculates what the balance would be after a change
func (a *Account) CalculateNewBalance(delta int64) int64 {
	return a.Credits + delta
}
