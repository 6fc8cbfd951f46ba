package models

import "time"

// User is the owning identity for balances and bets. Account provisioning
// and authentication live outside this service; operations receive an
// already-validated user id.
type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
}
