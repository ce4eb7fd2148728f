package model

import "time"

// StateRecord is one row of the persisted key/value state backing the profit
// target cache and the hold overrides when the database store is enabled.
// Bucket separates the logical stores, Key is the instrument or trade id.
type StateRecord struct {
	Bucket    string    `gorm:"primaryKey;size:60" json:"bucket"`
	Key       string    `gorm:"primaryKey;size:120" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
