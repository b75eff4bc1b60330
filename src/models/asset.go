package models

// MAsset is immutable reference data: a tradable instrument.
// Rows are created by the seeding utility, never mutated by the server.
type MAsset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
