package models

import "time"

// Interest is one entry of the admin-managed interest catalog.
// The engine treats the catalog as an opaque set of valid names.
type Interest struct {
	Name      string `gorm:"primaryKey" json:"name"`
	CreatedAt time.Time
}
