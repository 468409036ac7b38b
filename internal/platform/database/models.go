package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Upload is one file written by an upload request.
type Upload struct {
	ID           uuid.UUID `json:"id" db:"id"`
	BatchID      uuid.UUID `json:"batch_id" db:"batch_id"`
	Name         string    `json:"name" db:"name"`
	OriginalName string    `json:"original_name" db:"original_name"`
	Directory    string    `json:"directory" db:"directory"`
	Path         string    `json:"path" db:"path"`
	Size         int64     `json:"size" db:"size"`
	ContentType  string    `json:"content_type" db:"content_type"`
	Mirrored     bool      `json:"mirrored" db:"mirrored"`
	RemoteAddr   string    `json:"remote_addr" db:"remote_addr"`
	Fields       Metadata  `json:"fields" db:"fields"`
	UploadedAt   time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// Metadata holds the text fields that accompanied an upload as JSONB.
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for storing to database
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for loading from database
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", value)
	}

	return json.Unmarshal(bytes, m)
}

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// DefaultPagination returns the newest fifty uploads.
func DefaultPagination() PaginationParams {
	return PaginationParams{Offset: 0, Limit: 50}
}

// Validate clamps pagination parameters into range.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 || p.Limit > 1000 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}
