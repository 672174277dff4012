package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Int64List stores an ordered sequence of Pokemon species ids as a JSON
// array column. Serializing then deserializing reproduces the exact
// sequence, order included.
type Int64List []int64

// Value implements driver.Valuer
func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		l = Int64List{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize pokemon id list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *Int64List) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*l = Int64List{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported column type %T for pokemon id list", value)
	}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"` // Unique identifier with auto-increment
	Username   string    `gorm:"not null"`                 // User's display name (required)
	Email      string    `gorm:"not null"`                 // User's email address (required)
	Password   string    `gorm:"not null"`                 // Stored credential (required)
	PokemonIDs Int64List `gorm:"column:pokemon_ids;type:text;not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// PokemonSchema represents the database schema for the pokemon ownership
// table. Rows are keyed by species id with a nullable owner reference.
type PokemonSchema struct {
	ID      int64  `gorm:"primaryKey;autoIncrement:false"` // External Pokemon species id
	OwnerID *int64 `gorm:"index"`                          // Owning user, nil when unowned
}

// TableName specifies the table name for the PokemonSchema model.
func (PokemonSchema) TableName() string {
	return "pokemons"
}
