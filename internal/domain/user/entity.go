package user

// User represents a user account owning an ordered list of Pokemon species ids.
type User struct {
	ID         int64   // ID is the unique identifier for the user
	Username   string  // Username is the display name of the user
	Email      string  // Email is the email address of the user
	Password   string  // Password is the stored credential, never exposed in responses
	PokemonIDs []int64 // PokemonIDs are the species ids owned by the user, in order
}

// Pokemon is a species id/name pair resolved through the external lookup
// service. It is ephemeral display data and never persisted.
type Pokemon struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Update describes a partial mutation of a user record. Nil fields are left
// untouched; a non-nil PokemonIDs replaces the owned list wholesale.
type Update struct {
	Username   *string
	Email      *string
	Password   *string
	PokemonIDs *[]int64
}
