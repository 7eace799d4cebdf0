package types

import "time"

// Roles a user account can hold.
const (
	RoleFarmer   = "farmer"
	RoleCustomer = "customer"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// FirstName is the user's given name.
	FirstName string `json:"firstname" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"lastname" db:"last_name"`

	// Email is the user's email address. It is unique across accounts.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system,
	// either "farmer" or "customer". Serialized as "usertype" to match
	// the public API contract.
	Role string `json:"usertype" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserCounts aggregates how many resources a user owns, shown on the
// profile endpoint.
type UserCounts struct {
	Fields    int `json:"fields"`
	Devices   int `json:"devices"`
	FieldData int `json:"field_data"`
}
