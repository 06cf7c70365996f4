package models

import "time"

// User is a stored account. Local accounts have Username/Password set;
// GitHub accounts have the provider profile fields set. The ID is either a
// store-generated hex key (local) or the provider-issued id (GitHub), so a
// given external identity always maps to exactly one record.
type User struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	Username string `bson:"username,omitempty" json:"username,omitempty"`
	Password string `bson:"password,omitempty" json:"-"` // Argon2id hash, never plaintext

	Name     string `bson:"name,omitempty" json:"name,omitempty"`
	Photo    string `bson:"photo,omitempty" json:"photo,omitempty"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	Provider string `bson:"provider,omitempty" json:"provider,omitempty"`

	CreatedOn  time.Time `bson:"created_on,omitempty" json:"created_on,omitempty"`
	LastLogin  time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	LoginCount int       `bson:"login_count,omitempty" json:"login_count,omitempty"`
}

// DisplayName is what the chat and profile pages show for this user.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
