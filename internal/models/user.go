package models

// UserInfo is the minimal projection of a user handed to relying parties.
type UserInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Info returns the public projection of the user.
func (u User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email}
}

// CanSignIn reports whether the account may authenticate or hold live tokens.
func (u User) CanSignIn() bool {
	return u.IsActive
}
