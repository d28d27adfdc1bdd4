package entity

import "time"

// User is the aggregate root for accounts.
// Password holds a bcrypt hash; ResetCode holds a bcrypt hash of the pending reset code.
type User struct {
	ID                 string
	Name               string
	Email              string
	Password           string
	IsAdmin            bool
	IsEmailVerified    bool
	ResetCode          string
	ResetCodeExpiresAt *time.Time
	ResetAttempts      int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ClearResetCode drops any pending password reset and its failure count.
func (u *User) ClearResetCode() {
	u.ResetCode = ""
	u.ResetCodeExpiresAt = nil
	u.ResetAttempts = 0
}

// Principal is the authenticated caller, threaded explicitly into service calls.
type Principal struct {
	UserID  string
	Name    string
	Email   string
	IsAdmin bool
}

func NewPrincipal(u *User) Principal {
	return Principal{UserID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin}
}

// CanAccess reports whether p may read a resource owned by ownerID.
func (p Principal) CanAccess(ownerID string) bool {
	return p.IsAdmin || (p.UserID != "" && p.UserID == ownerID)
}
