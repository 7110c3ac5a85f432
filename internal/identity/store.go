package identity

import "context"

// Capabilities describes the optional features the account store
// advertises. The metadata builder consults it once instead of probing
// per call.
type Capabilities struct {
	Password  bool
	Email     bool
	Phone     bool
	TwoFactor bool
	Lockout   bool
	Claims    bool
	Roles     bool
}

// AllCapabilities enables every optional store feature.
func AllCapabilities() Capabilities {
	return Capabilities{
		Password:  true,
		Email:     true,
		Phone:     true,
		TwoFactor: true,
		Lockout:   true,
		Claims:    true,
		Roles:     true,
	}
}

// Store describes persistence operations required by the identity facade.
type Store interface {
	Capabilities() Capabilities
	Users(ctx context.Context) UserStore
	// Roles may return nil when the store does not support roles; the
	// facade checks Capabilities before asking.
	Roles(ctx context.Context) RoleStore
}

// UserStore manages user records and their claims. Mutating calls report
// business rejections (such as a taken username) as *StoreError and an
// unknown subject as ErrNotFound.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, subject string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, subject string) error
	List(ctx context.Context) ([]*User, error)

	Claims(ctx context.Context, subject string) ([]Claim, error)
	AddClaim(ctx context.Context, subject string, claim Claim) error
	RemoveClaim(ctx context.Context, subject string, claim Claim) error
}

// RoleStore manages role records.
type RoleStore interface {
	Create(ctx context.Context, r *Role) error
	Find(ctx context.Context, subject string) (*Role, error)
	Update(ctx context.Context, r *Role) error
	Delete(ctx context.Context, subject string) error
	List(ctx context.Context) ([]*Role, error)
}

// TokenSource issues and redeems the short-lived security tokens used by
// the composite property flows (password reset, email confirmation, phone
// change).
type TokenSource interface {
	Generate(ctx context.Context, purpose, subject string) (string, error)
	Redeem(ctx context.Context, purpose, subject, token string) error
}
