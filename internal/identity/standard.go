package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"idman.org/internal/identity/tokens"
)

// lockoutForever is the lockout end written when an administrator locks a
// user. Unlocking resets the end to the zero time.
var lockoutForever = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// EntityMetadata declares which properties an administrative client may
// supply at creation and edit afterwards. Read-only once constructed.
type EntityMetadata[T any] struct {
	Create *Registry[T]
	Update *Registry[T]

	SupportsCreate bool
	SupportsDelete bool
	SupportsClaims bool
}

// StandardUserMetadata derives user metadata from the capabilities the
// store advertises. Creation always takes username and password; the
// update set grows with each supported capability. Extra descriptors
// (custom profile fields) are appended to both sets.
func StandardUserMetadata(caps Capabilities, ts TokenSource, now func() time.Time, extra ...*Descriptor[User]) (*EntityMetadata[User], error) {
	if ts == nil {
		return nil, errors.New("identity: token source is required")
	}
	if now == nil {
		now = time.Now
	}

	username, err := usernameDescriptor()
	if err != nil {
		return nil, err
	}
	password, err := passwordDescriptor(ts)
	if err != nil {
		return nil, err
	}

	createSet := append([]*Descriptor[User]{username, password}, extra...)
	create, err := NewRegistry(createSet...)
	if err != nil {
		return nil, err
	}

	updateSet := []*Descriptor[User]{username}
	if caps.Password {
		updateSet = append(updateSet, password)
	}
	if caps.Email {
		d, err := emailDescriptor(ts)
		if err != nil {
			return nil, err
		}
		updateSet = append(updateSet, d)
	}
	if caps.Phone {
		d, err := phoneDescriptor(ts)
		if err != nil {
			return nil, err
		}
		updateSet = append(updateSet, d)
	}
	if caps.TwoFactor {
		d, err := twoFactorDescriptor()
		if err != nil {
			return nil, err
		}
		updateSet = append(updateSet, d)
	}
	if caps.Lockout {
		d, err := lockedDescriptor(now)
		if err != nil {
			return nil, err
		}
		updateSet = append(updateSet, d)
	}
	updateSet = append(updateSet, extra...)
	update, err := NewRegistry(updateSet...)
	if err != nil {
		return nil, err
	}

	return &EntityMetadata[User]{
		Create:         create,
		Update:         update,
		SupportsCreate: true,
		SupportsDelete: true,
		SupportsClaims: caps.Claims,
	}, nil
}

// StandardRoleMetadata builds the fixed role metadata: a required name and
// an optional description.
func StandardRoleMetadata() (*EntityMetadata[Role], error) {
	name, err := NewDescriptor[Role](PropertyName, "", DataTypeString, true,
		func(r *Role) string { return r.Name },
		func(_ context.Context, r *Role, value string) error {
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("role name is required")
			}
			r.Name = value
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	description, err := FieldDescriptor[Role](PropertyDescription, "Description", false)
	if err != nil {
		return nil, err
	}

	create, err := NewRegistry(name, description)
	if err != nil {
		return nil, err
	}
	update, err := NewRegistry(name, description)
	if err != nil {
		return nil, err
	}
	return &EntityMetadata[Role]{
		Create:         create,
		Update:         update,
		SupportsCreate: true,
		SupportsDelete: true,
	}, nil
}

func usernameDescriptor() (*Descriptor[User], error) {
	return NewDescriptor[User](PropertyUsername, "", DataTypeString, true,
		func(u *User) string { return u.Username },
		func(_ context.Context, u *User, value string) error {
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("username is required")
			}
			u.Username = value
			return nil
		},
	)
}

// passwordDescriptor has no meaningful getter. The setter runs a reset
// round trip: generate a reset token, redeem it, then write the new hash.
func passwordDescriptor(ts TokenSource) (*Descriptor[User], error) {
	return NewDescriptor[User](PropertyPassword, "", DataTypePassword, true,
		func(*User) string { return "" },
		func(ctx context.Context, u *User, value string) error {
			if value == "" {
				return errors.New("password is required")
			}
			token, err := ts.Generate(ctx, tokens.PurposePasswordReset, u.Subject)
			if err != nil {
				return err
			}
			if err := ts.Redeem(ctx, tokens.PurposePasswordReset, u.Subject, token); err != nil {
				return err
			}
			hash, err := HashPassword(value)
			if err != nil {
				return err
			}
			u.PasswordHash = hash
			return nil
		},
	)
}

// emailDescriptor auto-confirms any non-blank address through a
// confirmation token round trip. A blank value clears the address and
// skips confirmation.
func emailDescriptor(ts TokenSource) (*Descriptor[User], error) {
	return NewDescriptor[User](PropertyEmail, "", DataTypeEmail, false,
		func(u *User) string { return u.Email },
		func(ctx context.Context, u *User, value string) error {
			value = strings.TrimSpace(strings.ToLower(value))
			if value == "" {
				u.Email = ""
				u.EmailConfirmed = false
				return nil
			}
			if !strings.Contains(value, "@") {
				return fmt.Errorf("%q is not a valid email address", value)
			}
			u.Email = value
			u.EmailConfirmed = false
			token, err := ts.Generate(ctx, tokens.PurposeEmailConfirm, u.Subject)
			if err != nil {
				return err
			}
			if err := ts.Redeem(ctx, tokens.PurposeEmailConfirm, u.Subject, token); err != nil {
				return err
			}
			u.EmailConfirmed = true
			return nil
		},
	)
}

// phoneDescriptor mirrors the email flow with a change token.
func phoneDescriptor(ts TokenSource) (*Descriptor[User], error) {
	return NewDescriptor[User](PropertyPhone, "", DataTypeString, false,
		func(u *User) string { return u.Phone },
		func(ctx context.Context, u *User, value string) error {
			value = strings.TrimSpace(value)
			if value == "" {
				u.Phone = ""
				u.PhoneConfirmed = false
				return nil
			}
			u.Phone = value
			u.PhoneConfirmed = false
			token, err := ts.Generate(ctx, tokens.PurposePhoneChange, u.Subject)
			if err != nil {
				return err
			}
			if err := ts.Redeem(ctx, tokens.PurposePhoneChange, u.Subject, token); err != nil {
				return err
			}
			u.PhoneConfirmed = true
			return nil
		},
	)
}

func twoFactorDescriptor() (*Descriptor[User], error) {
	return NewDescriptor[User](PropertyTwoFactor, "Two Factor Authentication", DataTypeBoolean, false,
		func(u *User) string { return strconv.FormatBool(u.TwoFactorEnabled) },
		func(_ context.Context, u *User, value string) error {
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%s expects true or false", PropertyTwoFactor)
			}
			u.TwoFactorEnabled = enabled
			return nil
		},
	)
}

// lockedDescriptor derives the locked flag from the lockout end instant
// instead of storing a boolean.
func lockedDescriptor(now func() time.Time) (*Descriptor[User], error) {
	return NewDescriptor[User](PropertyLocked, "", DataTypeBoolean, false,
		func(u *User) string { return strconv.FormatBool(u.Locked(now())) },
		func(_ context.Context, u *User, value string) error {
			locked, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%s expects true or false", PropertyLocked)
			}
			if !u.LockoutEnabled {
				return errors.New("lockout is not enabled for this user")
			}
			if locked {
				u.LockoutEnd = lockoutForever
			} else {
				u.LockoutEnd = time.Time{}
			}
			return nil
		},
	)
}
