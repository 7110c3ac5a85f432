// Package mem provides an in-memory account store used by tests and the
// CLI demo mode. It enforces username and role-name uniqueness the way a
// real identity store would, reporting rejections as StoreError values.
package mem

import (
	"context"
	"fmt"
	"sync"

	"idman.org/internal/identity"
)

// Store implements identity.Store over process memory. All methods are
// safe for concurrent use. Find and List return copies so callers may
// mutate records freely before persisting them with Update.
type Store struct {
	mu        sync.RWMutex
	caps      identity.Capabilities
	users     map[string]*identity.User
	usernames map[string]string
	claims    map[string][]identity.Claim
	roles     map[string]*identity.Role
	roleNames map[string]string
}

var _ identity.Store = (*Store)(nil)

// New builds an empty store advertising the given capabilities.
func New(caps identity.Capabilities) *Store {
	return &Store{
		caps:      caps,
		users:     make(map[string]*identity.User),
		usernames: make(map[string]string),
		claims:    make(map[string][]identity.Claim),
		roles:     make(map[string]*identity.Role),
		roleNames: make(map[string]string),
	}
}

func (s *Store) Capabilities() identity.Capabilities { return s.caps }

func (s *Store) Users(context.Context) identity.UserStore { return &userStore{s} }

func (s *Store) Roles(context.Context) identity.RoleStore {
	if !s.caps.Roles {
		return nil
	}
	return &roleStore{s}
}

type userStore struct{ s *Store }

func (u *userStore) Create(ctx context.Context, user *identity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, taken := u.s.usernames[user.Username]; taken {
		return identity.NewStoreError(fmt.Sprintf("Username '%s' is already taken.", user.Username))
	}
	if _, exists := u.s.users[user.Subject]; exists {
		return identity.NewStoreError(fmt.Sprintf("Subject '%s' already exists.", user.Subject))
	}
	cp := *user
	u.s.users[user.Subject] = &cp
	u.s.usernames[user.Username] = user.Subject
	return nil
}

func (u *userStore) Find(ctx context.Context, subject string) (*identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[subject]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *userStore) Update(ctx context.Context, user *identity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	current, ok := u.s.users[user.Subject]
	if !ok {
		return identity.ErrNotFound
	}
	if user.Username != current.Username {
		if _, taken := u.s.usernames[user.Username]; taken {
			return identity.NewStoreError(fmt.Sprintf("Username '%s' is already taken.", user.Username))
		}
		delete(u.s.usernames, current.Username)
		u.s.usernames[user.Username] = user.Subject
	}
	cp := *user
	u.s.users[user.Subject] = &cp
	return nil
}

func (u *userStore) Delete(ctx context.Context, subject string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[subject]
	if !ok {
		return identity.ErrNotFound
	}
	delete(u.s.usernames, user.Username)
	delete(u.s.users, subject)
	delete(u.s.claims, subject)
	return nil
}

func (u *userStore) List(ctx context.Context) ([]*identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	out := make([]*identity.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		cp := *user
		out = append(out, &cp)
	}
	return out, nil
}

func (u *userStore) Claims(ctx context.Context, subject string) ([]identity.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	if _, ok := u.s.users[subject]; !ok {
		return nil, identity.ErrNotFound
	}
	return append([]identity.Claim(nil), u.s.claims[subject]...), nil
}

func (u *userStore) AddClaim(ctx context.Context, subject string, claim identity.Claim) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[subject]; !ok {
		return identity.ErrNotFound
	}
	u.s.claims[subject] = append(u.s.claims[subject], claim)
	return nil
}

// RemoveClaim drops every claim matching the (type, value) pair. Removing
// an absent claim is a no-op.
func (u *userStore) RemoveClaim(ctx context.Context, subject string, claim identity.Claim) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[subject]; !ok {
		return identity.ErrNotFound
	}
	kept := u.s.claims[subject][:0]
	for _, c := range u.s.claims[subject] {
		if c != claim {
			kept = append(kept, c)
		}
	}
	u.s.claims[subject] = kept
	return nil
}

type roleStore struct{ s *Store }

func (r *roleStore) Create(ctx context.Context, role *identity.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.roleNames[role.Name]; taken {
		return identity.NewStoreError(fmt.Sprintf("Role name '%s' is already taken.", role.Name))
	}
	cp := *role
	r.s.roles[role.Subject] = &cp
	r.s.roleNames[role.Name] = role.Subject
	return nil
}

func (r *roleStore) Find(ctx context.Context, subject string) (*identity.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roles[subject]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (r *roleStore) Update(ctx context.Context, role *identity.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.roles[role.Subject]
	if !ok {
		return identity.ErrNotFound
	}
	if role.Name != current.Name {
		if _, taken := r.s.roleNames[role.Name]; taken {
			return identity.NewStoreError(fmt.Sprintf("Role name '%s' is already taken.", role.Name))
		}
		delete(r.s.roleNames, current.Name)
		r.s.roleNames[role.Name] = role.Subject
	}
	cp := *role
	r.s.roles[role.Subject] = &cp
	return nil
}

func (r *roleStore) Delete(ctx context.Context, subject string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[subject]
	if !ok {
		return identity.ErrNotFound
	}
	delete(r.s.roleNames, role.Name)
	delete(r.s.roles, subject)
	return nil
}

func (r *roleStore) List(ctx context.Context) ([]*identity.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*identity.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		cp := *role
		out = append(out, &cp)
	}
	return out, nil
}
