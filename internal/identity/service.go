package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"idman.org/internal/ids"
	"idman.org/internal/obs"
)

// PropertyValidator runs before a property edit is dispatched. Returned
// descriptions abort the edit as a validation failure; an empty result
// lets the edit proceed.
type PropertyValidator func(ctx context.Context, subject, ptype, value string) []string

// Service is the identity manager facade. It orchestrates metadata,
// property dispatch, the query engine and the account store, and maps
// every outcome into the uniform Result shape. Configuration and contract
// violations travel on the separate error channel.
//
// A Service holds no mutable state after construction and is safe for
// concurrent use.
type Service struct {
	store  Store
	tokens TokenSource
	now    func() time.Time

	validateUser PropertyValidator
	validateRole PropertyValidator
	extraUser    []*Descriptor[User]

	userMetaFn func(Capabilities, TokenSource) (*EntityMetadata[User], error)
	roleMetaFn func() (*EntityMetadata[Role], error)

	userMeta *EntityMetadata[User]
	roleMeta *EntityMetadata[Role]
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithUserPropertyValidator installs the pre-flight hook run before any
// user property edit.
func WithUserPropertyValidator(fn PropertyValidator) ServiceOption {
	return func(s *Service) error {
		s.validateUser = fn
		return nil
	}
}

// WithRolePropertyValidator installs the pre-flight hook run before any
// role property edit.
func WithRolePropertyValidator(fn PropertyValidator) ServiceOption {
	return func(s *Service) error {
		s.validateRole = fn
		return nil
	}
}

// WithExtraUserProperties appends custom profile descriptors to the
// standard user metadata.
func WithExtraUserProperties(descriptors ...*Descriptor[User]) ServiceOption {
	return func(s *Service) error {
		s.extraUser = append(s.extraUser, descriptors...)
		return nil
	}
}

// WithUserMetadata replaces the standard user metadata derivation. This is
// the facade's customization point.
func WithUserMetadata(fn func(Capabilities, TokenSource) (*EntityMetadata[User], error)) ServiceOption {
	return func(s *Service) error {
		if fn == nil {
			return errors.New("identity: user metadata func must not be nil")
		}
		s.userMetaFn = fn
		return nil
	}
}

// WithRoleMetadata replaces the standard role metadata derivation.
func WithRoleMetadata(fn func() (*EntityMetadata[Role], error)) ServiceOption {
	return func(s *Service) error {
		if fn == nil {
			return errors.New("identity: role metadata func must not be nil")
		}
		s.roleMetaFn = fn
		return nil
	}
}

// NewService constructs the facade and derives metadata once from the
// store's capabilities.
func NewService(store Store, ts TokenSource, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	if ts == nil {
		return nil, errors.New("identity: token source is required")
	}
	svc := &Service{
		store:      store,
		tokens:     ts,
		now:        time.Now,
		userMetaFn: nil,
		roleMetaFn: StandardRoleMetadata,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}

	caps := store.Capabilities()
	if svc.userMetaFn != nil {
		meta, err := svc.userMetaFn(caps, ts)
		if err != nil {
			return nil, err
		}
		svc.userMeta = meta
	} else {
		meta, err := StandardUserMetadata(caps, ts, svc.now, svc.extraUser...)
		if err != nil {
			return nil, err
		}
		svc.userMeta = meta
	}
	if caps.Roles {
		meta, err := svc.roleMetaFn()
		if err != nil {
			return nil, err
		}
		svc.roleMeta = meta
	}
	return svc, nil
}

// UserMetadata returns the derived user metadata.
func (s *Service) UserMetadata() *EntityMetadata[User] {
	return s.userMeta
}

// RoleMetadata returns the derived role metadata, or ErrRolesUnsupported
// when the store does not manage roles.
func (s *Service) RoleMetadata() (*EntityMetadata[Role], error) {
	if s.roleMeta == nil {
		return nil, ErrRolesUnsupported
	}
	return s.roleMeta, nil
}

// finishOp records metrics and a structured log line for one operation.
func finishOp[T any](op, entity, subject string, start time.Time, res *Result[T], errp *error) {
	outcome := "ok"
	switch {
	case *errp != nil:
		outcome = "error"
	case len(res.Errors) > 0:
		outcome = "failed"
	}
	obs.ObserveOperation(op, entity, outcome, start)
	obs.LogOperation(op, entity, subject, outcome, nil)
}

// QueryUsers pages the user collection ordered by username, optionally
// narrowed by a case-insensitive substring filter.
func (s *Service) QueryUsers(ctx context.Context, filter string, start, count int) (res Result[QueryResult[UserSummary]], err error) {
	began := time.Now()
	defer func() { finishOp("query", "user", "", began, &res, &err) }()

	users := s.store.Users(ctx)
	all, lerr := users.List(ctx)
	if lerr != nil {
		return Fail[QueryResult[UserSummary]](failureStrings(lerr)...), nil
	}
	page := Page(all, func(u *User) string { return u.Username }, filter, start, count)

	items := make([]UserSummary, 0, len(page.Items))
	for _, u := range page.Items {
		summary := UserSummary{Subject: u.Subject, Username: u.Username}
		if s.userMeta.SupportsClaims {
			claims, cerr := users.Claims(ctx, u.Subject)
			if cerr != nil {
				return Fail[QueryResult[UserSummary]](failureStrings(cerr)...), nil
			}
			for _, c := range claims {
				if c.Type == ClaimName {
					summary.Name = c.Value
					break
				}
			}
		}
		items = append(items, summary)
	}
	return Ok(QueryResult[UserSummary]{
		Start:  page.Start,
		Count:  page.Count,
		Total:  page.Total,
		Filter: page.Filter,
		Items:  items,
	}), nil
}

// CreateUser builds a fresh user in memory, applies every supplied
// property through the create registry and persists once at the end, so a
// mid-sequence failure leaves nothing behind. Exactly one username and one
// password property are required; their absence is a contract violation,
// not a validation failure.
func (s *Service) CreateUser(ctx context.Context, props []PropertyValue) (res Result[CreateResult], err error) {
	began := time.Now()
	defer func() { finishOp("create", "user", res.Value.Subject, began, &res, &err) }()

	if err = requireExactlyOne(props, PropertyUsername); err != nil {
		return res, err
	}
	if err = requireExactlyOne(props, PropertyPassword); err != nil {
		return res, err
	}

	now := s.now().UTC()
	u := &User{
		Subject:        ids.NewSubject(),
		LockoutEnabled: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, p := range props {
		found, aerr := s.userMeta.Create.Apply(ctx, u, p.Type, p.Value)
		if !found {
			err = fmt.Errorf("%w: %q", ErrUnknownProperty, p.Type)
			return res, err
		}
		if aerr != nil {
			return Fail[CreateResult](failureStrings(aerr)...), nil
		}
	}
	if serr := s.store.Users(ctx).Create(ctx, u); serr != nil {
		return Fail[CreateResult](failureStrings(serr)...), nil
	}
	return Ok(CreateResult{Subject: u.Subject}), nil
}

// DeleteUser removes a user. An unknown subject is a designated failure,
// not a success and not a configuration error.
func (s *Service) DeleteUser(ctx context.Context, subject string) (res Result[Unit], err error) {
	began := time.Now()
	defer func() { finishOp("delete", "user", subject, began, &res, &err) }()

	users := s.store.Users(ctx)
	if _, ferr := users.Find(ctx, subject); ferr != nil {
		if errors.Is(ferr, ErrNotFound) {
			return Fail[Unit](invalidSubject), nil
		}
		return Fail[Unit](failureStrings(ferr)...), nil
	}
	if derr := users.Delete(ctx, subject); derr != nil {
		return Fail[Unit](failureStrings(derr)...), nil
	}
	return Ok(Unit{}), nil
}

// GetUser loads a user detail. An unknown subject is a successful result
// with a nil detail, asymmetric with DeleteUser by design of the contract.
func (s *Service) GetUser(ctx context.Context, subject string) (res Result[*UserDetail], err error) {
	began := time.Now()
	defer func() { finishOp("get", "user", subject, began, &res, &err) }()

	users := s.store.Users(ctx)
	u, ferr := users.Find(ctx, subject)
	if ferr != nil {
		if errors.Is(ferr, ErrNotFound) {
			return Ok[*UserDetail](nil), nil
		}
		return Fail[*UserDetail](failureStrings(ferr)...), nil
	}

	detail := &UserDetail{Subject: u.Subject}
	for _, d := range s.userMeta.Update.Descriptors() {
		value, _ := s.userMeta.Update.Value(u, d.Type())
		detail.Properties = append(detail.Properties, PropertyValue{Type: d.Type(), Value: value})
	}
	if s.userMeta.SupportsClaims {
		claims, cerr := users.Claims(ctx, subject)
		if cerr != nil {
			return Fail[*UserDetail](failureStrings(cerr)...), nil
		}
		detail.Claims = claims
	}
	return Ok(detail), nil
}

// SetUserProperty runs the validation hook, dispatches the edit against
// the update registry and persists the mutated user. An unregistered
// property type aborts on the error channel.
func (s *Service) SetUserProperty(ctx context.Context, subject, ptype, value string) (res Result[Unit], err error) {
	began := time.Now()
	defer func() { finishOp("set_property", "user", subject, began, &res, &err) }()

	if s.validateUser != nil {
		if msgs := s.validateUser(ctx, subject, ptype, value); len(msgs) > 0 {
			return Fail[Unit](msgs...), nil
		}
	}

	users := s.store.Users(ctx)
	u, ferr := users.Find(ctx, subject)
	if ferr != nil {
		if errors.Is(ferr, ErrNotFound) {
			return Fail[Unit](invalidSubject), nil
		}
		return Fail[Unit](failureStrings(ferr)...), nil
	}

	found, aerr := s.userMeta.Update.Apply(ctx, u, ptype, value)
	if !found {
		err = fmt.Errorf("%w: %q", ErrUnknownProperty, ptype)
		return res, err
	}
	if aerr != nil {
		return Fail[Unit](failureStrings(aerr)...), nil
	}

	u.UpdatedAt = s.now().UTC()
	if serr := users.Update(ctx, u); serr != nil {
		return Fail[Unit](failureStrings(serr)...), nil
	}
	return Ok(Unit{}), nil
}

// AddUserClaim attaches a claim. Adding an identical (type, value) pair
// twice leaves a single claim.
func (s *Service) AddUserClaim(ctx context.Context, subject string, claim Claim) (res Result[Unit], err error) {
	began := time.Now()
	defer func() { finishOp("add_claim", "user", subject, began, &res, &err) }()

	if !s.userMeta.SupportsClaims {
		err = ErrClaimsUnsupported
		return res, err
	}
	users := s.store.Users(ctx)
	if _, ferr := users.Find(ctx, subject); ferr != nil {
		if errors.Is(ferr, ErrNotFound) {
			return Fail[Unit](invalidSubject), nil
		}
		return Fail[Unit](failureStrings(ferr)...), nil
	}
	existing, cerr := users.Claims(ctx, subject)
	if cerr != nil {
		return Fail[Unit](failureStrings(cerr)...), nil
	}
	for _, c := range existing {
		if c == claim {
			return Ok(Unit{}), nil
		}
	}
	if aerr := users.AddClaim(ctx, subject, claim); aerr != nil {
		return Fail[Unit](failureStrings(aerr)...), nil
	}
	return Ok(Unit{}), nil
}

// RemoveUserClaim delegates removal to the store; behavior for an absent
// claim is store-defined.
func (s *Service) RemoveUserClaim(ctx context.Context, subject string, claim Claim) (res Result[Unit], err error) {
	began := time.Now()
	defer func() { finishOp("remove_claim", "user", subject, began, &res, &err) }()

	if !s.userMeta.SupportsClaims {
		err = ErrClaimsUnsupported
		return res, err
	}
	users := s.store.Users(ctx)
	if _, ferr := users.Find(ctx, subject); ferr != nil {
		if errors.Is(ferr, ErrNotFound) {
			return Fail[Unit](invalidSubject), nil
		}
		return Fail[Unit](failureStrings(ferr)...), nil
	}
	if rerr := users.RemoveClaim(ctx, subject, claim); rerr != nil {
		return Fail[Unit](failureStrings(rerr)...), nil
	}
	return Ok(Unit{}), nil
}

// roleStore gates every role operation on role support.
func (s *Service) roleStore(ctx context.Context) (RoleStore, error) {
	if s.roleMeta == nil {
		return nil, ErrRolesUnsupported
	}
	roles := s.store.Roles(ctx)
	if roles == nil {
		return nil, ErrRolesUnsupported
	}
	return roles, nil
}

// QueryRoles pages the role collection ordered by name.
func (s *Service) QueryRoles(ctx context.Context, filter string, start, count int) (res Result[QueryResult[RoleSummary]], err error) {
	began := time.Now()
	defer func() { finishOp("query", "role", "", began, &res, &err) }()

	roles, rerr := s.roleStore(ctx)
	if rerr != nil {
		err = rerr
		return res, err
	}
	all, lerr := roles.List(ctx)
	if lerr != nil {
		return Fail[QueryResult[RoleSummary]](failureStrings(lerr)...), nil
	}
	page := Page(all, func(r *Role) string { return r.Name }, filter, start, count)
	items := make([]RoleSummary, 0, len(page.Items))
	for _, r := range page.Items {
		items = append(items, RoleSummary{Subject: r.Subject, Name: r.Name})
	}
	return Ok(QueryResult[RoleSummary]{
		Start:  page.Start,
		Count:  page.Count,
		Total:  page.Total,
		Filter: page.Filter,
		Items:  items,
	}), nil
}

// CreateRole mirrors CreateUser: exactly one name property is required,
// every supplied property is applied in memory, persistence happens once.
func (s *Service) CreateRole(ctx context.Context, props []PropertyValue) (res Result[CreateResult], err error) {
	began := time.Now()
	defer func() { finishOp("create", "role", res.Value.Subject, began, &res, &err) }()

	roles, rerr := s.roleStore(ctx)
	if rerr != nil {
		err = rerr
		return res, err
	}
	if err = requireExactlyOne(props, PropertyName); err != nil {
		return res, err
	}

	now := s.now().UTC()
	r := &Role{Subject: ids.NewSubject(), CreatedAt: now, UpdatedAt: now}
	for _, p := range props {
		found, aerr := s.roleMeta.Create.Apply(ctx, r, p.Type, p.Value)
		if !found {
			err = fmt.Errorf("%w: %q", ErrUnknownProperty, p.Type)
			return res, err
		}
		if aerr != nil {
			return Fail[CreateResult](failureStrings(aerr)...), nil
		}
	}
	if serr := roles.Create(ctx, r); serr != nil {
		return Fail[CreateResult](failureStrings(serr)...), nil
	}
	return Ok(CreateResult{Subject: r.Subject}), nil
}

// DeleteRole removes a role; an unknown subject is the designated failure.
func (s *Service) DeleteRole(ctx context.Context, subject string) (res Result[Unit], err error) {
	began := time.Now()
	defer func() { finishOp("delete", "role", subject, began, &res, &err) }()

	roles, rerr := s.roleStore(ctx)
	if rerr != nil {
		err = rerr
		return res, err
	}
	if _, ferr := roles.Find(ctx, subject); ferr != nil {
		if errors.Is(ferr, ErrNotFound) {
			return Fail[Unit](invalidSubject), nil
		}
		return Fail[Unit](failureStrings(ferr)...), nil
	}
	if derr := roles.Delete(ctx, subject); derr != nil {
		return Fail[Unit](failureStrings(derr)...), nil
	}
	return Ok(Unit{}), nil
}

// GetRole loads a role detail; an unknown subject is a successful nil.
func (s *Service) GetRole(ctx context.Context, subject string) (res Result[*RoleDetail], err error) {
	began := time.Now()
	defer func() { finishOp("get", "role", subject, began, &res, &err) }()

	roles, rerr := s.roleStore(ctx)
	if rerr != nil {
		err = rerr
		return res, err
	}
	r, ferr := roles.Find(ctx, subject)
	if ferr != nil {
		if errors.Is(ferr, ErrNotFound) {
			return Ok[*RoleDetail](nil), nil
		}
		return Fail[*RoleDetail](failureStrings(ferr)...), nil
	}
	detail := &RoleDetail{Subject: r.Subject}
	for _, d := range s.roleMeta.Update.Descriptors() {
		value, _ := s.roleMeta.Update.Value(r, d.Type())
		detail.Properties = append(detail.Properties, PropertyValue{Type: d.Type(), Value: value})
	}
	return Ok(detail), nil
}

// SetRoleProperty mirrors SetUserProperty for roles.
func (s *Service) SetRoleProperty(ctx context.Context, subject, ptype, value string) (res Result[Unit], err error) {
	began := time.Now()
	defer func() { finishOp("set_property", "role", subject, began, &res, &err) }()

	roles, rerr := s.roleStore(ctx)
	if rerr != nil {
		err = rerr
		return res, err
	}
	if s.validateRole != nil {
		if msgs := s.validateRole(ctx, subject, ptype, value); len(msgs) > 0 {
			return Fail[Unit](msgs...), nil
		}
	}

	r, ferr := roles.Find(ctx, subject)
	if ferr != nil {
		if errors.Is(ferr, ErrNotFound) {
			return Fail[Unit](invalidSubject), nil
		}
		return Fail[Unit](failureStrings(ferr)...), nil
	}
	found, aerr := s.roleMeta.Update.Apply(ctx, r, ptype, value)
	if !found {
		err = fmt.Errorf("%w: %q", ErrUnknownProperty, ptype)
		return res, err
	}
	if aerr != nil {
		return Fail[Unit](failureStrings(aerr)...), nil
	}
	r.UpdatedAt = s.now().UTC()
	if serr := roles.Update(ctx, r); serr != nil {
		return Fail[Unit](failureStrings(serr)...), nil
	}
	return Ok(Unit{}), nil
}

func requireExactlyOne(props []PropertyValue, ptype string) error {
	n := 0
	for _, p := range props {
		if p.Type == ptype {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("%w: exactly one %q property is required", ErrMissingRequired, ptype)
	}
	return nil
}
