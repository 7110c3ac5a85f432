package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubTokens records issued purposes and can be told to fail.
type stubTokens struct {
	issued       []string
	failGenerate bool
	failRedeem   bool
}

func (s *stubTokens) Generate(_ context.Context, purpose, subject string) (string, error) {
	if s.failGenerate {
		return "", errors.New("token service unavailable")
	}
	s.issued = append(s.issued, purpose)
	return purpose + ":" + subject, nil
}

func (s *stubTokens) Redeem(_ context.Context, purpose, subject, token string) error {
	if s.failRedeem || token != purpose+":"+subject {
		return errors.New("invalid token")
	}
	return nil
}

func testUserMeta(t *testing.T, caps Capabilities, ts TokenSource) *EntityMetadata[User] {
	t.Helper()
	meta, err := StandardUserMetadata(caps, ts, time.Now)
	if err != nil {
		t.Fatalf("StandardUserMetadata: %v", err)
	}
	return meta
}

func TestStandardUserMetadataFollowsCapabilities(t *testing.T) {
	meta := testUserMeta(t, AllCapabilities(), &stubTokens{})

	var create, update []string
	for _, d := range meta.Create.Descriptors() {
		create = append(create, d.Type())
	}
	for _, d := range meta.Update.Descriptors() {
		update = append(update, d.Type())
	}
	wantCreate := []string{PropertyUsername, PropertyPassword}
	wantUpdate := []string{PropertyUsername, PropertyPassword, PropertyEmail, PropertyPhone, PropertyTwoFactor, PropertyLocked}
	if len(create) != len(wantCreate) {
		t.Fatalf("create properties = %v, want %v", create, wantCreate)
	}
	for i := range wantCreate {
		if create[i] != wantCreate[i] {
			t.Fatalf("create properties = %v, want %v", create, wantCreate)
		}
	}
	for i := range wantUpdate {
		if update[i] != wantUpdate[i] {
			t.Fatalf("update properties = %v, want %v", update, wantUpdate)
		}
	}
	if !meta.SupportsClaims {
		t.Fatalf("expected claims support")
	}

	bare := testUserMeta(t, Capabilities{}, &stubTokens{})
	if len(bare.Update.Descriptors()) != 1 {
		t.Fatalf("capability-free update set should hold only username, got %d", len(bare.Update.Descriptors()))
	}
	if bare.SupportsClaims {
		t.Fatalf("unexpected claims support")
	}
}

func TestPasswordSetterIsResetRoundTrip(t *testing.T) {
	ts := &stubTokens{}
	meta := testUserMeta(t, AllCapabilities(), ts)
	u := &User{Subject: "sub-1"}

	found, err := meta.Update.Apply(context.Background(), u, PropertyPassword, "P@ss1")
	if !found || err != nil {
		t.Fatalf("apply password: found=%v err=%v", found, err)
	}
	if err := VerifyPassword(u.PasswordHash, "P@ss1"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
	if len(ts.issued) != 1 || ts.issued[0] != "password_reset" {
		t.Fatalf("expected one password_reset token, got %v", ts.issued)
	}
	if value, _ := meta.Update.Value(u, PropertyPassword); value != "" {
		t.Fatalf("password getter must report blank, got %q", value)
	}
}

func TestPasswordSetterFailsWhenTokensFail(t *testing.T) {
	meta := testUserMeta(t, AllCapabilities(), &stubTokens{failGenerate: true})
	u := &User{Subject: "sub-1"}
	if _, err := meta.Update.Apply(context.Background(), u, PropertyPassword, "P@ss1"); err == nil {
		t.Fatalf("expected token failure")
	}
	if u.PasswordHash != "" {
		t.Fatalf("hash must not be written on failure")
	}
}

func TestEmailSetterConfirms(t *testing.T) {
	ts := &stubTokens{}
	meta := testUserMeta(t, AllCapabilities(), ts)
	u := &User{Subject: "sub-1"}

	if _, err := meta.Update.Apply(context.Background(), u, PropertyEmail, " A@X.com "); err != nil {
		t.Fatalf("apply email: %v", err)
	}
	if u.Email != "a@x.com" || !u.EmailConfirmed {
		t.Fatalf("email not normalized and confirmed: %+v", u)
	}
	if len(ts.issued) != 1 || ts.issued[0] != "email_confirm" {
		t.Fatalf("expected one email_confirm token, got %v", ts.issued)
	}

	// Blank clears the address without a confirmation round trip.
	if _, err := meta.Update.Apply(context.Background(), u, PropertyEmail, ""); err != nil {
		t.Fatalf("clear email: %v", err)
	}
	if u.Email != "" || u.EmailConfirmed {
		t.Fatalf("email not cleared: %+v", u)
	}
	if len(ts.issued) != 1 {
		t.Fatalf("blank email must not issue tokens, got %v", ts.issued)
	}

	if _, err := meta.Update.Apply(context.Background(), u, PropertyEmail, "not-an-address"); err == nil {
		t.Fatalf("expected validation failure")
	}
}

func TestPhoneSetterConfirms(t *testing.T) {
	ts := &stubTokens{}
	meta := testUserMeta(t, AllCapabilities(), ts)
	u := &User{Subject: "sub-1"}

	if _, err := meta.Update.Apply(context.Background(), u, PropertyPhone, "+7 701 000 0000"); err != nil {
		t.Fatalf("apply phone: %v", err)
	}
	if !u.PhoneConfirmed || u.Phone == "" {
		t.Fatalf("phone not set and confirmed: %+v", u)
	}
	if len(ts.issued) != 1 || ts.issued[0] != "phone_change" {
		t.Fatalf("expected one phone_change token, got %v", ts.issued)
	}
}

func TestLockedDerivation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta, err := StandardUserMetadata(AllCapabilities(), &stubTokens{}, func() time.Time { return now })
	if err != nil {
		t.Fatalf("StandardUserMetadata: %v", err)
	}
	u := &User{Subject: "sub-1", LockoutEnabled: true}

	if value, _ := meta.Update.Value(u, PropertyLocked); value != "false" {
		t.Fatalf("fresh user reported locked")
	}
	if _, err := meta.Update.Apply(context.Background(), u, PropertyLocked, "true"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if value, _ := meta.Update.Value(u, PropertyLocked); value != "true" {
		t.Fatalf("locked round trip failed: lockout end %v", u.LockoutEnd)
	}
	if _, err := meta.Update.Apply(context.Background(), u, PropertyLocked, "false"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if value, _ := meta.Update.Value(u, PropertyLocked); value != "false" {
		t.Fatalf("unlock round trip failed: lockout end %v", u.LockoutEnd)
	}

	if _, err := meta.Update.Apply(context.Background(), u, PropertyLocked, "maybe"); err == nil {
		t.Fatalf("expected boolean validation failure")
	}

	u.LockoutEnabled = false
	if _, err := meta.Update.Apply(context.Background(), u, PropertyLocked, "true"); err == nil {
		t.Fatalf("expected failure when lockout disabled for the user")
	}
}

func TestTwoFactorSetter(t *testing.T) {
	meta := testUserMeta(t, AllCapabilities(), &stubTokens{})
	u := &User{Subject: "sub-1"}

	if _, err := meta.Update.Apply(context.Background(), u, PropertyTwoFactor, "true"); err != nil {
		t.Fatalf("enable two factor: %v", err)
	}
	if !u.TwoFactorEnabled {
		t.Fatalf("two factor not enabled")
	}
	if _, err := meta.Update.Apply(context.Background(), u, PropertyTwoFactor, "sometimes"); err == nil {
		t.Fatalf("expected boolean validation failure")
	}
}

func TestStandardRoleMetadata(t *testing.T) {
	meta, err := StandardRoleMetadata()
	if err != nil {
		t.Fatalf("StandardRoleMetadata: %v", err)
	}
	r := &Role{Subject: "role-1"}

	if _, err := meta.Update.Apply(context.Background(), r, PropertyName, ""); err == nil {
		t.Fatalf("blank role name must fail")
	}
	if _, err := meta.Update.Apply(context.Background(), r, PropertyName, "admin"); err != nil {
		t.Fatalf("set role name: %v", err)
	}
	if _, err := meta.Update.Apply(context.Background(), r, PropertyDescription, "full access"); err != nil {
		t.Fatalf("set role description: %v", err)
	}
	if r.Name != "admin" || r.Description != "full access" {
		t.Fatalf("role not updated: %+v", r)
	}
}
