package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medinexus/twin/internal/platform/auth"
	"github.com/medinexus/twin/pkg/apperr"
)

type mockRepo struct {
	items   map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*User), byEmail: make(map[string]uuid.UUID)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return apperr.Validation("email is already registered", "email")
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.items[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockRepo) UpdateProfile(_ context.Context, u *User) error {
	if _, ok := m.items[u.ID]; !ok {
		return apperr.NotFound("user")
	}
	cp := *u
	m.items[u.ID] = &cp
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepo, *auth.TokenIssuer, *auth.MemoryRevocationList) {
	t.Helper()
	repo := newMockRepo()
	issuer := auth.NewTokenIssuer("test-secret", "twin-api", time.Hour)
	revoked := auth.NewMemoryRevocationList()
	t.Cleanup(revoked.Close)
	return NewService(repo, issuer, revoked), repo, issuer, revoked
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:    "amy@example.com",
		Password: "correct-horse",
		FullName: "Amy Santiago",
	}
}

func TestRegister(t *testing.T) {
	svc, repo, issuer, _ := newTestService(t)

	resp, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token == "" || resp.User == nil {
		t.Fatalf("response = %+v, want a token and the user", resp)
	}
	claims, err := issuer.Parse(resp.Token)
	if err != nil {
		t.Fatalf("the issued token does not verify: %v", err)
	}
	if claims.Subject != resp.User.ID.String() {
		t.Errorf("token subject = %q, want the user id", claims.Subject)
	}

	stored := repo.items[resp.User.ID]
	if stored.PasswordHash == "correct-horse" {
		t.Error("password must not be stored in the clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")) != nil {
		t.Error("stored hash does not verify the original password")
	}
}

func TestRegister_NormalizesEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	in := registerInput()
	in.Email = "  Amy@Example.COM "

	resp, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.User.Email != "amy@example.com" {
		t.Errorf("email = %q, want lowercased and trimmed", resp.User.Email)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := svc.Register(context.Background(), registerInput()); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for the duplicate, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	tests := []struct {
		name  string
		mod   func(*RegisterInput)
		field string
	}{
		{"missing email", func(in *RegisterInput) { in.Email = "" }, "email"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-address" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, "password"},
		{"missing name", func(in *RegisterInput) { in.FullName = "" }, "full_name"},
		{"bad birth date", func(in *RegisterInput) { in.DateOfBirth = "03/14/1990" }, "date_of_birth"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := registerInput()
			tc.mod(&in)
			_, err := svc.Register(context.Background(), in)
			if !apperr.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			fields := apperr.FieldsOf(err)
			found := false
			for _, f := range fields {
				if f == tc.field {
					found = true
				}
			}
			if !found {
				t.Errorf("fields = %v, want %q named", fields, tc.field)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("registering: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginInput{Email: "amy@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("registering: %v", err)
	}

	_, err := svc.Login(context.Background(), LoginInput{Email: "amy@example.com", Password: "battery-staple"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "correct-horse"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown account must look like a bad password, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _, issuer, revoked := newTestService(t)
	resp, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("registering: %v", err)
	}
	claims, err := issuer.Parse(resp.Token)
	if err != nil {
		t.Fatalf("parsing token: %v", err)
	}

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	isRevoked, err := revoked.IsRevoked(context.Background(), claims.ID)
	if err != nil {
		t.Fatalf("checking revocation: %v", err)
	}
	if !isRevoked {
		t.Error("the token must be revoked after logout")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	resp, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("registering: %v", err)
	}

	name := "Amy Santiago-Peralta"
	phone := "+1 555 0100"
	dob := "1990-03-14"
	u, err := svc.UpdateProfile(context.Background(), resp.User.ID, ProfileInput{
		FullName:    &name,
		Phone:       &phone,
		DateOfBirth: &dob,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.FullName != name || u.Phone == nil || *u.Phone != phone {
		t.Errorf("profile = %+v, want the updates applied", u)
	}
	if u.DateOfBirth == nil || u.DateOfBirth.Format(dateLayout) != dob {
		t.Errorf("date_of_birth = %v, want %s", u.DateOfBirth, dob)
	}
	if u.Email != "amy@example.com" {
		t.Error("profile update must not touch the email")
	}
}

func TestUpdateProfile_ClearsOptionalFields(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	in := registerInput()
	in.Gender = "female"
	resp, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("registering: %v", err)
	}

	empty := ""
	u, err := svc.UpdateProfile(context.Background(), resp.User.ID, ProfileInput{Gender: &empty})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Gender != nil {
		t.Errorf("gender = %v, want cleared", *u.Gender)
	}
}

func TestUpdateProfile_EmptyNameRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	resp, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("registering: %v", err)
	}

	empty := "   "
	if _, err := svc.UpdateProfile(context.Background(), resp.User.ID, ProfileInput{FullName: &empty}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
