package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medinexus/twin/internal/platform/auth"
	"github.com/medinexus/twin/pkg/apperr"
)

// ErrInvalidCredentials covers both unknown email and wrong password,
// so login failures never reveal whether an account exists.
var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLength = 8

// dateLayout is the wire format for date_of_birth.
const dateLayout = "2006-01-02"

type Service struct {
	users   Repository
	tokens  *auth.TokenIssuer
	revoked auth.RevocationList
}

func NewService(users Repository, tokens *auth.TokenIssuer, revoked auth.RevocationList) *Service {
	return &Service{users: users, tokens: tokens, revoked: revoked}
}

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	var missing []string
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.FullName == "" {
		missing = append(missing, "full_name")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("missing required fields", missing...)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("email is not a valid address", "email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least 8 characters", "password")
	}

	u := &User{Email: email, FullName: strings.TrimSpace(in.FullName)}
	if in.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, in.DateOfBirth)
		if err != nil {
			return nil, apperr.Validation("date_of_birth must be YYYY-MM-DD", "date_of_birth")
		}
		u.DateOfBirth = &dob
	}
	if in.Gender != "" {
		gender := in.Gender
		u.Gender = &gender
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Persistence("hash password", err)
	}
	u.PasswordHash = string(hash)

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.authResponse(u)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("email and password are required", "email", "password")
	}

	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if apperr.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.authResponse(u)
}

func (s *Service) authResponse(u *User) (*AuthResponse, error) {
	token, claims, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, apperr.Persistence("issue token", err)
	}
	return &AuthResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// ProfileInput updates only the fields it carries; nil leaves a field
// untouched and an empty gender or phone clears it.
type ProfileInput struct {
	FullName    *string `json:"full_name"`
	DateOfBirth *string `json:"date_of_birth"`
	Gender      *string `json:"gender"`
	Phone       *string `json:"phone"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, apperr.Validation("full_name cannot be empty", "full_name")
		}
		u.FullName = name
	}
	if in.DateOfBirth != nil {
		if *in.DateOfBirth == "" {
			u.DateOfBirth = nil
		} else {
			dob, err := time.Parse(dateLayout, *in.DateOfBirth)
			if err != nil {
				return nil, apperr.Validation("date_of_birth must be YYYY-MM-DD", "date_of_birth")
			}
			u.DateOfBirth = &dob
		}
	}
	if in.Gender != nil {
		u.Gender = optionalField(*in.Gender)
	}
	if in.Phone != nil {
		u.Phone = optionalField(*in.Phone)
	}

	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout revokes the presented token until its natural expiry. Already
// expired tokens need no entry; the verifier rejects them anyway.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperr.Persistence("revoke token", err)
	}
	return nil
}

func optionalField(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
