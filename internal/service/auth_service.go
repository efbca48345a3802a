package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kamal24h/key-building-app/internal/config"
	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/mail"
	"github.com/kamal24h/key-building-app/internal/repository"
)

var (
	ErrInvalidCode  = errors.New("invalid or expired code")
	ErrInvalidToken = errors.New("invalid token")
)

// CodeStore holds one-time login codes for their TTL. GetDel must consume
// the code so it cannot be replayed.
type CodeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
}

type ProfileStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	GetByID(ctx context.Context, id int64) (*domain.UserProfile, error)
	Create(ctx context.Context, p repository.CreateProfileParams) (*domain.UserProfile, error)
}

type AuthService struct {
	Config   config.Config
	Profiles ProfileStore
	Codes    CodeStore
	Mailer   mail.Mailer
	Logger   *slog.Logger
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Profile      domain.UserProfile
	ExpiresAt    time.Time
}

type VerifyCodeInput struct {
	Email string
	Code  string
	Name  string
	Phone string
}

// RequestCode emails a short-lived one-time code to the address. Only the
// bcrypt hash of the code is stored; requesting again overwrites any pending
// code for the same address.
func (s AuthService) RequestCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	code, err := generateCode(s.Config.OTPCodeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	if err := s.Codes.Set(ctx, codeKey(email), string(hash), s.Config.OTPCodeTTL); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	subject := fmt.Sprintf("%s login code", s.Config.OrganizationName)
	plain := fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, int(s.Config.OTPCodeTTL.Minutes()))
	html := fmt.Sprintf("<p>Your login code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", code, int(s.Config.OTPCodeTTL.Minutes()))
	if err := s.Mailer.Send(ctx, email, subject, plain, html); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

// VerifyCode exchanges a valid one-time code for tokens. First-time callers
// get a resident profile created on the spot; the admin and manager roles are
// only ever granted by an existing admin.
func (s AuthService) VerifyCode(ctx context.Context, in VerifyCodeInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	hash, err := s.Codes.GetDel(ctx, codeKey(email))
	if err != nil {
		return nil, fmt.Errorf("load code: %w", err)
	}
	if hash == "" {
		return nil, ErrInvalidCode
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(in.Code)); err != nil {
		return nil, ErrInvalidCode
	}

	profile, err := s.Profiles.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		name := in.Name
		if name == "" {
			name = email
			if i := strings.IndexByte(email, '@'); i > 0 {
				name = email[:i]
			}
		}
		profile, err = s.Profiles.Create(ctx, repository.CreateProfileParams{
			Name:  name,
			Email: email,
			Phone: in.Phone,
			Role:  domain.RoleResident,
		})
		if err != nil {
			if repository.IsDuplicate(err) {
				profile, err = s.Profiles.GetByEmail(ctx, email)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return s.issueTokens(profile)
}

func (s AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.Config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if claims["token_type"] != "refresh" {
		return nil, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	profile, err := s.Profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return s.issueTokens(profile)
}

func (s AuthService) issueTokens(profile *domain.UserProfile) (*AuthResult, error) {
	now := time.Now()
	accessExp := now.Add(s.Config.AccessTokenTTL)
	refreshExp := now.Add(s.Config.RefreshTokenTTL)

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        fmt.Sprintf("%d", profile.ID),
		"email":      profile.Email,
		"role":       profile.Role,
		"token_type": "access",
		"exp":        accessExp.Unix(),
		"iat":        now.Unix(),
	}).SignedString([]byte(s.Config.JWTSecret))
	if err != nil {
		return nil, err
	}

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        fmt.Sprintf("%d", profile.ID),
		"token_type": "refresh",
		"exp":        refreshExp.Unix(),
		"iat":        now.Unix(),
	}).SignedString([]byte(s.Config.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Profile:      *profile,
		ExpiresAt:    accessExp,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func codeKey(email string) string { return "otp:" + email }

func generateCode(n int) (string, error) {
	const digits = "0123456789"
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf), nil
}
