package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal24h/key-building-app/internal/config"
	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
)

type fakeCodeStore struct {
	values map[string]string
}

func (f *fakeCodeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeCodeStore) GetDel(ctx context.Context, key string) (string, error) {
	v := f.values[key]
	delete(f.values, key)
	return v, nil
}

type fakeMailer struct {
	to      string
	subject string
	plain   string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, plain, html string) error {
	f.to, f.subject, f.plain = to, subject, plain
	return nil
}

type fakeProfileStore struct {
	nextID   int64
	profiles map[string]*domain.UserProfile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: map[string]*domain.UserProfile{}}
}

func (f *fakeProfileStore) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	p, ok := f.profiles[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) GetByID(ctx context.Context, id int64) (*domain.UserProfile, error) {
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProfileStore) Create(ctx context.Context, in repository.CreateProfileParams) (*domain.UserProfile, error) {
	f.nextID++
	p := &domain.UserProfile{ID: f.nextID, Name: in.Name, Email: in.Email, Phone: in.Phone, Role: in.Role}
	f.profiles[in.Email] = p
	return p, nil
}

var codePattern = regexp.MustCompile(`\d{6}`)

func newAuthService() (AuthService, *fakeCodeStore, *fakeMailer, *fakeProfileStore) {
	codes := &fakeCodeStore{values: map[string]string{}}
	mailer := &fakeMailer{}
	profiles := newFakeProfileStore()
	svc := AuthService{
		Config: config.Config{
			JWTSecret:        "test-secret",
			AccessTokenTTL:   time.Hour,
			RefreshTokenTTL:  24 * time.Hour,
			OTPCodeLength:    6,
			OTPCodeTTL:       5 * time.Minute,
			OrganizationName: "Key Building",
		},
		Profiles: profiles,
		Codes:    codes,
		Mailer:   mailer,
		Logger:   testLogger(),
	}
	return svc, codes, mailer, profiles
}

func TestRequestCodeStoresHashAndMailsCode(t *testing.T) {
	svc, codes, mailer, _ := newAuthService()

	err := svc.RequestCode(context.Background(), "  Rita@Example.COM ")
	require.NoError(t, err)

	assert.Equal(t, "rita@example.com", mailer.to)
	code := codePattern.FindString(mailer.plain)
	require.Len(t, code, 6)

	// only the hash is at rest, never the code itself
	stored := codes.values["otp:rita@example.com"]
	require.NotEmpty(t, stored)
	assert.NotContains(t, stored, code)
}

func TestVerifyCodeCreatesResidentProfile(t *testing.T) {
	svc, _, mailer, profiles := newAuthService()

	require.NoError(t, svc.RequestCode(context.Background(), "rita@example.com"))
	code := codePattern.FindString(mailer.plain)

	res, err := svc.VerifyCode(context.Background(), VerifyCodeInput{
		Email: "rita@example.com",
		Code:  code,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleResident, res.Profile.Role)
	assert.Equal(t, "rita", res.Profile.Name)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	_, err = profiles.GetByEmail(context.Background(), "rita@example.com")
	assert.NoError(t, err)
}

func TestVerifyCodeKeepsExistingProfileRole(t *testing.T) {
	svc, _, mailer, profiles := newAuthService()
	_, err := profiles.Create(context.Background(), repository.CreateProfileParams{
		Name: "Max", Email: "max@example.com", Role: domain.RoleManager,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RequestCode(context.Background(), "max@example.com"))
	code := codePattern.FindString(mailer.plain)

	res, err := svc.VerifyCode(context.Background(), VerifyCodeInput{Email: "max@example.com", Code: code})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, res.Profile.Role)
}

func TestVerifyCodeRejectsWrongCode(t *testing.T) {
	svc, _, _, _ := newAuthService()

	require.NoError(t, svc.RequestCode(context.Background(), "rita@example.com"))

	_, err := svc.VerifyCode(context.Background(), VerifyCodeInput{Email: "rita@example.com", Code: "000000"})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCodeCannotBeReplayed(t *testing.T) {
	svc, _, mailer, _ := newAuthService()

	require.NoError(t, svc.RequestCode(context.Background(), "rita@example.com"))
	code := codePattern.FindString(mailer.plain)

	_, err := svc.VerifyCode(context.Background(), VerifyCodeInput{Email: "rita@example.com", Code: code})
	require.NoError(t, err)

	_, err = svc.VerifyCode(context.Background(), VerifyCodeInput{Email: "rita@example.com", Code: code})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCodeWithoutRequest(t *testing.T) {
	svc, _, _, _ := newAuthService()
	_, err := svc.VerifyCode(context.Background(), VerifyCodeInput{Email: "nobody@example.com", Code: "123456"})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestRefreshRoundTrip(t *testing.T) {
	svc, _, mailer, _ := newAuthService()

	require.NoError(t, svc.RequestCode(context.Background(), "rita@example.com"))
	code := codePattern.FindString(mailer.plain)
	first, err := svc.VerifyCode(context.Background(), VerifyCodeInput{Email: "rita@example.com", Code: code})
	require.NoError(t, err)

	res, err := svc.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, first.Profile.ID, res.Profile.ID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, mailer, _ := newAuthService()

	require.NoError(t, svc.RequestCode(context.Background(), "rita@example.com"))
	code := codePattern.FindString(mailer.plain)
	first, err := svc.VerifyCode(context.Background(), VerifyCodeInput{Email: "rita@example.com", Code: code})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), first.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenCarriesRoleClaims(t *testing.T) {
	svc, _, mailer, _ := newAuthService()

	require.NoError(t, svc.RequestCode(context.Background(), "rita@example.com"))
	code := codePattern.FindString(mailer.plain)
	res, err := svc.VerifyCode(context.Background(), VerifyCodeInput{Email: "rita@example.com", Code: code})
	require.NoError(t, err)

	token, err := jwt.Parse(res.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "access", claims["token_type"])
	assert.Equal(t, "resident", claims["role"])
	assert.Equal(t, "rita@example.com", claims["email"])
}
