package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Sharon404/wallet-app/internal/models"
	"github.com/Sharon404/wallet-app/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	byID    map[uint]*models.User
	byEmail map[string]*models.User
	nextID  uint
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:    make(map[uint]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.nextID++
	user.ID = f.nextID
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) Update(ctx context.Context, user *models.User) error {
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return nil
}

// fakeLedger implements only wallet creation; the embedded interface
// panics if anything else is touched.
type fakeLedger struct {
	repositories.Ledger
	wallets map[uint]string // user id -> currency
}

func (f *fakeLedger) GetOrCreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	if f.wallets == nil {
		f.wallets = make(map[uint]string)
	}
	f.wallets[userID] = currency
	return &models.Wallet{ID: userID, UserID: userID, Currency: currency}, nil
}

type fakeCodes struct {
	values map[string]interface{}
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{values: make(map[string]interface{})}
}

func (f *fakeCodes) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeCodes) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	v, ok := f.values[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *string:
		*d = v.(string)
	case *uint:
		*d = v.(uint)
	}
	return true, nil
}

func (f *fakeCodes) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

type fakeNotifier struct {
	otps        []string
	activations []string
}

func (f *fakeNotifier) SendOtp(ctx context.Context, user *models.User, code string) {
	f.otps = append(f.otps, code)
}

func (f *fakeNotifier) SendActivation(ctx context.Context, user *models.User, token string) {
	f.activations = append(f.activations, token)
}

type authFixture struct {
	users    *fakeUsers
	ledger   *fakeLedger
	codes    *fakeCodes
	notifier *fakeNotifier
	svc      Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	f := &authFixture{
		users:    newFakeUsers(),
		ledger:   &fakeLedger{},
		codes:    newFakeCodes(),
		notifier: &fakeNotifier{},
	}
	f.svc = NewService(f.users, f.ledger, f.codes, f.notifier)
	return f
}

func (f *authFixture) register(t *testing.T) *models.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: "str0ng-pass!",
		Currency: "kes",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterCreatesWalletAndActivation(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)

	assert.False(t, user.Active, "accounts start inactive")
	assert.Equal(t, "KES", f.ledger.wallets[user.ID], "wallet created at registration")
	require.Len(t, f.notifier.activations, 1)

	// Password is stored hashed.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("str0ng-pass!")))
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: "password",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: "str0ng-pass!",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsUnknownCurrency(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: "str0ng-pass!",
		Currency: "XXX",
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported currency"))
}

func TestActivate(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)
	token := f.notifier.activations[0]

	require.NoError(t, f.svc.Activate(context.Background(), token))
	assert.True(t, f.users.byID[user.ID].Active)

	// Consumed token cannot be reused.
	assert.ErrorIs(t, f.svc.Activate(context.Background(), token), ErrInvalidToken)
}

func TestLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)
	require.NoError(t, f.svc.Activate(context.Background(), f.notifier.activations[0]))

	// Wrong password.
	_, err := f.svc.Login(context.Background(), user.Email, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Correct password sends an OTP but no tokens yet.
	_, err = f.svc.Login(context.Background(), user.Email, "str0ng-pass!")
	require.NoError(t, err)
	require.Len(t, f.notifier.otps, 1)

	// Wrong OTP.
	_, _, _, err = f.svc.VerifyLoginOtp(context.Background(), user.Email, "000000")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Right OTP issues a token pair.
	_, access, refresh, err := f.svc.VerifyLoginOtp(context.Background(), user.Email, f.notifier.otps[0])
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	// The code was consumed.
	_, _, _, err = f.svc.VerifyLoginOtp(context.Background(), user.Email, f.notifier.otps[0])
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)

	_, err := f.svc.Login(context.Background(), user.Email, "str0ng-pass!")
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestPinLifecycle(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)
	ctx := context.Background()

	// No PIN set: verification fails closed.
	assert.False(t, f.svc.VerifyPin(ctx, user.ID, "123456"))
	assert.False(t, f.svc.VerifyPin(ctx, user.ID, ""))

	assert.Error(t, f.svc.SetPin(ctx, user.ID, "12ab56"))
	assert.Error(t, f.svc.SetPin(ctx, user.ID, "1234"))
	require.NoError(t, f.svc.SetPin(ctx, user.ID, "123456"))

	assert.True(t, f.svc.VerifyPin(ctx, user.ID, "123456"))
	assert.False(t, f.svc.VerifyPin(ctx, user.ID, "654321"))
	assert.False(t, f.svc.VerifyPin(ctx, 999, "123456"), "unknown user fails closed")
}

func TestOtpConsumedOnUse(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestOtp(ctx, user.ID))
	code := f.notifier.otps[0]

	assert.False(t, f.svc.VerifyOtp(ctx, user.ID, "wrong"))
	assert.True(t, f.svc.VerifyOtp(ctx, user.ID, code))
	assert.False(t, f.svc.VerifyOtp(ctx, user.ID, code), "second use rejected")
	assert.False(t, f.svc.VerifyOtp(ctx, user.ID, ""))
}

func TestLogoutInvalidatesTokens(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)
	before := user.TokenVersion

	require.NoError(t, f.svc.Logout(context.Background(), user.ID))
	assert.Equal(t, before+1, f.users.byID[user.ID].TokenVersion)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, user.ID, "wrong", "new-pass!123"), ErrInvalidCredentials)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, user.ID, "str0ng-pass!", "short"), ErrWeakPassword)
	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "str0ng-pass!", "new-pass!123"))

	stored := f.users.byID[user.ID]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("new-pass!123")))
}
