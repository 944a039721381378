package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests dependency-free and easy
// to read — you can see exactly what the fake does.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
	// set to a non-nil error to simulate a database failure
	createErr   error
	setTokenErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		nextID: 1,
	}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("email already registered")
		}
	}
	user.ID = fmt.Sprintf("user-fake-id-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.GitHubID != 0 && u.GitHubID == user.GitHubID {
			u.Name = user.Name
			u.Email = user.Email
			*user = *u
			return nil
		}
	}
	return f.CreateUser(ctx, user)
}

func (f *fakeUserRepo) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	if f.setTokenErr != nil {
		return f.setTokenErr
	}
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpires = expires
	return nil
}

func (f *fakeUserRepo) ClearResetToken(ctx context.Context, userID string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.ResetTokenHash = ""
	u.ResetTokenExpires = time.Time{}
	return nil
}

func (f *fakeUserRepo) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	if tokenHash == "" {
		return nil, apperror.NotFound("reset token", tokenHash)
	}
	for _, u := range f.users {
		if u.ResetTokenHash == tokenHash && u.ResetTokenExpires.After(now) {
			return u, nil
		}
	}
	return nil, apperror.NotFound("reset token", tokenHash)
}

func (f *fakeUserRepo) CompletePasswordReset(ctx context.Context, userID, passwordHash string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenExpires = time.Time{}
	return nil
}

// fakeMailer records sent reset emails. Set sendErr to simulate an SMTP
// outage.
type fakeMailer struct {
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	to    string
	token string
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMail{to: to, token: token})
	return nil
}

// newTestAuthService returns an AuthService wired with fake dependencies.
// The TokenService uses a short secret, suitable for tests only.
func newTestAuthService(t *testing.T, repo *fakeUserRepo, mail *fakeMailer) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	ps := auth.NewPasswordServiceForTest(4)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthService(repo, ts, ps, mail, logger)
}

func registerTestUser(t *testing.T, svc *AuthService) *AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), "Alice", "alice@x.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return result
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_NewAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	result := registerTestUser(t, svc)

	if result.User.ID == "" {
		t.Error("User.ID should be set after create")
	}
	if result.Token == "" {
		t.Error("Register() should issue a session token")
	}
	if result.User.PasswordHash == "s3cret-pass" {
		t.Error("password must be stored hashed, not in clear")
	}
}

func TestRegister_NormalizesEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	result, err := svc.Register(context.Background(), "Alice", "  Alice@X.COM ", "s3cret-pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if result.User.Email != "alice@x.com" {
		t.Errorf("Email = %q, want %q", result.User.Email, "alice@x.com")
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})
	registerTestUser(t, svc)

	_, err := svc.Register(context.Background(), "Other Alice", "ALICE@x.com", "other-pass")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Register() error = %v, want ErrConflict", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	cases := []struct {
		name, userName, email, password string
	}{
		{"empty name", "", "a@x.com", "pass"},
		{"empty email", "Alice", "", "pass"},
		{"empty password", "Alice", "a@x.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.userName, tc.email, tc.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})
	registered := registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), "alice@x.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Errorf("logged-in user ID = %q, want %q", result.User.ID, registered.User.ID)
	}
	if result.Token == "" {
		t.Error("Login() should issue a session token")
	}
}

func TestLogin_WrongPasswordAndUnknownEmailLookTheSame(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})
	registerTestUser(t, svc)

	_, errWrongPass := svc.Login(context.Background(), "alice@x.com", "wrong")
	_, errNoUser := svc.Login(context.Background(), "nobody@x.com", "whatever")

	// Neither response may reveal whether the account exists.
	if !errors.Is(errWrongPass, apperror.ErrUnauthorized) {
		t.Fatalf("wrong password error = %v, want ErrUnauthorized", errWrongPass)
	}
	if !errors.Is(errNoUser, apperror.ErrUnauthorized) {
		t.Fatalf("unknown email error = %v, want ErrUnauthorized", errNoUser)
	}
	if errWrongPass.Error() != errNoUser.Error() {
		t.Errorf("messages differ: %q vs %q", errWrongPass, errNoUser)
	}
}

func TestLogin_OAuthAccountCannotPasswordLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	_, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octo@github.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	// The OAuth account has no password hash; any password must fail.
	_, err = svc.Login(context.Background(), "octo@github.com", "")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestLogin_LeavesResetTokenIntact(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})
	registered := registerTestUser(t, svc)

	raw, err := svc.ForgotPassword(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}

	if _, err := svc.Login(context.Background(), "alice@x.com", "s3cret-pass"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// The token issued before the login must still redeem.
	if err := svc.ResetPassword(context.Background(), raw, "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword() after login error = %v", err)
	}
	if _, err := svc.Login(context.Background(), "alice@x.com", "brand-new-pass"); err != nil {
		t.Fatalf("Login() with new password error = %v", err)
	}
	_ = registered
}

// =========================================================================
// ForgotPassword / ResetPassword TESTS
// =========================================================================

func TestForgotPassword_StoresDigestAndEmailsRawToken(t *testing.T) {
	repo := newFakeUserRepo()
	mail := &fakeMailer{}
	svc := newTestAuthService(t, repo, mail)
	registered := registerTestUser(t, svc)

	raw, err := svc.ForgotPassword(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}

	if len(mail.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mail.sent))
	}
	if mail.sent[0].to != "alice@x.com" || mail.sent[0].token != raw {
		t.Errorf("email = %+v, want raw token to alice@x.com", mail.sent[0])
	}

	stored := repo.users[registered.User.ID]
	if stored.ResetTokenHash == raw {
		t.Error("raw token must never be persisted, only its digest")
	}
	if stored.ResetTokenHash != auth.HashResetToken(raw) {
		t.Error("stored digest does not match the raw token")
	}
	if !stored.ResetTokenExpires.After(time.Now()) {
		t.Error("expiry should be set in the future")
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	_, err := svc.ForgotPassword(context.Background(), "nobody@x.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("ForgotPassword() error = %v, want ErrNotFound", err)
	}
}

func TestForgotPassword_NewRequestReplacesOldToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})
	registerTestUser(t, svc)

	first, err := svc.ForgotPassword(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("first ForgotPassword() error = %v", err)
	}
	second, err := svc.ForgotPassword(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("second ForgotPassword() error = %v", err)
	}

	if err := svc.ResetPassword(context.Background(), first, "new-pass"); err == nil {
		t.Error("old token should no longer redeem")
	}
	if err := svc.ResetPassword(context.Background(), second, "new-pass"); err != nil {
		t.Errorf("latest token should redeem, got %v", err)
	}
}

func TestForgotPassword_MailFailureRollsBackToken(t *testing.T) {
	repo := newFakeUserRepo()
	mail := &fakeMailer{sendErr: errors.New("smtp relay down")}
	svc := newTestAuthService(t, repo, mail)
	registered := registerTestUser(t, svc)

	_, err := svc.ForgotPassword(context.Background(), "alice@x.com")
	if err == nil {
		t.Fatal("ForgotPassword() should fail when the email cannot be sent")
	}

	stored := repo.users[registered.User.ID]
	if stored.ResetTokenHash != "" || !stored.ResetTokenExpires.IsZero() {
		t.Error("reset token should be cleared after a send failure")
	}
}

func TestResetPassword_FullLifecycle(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})
	registerTestUser(t, svc)

	raw, err := svc.ForgotPassword(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}

	if err := svc.ResetPassword(context.Background(), raw, "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// Old password is dead, new one works.
	if _, err := svc.Login(context.Background(), "alice@x.com", "s3cret-pass"); err == nil {
		t.Error("old password should no longer log in")
	}
	if _, err := svc.Login(context.Background(), "alice@x.com", "brand-new-pass"); err != nil {
		t.Errorf("new password should log in, got %v", err)
	}
}

func TestResetPassword_TokenIsSingleUse(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})
	registerTestUser(t, svc)

	raw, err := svc.ForgotPassword(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}

	if err := svc.ResetPassword(context.Background(), raw, "first-new-pass"); err != nil {
		t.Fatalf("first ResetPassword() error = %v", err)
	}
	err = svc.ResetPassword(context.Background(), raw, "second-new-pass")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("second ResetPassword() error = %v, want ErrValidation", err)
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})
	registerTestUser(t, svc)

	cases := []struct {
		name  string
		token string
	}{
		{"garbage token", "deadbeef"},
		{"empty token", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ResetPassword(context.Background(), tc.token, "new-pass")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("ResetPassword() error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Name: "The Octocat", Email: "octo@github.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.User.ID == "" {
		t.Error("User.ID should be set after upsert")
	}
	if result.User.Name != "The Octocat" {
		t.Errorf("User.Name = %q, want %q", result.User.Name, "The Octocat")
	}
	if result.Token == "" {
		t.Error("LoginOrRegisterGitHub() should issue a session token")
	}
}

func TestLoginOrRegisterGitHub_FallsBackToLoginForName(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 7, Login: "octocat", Email: "octo@github.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.Name != "octocat" {
		t.Errorf("User.Name = %q, want login fallback %q", result.User.Name, "octocat")
	}
}

func TestLoginOrRegisterGitHub_SecondLoginKeepsID(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	first, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 99, Login: "old-login", Email: "old@email.com",
	})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}

	second, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 99, Login: "new-login", Name: "New Name", Email: "new@email.com",
	})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("internal ID changed across logins: %q vs %q", second.User.ID, first.User.ID)
	}
	if second.User.Name != "New Name" {
		t.Errorf("User.Name = %q, want refreshed %q", second.User.Name, "New Name")
	}
}

func TestLoginOrRegisterGitHub_NilGitHubUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, &fakeMailer{})

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Fatal("LoginOrRegisterGitHub() should return error for nil GitHubUser")
	}
}

func TestRegister_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = errors.New("database is on fire")
	svc := newTestAuthService(t, repo, &fakeMailer{})

	if _, err := svc.Register(context.Background(), "Alice", "alice@x.com", "pass"); err == nil {
		t.Fatal("Register() should propagate repository errors")
	}
}
