package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecommerce/pkg/domain/model"
)

type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Age       int
	Gender    model.Gender
}

type IdentityService interface {
	Signup(ctx context.Context, input SignupInput) (*model.User, error)
	ResendOtp(ctx context.Context, email string) error
	ConfirmEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*model.TokenPair, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*model.TokenPair, error)
	ForgetPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, password string) error
	Refresh(ctx context.Context, prefix, refreshToken string) (*model.TokenPair, error)
	Profile(ctx context.Context, userID model.ObjectID) (*model.User, error)
	// Authenticate resolves the owner of an access token presented with prefix.
	Authenticate(ctx context.Context, prefix, accessToken string) (*model.User, error)
}

func NewIdentityService(
	users model.UserRepository,
	otps model.OtpRepository,
	hasher model.PasswordManager,
	generator model.OtpGenerator,
	tokens model.TokenIssuer,
	verifier model.IdentityVerifier,
	dispatcher EventDispatcher,
	otpTTL time.Duration,
) IdentityService {
	return &identityService{
		users:      users,
		otps:       otps,
		hasher:     hasher,
		generator:  generator,
		tokens:     tokens,
		verifier:   verifier,
		dispatcher: dispatcher,
		otpTTL:     otpTTL,
	}
}

type identityService struct {
	users      model.UserRepository
	otps       model.OtpRepository
	hasher     model.PasswordManager
	generator  model.OtpGenerator
	tokens     model.TokenIssuer
	verifier   model.IdentityVerifier
	dispatcher EventDispatcher
	otpTTL     time.Duration
}

func (s *identityService) Signup(ctx context.Context, input SignupInput) (*model.User, error) {
	email := normalizeEmail(input.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, model.ErrEmailTaken
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:                  s.users.NextID(),
		FirstName:           input.FirstName,
		LastName:            input.LastName,
		Email:               email,
		HashedPassword:      hashed,
		Age:                 input.Age,
		Gender:              input.Gender,
		Role:                model.RoleUser,
		Provider:            model.ProviderLocal,
		ChangeCredentialsAt: now,
		Wishlist:            []model.ObjectID{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.UserRegistered{UserID: user.ID, Email: email, Provider: model.ProviderLocal})
	if err := s.issueOtp(ctx, user, model.ConfirmEmail); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *identityService) ResendOtp(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user.Confirmed {
		return model.ErrAlreadyConfirmed
	}
	if _, err := s.otps.FindActive(ctx, user.ID, model.ConfirmEmail, time.Now().UTC()); err == nil {
		return model.ErrOtpAlreadySent
	} else if !errors.Is(err, model.ErrOtpNotFound) {
		return err
	}
	return s.issueOtp(ctx, user, model.ConfirmEmail)
}

func (s *identityService) ConfirmEmail(ctx context.Context, email, code string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user.Confirmed {
		return model.ErrAlreadyConfirmed
	}
	if err := s.consumeOtp(ctx, user, model.ConfirmEmail, code); err != nil {
		return err
	}

	user.Confirmed = true
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

func (s *identityService) Login(ctx context.Context, email, password string) (*model.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !user.Confirmed || user.Provider != model.ProviderLocal {
		return nil, model.ErrUserNotFound
	}

	ok, err := s.hasher.Check(user.HashedPassword, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrInvalidCredentials
	}
	return s.tokens.Issue(user)
}

func (s *identityService) LoginWithGoogle(ctx context.Context, idToken string) (*model.TokenPair, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if !identity.EmailVerified {
		return nil, model.ErrEmailNotVerified
	}

	email := normalizeEmail(identity.Email)
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Provider != model.ProviderGoogle {
			return nil, model.ErrProviderMismatch
		}
	case errors.Is(err, model.ErrUserNotFound):
		user, err = s.createGoogleUser(ctx, email, identity.Name)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s.tokens.Issue(user)
}

func (s *identityService) createGoogleUser(ctx context.Context, email, name string) (*model.User, error) {
	first, last := model.SplitUserName(name)
	now := time.Now().UTC()
	user := &model.User{
		ID:                  s.users.NextID(),
		FirstName:           first,
		LastName:            last,
		Email:               email,
		Role:                model.RoleUser,
		Provider:            model.ProviderGoogle,
		Confirmed:           true,
		ChangeCredentialsAt: now,
		Wishlist:            []model.ObjectID{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	_ = s.dispatcher.Dispatch(model.UserRegistered{UserID: user.ID, Email: email, Provider: model.ProviderGoogle})
	return user, nil
}

func (s *identityService) ForgetPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if !user.Confirmed || user.Provider != model.ProviderLocal {
		return model.ErrUserNotFound
	}
	if _, err := s.otps.FindActive(ctx, user.ID, model.ResetPassword, time.Now().UTC()); err == nil {
		return model.ErrOtpAlreadySent
	} else if !errors.Is(err, model.ErrOtpNotFound) {
		return err
	}
	return s.issueOtp(ctx, user, model.ResetPassword)
}

func (s *identityService) ResetPassword(ctx context.Context, email, code, password string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user.Provider != model.ProviderLocal {
		return model.ErrProviderMismatch
	}
	if err := s.consumeOtp(ctx, user, model.ResetPassword, code); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	user.HashedPassword = hashed
	user.ChangeCredentialsAt = now
	user.UpdatedAt = now
	return s.users.Update(ctx, user)
}

func (s *identityService) Refresh(ctx context.Context, prefix, refreshToken string) (*model.TokenPair, error) {
	user, err := s.resolve(ctx, prefix, model.RefreshToken, refreshToken)
	if err != nil {
		return nil, err
	}
	return s.tokens.Issue(user)
}

func (s *identityService) Profile(ctx context.Context, userID model.ObjectID) (*model.User, error) {
	return s.users.Find(ctx, userID)
}

func (s *identityService) Authenticate(ctx context.Context, prefix, accessToken string) (*model.User, error) {
	return s.resolve(ctx, prefix, model.AccessToken, accessToken)
}

func (s *identityService) resolve(ctx context.Context, prefix string, kind model.TokenKind, token string) (*model.User, error) {
	claims, err := s.tokens.Verify(prefix, kind, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Find(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidToken
		}
		return nil, err
	}
	if s.tokens.Prefix(user.Role) != prefix {
		return nil, model.ErrInvalidToken
	}
	if !user.Confirmed {
		return nil, model.ErrUserNotConfirmed
	}
	if claims.IssuedBefore(user.ChangeCredentialsAt) {
		return nil, model.ErrCredentialsChanged
	}
	return user, nil
}

func (s *identityService) issueOtp(ctx context.Context, user *model.User, purpose model.OtpPurpose) error {
	code, err := s.generator.Generate()
	if err != nil {
		return err
	}
	hashed, err := s.hasher.Hash(code)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	otp := &model.Otp{
		ID:        s.otps.NextID(),
		Code:      hashed,
		CreatedBy: user.ID,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.otpTTL),
		CreatedAt: now,
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.OtpIssued{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.UserName(),
		Purpose: purpose,
		Code:    code,
	})
	return nil
}

func (s *identityService) consumeOtp(ctx context.Context, user *model.User, purpose model.OtpPurpose, code string) error {
	otp, err := s.otps.FindActive(ctx, user.ID, purpose, time.Now().UTC())
	if err != nil {
		return err
	}
	ok, err := s.hasher.Check(otp.Code, code)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrOtpNotFound
	}
	return s.otps.Delete(ctx, otp.ID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
