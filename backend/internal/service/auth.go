package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sawatantra/api/backend/internal/utils"
	"github.com/sawatantra/api/shared/config"
	"github.com/sawatantra/api/shared/domain"
	"github.com/sawatantra/api/shared/errors"
	"github.com/sawatantra/api/shared/logger"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, creds domain.Credentials, name string) error
	CheckConfirmationCode(ctx context.Context, email domain.Email, confirmationCode string) error
	Login(ctx context.Context, creds domain.Credentials) (string, error)
}

type Auth struct {
	storage AuthStorage
	email   Email
	jwt     Jwt
	cfg     *config.Public
}

type AuthStorage interface {
	User(ctx context.Context, email domain.Email) (domain.User, error)
	SaveConfirmationData(ctx context.Context, data domain.ConfirmationData) error
	ConfirmationData(ctx context.Context, email domain.Email) (domain.ConfirmationData, error)
	DeleteConfirmationData(ctx context.Context, email domain.Email) error
	ConfirmUser(ctx context.Context, user domain.User) (domain.UserId, error)
}

type Email interface {
	Send(recipientEmail, subject, body string) error
	IsCorrect(email domain.Email) error
}

type Jwt interface {
	NewToken(user domain.User) (string, error)
}

func NewAuth(storage AuthStorage, email Email, jwt Jwt, cfg *config.Public) *Auth {
	return &Auth{
		storage: storage,
		email:   email,
		jwt:     jwt,
		cfg:     cfg,
	}
}

var (
	errUserExists         = &errors.ErrorWithStatusCode{Message: "User already exists", StatusCode: http.StatusConflict}
	errInvalidCredentials = &errors.ErrorWithStatusCode{Message: "Invalid credentials", StatusCode: http.StatusUnauthorized}
)

// Register sends a confirmation code to the email and keeps the pending
// registration until the code is confirmed or expires.
func (a *Auth) Register(ctx context.Context, creds domain.Credentials, name string) error {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if err := a.email.IsCorrect(email); err != nil {
		return err
	}
	name = strings.TrimSpace(name)

	_, err := a.storage.User(ctx, email)
	if err == nil {
		return errUserExists
	}
	if !errors.IsNotFound(err) {
		return err
	}

	cData, err := a.storage.ConfirmationData(ctx, email)
	if err != nil && !errors.IsNotFound(err) { // if there is error, and error is not "not found"
		return err
	}
	if err == nil { // data presented, check expiration
		if cData.Expires.Before(time.Now()) {
			if err := a.storage.DeleteConfirmationData(ctx, email); err != nil {
				return err
			}
		} else {
			diff := time.Until(cData.Expires)
			return &errors.ErrorWithStatusCode{Message: fmt.Sprintf("Previous confirmation code is still valid. Retry after %.0fs", diff.Seconds()), StatusCode: http.StatusTooEarly}
		}
	}

	confirmationCode := utils.GenerateConfirmationCode(a.cfg.ConfirmationCodeLen)
	passHash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return err
	}
	confirmationCodeHash, err := bcrypt.GenerateFromPassword([]byte(confirmationCode), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash confirmation code", "error", err)
		return err
	}
	err = a.storage.SaveConfirmationData(ctx, domain.ConfirmationData{
		Email:                email,
		Name:                 name,
		NewPassHash:          string(passHash),
		ConfirmationCodeHash: string(confirmationCodeHash),
		Expires:              time.Now().UTC().Add(a.cfg.ConfirmationTTL),
	})
	if err != nil {
		return err
	}

	emailBody := fmt.Sprintf(`
		Hello %s,

		Your confirmation code below

		%s

		The code expires in %s. If you did not request this, please ignore this email.
	`, name, confirmationCode, a.cfg.ConfirmationTTL)

	return a.email.Send(email, "Please confirm your email address", emailBody)
}

// CheckConfirmationCode creates the account registered with Register.
func (a *Auth) CheckConfirmationCode(ctx context.Context, email domain.Email, confirmationCode string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := a.email.IsCorrect(email); err != nil {
		return err
	}

	data, err := a.storage.ConfirmationData(ctx, email)
	if err != nil {
		return err
	}
	if data.Expires.Before(time.Now()) {
		return &errors.ErrorWithStatusCode{Message: "Confirmation time expired", StatusCode: http.StatusBadRequest}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(data.ConfirmationCodeHash), []byte(confirmationCode)); err != nil {
		logger.Log.Info("confirmation code verification failed", "email", email)
		return &errors.ErrorWithStatusCode{Message: "Wrong confirmation code", StatusCode: http.StatusBadRequest}
	}

	id, err := a.storage.ConfirmUser(ctx, domain.User{Email: email, Name: data.Name, PassHash: data.NewPassHash})
	if err != nil {
		return err
	}
	logger.Log.Info("user registered", "user_id", id)

	body := fmt.Sprintf(`
		Hello %s,

		Your account is ready. Welcome aboard!
	`, data.Name)
	if err := a.email.Send(email, "Welcome", body); err != nil {
		// the account exists already, a lost welcome email is not worth failing the request
		logger.Log.Warn("failed to send welcome email", "user_id", id, "error", err)
	}
	return nil
}

// Login checks if user with given credentials exists in the system and returns access token.
func (a *Auth) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	if err := a.email.IsCorrect(email); err != nil {
		return "", err
	}

	user, err := a.storage.User(ctx, email)
	if err != nil {
		// to not leak existing users
		if errors.IsNotFound(err) {
			return "", errInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(creds.Password)); err != nil {
		logger.Log.Info("password verification failed", "user_id", user.Id)
		return "", errInvalidCredentials
	}

	token, err := a.jwt.NewToken(user)
	if err != nil {
		logger.Log.Error("failed to create jwt token", "user_id", user.Id, "error", err)
		return "", err
	}

	return token, nil
}
