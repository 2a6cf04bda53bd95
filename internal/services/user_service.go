// File: internal/services/user_service.go
package services

import (
    "context"
    "errors"

    "github.com/hyewonk/go-datatalk/internal/auth"
    "github.com/hyewonk/go-datatalk/internal/domain"
    userrepo "github.com/hyewonk/go-datatalk/internal/repository/user"
)

// UserService handles registration and credential login.
type UserService struct {
    userRepo  userrepo.UserRepository
    jwtSecret []byte
}

func NewUserService(repo userrepo.UserRepository, secretKey string) *UserService {
    return &UserService{userRepo: repo, jwtSecret: []byte(secretKey)}
}

func (s *UserService) Register(ctx context.Context, username, email, plainPassword string) (*domain.User, error) {
    taken, err := s.userRepo.ExistsByUsername(ctx, username)
    if err != nil {
        return nil, NewInternalError("register", "could not check username", err)
    }
    if taken {
        return nil, NewConflictError("register", "username already exists")
    }

    user := &domain.User{Username: username, Email: email}
    if err := user.IsValid(); err != nil {
        return nil, NewValidationError("register", err.Error())
    }
    if err := user.HashPassword(plainPassword); err != nil {
        return nil, NewValidationError("register", err.Error())
    }

    created, err := s.userRepo.Create(ctx, user)
    if err != nil {
        if errors.Is(err, userrepo.ErrUsernameTaken) {
            return nil, NewConflictError("register", "username already exists")
        }
        return nil, NewInternalError("register", "could not create user", err)
    }
    return created, nil
}

// Login verifies credentials and returns a signed session token. Lookup and
// password failures are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
    user, err := s.userRepo.FindByUsername(ctx, username)
    if err != nil {
        return "", NewUnauthorizedError("login", 0, 0)
    }
    if err := user.ValidatePassword(password); err != nil {
        return "", NewUnauthorizedError("login", user.ID, 0)
    }

    token, err := auth.GenerateJWT(user.ID, s.jwtSecret)
    if err != nil {
        return "", NewInternalError("login", "could not generate token", err)
    }
    return token, nil
}
