package user

import (
    "context"
    "errors"
    "fmt"
    "log"

    "github.com/hyewonk/go-datatalk/internal/domain"
    "gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUsernameTaken = errors.New("username already taken")

type gormUserRepository struct {
    db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
    return &gormUserRepository{db: db}
}

func (r *gormUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
    if user == nil {
        return nil, errors.New("user cannot be nil")
    }
    if err := user.IsValid(); err != nil {
        return nil, fmt.Errorf("validation failed: %w", err)
    }

    taken, err := r.ExistsByUsername(ctx, user.Username)
    if err != nil {
        return nil, err
    }
    if taken {
        return nil, ErrUsernameTaken
    }

    if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
        log.Printf("[UserRepository] Database error during user creation: %v", err)
        return nil, errors.New("database error creating user")
    }

    log.Printf("[UserRepository] User created successfully with ID: %d", user.ID)
    return user, nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
    if id == 0 {
        return nil, errors.New("invalid user ID")
    }

    var user domain.User
    err := r.db.WithContext(ctx).First(&user, id).Error
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrUserNotFound
        }
        log.Printf("[UserRepository] Database error in FindByID for user ID %d: %v", id, err)
        return nil, errors.New("database error fetching user")
    }
    return &user, nil
}

func (r *gormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
    if username == "" {
        return nil, errors.New("username cannot be empty")
    }

    var user domain.User
    err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrUserNotFound
        }
        log.Printf("[UserRepository] Database error in FindByUsername: %v", err)
        return nil, errors.New("database error fetching user")
    }
    return &user, nil
}

func (r *gormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
    if username == "" {
        return false, errors.New("username cannot be empty")
    }

    var count int64
    err := r.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&count).Error
    if err != nil {
        log.Printf("[UserRepository] Database error checking username existence: %v", err)
        return false, errors.New("database error checking username")
    }
    return count > 0, nil
}
