package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
)

// UserListFilters admin list filters.
type UserListFilters struct {
	Role    string
	Keyword string
}

// UserRepository user data access.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Ensure inserts the identity-provider user on first sight and returns the stored row.
	Ensure(ctx context.Context, id, email string) (*model.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	UpdateIdentity(ctx context.Context, id, email, role string) error
	UpdateSubscription(ctx context.Context, id, status, role string) error
	List(ctx context.Context, filters *UserListFilters, offset, limit int) ([]model.User, int64, error)
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a UserRepository.
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Ensure(ctx context.Context, id, email string) (*model.User, error) {
	user := &model.User{
		UserID:             id,
		Email:              normalizeEmail(email),
		Role:               model.RoleUser,
		SubscriptionStatus: model.SubscriptionNone,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepo) UpdateRole(ctx context.Context, id, role string) error {
	return r.updates(ctx, id, map[string]interface{}{"role": role})
}

func (r *userRepo) UpdateIdentity(ctx context.Context, id, email, role string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"email": normalizeEmail(email),
		"role":  role,
	})
}

func (r *userRepo) UpdateSubscription(ctx context.Context, id, status, role string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"subscription_status": status,
		"role":                role,
	})
}

func (r *userRepo) updates(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, filters *UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if filters != nil {
		if filters.Role != "" {
			db = db.Where("role = ?", filters.Role)
		}
		if filters.Keyword != "" {
			kw := "%" + strings.ToLower(filters.Keyword) + "%"
			db = db.Where("(LOWER(name) LIKE ? OR email LIKE ?)", kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
