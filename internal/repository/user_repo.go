package repository

import (
	"context"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	EmailTaken(ctx context.Context, email string, exceptID uuid.UUID) (bool, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q model.ListQuery) ([]model.User, int64, error)
}

var userSortColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// EmailTaken also counts soft-deleted users since the unique index covers them.
func (r *userRepo) EmailTaken(ctx context.Context, email string, exceptID uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Unscoped().Model(&model.User{}).Where("email = ?", email)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, translate(err, "user")
	}
	return count > 0, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "user email")
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error, "user email")
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, q model.ListQuery) ([]model.User, int64, error) {
	q.Normalize()

	filtered := r.db.WithContext(ctx).Model(&model.User{})
	if q.Search != "" {
		like := "%" + q.Search + "%"
		filtered = filtered.Where("name ILIKE ? OR email ILIKE ?", like, like)
	}
	filtered = filtered.Session(&gorm.Session{})

	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "user")
	}

	column, ok := userSortColumns[q.SortBy]
	if !ok {
		column = "name"
	}

	users := []model.User{}
	err := filtered.
		Order(column + " " + q.SortOrder + ", id").
		Limit(q.PerPage).
		Offset(q.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, translate(err, "user")
	}
	return users, total, nil
}
