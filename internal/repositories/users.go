package repositories

import (
	"context"
	"time"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	*Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{Store: store}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return translate(db.Create(user).Error)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var count int64
	err := db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, translate(err)
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	users := []models.User{}
	err := db.Order("username ASC").Find(&users).Error
	return users, translate(err)
}

// Update writes the given columns and returns the refreshed user.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, cols map[string]interface{}) (*models.User, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if len(cols) > 0 {
			cols["updated_at"] = time.Now().UTC()
			res := tx.Model(&models.User{}).Where("id = ?", id).Updates(cols)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.Where("id = ?", id).First(&user).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

type TokenRepository struct {
	*Store
}

func NewTokenRepository(store *Store) *TokenRepository {
	return &TokenRepository{Store: store}
}

func (r *TokenRepository) Create(ctx context.Context, token *models.Token) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return translate(db.Create(token).Error)
}

func (r *TokenRepository) FindByRefresh(ctx context.Context, refresh uuid.UUID) (*models.Token, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var token models.Token
	if err := db.Where("refresh_token = ?", refresh).First(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// Rotate replaces old with next atomically; old must still exist.
func (r *TokenRepository) Rotate(ctx context.Context, old uuid.UUID, next *models.Token) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("refresh_token = ?", old).Delete(&models.Token{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(next).Error
	})
	return translate(err)
}

func (r *TokenRepository) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return translate(db.Where("user_id = ?", userID).Delete(&models.Token{}).Error)
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Where("expires_at < ?", now).Delete(&models.Token{})
	return res.RowsAffected, translate(res.Error)
}
