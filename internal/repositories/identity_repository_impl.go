package repositories

import (
	"context"
	"errors"
	"log"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories/cache"

	"gorm.io/gorm"
)

type identityRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

// NewIdentityRepository creates a new instance of IdentityRepository
func NewIdentityRepository(db *gorm.DB, cache *cache.CacheService) IdentityRepository {
	return &identityRepository{
		db:    db,
		cache: cache,
	}
}

func (r *identityRepository) Create(identity *models.Identity) error {
	result := r.db.Create(identity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return ErrDatabaseOperation
	}
	return nil
}

func (r *identityRepository) GetByID(id uint) (*models.Identity, error) {
	// Try cache first
	key := r.cache.GenerateKey("identity", "id", id)
	if identity, err := r.cache.GetIdentity(context.Background(), key); err == nil {
		return identity, nil
	}

	var identity models.Identity
	if err := r.db.First(&identity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, ErrDatabaseOperation
	}

	if err := r.cache.CacheIdentity(context.Background(), &identity); err != nil {
		log.Printf("Failed to cache identity %d: %v", identity.ID, err)
	}
	return &identity, nil
}

func (r *identityRepository) GetByUsername(username string) (*models.Identity, error) {
	return r.getByColumn("username", username)
}

func (r *identityRepository) GetByEmail(email string) (*models.Identity, error) {
	return r.getByColumn("email", email)
}

func (r *identityRepository) GetByWallet(address string) (*models.Identity, error) {
	return r.getByColumn("wallet_address", address)
}

func (r *identityRepository) GetByStripeCustomer(customerID string) (*models.Identity, error) {
	return r.getByColumn("stripe_customer_id", customerID)
}

func (r *identityRepository) getByColumn(column, value string) (*models.Identity, error) {
	var identity models.Identity
	result := r.db.Where(column+" = ?", value).First(&identity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, ErrDatabaseOperation
	}
	return &identity, nil
}

func (r *identityRepository) Update(identity *models.Identity) error {
	result := r.db.Save(identity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return ErrDatabaseOperation
	}
	r.invalidate(identity.ID)
	return nil
}

func (r *identityRepository) Delete(id uint) error {
	r.invalidate(id)
	result := r.db.Delete(&models.Identity{}, id)
	if result.Error != nil {
		return ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func (r *identityRepository) List(offset, limit int) ([]*models.Identity, int64, error) {
	var identities []*models.Identity
	var total int64

	if err := r.db.Model(&models.Identity{}).Count(&total).Error; err != nil {
		return nil, 0, ErrDatabaseOperation
	}

	result := r.db.Order("id").Offset(offset).Limit(limit).Find(&identities)
	if result.Error != nil {
		return nil, 0, ErrDatabaseOperation
	}

	return identities, total, nil
}

func (r *identityRepository) UpdatePassword(identityID uint, passwordHash string) error {
	return r.updateColumns(identityID, map[string]interface{}{"password_hash": passwordHash})
}

func (r *identityRepository) UpdateSecondFactor(identityID uint, secret string, enabled bool) error {
	return r.updateColumns(identityID, map[string]interface{}{
		"totp_secret":  secret,
		"totp_enabled": enabled,
	})
}

func (r *identityRepository) UpdatePremium(identityID uint, premium bool) error {
	return r.updateColumns(identityID, map[string]interface{}{"premium": premium})
}

func (r *identityRepository) UpdateStripeCustomer(identityID uint, customerID string) error {
	return r.updateColumns(identityID, map[string]interface{}{"stripe_customer_id": customerID})
}

func (r *identityRepository) UpdateRole(identityID uint, role string) error {
	return r.updateColumns(identityID, map[string]interface{}{"role": role})
}

func (r *identityRepository) TouchLastLogin(identityID uint) error {
	return r.updateColumns(identityID, map[string]interface{}{"last_login_at": time.Now()})
}

func (r *identityRepository) updateColumns(identityID uint, values map[string]interface{}) error {
	result := r.db.Model(&models.Identity{}).
		Where("id = ?", identityID).
		Updates(values)
	if result.Error != nil {
		return ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	r.invalidate(identityID)
	return nil
}

func (r *identityRepository) invalidate(identityID uint) {
	if err := r.cache.InvalidateIdentity(context.Background(), identityID); err != nil {
		log.Printf("Failed to invalidate identity cache %d: %v", identityID, err)
	}
}
