package repositories

import (
	"errors"

	"aurum/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository persists billing webhook outcomes. Records are
// append-only; the unique event id makes recording idempotent under
// webhook redelivery.
type PaymentRepository interface {
	Create(record *models.PaymentRecord) error
	GetByEventID(eventID string) (*models.PaymentRecord, error)
	ListByIdentity(identityID uint, offset, limit int) ([]*models.PaymentRecord, int64, error)
	List(offset, limit int) ([]*models.PaymentRecord, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(record *models.PaymentRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return ErrDatabaseOperation
	}
	return nil
}

func (r *paymentRepository) GetByEventID(eventID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	result := r.db.Where("event_id = ?", eventID).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, ErrDatabaseOperation
	}
	return &record, nil
}

func (r *paymentRepository) ListByIdentity(identityID uint, offset, limit int) ([]*models.PaymentRecord, int64, error) {
	return r.list(r.db.Where("identity_id = ?", identityID), offset, limit)
}

func (r *paymentRepository) List(offset, limit int) ([]*models.PaymentRecord, int64, error) {
	return r.list(r.db, offset, limit)
}

func (r *paymentRepository) list(tx *gorm.DB, offset, limit int) ([]*models.PaymentRecord, int64, error) {
	var records []*models.PaymentRecord
	var total int64

	if err := tx.Model(&models.PaymentRecord{}).Count(&total).Error; err != nil {
		return nil, 0, ErrDatabaseOperation
	}
	result := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records)
	if result.Error != nil {
		return nil, 0, ErrDatabaseOperation
	}
	return records, total, nil
}

var ErrPaymentNotFound = errors.New("payment record not found")
