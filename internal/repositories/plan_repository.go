package repositories

import (
	"errors"

	"aurum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPlanNotFound = errors.New("subscription plan not found")

// PlanRepository stores the subscription catalog. Plans are seeded at
// startup and read on the public plans endpoint and at checkout.
type PlanRepository interface {
	Upsert(plan *models.SubscriptionPlan) error
	GetByCode(code string) (*models.SubscriptionPlan, error)
	ListPlans() ([]*models.SubscriptionPlan, error)
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Upsert(plan *models.SubscriptionPlan) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		UpdateAll: true,
	}).Create(plan).Error
	if err != nil {
		return ErrDatabaseOperation
	}
	return nil
}

func (r *planRepository) GetByCode(code string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	result := r.db.Where("code = ?", code).First(&plan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, ErrDatabaseOperation
	}
	return &plan, nil
}

func (r *planRepository) ListPlans() ([]*models.SubscriptionPlan, error) {
	var plans []*models.SubscriptionPlan
	if err := r.db.Order("amount_cents").Find(&plans).Error; err != nil {
		return nil, ErrDatabaseOperation
	}
	return plans, nil
}
