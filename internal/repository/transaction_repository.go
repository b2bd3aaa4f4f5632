package repository

import (
	"context"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// TransactionRepository defines the interface for gateway attempt data access
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	Update(ctx context.Context, txn *models.PaymentTransaction) error
	FindByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	FindByGatewayID(ctx context.Context, gatewayID string) (*models.PaymentTransaction, error)
	FindLatestForPayment(ctx context.Context, paymentID uint) (*models.PaymentTransaction, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.PaymentTransaction, error)
	CountForPayment(ctx context.Context, paymentID uint) (int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new gateway transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	return dbFrom(ctx, r.db).Omit("Payment").Create(txn).Error
}

func (r *transactionRepository) Update(ctx context.Context, txn *models.PaymentTransaction) error {
	return dbFrom(ctx, r.db).Omit("Payment").Save(txn).Error
}

func (r *transactionRepository) FindByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := dbFrom(ctx, r.db).Where("reference = ?", reference).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindByGatewayID(ctx context.Context, gatewayID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := dbFrom(ctx, r.db).Where("gateway_transaction_id = ?", gatewayID).Order("id DESC").First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindLatestForPayment(ctx context.Context, paymentID uint) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := dbFrom(ctx, r.db).Where("payment_id = ?", paymentID).Order("id DESC").First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := forUpdate(dbFrom(ctx, r.db)).First(&txn, id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) CountForPayment(ctx context.Context, paymentID uint) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&models.PaymentTransaction{}).Where("payment_id = ?", paymentID).Count(&count).Error
	return count, err
}

// VisitRepository defines the interface for property visit payment data access
type VisitRepository interface {
	FindByID(ctx context.Context, id uint) (*models.PropertyVisitPayment, error)
	FindByPropertyAndUser(ctx context.Context, propertyID, userID uint) (*models.PropertyVisitPayment, error)
	Create(ctx context.Context, visit *models.PropertyVisitPayment) error
	Update(ctx context.Context, visit *models.PropertyVisitPayment) error
}

type visitRepository struct {
	db *gorm.DB
}

// NewVisitRepository creates a new visit payment repository
func NewVisitRepository(db *gorm.DB) VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) FindByID(ctx context.Context, id uint) (*models.PropertyVisitPayment, error) {
	var visit models.PropertyVisitPayment
	err := dbFrom(ctx, r.db).First(&visit, id).Error
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func (r *visitRepository) FindByPropertyAndUser(ctx context.Context, propertyID, userID uint) (*models.PropertyVisitPayment, error) {
	var visit models.PropertyVisitPayment
	err := dbFrom(ctx, r.db).Where("property_id = ? AND user_id = ?", propertyID, userID).First(&visit).Error
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func (r *visitRepository) Create(ctx context.Context, visit *models.PropertyVisitPayment) error {
	return dbFrom(ctx, r.db).Omit("Property").Create(visit).Error
}

func (r *visitRepository) Update(ctx context.Context, visit *models.PropertyVisitPayment) error {
	return dbFrom(ctx, r.db).Omit("Property").Save(visit).Error
}
