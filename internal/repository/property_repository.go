package repository

import (
	"context"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// PropertyRepository defines the interface for property data access
type PropertyRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Property, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Property, error)
	Create(ctx context.Context, property *models.Property) error
	Update(ctx context.Context, property *models.Property) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Property, int64, error)
	ListWithRooms(ctx context.Context, propertyID *uint) ([]models.Property, error)
	ListHouses(ctx context.Context, propertyID *uint) ([]models.Property, error)
	HasActivity(ctx context.Context, id uint, day time.Time) (bool, error)
}

type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) FindByID(ctx context.Context, id uint) (*models.Property, error) {
	var property models.Property
	err := dbFrom(ctx, r.db).Preload("Owner").First(&property, id).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// FindByIDForUpdate locks the property row. Booking creation holds this
// lock across the overlap check and insert.
func (r *propertyRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Property, error) {
	var property models.Property
	err := forUpdate(dbFrom(ctx, r.db)).First(&property, id).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	return dbFrom(ctx, r.db).Create(property).Error
}

func (r *propertyRepository) Update(ctx context.Context, property *models.Property) error {
	return dbFrom(ctx, r.db).Omit("Owner", "Rooms").Save(property).Error
}

func (r *propertyRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return dbFrom(ctx, r.db).Model(&models.Property{}).Where("id = ?", id).Update("status", status).Error
}

func (r *propertyRepository) List(ctx context.Context, scope Scope, query *ListQuery) ([]models.Property, int64, error) {
	var properties []models.Property
	var total int64

	db := dbFrom(ctx, r.db).Model(&models.Property{}).Scopes(scope)

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("properties.title ILIKE ? OR properties.region ILIKE ?", search, search)
	}
	if t := query.Filter("property_type"); t != "" {
		db = db.Where("properties.property_type = ?", t)
	}
	if s := query.Filter("status"); s != "" {
		db = db.Where("properties.status = ?", s)
	}
	if region := query.Filter("region"); region != "" {
		db = db.Where("properties.region = ?", region)
	}
	if owner := query.Filter("owner_id"); owner != "" {
		db = db.Where("properties.owner_id = ?", owner)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applySort(db, query, map[string]string{
		"title":       "properties.title",
		"rent_amount": "properties.rent_amount",
		"created_at":  "properties.created_at",
	}, "properties.created_at DESC")

	err := applyPage(db, query).Find(&properties).Error
	return properties, total, err
}

// ListWithRooms returns hotels and lodges, optionally a single one.
func (r *propertyRepository) ListWithRooms(ctx context.Context, propertyID *uint) ([]models.Property, error) {
	var properties []models.Property
	db := dbFrom(ctx, r.db).
		Where("property_type IN ?", []string{models.PropertyTypeHotel, models.PropertyTypeLodge})
	if propertyID != nil {
		db = db.Where("id = ?", *propertyID)
	}
	err := db.Order("id").Find(&properties).Error
	return properties, err
}

// ListHouses returns active house properties, optionally a single one.
func (r *propertyRepository) ListHouses(ctx context.Context, propertyID *uint) ([]models.Property, error) {
	var properties []models.Property
	db := dbFrom(ctx, r.db).
		Where("property_type = ? AND is_active", models.PropertyTypeHouse)
	if propertyID != nil {
		db = db.Where("id = ?", *propertyID)
	}
	err := db.Order("id").Find(&properties).Error
	return properties, err
}

// HasActivity reports whether the property is occupied on day: a confirmed
// or checked-in booking not yet past check-out, or an active lease in force.
func (r *propertyRepository) HasActivity(ctx context.Context, id uint, day time.Time) (bool, error) {
	db := dbFrom(ctx, r.db)
	d := models.Day(day)

	var bookings int64
	err := db.Model(&models.Booking{}).
		Where("property_id = ? AND booking_status IN ? AND check_out_date >= ?",
			id, []string{models.BookingStatusConfirmed, models.BookingStatusCheckedIn}, d).
		Count(&bookings).Error
	if err != nil {
		return false, err
	}
	if bookings > 0 {
		return true, nil
	}

	var leases int64
	err = db.Model(&models.Lease{}).
		Where("property_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			id, models.LeaseStatusActive, d, d).
		Count(&leases).Error
	return leases > 0, err
}

// RoomRepository defines the interface for room data access
type RoomRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	FindByNumber(ctx context.Context, propertyID uint, number string) (*models.Room, error)
	FindByNumberForUpdate(ctx context.Context, propertyID uint, number string) (*models.Room, error)
	FindByProperty(ctx context.Context, propertyID uint) ([]models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := dbFrom(ctx, r.db).First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindByNumber(ctx context.Context, propertyID uint, number string) (*models.Room, error) {
	var room models.Room
	err := dbFrom(ctx, r.db).
		Where("property_id = ? AND room_number = ?", propertyID, number).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindByNumberForUpdate(ctx context.Context, propertyID uint, number string) (*models.Room, error) {
	var room models.Room
	err := forUpdate(dbFrom(ctx, r.db)).
		Where("property_id = ? AND room_number = ?", propertyID, number).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindByProperty(ctx context.Context, propertyID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := dbFrom(ctx, r.db).
		Where("property_id = ?", propertyID).
		Order("room_number").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return dbFrom(ctx, r.db).Create(room).Error
}

func (r *roomRepository) Update(ctx context.Context, room *models.Room) error {
	return dbFrom(ctx, r.db).Omit("Property").Save(room).Error
}
