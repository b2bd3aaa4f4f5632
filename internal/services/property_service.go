package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/shopspring/decimal"
)

// PropertyService manages the property catalog and room inventory
type PropertyService struct {
	tx         repository.TxManager
	properties repository.PropertyRepository
	rooms      repository.RoomRepository
	projector  *Projector
	auditSvc   *AuditService
	now        func() time.Time
}

func NewPropertyService(repos *repository.Repositories, projector *Projector, auditSvc *AuditService) *PropertyService {
	return &PropertyService{
		tx:         repos.Tx,
		properties: repos.Property,
		rooms:      repos.Room,
		projector:  projector,
		auditSvc:   auditSvc,
		now:        time.Now,
	}
}

// PropertyInput is the payload for a new listing.
type PropertyInput struct {
	OwnerID                uint             `json:"owner_id"`
	Title                  string           `json:"title" binding:"required"`
	Description            string           `json:"description"`
	PropertyType           string           `json:"property_type" binding:"required"`
	RentAmount             decimal.Decimal  `json:"rent_amount"`
	RentPeriod             string           `json:"rent_period"`
	VisitCost              *decimal.Decimal `json:"visit_cost"`
	DepositAmount          *decimal.Decimal `json:"deposit_amount"`
	BookingExpirationHours *int             `json:"booking_expiration_hours"`
	TotalRooms             int              `json:"total_rooms"`
	RoomTypes              map[string]any   `json:"room_types"`
	Capacity               int              `json:"capacity"`
	Region                 string           `json:"region"`
	Address                string           `json:"address"`
	Latitude               *float64         `json:"latitude"`
	Longitude              *float64         `json:"longitude"`
}

// RoomInput adds a room to a hotel or lodge.
type RoomInput struct {
	RoomNumber  string          `json:"room_number" binding:"required"`
	RoomType    string          `json:"room_type"`
	FloorNumber *int            `json:"floor_number"`
	Capacity    int             `json:"capacity"`
	BaseRate    decimal.Decimal `json:"base_rate"`
}

// RoomSyncResult summarizes a room status sync.
type RoomSyncResult struct {
	Properties int      `json:"properties"`
	Checked    int      `json:"checked"`
	Changed    int      `json:"changed"`
	Rooms      []string `json:"rooms"`
	DryRun     bool     `json:"dry_run"`
}

func canManageProperty(p *models.Property, actor models.Viewer) bool {
	return actor.IsStaff() || (actor.Role == models.RoleOwner && p.OwnerID == actor.UserID)
}

func canViewProperty(p *models.Property, viewer models.Viewer) bool {
	return canManageProperty(p, viewer) || (p.IsActive && p.IsApproved)
}

func (s *PropertyService) List(ctx context.Context, viewer models.Viewer, query *repository.ListQuery) ([]models.Property, int64, error) {
	return s.properties.List(ctx, repository.PropertyVisibility(viewer), query)
}

// Get returns a property the viewer may see. Hidden listings read as
// missing.
func (s *PropertyService) Get(ctx context.Context, id uint, viewer models.Viewer) (*models.Property, error) {
	property, err := s.properties.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !canViewProperty(property, viewer) {
		return nil, ErrNotFound
	}
	return property, nil
}

func (s *PropertyService) Create(ctx context.Context, input PropertyInput, actor models.Viewer) (*models.Property, error) {
	if !actor.IsStaff() && actor.Role != models.RoleOwner {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, invalid("title", "is required")
	}
	if !models.ValidPropertyType(input.PropertyType) {
		return nil, invalid("property_type", "unknown property type %q", input.PropertyType)
	}
	if input.RentPeriod == "" {
		input.RentPeriod = models.RentPeriodMonth
	}
	if !models.ValidRentPeriod(input.RentPeriod) {
		return nil, invalid("rent_period", "unknown rent period %q", input.RentPeriod)
	}
	if input.RentAmount.IsNegative() {
		return nil, invalid("rent_amount", "must not be negative")
	}
	if input.VisitCost != nil && input.PropertyType != models.PropertyTypeHouse {
		return nil, invalid("visit_cost", "is only accepted for houses")
	}
	expiration := 12
	if input.BookingExpirationHours != nil {
		if *input.BookingExpirationHours < 0 {
			return nil, invalid("booking_expiration_hours", "must not be negative")
		}
		expiration = *input.BookingExpirationHours
	}

	ownerID := actor.UserID
	if actor.IsStaff() && input.OwnerID != 0 {
		ownerID = input.OwnerID
	}

	property := &models.Property{
		OwnerID:                ownerID,
		Title:                  strings.TrimSpace(input.Title),
		Description:            input.Description,
		PropertyType:           input.PropertyType,
		Status:                 models.PropertyStatusAvailable,
		RentAmount:             input.RentAmount,
		RentPeriod:             input.RentPeriod,
		VisitCost:              input.VisitCost,
		DepositAmount:          input.DepositAmount,
		BookingExpirationHours: expiration,
		TotalRooms:             input.TotalRooms,
		RoomTypes:              input.RoomTypes,
		Capacity:               input.Capacity,
		Region:                 input.Region,
		Address:                input.Address,
		Latitude:               input.Latitude,
		Longitude:              input.Longitude,
	}
	if actor.IsStaff() {
		property.ApproveBy(actor.UserID, s.now())
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.properties.Create(ctx, property); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditCreate, "Property", property.ID, property.Title)
	})
	if err != nil {
		return nil, err
	}
	return property, nil
}

// Approve publishes a listing. Staff only.
func (s *PropertyService) Approve(ctx context.Context, id uint, actor models.Viewer) (*models.Property, error) {
	if !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	var property *models.Property
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		property, err = s.properties.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		property.ApproveBy(actor.UserID, s.now())
		if err := s.properties.Update(ctx, property); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditApprove, "Property", id, property.Title)
	})
	if err != nil {
		return nil, err
	}
	return property, nil
}

func (s *PropertyService) ListRooms(ctx context.Context, propertyID uint, viewer models.Viewer) ([]models.Room, error) {
	if _, err := s.Get(ctx, propertyID, viewer); err != nil {
		return nil, err
	}
	return s.rooms.FindByProperty(ctx, propertyID)
}

// CreateRoom adds a room and projects its status straight away, since
// bookings may already name the room number.
func (s *PropertyService) CreateRoom(ctx context.Context, propertyID uint, input RoomInput, actor models.Viewer) (*models.Room, error) {
	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canManageProperty(property, actor) {
		return nil, ErrPermissionDenied
	}
	if !property.HasRooms() {
		return nil, invalid("property", "%s properties do not keep rooms", property.PropertyType)
	}
	number := strings.TrimSpace(input.RoomNumber)
	if number == "" {
		return nil, invalid("room_number", "is required")
	}
	if input.Capacity <= 0 {
		input.Capacity = 1
	}

	room := &models.Room{
		PropertyID:  propertyID,
		RoomNumber:  number,
		RoomType:    input.RoomType,
		FloorNumber: input.FloorNumber,
		Capacity:    input.Capacity,
		BaseRate:    input.BaseRate,
		Status:      models.RoomStatusAvailable,
		IsActive:    true,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.rooms.Create(ctx, room); err != nil {
			if repository.IsDuplicateKey(err) {
				return invalid("room_number", "room %s already exists", number)
			}
			return err
		}
		if _, err := s.projector.SyncRoom(ctx, propertyID, number); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, actor, models.AuditCreate, "Room", room.ID, property.Title+" #"+number)
	})
	if err != nil {
		return nil, err
	}
	return s.rooms.FindByNumber(ctx, propertyID, number)
}

// SetRoomStatus sets or clears a manual status. Clearing hands the room
// back to the booking projection.
func (s *PropertyService) SetRoomStatus(ctx context.Context, roomID uint, status string, actor models.Viewer) (*models.Room, error) {
	switch status {
	case models.RoomStatusMaintenance, models.RoomStatusOutOfOrder, models.RoomStatusAvailable:
	default:
		return nil, invalid("status", "must be one of maintenance, out_of_order or available")
	}

	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, notFound(err)
	}
	property, err := s.properties.FindByID(ctx, room.PropertyID)
	if err != nil {
		return nil, notFound(err)
	}
	if !canManageProperty(property, actor) {
		return nil, ErrPermissionDenied
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.rooms.FindByNumberForUpdate(ctx, room.PropertyID, room.RoomNumber)
		if err != nil {
			return notFound(err)
		}
		if models.IsManualStatus(status) {
			locked.Status = status
		} else {
			if models.IsManualStatus(locked.Status) {
				locked.Status = models.RoomStatusAvailable
			}
			if _, err := s.projector.projectRoom(ctx, locked); err != nil {
				return err
			}
		}
		if err := s.rooms.Update(ctx, locked); err != nil {
			return err
		}
		room = locked
		return s.auditSvc.Record(ctx, actor, models.AuditUpdate, "Room", room.ID, "status set to "+room.Status)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// SyncRooms re-projects every room of hotel and lodge properties, or of a
// single property. In dry-run mode nothing is written.
func (s *PropertyService) SyncRooms(ctx context.Context, propertyID *uint, dryRun bool) (*RoomSyncResult, error) {
	properties, err := s.properties.ListWithRooms(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if propertyID != nil && len(properties) == 0 {
		return nil, fmt.Errorf("property %d with rooms: %w", *propertyID, ErrNotFound)
	}

	result := &RoomSyncResult{Properties: len(properties), DryRun: dryRun, Rooms: []string{}}
	for _, property := range properties {
		rooms, err := s.rooms.FindByProperty(ctx, property.ID)
		if err != nil {
			return result, err
		}
		for _, r := range rooms {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Checked++
			changed, err := s.syncOne(ctx, r, dryRun)
			if err != nil {
				logger.Error("room sync failed", "property_id", property.ID, "room", r.RoomNumber, "error", err)
				continue
			}
			if changed {
				result.Changed++
				result.Rooms = append(result.Rooms, fmt.Sprintf("%s #%s", property.Title, r.RoomNumber))
			}
		}
	}
	return result, nil
}

func (s *PropertyService) syncOne(ctx context.Context, r models.Room, dryRun bool) (bool, error) {
	if dryRun {
		return s.projector.projectRoom(ctx, &r)
	}
	var changed bool
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		changed, err = s.projector.SyncRoom(ctx, r.PropertyID, r.RoomNumber)
		return err
	})
	return changed, err
}
