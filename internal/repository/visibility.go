package repository

import (
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"gorm.io/gorm"
)

// Scope narrows a query to what a viewer may read.
type Scope func(*gorm.DB) *gorm.DB

func unrestricted(db *gorm.DB) *gorm.DB { return db }

func nothing(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }

const ownedProperties = "SELECT id FROM properties WHERE owner_id = ?"

// BookingVisibility: staff see all, owners see bookings on their
// properties, tenants see bookings they made or that are in their name.
func BookingVisibility(v models.Viewer) Scope {
	switch {
	case v.IsStaff():
		return unrestricted
	case v.Role == models.RoleOwner:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("bookings.property_id IN ("+ownedProperties+")", v.UserID)
		}
	case v.Role == models.RoleTenant:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("bookings.created_by_id = ? OR bookings.customer_id IN (SELECT id FROM customers WHERE email = ?)", v.UserID, v.Email)
		}
	}
	return nothing
}

// InvoiceVisibility follows the lease: owners see invoices for leases on
// their properties, tenants see their own.
func InvoiceVisibility(v models.Viewer) Scope {
	switch {
	case v.IsStaff():
		return unrestricted
	case v.Role == models.RoleOwner:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("rent_invoices.lease_id IN (SELECT id FROM leases WHERE property_id IN ("+ownedProperties+"))", v.UserID)
		}
	case v.Role == models.RoleTenant:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("rent_invoices.tenant_id = ?", v.UserID)
		}
	}
	return nothing
}

// LeaseVisibility mirrors InvoiceVisibility.
func LeaseVisibility(v models.Viewer) Scope {
	switch {
	case v.IsStaff():
		return unrestricted
	case v.Role == models.RoleOwner:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("leases.property_id IN ("+ownedProperties+")", v.UserID)
		}
	case v.Role == models.RoleTenant:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("leases.tenant_id = ?", v.UserID)
		}
	}
	return nothing
}

// PaymentVisibility: owners see payments reaching their properties through
// a booking, lease or invoice; tenants see payments they made.
func PaymentVisibility(v models.Viewer) Scope {
	switch {
	case v.IsStaff():
		return unrestricted
	case v.Role == models.RoleOwner:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where(
				"payments.booking_id IN (SELECT id FROM bookings WHERE property_id IN ("+ownedProperties+")) OR "+
					"payments.lease_id IN (SELECT id FROM leases WHERE property_id IN ("+ownedProperties+")) OR "+
					"payments.rent_invoice_id IN (SELECT ri.id FROM rent_invoices ri JOIN leases l ON l.id = ri.lease_id WHERE l.property_id IN ("+ownedProperties+"))",
				v.UserID, v.UserID, v.UserID)
		}
	case v.Role == models.RoleTenant:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("payments.tenant_id = ? OR payments.recorded_by_id = ?", v.UserID, v.UserID)
		}
	}
	return nothing
}

// ReminderVisibility: owners see reminders for their properties, tenants
// see reminders addressed to them.
func ReminderVisibility(v models.Viewer) Scope {
	switch {
	case v.IsStaff():
		return unrestricted
	case v.Role == models.RoleOwner:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("reminders.property_id IN ("+ownedProperties+")", v.UserID)
		}
	case v.Role == models.RoleTenant:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("reminders.customer_id IN (SELECT id FROM customers WHERE email = ?)", v.Email)
		}
	}
	return nothing
}

// CustomerVisibility: owners see customers who booked their properties,
// tenants see their own record.
func CustomerVisibility(v models.Viewer) Scope {
	switch {
	case v.IsStaff():
		return unrestricted
	case v.Role == models.RoleOwner:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("customers.id IN (SELECT customer_id FROM bookings WHERE property_id IN ("+ownedProperties+"))", v.UserID)
		}
	case v.Role == models.RoleTenant:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("customers.email = ?", v.Email)
		}
	}
	return nothing
}

// PropertyVisibility: the public catalog is active and approved listings;
// owners also see their own drafts, staff see everything.
func PropertyVisibility(v models.Viewer) Scope {
	switch {
	case v.IsStaff():
		return unrestricted
	case v.Role == models.RoleOwner:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("(properties.is_active AND properties.is_approved) OR properties.owner_id = ?", v.UserID)
		}
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("properties.is_active AND properties.is_approved")
	}
}
