// Package domain defines the persistence models for users, doctors and
// appointments. These types are mapped with GORM and form the core data
// layer of the booking platform.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Roles carried by User.Role and the JWT role claim.
const (
	RolePatient  = "PATIENT"
	RoleHospital = "HOSPITAL"
)

// Confirmation states of an appointment.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Payment states. Unpaid bookings carry no payment status at all.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
)

// PaymentMethodCard is the only method offered through hosted checkout.
const PaymentMethodCard = "CARD"

// User is an account able to sign in. Patients book appointments, hospital
// users manage a roster of doctors.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Email: unique login identifier, stored lower-cased.
//   - PasswordHash: bcrypt hash, never serialized.
//   - Role: PATIENT or HOSPITAL.
type User struct {
	ID           string    `json:"id"       gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"    gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"        gorm:"type:varchar(100);not null"`
	FullName     string    `json:"fullName" gorm:"type:varchar(255);not null"`
	Role         string    `json:"role"     gorm:"type:varchar(16);not null;default:'PATIENT';check:role IN ('PATIENT','HOSPITAL')"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// DayAvailability is one bookable day on a doctor's profile, e.g.
// {"Lundi", 25, ["10:00", "10:30"]}.
type DayAvailability struct {
	DayLabel  string   `json:"dayLabel"`
	DayNumber int      `json:"dayNumber"`
	Times     []string `json:"times"`
}

// Doctor is a practitioner listed in the public directory and owned by a
// single hospital account. About and Availability are stored as JSON.
type Doctor struct {
	ID             string            `json:"id"             gorm:"type:char(36);primaryKey"`
	FullName       string            `json:"fullName"       gorm:"type:varchar(255);not null"`
	Specialty      string            `json:"specialty"      gorm:"type:varchar(128);not null;index:idx_doctors_specialty"`
	Clinic         string            `json:"clinic"         gorm:"type:varchar(255);not null"`
	City           string            `json:"city"           gorm:"type:varchar(128);not null;index:idx_doctors_city"`
	PriceCfa       int64             `json:"priceCfa"       gorm:"not null;default:0;check:price_cfa >= 0"`
	About          []string          `json:"about"          gorm:"type:text;serializer:json"`
	Availability   []DayAvailability `json:"availability"   gorm:"type:text;serializer:json"`
	HospitalUserID string            `json:"hospitalUserId" gorm:"type:char(36);not null;index:idx_doctors_hospital"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt    `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Doctor.
func (Doctor) TableName() string { return "doctors" }

// Appointment is the ledger entry for one booking. It tracks two
// independent state dimensions: Status (confirmation) and PaymentStatus
// (nil for unpaid bookings).
//
// ConfirmToken is only issued to unpaid bookings; paid ones are confirmed
// by the payment provider. PaidAt is written at most once.
type Appointment struct {
	ID                string     `json:"id"                          gorm:"type:char(36);primaryKey"`
	PatientID         string     `json:"patientId"                   gorm:"type:char(36);not null;index:idx_appt_patient"`
	DoctorID          string     `json:"doctorId"                    gorm:"type:char(36);not null;index:idx_appt_doctor_slot,priority:1"`
	DateTime          time.Time  `json:"dateTime"                    gorm:"not null;index:idx_appt_doctor_slot,priority:2"`
	Status            string     `json:"status"                      gorm:"type:varchar(16);not null;default:'PENDING';check:status IN ('PENDING','CONFIRMED','CANCELLED')"`
	PaymentStatus     *string    `json:"paymentStatus"               gorm:"type:varchar(16)"`
	PaymentMethod     *string    `json:"paymentMethod"               gorm:"type:varchar(16)"`
	PaymentRef        *string    `json:"paymentRef"                  gorm:"type:varchar(64);uniqueIndex:ux_appt_payment_ref"`
	Amount            int64      `json:"amount"                      gorm:"not null;default:0"`
	Currency          string     `json:"currency"                    gorm:"type:varchar(3);not null"`
	CheckoutSessionID *string    `json:"checkoutSessionId,omitempty" gorm:"type:varchar(255);uniqueIndex:ux_appt_checkout_session"`
	CheckoutURL       *string    `json:"-"                           gorm:"type:text"`
	PaymentIntentID   *string    `json:"-"                           gorm:"type:varchar(255)"`
	ConfirmToken      *string    `json:"-"                           gorm:"type:varchar(64);uniqueIndex:ux_appt_confirm_token"`
	TokenConsumedAt   *time.Time `json:"-"`
	PaidAt            *time.Time `json:"paidAt,omitempty"`
	CancelledAt       *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	// Doctor and Patient are loaded on demand for list views.
	Doctor  *Doctor `json:"doctor,omitempty"  gorm:"foreignKey:DoctorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Patient *User   `json:"patient,omitempty" gorm:"foreignKey:PatientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Appointment.
func (Appointment) TableName() string { return "appointments" }

// IsPaid reports whether the payment dimension reached PAID.
func (a *Appointment) IsPaid() bool {
	return a.PaymentStatus != nil && *a.PaymentStatus == PaymentPaid
}

// RequiresPayment reports whether the booking went through checkout.
func (a *Appointment) RequiresPayment() bool { return a.PaymentStatus != nil }
