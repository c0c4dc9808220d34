package alumni

import (
	"errors"
	"strings"
	"time"
)

// Status is the review state of an alumni record. Records start pending and
// move exactly once to approved or rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Record is a single alumni registration. FullAddress and Pincode are stored
// for the society's records but never serialized in API responses.
type Record struct {
	ID               string     `json:"id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email"`
	Mobile           string     `json:"mobile"`
	YearOfJoining    int        `json:"year_of_joining"`
	YearOfLeaving    int        `json:"year_of_leaving"`
	ClassOfJoining   string     `json:"class_of_joining"`
	LastClassStudied string     `json:"last_class_studied"`
	LastHouse        string     `json:"last_house"`
	FullAddress      string     `json:"-"`
	City             string     `json:"city"`
	Pincode          string     `json:"-"`
	State            string     `json:"state"`
	Country          string     `json:"country"`
	Profession       string     `json:"profession"`
	Organization     string     `json:"organization"`
	Status           Status     `json:"status"`
	EhsasID          *string    `json:"ehsas_id"`
	CreatedAt        time.Time  `json:"created_at"`
	ApprovedAt       *time.Time `json:"approved_at"`
}

// Filter narrows a directory listing. Zero values mean "no constraint".
// Batch matches year_of_leaving exactly; Profession and City are
// case-insensitive substring matches.
type Filter struct {
	Status     Status
	Batch      int
	Profession string
	City       string
}

// BatchCount is one bucket of the approved-alumni batch distribution.
type BatchCount struct {
	Batch int `json:"batch"`
	Count int `json:"count"`
}

// Stats summarizes the directory for the admin dashboard.
type Stats struct {
	TotalAlumni          int          `json:"total_alumni"`
	PendingRegistrations int          `json:"pending_registrations"`
	BatchDistribution    []BatchCount `json:"batch_distribution"`
}

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("alumni record not found")

	// ErrDuplicateEmail is returned when a pending or approved record
	// already holds the email. Rejected emails may register again.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidTransition is returned when approve or reject is called on
	// a record that is no longer pending.
	ErrInvalidTransition = errors.New("record is not pending review")
)

// ValidationError reports the registration fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid registration: " + strings.Join(e.Fields, ", ")
}
