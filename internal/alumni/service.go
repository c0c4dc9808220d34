package alumni

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcnijman/go-emailaddress"
	"github.com/sirupsen/logrus"

	"ehsas/internal/metrics"
	"ehsas/internal/notify"
	"ehsas/internal/queue"
)

// NotificationLog records admin-facing events for the shared inbox.
type NotificationLog interface {
	Append(ctx context.Context, e notify.Entry) error
}

// Registration is the intake payload for a new alumni record.
type Registration struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Mobile           string `json:"mobile"`
	YearOfJoining    int    `json:"year_of_joining"`
	YearOfLeaving    int    `json:"year_of_leaving"`
	ClassOfJoining   string `json:"class_of_joining"`
	LastClassStudied string `json:"last_class_studied"`
	LastHouse        string `json:"last_house"`
	FullAddress      string `json:"full_address"`
	City             string `json:"city"`
	Pincode          string `json:"pincode"`
	State            string `json:"state"`
	Country          string `json:"country"`
	Profession       string `json:"profession"`
	Organization     string `json:"organization"`
}

// Service coordinates registration intake, the approval workflow and
// directory queries.
type Service struct {
	store        Store
	issuer       Issuer
	notifs       NotificationLog
	mail         queue.Queue
	metrics      *metrics.Metrics
	societyEmail string
}

// NewService creates a service. The notification log, mail queue and metrics
// may be nil; side effects are then skipped.
func NewService(store Store, issuer Issuer, notifs NotificationLog, mail queue.Queue, m *metrics.Metrics, societyEmail string) *Service {
	return &Service{
		store:        store,
		issuer:       issuer,
		notifs:       notifs,
		mail:         mail,
		metrics:      m,
		societyEmail: societyEmail,
	}
}

// Register validates the payload and creates a pending record. Either the
// full record is created or nothing is; notification and mail side effects
// are best-effort and never roll the record back.
func (s *Service) Register(ctx context.Context, reg Registration) (Record, error) {
	if err := validate(reg); err != nil {
		return Record{}, err
	}

	rec, err := s.store.Create(ctx, Record{
		FirstName:        strings.TrimSpace(reg.FirstName),
		LastName:         strings.TrimSpace(reg.LastName),
		Email:            strings.TrimSpace(reg.Email),
		Mobile:           strings.TrimSpace(reg.Mobile),
		YearOfJoining:    reg.YearOfJoining,
		YearOfLeaving:    reg.YearOfLeaving,
		ClassOfJoining:   reg.ClassOfJoining,
		LastClassStudied: reg.LastClassStudied,
		LastHouse:        reg.LastHouse,
		FullAddress:      reg.FullAddress,
		City:             reg.City,
		Pincode:          reg.Pincode,
		State:            reg.State,
		Country:          reg.Country,
		Profession:       reg.Profession,
		Organization:     reg.Organization,
	})
	if err != nil {
		return Record{}, err
	}

	if s.notifs != nil {
		err := s.notifs.Append(ctx, notify.Entry{
			Type:     "registration",
			Title:    "New Alumni Registration",
			Message:  fmt.Sprintf("%s %s (%s) has registered from batch %d", rec.FirstName, rec.LastName, rec.Email, rec.YearOfLeaving),
			AlumniID: &rec.ID,
		})
		if err != nil {
			logrus.WithError(err).Warn("unable to append registration notification")
		}
	}

	s.publishMail(ctx, queue.Job{
		Kind:    "registration",
		To:      s.societyEmail,
		Subject: "New alumni registration",
		Body:    fmt.Sprintf("New registration from %s %s (%s), batch %d.", rec.FirstName, rec.LastName, rec.Email, rec.YearOfLeaving),
	})
	s.metrics.IncRegistrations()

	return rec, nil
}

// Approve moves a pending record to approved and assigns a fresh EHSAS id.
// Calling it on a record that is no longer pending fails with
// ErrInvalidTransition and never re-issues an id.
func (s *Service) Approve(ctx context.Context, id string) (Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Status != StatusPending {
		return Record{}, ErrInvalidTransition
	}

	ehsasID, err := s.issuer.Issue(ctx, rec.YearOfLeaving)
	if err != nil {
		return Record{}, err
	}

	// The store applies status and id in one compare-and-set; a concurrent
	// transition on the same record surfaces here as ErrInvalidTransition
	// and the issued id is simply never assigned.
	updated, err := s.store.Approve(ctx, id, ehsasID)
	if err != nil {
		return Record{}, err
	}

	s.publishMail(ctx, queue.Job{
		Kind:    "approved",
		To:      updated.Email,
		Subject: "Your EHSAS membership is approved",
		Body:    fmt.Sprintf("Welcome to the society, %s! Your EHSAS ID is %s.", updated.FirstName, ehsasID),
	})
	s.metrics.IncApprovals()

	return updated, nil
}

// Reject moves a pending record to rejected. No id is issued and the email
// becomes available for a new registration.
func (s *Service) Reject(ctx context.Context, id string) (Record, error) {
	updated, err := s.store.Reject(ctx, id)
	if err != nil {
		return Record{}, err
	}

	s.publishMail(ctx, queue.Job{
		Kind:    "rejected",
		To:      updated.Email,
		Subject: "Your EHSAS registration",
		Body:    fmt.Sprintf("Dear %s, your EHSAS registration was not approved.", updated.FirstName),
	})
	s.metrics.IncRejections()

	return updated, nil
}

// Directory lists approved records only, regardless of the requested filter.
func (s *Service) Directory(ctx context.Context, f Filter) ([]Record, error) {
	f.Status = StatusApproved
	return s.store.List(ctx, f)
}

// Pending lists records awaiting review.
func (s *Service) Pending(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx, Filter{Status: StatusPending})
}

// All lists every record for the admin view.
func (s *Service) All(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx, Filter{})
}

// Stats summarizes the directory for the admin dashboard.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	approved, err := s.store.CountByStatus(ctx, StatusApproved)
	if err != nil {
		return Stats{}, err
	}
	pending, err := s.store.CountByStatus(ctx, StatusPending)
	if err != nil {
		return Stats{}, err
	}
	dist, err := s.store.BatchDistribution(ctx, 10)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalAlumni: approved, PendingRegistrations: pending, BatchDistribution: dist}, nil
}

func (s *Service) publishMail(ctx context.Context, job queue.Job) {
	if s.mail == nil || job.To == "" {
		return
	}
	if err := s.mail.Publish(ctx, job); err != nil {
		logrus.WithError(err).WithField("kind", job.Kind).Warn("unable to enqueue mail job")
	}
}

// validate collects every offending field so the caller can fix them all in
// one pass.
func validate(reg Registration) error {
	var fields []string

	required := []struct {
		name  string
		value string
	}{
		{"first_name", reg.FirstName},
		{"last_name", reg.LastName},
		{"mobile", reg.Mobile},
		{"class_of_joining", reg.ClassOfJoining},
		{"last_class_studied", reg.LastClassStudied},
		{"last_house", reg.LastHouse},
		{"full_address", reg.FullAddress},
		{"city", reg.City},
		{"pincode", reg.Pincode},
		{"state", reg.State},
		{"country", reg.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fields = append(fields, f.name)
		}
	}

	if _, err := emailaddress.Parse(strings.TrimSpace(reg.Email)); err != nil {
		fields = append(fields, "email")
	}

	if reg.YearOfJoining <= 0 {
		fields = append(fields, "year_of_joining")
	}
	if reg.YearOfLeaving <= 0 {
		fields = append(fields, "year_of_leaving")
	} else if reg.YearOfJoining > 0 && reg.YearOfJoining > reg.YearOfLeaving {
		fields = append(fields, "year_of_joining", "year_of_leaving")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
