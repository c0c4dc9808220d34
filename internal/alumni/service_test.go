package alumni

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ehsas/internal/notify"
	"ehsas/internal/queue"
)

// memStore is an in-memory Store with the same compare-and-set semantics as
// the Postgres repository, used to exercise workflow invariants without a
// database.
type memStore struct {
	mu      sync.Mutex
	records map[string]Record
	clock   int64
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]Record)}
}

func (s *memStore) Create(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.Status != StatusRejected && strings.EqualFold(existing.Email, rec.Email) {
			return Record{}, ErrDuplicateEmail
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Status = StatusPending
	rec.EhsasID = nil
	s.clock++
	rec.CreatedAt = time.Unix(s.clock, 0).UTC()
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *memStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *memStore) List(_ context.Context, f Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Record
	for _, rec := range s.records {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.Batch != 0 && rec.YearOfLeaving != f.Batch {
			continue
		}
		if f.Profession != "" && !strings.Contains(strings.ToLower(rec.Profession), strings.ToLower(f.Profession)) {
			continue
		}
		if f.City != "" && !strings.Contains(strings.ToLower(rec.City), strings.ToLower(f.City)) {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *memStore) Approve(_ context.Context, id, ehsasID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Status != StatusPending {
		return Record{}, ErrInvalidTransition
	}
	now := time.Now().UTC()
	rec.Status = StatusApproved
	rec.EhsasID = &ehsasID
	rec.ApprovedAt = &now
	s.records[id] = rec
	return rec, nil
}

func (s *memStore) Reject(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Status != StatusPending {
		return Record{}, ErrInvalidTransition
	}
	rec.Status = StatusRejected
	s.records[id] = rec
	return rec, nil
}

func (s *memStore) CountByStatus(_ context.Context, status Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if rec.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *memStore) BatchDistribution(_ context.Context, limit int) ([]BatchCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int]int)
	for _, rec := range s.records {
		if rec.Status == StatusApproved {
			counts[rec.YearOfLeaving]++
		}
	}
	var res []BatchCount
	for batch, n := range counts {
		res = append(res, BatchCount{Batch: batch, Count: n})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Batch > res[j].Batch })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// seqIssuer issues sequential ids so tests can assert exact values.
type seqIssuer struct {
	n int32
}

func (i *seqIssuer) Issue(_ context.Context, batch int) (string, error) {
	n := atomic.AddInt32(&i.n, 1)
	return fmt.Sprintf("EH%02d%04d", batch%100, n), nil
}

// memLog collects appended notification entries.
type memLog struct {
	mu      sync.Mutex
	entries []notify.Entry
}

func (l *memLog) Append(_ context.Context, e notify.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func newTestService() (*Service, *memStore, *memLog, *queue.InMemory) {
	store := newMemStore()
	log := &memLog{}
	mail := queue.NewInMemory(16)
	svc := NewService(store, &seqIssuer{}, log, mail, nil, "ehsas@eldenheights.org")
	return svc, store, log, mail
}

func validRegistration(email string) Registration {
	return Registration{
		FirstName:        "Asha",
		LastName:         "Verma",
		Email:            email,
		Mobile:           "9876543210",
		YearOfJoining:    2005,
		YearOfLeaving:    2015,
		ClassOfJoining:   "VI",
		LastClassStudied: "XII",
		LastHouse:        "Red",
		FullAddress:      "12 Hill Road",
		City:             "Pune",
		Pincode:          "411001",
		State:            "Maharashtra",
		Country:          "India",
		Profession:       "Doctor",
	}
}

func TestRegisterCreatesPendingRecord(t *testing.T) {
	svc, _, log, mail := newTestService()

	rec, err := svc.Register(context.Background(), validRegistration("a@x.com"))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, rec.Status)
	assert.Nil(t, rec.EhsasID)
	assert.NotEmpty(t, rec.ID)

	require.Len(t, log.entries, 1)
	assert.Equal(t, "New Alumni Registration", log.entries[0].Title)
	assert.Equal(t, "registration", log.entries[0].Type)
	require.NotNil(t, log.entries[0].AlumniID)
	assert.Equal(t, rec.ID, *log.entries[0].AlumniID)
	assert.Contains(t, log.entries[0].Message, "a@x.com")
	assert.Contains(t, log.entries[0].Message, "2015")

	jobs, err := mail.Consume(context.Background())
	require.NoError(t, err)
	job := <-jobs
	assert.Equal(t, "registration", job.Kind)
	assert.Equal(t, "ehsas@eldenheights.org", job.To)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, log, _ := newTestService()

	t.Run("missing fields are all reported", func(t *testing.T) {
		reg := validRegistration("a@x.com")
		reg.FirstName = ""
		reg.City = "  "
		reg.Email = "not-an-email"

		_, err := svc.Register(context.Background(), reg)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.ElementsMatch(t, []string{"first_name", "city", "email"}, vErr.Fields)
		assert.Empty(t, log.entries, "no side effects on validation failure")
	})

	t.Run("joining year after leaving year", func(t *testing.T) {
		reg := validRegistration("b@x.com")
		reg.YearOfJoining = 2016
		reg.YearOfLeaving = 2015

		_, err := svc.Register(context.Background(), reg)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "year_of_joining")
		assert.Contains(t, vErr.Fields, "year_of_leaving")
	})

	t.Run("zero years rejected", func(t *testing.T) {
		reg := validRegistration("c@x.com")
		reg.YearOfJoining = 0
		reg.YearOfLeaving = 0

		_, err := svc.Register(context.Background(), reg)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.ElementsMatch(t, []string{"year_of_joining", "year_of_leaving"}, vErr.Fields)
	})
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Register(ctx, validRegistration("dup@x.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegistration("dup@x.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail, "pending record blocks the email")

	_, err = svc.Approve(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.Register(ctx, validRegistration("dup@x.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail, "approved record blocks the email")

	second, err := svc.Register(ctx, validRegistration("again@x.com"))
	require.NoError(t, err)
	_, err = svc.Reject(ctx, second.ID)
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegistration("again@x.com"))
	assert.NoError(t, err, "rejected email may register again")
}

func TestApproveIssuesMembershipID(t *testing.T) {
	svc, store, _, mail := newTestService()
	ctx := context.Background()

	rec, err := svc.Register(ctx, validRegistration("a@x.com"))
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.EhsasID)
	assert.Equal(t, "EH150001", *approved.EhsasID)
	assert.NotNil(t, approved.ApprovedAt)

	// A second approve must fail and must not change the issued id.
	_, err = svc.Approve(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "EH150001", *current.EhsasID)

	jobs, err := mail.Consume(ctx)
	require.NoError(t, err)
	<-jobs // registration mail
	job := <-jobs
	assert.Equal(t, "approved", job.Kind)
	assert.Equal(t, "a@x.com", job.To)
	assert.Contains(t, job.Body, "EH150001")
}

func TestRejectLeavesNoMembershipID(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Register(ctx, validRegistration("a@x.com"))
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Nil(t, rejected.EhsasID)

	_, err = svc.Reject(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Approve(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "rejected is terminal")

	current, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, current.EhsasID)
}

func TestApproveUnknownRecord(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Approve(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentApproveIsAtMostOnce(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Register(ctx, validRegistration("race@x.com"))
	require.NoError(t, err)

	const callers = 2
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(ctx, rec.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, lost int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrInvalidTransition):
			lost++
		}
	}
	assert.Equal(t, 1, ok, "exactly one approve succeeds")
	assert.Equal(t, 1, lost, "the loser observes an invalid transition")

	current, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, current.EhsasID)
}

func TestDirectoryOnlyReturnsApproved(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	approved, err := svc.Register(ctx, validRegistration("approved@x.com"))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, approved.ID)
	require.NoError(t, err)

	rejected, err := svc.Register(ctx, validRegistration("rejected@x.com"))
	require.NoError(t, err)
	_, err = svc.Reject(ctx, rejected.ID)
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegistration("pending@x.com"))
	require.NoError(t, err)

	for _, f := range []Filter{
		{},
		{Batch: 2015},
		{Profession: "doc"},
		{City: "PUNE"},
		{Status: StatusPending}, // requested status is ignored
	} {
		records, err := svc.Directory(ctx, f)
		require.NoError(t, err)
		for _, rec := range records {
			assert.Equal(t, StatusApproved, rec.Status)
		}
	}

	records, err := svc.Directory(ctx, Filter{Batch: 2015})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "approved@x.com", records[0].Email)

	records, err = svc.Directory(ctx, Filter{Batch: 2014})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStats(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec, err := svc.Register(ctx, validRegistration(fmt.Sprintf("a%d@x.com", i)))
		require.NoError(t, err)
		if i < 2 {
			_, err = svc.Approve(ctx, rec.ID)
			require.NoError(t, err)
		}
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAlumni)
	assert.Equal(t, 1, stats.PendingRegistrations)
	require.Len(t, stats.BatchDistribution, 1)
	assert.Equal(t, BatchCount{Batch: 2015, Count: 2}, stats.BatchDistribution[0])
}
