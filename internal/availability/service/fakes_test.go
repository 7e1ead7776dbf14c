package service

import (
	"context"
	"fmt"
	"sort"
	availabilityerrors "staybook/internal/availability/errors"
	"staybook/internal/availability/validator"
	"staybook/internal/calendar"
	"staybook/internal/notifier"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/lock"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
)

const accID = "7d3b8f2e-8c1a-4a6e-9a53-1b2c3d4e5f60"

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeRepository keeps intervals in memory. Transactions run the function directly.
type fakeRepository struct {
	mu        sync.Mutex
	intervals map[string]*model.Availability
	seq       int
	txCalls   int
	txErr     func(attempt int) error
	findErr   error
}

func newFakeRepository(intervals ...*model.Availability) *fakeRepository {
	r := &fakeRepository{intervals: map[string]*model.Availability{}}
	for _, iv := range intervals {
		r.seed(iv)
	}
	return r
}

func (r *fakeRepository) seed(iv *model.Availability) *model.Availability {
	if iv.ID == "" {
		r.seq++
		iv.ID = fmt.Sprintf("av-%d", r.seq)
	}
	if iv.AccommodationID == "" {
		iv.AccommodationID = accID
	}
	r.intervals[iv.ID] = iv.Clone()
	return iv
}

func (r *fakeRepository) Create(ctx context.Context, a *model.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = ""
	r.seed(a)
	return nil
}

func (r *fakeRepository) FindByID(ctx context.Context, id string) (*model.Availability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.intervals[id]
	if !ok {
		return nil, availabilityerrors.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *fakeRepository) Update(ctx context.Context, a *model.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.intervals[a.ID]; !ok {
		return availabilityerrors.ErrNotFound
	}
	r.intervals[a.ID] = a.Clone()
	return nil
}

func (r *fakeRepository) UpdateStatus(ctx context.Context, id string, status model.AvailabilityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.intervals[id]
	if !ok {
		return availabilityerrors.ErrNotFound
	}
	a.Status = status
	return nil
}

func (r *fakeRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.intervals[id]; !ok {
		return availabilityerrors.ErrNotFound
	}
	delete(r.intervals, id)
	return nil
}

func (r *fakeRepository) FindByAccommodation(ctx context.Context, accommodationID string) ([]*model.Availability, error) {
	return r.FindOverlapping(ctx, accommodationID, time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
}

func (r *fakeRepository) FindOverlapping(ctx context.Context, accommodationID string, from, to time.Time, statuses ...model.AvailabilityStatus) ([]*model.Availability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*model.Availability
	for _, a := range r.intervals {
		if a.AccommodationID != accommodationID || a.StartDate.After(to) || a.EndDate.Before(from) {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, a.Status) {
			continue
		}
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func hasStatus(statuses []model.AvailabilityStatus, s model.AvailabilityStatus) bool {
	for _, want := range statuses {
		if want == s {
			return true
		}
	}
	return false
}

func (r *fakeRepository) ExpireBefore(ctx context.Context, today time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.intervals {
		if a.Status == model.AvailabilityAvailable && a.EndDate.Before(today) {
			a.Status = model.AvailabilityExpired
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) ApplyChanges(ctx context.Context, changes []calendar.Change) error {
	for _, c := range changes {
		var err error
		switch c.Kind {
		case calendar.Created:
			err = r.Create(ctx, c.Interval)
		case calendar.Updated:
			err = r.Update(ctx, c.Interval)
		case calendar.StatusChanged:
			err = r.UpdateStatus(ctx, c.Interval.ID, c.Interval.Status)
		case calendar.Deleted:
			err = r.Delete(ctx, c.Interval.ID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.txCalls++
	if r.txErr != nil {
		if err := r.txErr(r.txCalls); err != nil {
			return err
		}
	}
	return fn(mongo.NewSessionContext(ctx, nil))
}

func (r *fakeRepository) all() []*model.Availability {
	out, _ := r.FindByAccommodation(context.Background(), accID)
	return out
}

type fakeStays struct {
	stays []*model.Reservation
}

func (f *fakeStays) FindConfirmedOverlapping(ctx context.Context, accommodationID string, from, to time.Time) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.stays {
		if r.AccommodationID == accommodationID && r.Status == model.ReservationConfirmed &&
			!r.StartDate.After(to) && !r.EndDate.Before(from) {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, events ...notifier.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, events...)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:     "info",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
		LockRetryAttempts:     3,
		LockRetryBackoff:      time.Millisecond,
		CalendarDefaultMonths: 3,
	}
}

type fixture struct {
	repo     *fakeRepository
	stays    *fakeStays
	notifier *recordingNotifier
	service  *availabilityService
}

func newFixture(today string, intervals ...*model.Availability) *fixture {
	cfg := testConfig()
	repo := newFakeRepository(intervals...)
	stays := &fakeStays{}
	rec := &recordingNotifier{}
	svc := NewAvailabilityService(repo, stays, lock.NewMemoryLocker(), rec, validator.NewAvailabilityValidator(cfg.Log), cfg).(*availabilityService)
	now := day(today).Add(10 * time.Hour)
	svc.now = func() time.Time { return now }
	return &fixture{repo: repo, stays: stays, notifier: rec, service: svc}
}

func interval(start, end string, status model.AvailabilityStatus, price string) *model.Availability {
	return &model.Availability{
		AccommodationID: accID,
		StartDate:       day(start),
		EndDate:         day(end),
		Price:           decimal.RequireFromString(price),
		PriceType:       model.PriceNormal,
		Status:          status,
	}
}

func pricePtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
