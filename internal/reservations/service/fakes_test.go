package service

import (
	"context"
	"fmt"
	"sort"
	"staybook/internal/calendar"
	"staybook/internal/notifier"
	reservationerrors "staybook/internal/reservations/errors"
	"staybook/internal/reservations/validator"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/identity"
	"staybook/pkg/lock"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	accID      = "7d3b8f2e-8c1a-4a6e-9a53-1b2c3d4e5f60"
	otherAccID = "8e4c9a3f-9d2b-4b7f-8b64-2c3d4e5f6a71"
	guestID    = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
	otherGuest = "2d3e4f5a-6b7c-4d8e-9f0a-1b2c3d4e5f60"
	hostID     = "0b9a7c1e-2d3f-4a5b-8c6d-7e8f9a0b1c2d"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeRepository keeps requests and reservations in memory. Transactions run the function directly.
type fakeRepository struct {
	mu           sync.Mutex
	requests     map[string]*model.ReservationRequest
	reservations map[string]*model.Reservation
	seq          int
	txCalls      int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		requests:     map[string]*model.ReservationRequest{},
		reservations: map[string]*model.Reservation{},
	}
}

func (r *fakeRepository) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeRepository) addRequest(guest, start, end string, status model.RequestStatus) *model.ReservationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	req := &model.ReservationRequest{
		ID:              r.nextID("req"),
		GuestID:         guest,
		AccommodationID: accID,
		StartDate:       day(start),
		EndDate:         day(end),
		GuestCount:      2,
		Status:          status,
		CreatedAt:       time.Date(2025, 1, 1, 0, 0, r.seq, 0, time.UTC),
	}
	copied := *req
	r.requests[req.ID] = &copied
	return req
}

func (r *fakeRepository) addReservation(req *model.ReservationRequest, status model.ReservationStatus) *model.Reservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := &model.Reservation{
		ID:              r.nextID("res"),
		RequestID:       req.ID,
		AccommodationID: req.AccommodationID,
		GuestID:         req.GuestID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Status:          status,
	}
	copied := *res
	r.reservations[res.ID] = &copied
	return res
}

func (r *fakeRepository) request(id string) *model.ReservationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[id]
}

func (r *fakeRepository) reservationFor(requestID string) *model.Reservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.RequestID == requestID {
			return res
		}
	}
	return nil
}

func (r *fakeRepository) CreateRequest(ctx context.Context, req *model.ReservationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = r.nextID("req")
	req.CreatedAt = time.Date(2025, 1, 1, 0, 0, r.seq, 0, time.UTC)
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *fakeRepository) FindRequestByID(ctx context.Context, id string) (*model.ReservationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, reservationerrors.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (r *fakeRepository) UpdateRequest(ctx context.Context, req *model.ReservationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok {
		return reservationerrors.ErrNotFound
	}
	stored.StartDate = req.StartDate
	stored.EndDate = req.EndDate
	stored.GuestCount = req.GuestCount
	return nil
}

func (r *fakeRepository) UpdateRequestStatus(ctx context.Context, id string, status model.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[id]
	if !ok {
		return reservationerrors.ErrNotFound
	}
	stored.Status = status
	return nil
}

func (r *fakeRepository) DeleteRequest(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[id]; !ok {
		return reservationerrors.ErrNotFound
	}
	delete(r.requests, id)
	return nil
}

func (r *fakeRepository) filterRequests(keep func(*model.ReservationRequest) bool) []*model.ReservationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.ReservationRequest{}
	for _, req := range r.requests {
		if keep(req) {
			copied := *req
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeRepository) FindRequestsByGuest(ctx context.Context, guest, accommodationID string) ([]*model.ReservationRequest, error) {
	return r.filterRequests(func(req *model.ReservationRequest) bool {
		return req.GuestID == guest && (accommodationID == "" || req.AccommodationID == accommodationID)
	}), nil
}

func (r *fakeRepository) FindRequestsByAccommodation(ctx context.Context, accommodationID string) ([]*model.ReservationRequest, error) {
	return r.filterRequests(func(req *model.ReservationRequest) bool {
		return req.AccommodationID == accommodationID
	}), nil
}

func (r *fakeRepository) FindPendingOverlapping(ctx context.Context, accommodationID string, from, to time.Time, excludeID string) ([]*model.ReservationRequest, error) {
	return r.filterRequests(func(req *model.ReservationRequest) bool {
		return req.AccommodationID == accommodationID && req.Status == model.RequestPending && req.ID != excludeID &&
			!req.StartDate.After(to) && !req.EndDate.Before(from)
	}), nil
}

func (r *fakeRepository) CreateReservation(ctx context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reservations {
		if existing.RequestID == res.RequestID {
			return reservationerrors.ErrDuplicateReservation
		}
	}
	res.ID = r.nextID("res")
	copied := *res
	r.reservations[res.ID] = &copied
	return nil
}

func (r *fakeRepository) FindReservationByRequest(ctx context.Context, requestID string) (*model.Reservation, error) {
	if res := r.reservationFor(requestID); res != nil {
		copied := *res
		return &copied, nil
	}
	return nil, reservationerrors.ErrReservationNotFound
}

func (r *fakeRepository) filterReservations(keep func(*model.Reservation) bool) []*model.Reservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Reservation{}
	for _, res := range r.reservations {
		if keep(res) {
			copied := *res
			out = append(out, &copied)
		}
	}
	return out
}

func (r *fakeRepository) FindReservationsByRequests(ctx context.Context, requestIDs []string) ([]*model.Reservation, error) {
	wanted := map[string]bool{}
	for _, id := range requestIDs {
		wanted[id] = true
	}
	return r.filterReservations(func(res *model.Reservation) bool { return wanted[res.RequestID] }), nil
}

func (r *fakeRepository) UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return reservationerrors.ErrReservationNotFound
	}
	res.Status = status
	return nil
}

func (r *fakeRepository) FindConfirmedOverlapping(ctx context.Context, accommodationID string, from, to time.Time) ([]*model.Reservation, error) {
	return r.filterReservations(func(res *model.Reservation) bool {
		return res.AccommodationID == accommodationID && res.Status == model.ReservationConfirmed &&
			!res.StartDate.After(to) && !res.EndDate.Before(from)
	}), nil
}

func (r *fakeRepository) CountByGuestAndStatus(ctx context.Context, guest string, status model.ReservationStatus) (int64, error) {
	return int64(len(r.filterReservations(func(res *model.Reservation) bool {
		return res.GuestID == guest && res.Status == status
	}))), nil
}

func (r *fakeRepository) CompleteBefore(ctx context.Context, today time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, res := range r.reservations {
		if res.Status == model.ReservationConfirmed && res.EndDate.Before(today) {
			res.Status = model.ReservationCompleted
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) ExistsCompletedStay(ctx context.Context, guest string, accommodationIDs []string, today time.Time) (bool, error) {
	in := map[string]bool{}
	for _, id := range accommodationIDs {
		in[id] = true
	}
	return len(r.filterReservations(func(res *model.Reservation) bool {
		return res.GuestID == guest && in[res.AccommodationID] && res.Status == model.ReservationCompleted && res.EndDate.Before(today)
	})) > 0, nil
}

func (r *fakeRepository) ExistsConfirmedForGuest(ctx context.Context, guest string) (bool, error) {
	return len(r.filterReservations(func(res *model.Reservation) bool {
		return res.GuestID == guest && res.Status == model.ReservationConfirmed
	})) > 0, nil
}

func (r *fakeRepository) ExistsConfirmedEndingAfter(ctx context.Context, accommodationIDs []string, today time.Time) (bool, error) {
	in := map[string]bool{}
	for _, id := range accommodationIDs {
		in[id] = true
	}
	return len(r.filterReservations(func(res *model.Reservation) bool {
		return in[res.AccommodationID] && res.Status == model.ReservationConfirmed && res.EndDate.After(today)
	})) > 0, nil
}

func (r *fakeRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.txCalls++
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockAllocator struct {
	allocateFunc func(ctx context.Context, accommodationID string, stay calendar.Range) ([]calendar.Change, error)
	reopenFunc   func(ctx context.Context, accommodationID string, stay calendar.Range) ([]calendar.Change, error)
	allocated    []calendar.Range
	reopened     []calendar.Range
}

func (m *mockAllocator) Allocate(ctx context.Context, accommodationID string, stay calendar.Range) ([]calendar.Change, error) {
	m.allocated = append(m.allocated, stay)
	if m.allocateFunc != nil {
		return m.allocateFunc(ctx, accommodationID, stay)
	}
	return nil, nil
}

func (m *mockAllocator) Reopen(ctx context.Context, accommodationID string, stay calendar.Range) ([]calendar.Change, error) {
	m.reopened = append(m.reopened, stay)
	if m.reopenFunc != nil {
		return m.reopenFunc(ctx, accommodationID, stay)
	}
	return nil, nil
}

type mockDirectory struct {
	autoConfirmFunc        func(ctx context.Context, accommodationID string) (bool, error)
	hostAccommodationsFunc func(ctx context.Context, hostID, token string) ([]string, error)
}

func (m *mockDirectory) AutoConfirm(ctx context.Context, accommodationID string) (bool, error) {
	if m.autoConfirmFunc != nil {
		return m.autoConfirmFunc(ctx, accommodationID)
	}
	return false, nil
}

func (m *mockDirectory) HostAccommodations(ctx context.Context, host, token string) ([]string, error) {
	if m.hostAccommodationsFunc != nil {
		return m.hostAccommodationsFunc(ctx, host, token)
	}
	return nil, nil
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

type fixture struct {
	repo      *fakeRepository
	allocator *mockAllocator
	directory *mockDirectory
	notifier  *recordingNotifier
	service   *reservationService
}

func newFixture(today string) *fixture {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:     "info",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
		LockRetryAttempts: 3,
		LockRetryBackoff:  time.Millisecond,
	}
	f := &fixture{
		repo:      newFakeRepository(),
		allocator: &mockAllocator{},
		directory: &mockDirectory{},
		notifier:  &recordingNotifier{},
	}
	f.service = NewReservationService(f.repo, f.allocator, f.directory, lock.NewMemoryLocker(), f.notifier,
		validator.NewReservationValidator(cfg.Log), cfg).(*reservationService)
	now := day(today).Add(9 * time.Hour)
	f.service.now = func() time.Time { return now }
	return f
}

func guest(id string) *identity.Caller {
	return &identity.Caller{ID: id, Role: identity.RoleGuest, Email: "guest@example.com", FirstName: "Ana", LastName: "Jovic"}
}

func host() *identity.Caller {
	return &identity.Caller{ID: hostID, Role: identity.RoleHost, FirstName: "Marko", LastName: "Petrovic", Token: "token-1"}
}
