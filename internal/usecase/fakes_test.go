package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	domainErrors "github.com/Radamanths/Irina-online-school-sub000/internal/domain/errors"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
)

// memStore backs every in-memory repository. Reads and writes copy the
// struct so callers never share state with the store.
type memStore struct {
	mu            sync.Mutex
	orders        map[string]*model.Order
	payments      map[string]*model.Payment
	subscriptions map[string]*model.Subscription
	plans         map[string]*model.SubscriptionPlan
	courses       map[string]*model.Course
	users         map[string]*model.User
	enrollments   map[string]string
	seq           time.Time

	enrollmentErr error
	// onOrderLock runs when an order row lock is taken, before it is read.
	onOrderLock   func(orderID string)
}

func newMemStore() *memStore {
	return &memStore{
		orders:        map[string]*model.Order{},
		payments:      map[string]*model.Payment{},
		subscriptions: map[string]*model.Subscription{},
		plans:         map[string]*model.SubscriptionPlan{},
		courses:       map[string]*model.Course{},
		users:         map[string]*model.User{},
		enrollments:   map[string]string{},
		seq:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps for CreatedAt.
func (s *memStore) tick() time.Time {
	s.seq = s.seq.Add(time.Second)
	return s.seq
}

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type orderRepo struct{ s *memStore }

func (r orderRepo) Create(_ context.Context, order *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.s.tick()
	}
	c := *order
	r.s.orders[order.ID] = &c
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id string) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id string) (*model.Order, error) {
	if r.s.onOrderLock != nil {
		r.s.onOrderLock(id)
	}
	return r.GetByID(ctx, id)
}

func (r orderRepo) Update(_ context.Context, order *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[order.ID]; !ok {
		return domainErrors.ErrOrderNotFound
	}
	c := *order
	r.s.orders[order.ID] = &c
	return nil
}

func (r orderRepo) sorted(filter func(*model.Order) bool) []*model.Order {
	var out []*model.Order
	for _, o := range r.s.orders {
		if filter(o) {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r orderRepo) ListByUser(_ context.Context, userID, cursor string, take int) ([]*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.sorted(func(o *model.Order) bool { return o.UserID == userID })
	slices.Reverse(list)
	if cursor != "" {
		idx := slices.IndexFunc(list, func(o *model.Order) bool { return o.ID == cursor })
		if idx >= 0 {
			list = list[idx+1:]
		}
	}
	if len(list) > take {
		list = list[:take]
	}
	return list, nil
}

func (r orderRepo) ListOverdue(_ context.Context, statuses []model.OrderStatus, cutoff time.Time, limit int) ([]*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.sorted(func(o *model.Order) bool {
		return slices.Contains(statuses, o.Status) && !o.CreatedAt.After(cutoff)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type paymentRepo struct{ s *memStore }

func (r paymentRepo) conflict(p *model.Payment) bool {
	if p.ProviderRef == nil {
		return false
	}
	for id, other := range r.s.payments {
		if id != p.ID && other.Provider == p.Provider && other.Ref() == *p.ProviderRef {
			return true
		}
	}
	return false
}

func (r paymentRepo) Create(_ context.Context, payment *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.conflict(payment) {
		return domainErrors.ErrDuplicateProviderRef
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = r.s.tick()
	}
	c := *payment
	r.s.payments[payment.ID] = &c
	return nil
}

func (r paymentRepo) Update(_ context.Context, payment *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.ID]; !ok {
		return domainErrors.ErrPaymentNotFound
	}
	if r.conflict(payment) {
		return domainErrors.ErrDuplicateProviderRef
	}
	c := *payment
	r.s.payments[payment.ID] = &c
	return nil
}

func (r paymentRepo) GetByID(_ context.Context, id string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r paymentRepo) filter(fn func(*model.Payment) bool) []*model.Payment {
	var out []*model.Payment
	for _, p := range r.s.payments {
		if fn(p) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r paymentRepo) GetByProviderRef(_ context.Context, providerType model.ProviderType, ref string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.filter(func(p *model.Payment) bool { return p.Provider == providerType && p.Ref() == ref })
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r paymentRepo) GetLatestForOrder(_ context.Context, providerType model.ProviderType, orderID string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.filter(func(p *model.Payment) bool { return p.Provider == providerType && p.OrderID == orderID })
	if len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}

func (r paymentRepo) GetLatestSucceeded(_ context.Context, orderID string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.filter(func(p *model.Payment) bool {
		return p.OrderID == orderID && p.Status == model.PaymentStatusSucceeded
	})
	if len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}

func (r paymentRepo) ListByOrder(_ context.Context, orderID string) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(p *model.Payment) bool { return p.OrderID == orderID }), nil
}

func (r paymentRepo) ListRecent(_ context.Context, limit int) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.filter(func(*model.Payment) bool { return true })
	slices.Reverse(list)
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type subscriptionRepo struct{ s *memStore }

func (r subscriptionRepo) Create(_ context.Context, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *sub
	r.s.subscriptions[sub.ID] = &c
	return nil
}

func (r subscriptionRepo) GetByID(_ context.Context, id string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subscriptions[id]
	if !ok {
		return nil, nil
	}
	c := *sub
	if plan, ok := r.s.plans[c.PlanID]; ok {
		p := *plan
		c.Plan = &p
	}
	return &c, nil
}

func (r subscriptionRepo) GetForUpdate(ctx context.Context, id string) (*model.Subscription, error) {
	return r.GetByID(ctx, id)
}

func (r subscriptionRepo) Update(_ context.Context, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.subscriptions[sub.ID]; !ok {
		return domainErrors.ErrSubscriptionNotFound
	}
	c := *sub
	c.Plan = nil
	r.s.subscriptions[sub.ID] = &c
	return nil
}

func (r subscriptionRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.subscriptions, id)
	return nil
}

type planRepo struct{ s *memStore }

func (r planRepo) GetByID(_ context.Context, id string) (*model.SubscriptionPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	plan, ok := r.s.plans[id]
	if !ok {
		return nil, nil
	}
	c := *plan
	return &c, nil
}

type catalogRepo struct{ s *memStore }

func (r catalogRepo) GetCourse(_ context.Context, id string) (*model.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	course, ok := r.s.courses[id]
	if !ok {
		return nil, nil
	}
	c := *course
	return &c, nil
}

func (r catalogRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	c := *user
	return &c, nil
}

type enrollmentRepo struct{ s *memStore }

func (r enrollmentRepo) UpsertPaused(_ context.Context, userID, courseID, orderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.enrollmentErr != nil {
		return r.s.enrollmentErr
	}
	r.s.enrollments[userID+"/"+courseID] = orderID
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.BillingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event entity.BillingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) ofType(t entity.EventType) []entity.BillingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []entity.BillingEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// MockPaymentProvider is a mock implementation of provider.PaymentProvider
type MockPaymentProvider struct {
	mock.Mock
	kind model.ProviderType
}

func (m *MockPaymentProvider) Type() model.ProviderType {
	return m.kind
}

func (m *MockPaymentProvider) CreateSession(ctx context.Context, req *provider.SessionRequest) (*provider.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Session), args.Error(1)
}

func (m *MockPaymentProvider) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*provider.NormalizedEvent, error) {
	args := m.Called(ctx, payload, headers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.NormalizedEvent), args.Error(1)
}

type providerRegistry map[model.ProviderType]provider.PaymentProvider

func (r providerRegistry) GetProvider(providerType model.ProviderType) (provider.PaymentProvider, error) {
	p, ok := r[providerType]
	if !ok {
		return nil, errors.New("provider not registered")
	}
	return p, nil
}

// fixture wires every usecase over one memStore.
type fixture struct {
	store     *memStore
	publisher *recordingPublisher
	orders    orderRepo
	payments  paymentRepo
	subs      subscriptionRepo
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{
		store:     s,
		publisher: &recordingPublisher{},
		orders:    orderRepo{s},
		payments:  paymentRepo{s},
		subs:      subscriptionRepo{s},
	}
}

func strPtr(s string) *string { return &s }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

const (
	testUserID   = "7b0c2a56-3d1f-4a0e-9a61-0f4a6f2c1a01"
	otherUserID  = "7b0c2a56-3d1f-4a0e-9a61-0f4a6f2c1a02"
	testCourseID = "2f6b8c1e-5a4d-4b7e-8e0f-9c3d2a1b0c01"
	testPlanID   = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c01"
)

// seedCatalog adds a user and a course priced 500 USD / 45000 RUB.
func (f *fixture) seedCatalog(cohort *string) {
	f.store.users[testUserID] = &model.User{ID: testUserID, Email: "student@example.com", Locale: "ru"}
	f.store.users[otherUserID] = &model.User{ID: otherUserID, Email: "other@example.com", Locale: "en"}
	f.store.courses[testCourseID] = &model.Course{
		ID:         testCourseID,
		Title:      "Go Backend",
		PriceUSD:   decPtr("500"),
		PriceRUB:   decPtr("45000"),
		CohortCode: cohort,
	}
}

func (f *fixture) seedPlan(plan model.SubscriptionPlan) {
	if plan.ID == "" {
		plan.ID = testPlanID
	}
	if plan.CourseID == "" {
		plan.CourseID = testCourseID
	}
	f.store.plans[plan.ID] = &plan
}

func (f *fixture) order(id string) *model.Order {
	o, _ := f.orders.GetByID(context.Background(), id)
	return o
}

func (f *fixture) subscription(id string) *model.Subscription {
	s, _ := f.subs.GetByID(context.Background(), id)
	return s
}

func (f *fixture) paymentsOf(orderID string) []*model.Payment {
	list, _ := f.payments.ListByOrder(context.Background(), orderID)
	return list
}
