package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"superrider-be/internal/logger"
	"superrider-be/internal/metrics"
	"superrider-be/internal/utils"

	"go.uber.org/zap"
)

const (
	idPrefix = "ORD-"
	// first generated id is ORD-101
	idFloor = 100

	pickupTimeLayout    = "03:04 PM"
	completedTimeLayout = "Jan 2 03:04 PM"
)

// Store is the single writer of order state. Reads return copies; callers
// cannot reach the store's own slices.
type Store interface {
	Init(ctx context.Context, seed *Snapshot) error
	AddOrder(ctx context.Context, input NewOrderInput) (*Order, error)
	ChangeStatus(ctx context.Context, orderID string, status Status) (*Order, error)
	Get(orderID string) (*Order, error)
	ActiveOrders() []Order
	CompletedOrders() []Order
	List(filter ListFilter) []Order
	Stats() Stats
	Snapshot() *Snapshot
}

type Option func(*store)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *store) { s.now = now }
}

type store struct {
	mu   sync.RWMutex
	repo Repository
	now  func() time.Time

	active    []Order
	completed []Order
	lastSeq   int
}

func NewStore(repo Repository, opts ...Option) Store {
	s := &store{
		repo:      repo,
		now:       time.Now,
		active:    []Order{},
		completed: []Order{},
		lastSeq:   idFloor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init restores the persisted snapshot, or installs seed when nothing has
// been persisted yet. A nil seed starts empty.
func (s *store) Init(ctx context.Context, seed *Snapshot) error {
	log := logger.FromCtx(ctx)

	snap, err := s.repo.Load(ctx)
	restored := err == nil
	switch {
	case restored:
	case errors.Is(err, ErrSnapshotNotFound):
		if seed == nil {
			seed = &Snapshot{}
		}
		snap = seed.clone()
	default:
		return fmt.Errorf("load orders: %w", err)
	}

	snap = normalize(snap)
	fix := repartition(snap)
	if fix.delivered > 0 {
		log.Warn("moved delivered orders out of the active partition", zap.Int("count", fix.delivered))
	}
	if fix.undelivered > 0 {
		log.Warn("moved undelivered orders out of the completed partition", zap.Int("count", fix.undelivered))
	}
	if fix.duplicates > 0 {
		log.Warn("dropped duplicate order ids", zap.Int("count", fix.duplicates))
	}

	if !restored {
		if err := s.repo.Save(ctx, snap); err != nil {
			return fmt.Errorf("persist seed: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = snap.ActiveOrders
	s.completed = snap.CompletedOrders
	s.lastSeq = highestSequence(s.active, s.completed)

	log.Info("order store initialized",
		zap.Bool("restored", restored),
		zap.Int("active", len(s.active)),
		zap.Int("completed", len(s.completed)),
	)
	return nil
}

// ✅ Create new order from the order form
func (s *store) AddOrder(ctx context.Context, input NewOrderInput) (*Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	seq := s.lastSeq + 1

	items := make([]Item, len(input.Items))
	copy(items, input.Items)
	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
	}

	o := Order{
		ID:              formatID(seq),
		CustomerName:    strings.TrimSpace(input.CustomerName),
		Items:           summarizeItems(items),
		PickupTime:      utils.StrPtr(now.Format(pickupTimeLayout)),
		DeliveryAddress: strings.TrimSpace(input.DropLocation),
		Status:          StatusPreparing,
		PickupLocation:  utils.StrPtr(strings.TrimSpace(input.PickupLocation)),
		DropLocation:    utils.StrPtr(strings.TrimSpace(input.DropLocation)),
		CustomerPhone:   utils.StrPtr(strings.TrimSpace(input.CustomerPhone)),
		ItemsList:       items,
		CreatedAt:       now,
	}

	active := make([]Order, 0, len(s.active)+1)
	active = append(active, o)
	active = append(active, s.active...)

	if err := s.persist(ctx, active, s.completed); err != nil {
		return nil, err
	}
	s.active = active
	s.lastSeq = seq

	metrics.OrdersCreatedTotal.Inc()
	logger.FromCtx(logger.WithOrderID(ctx, o.ID)).Info("order created",
		zap.String("customer", o.CustomerName),
		zap.String("items", o.Items),
	)

	out := o.clone()
	return &out, nil
}

// ChangeStatus moves an active order forward. Reaching Delivered moves the
// order into the completed partition and stamps its completion time.
func (s *store) ChangeStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.active, orderID)
	if idx < 0 {
		if indexOf(s.completed, orderID) >= 0 {
			return nil, ErrOrderCompleted
		}
		return nil, ErrOrderNotFound
	}

	current := s.active[idx]
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current.Status, status)
	}

	updated := current.clone()
	updated.Status = status

	var active, completed []Order
	if status.IsTerminal() {
		updated.CompletedTime = utils.StrPtr(s.now().UTC().Format(completedTimeLayout))
		active = make([]Order, 0, len(s.active)-1)
		active = append(active, s.active[:idx]...)
		active = append(active, s.active[idx+1:]...)
		completed = make([]Order, 0, len(s.completed)+1)
		completed = append(completed, updated)
		completed = append(completed, s.completed...)
	} else {
		active = make([]Order, len(s.active))
		copy(active, s.active)
		active[idx] = updated
		completed = s.completed
	}

	if err := s.persist(ctx, active, completed); err != nil {
		return nil, err
	}
	s.active = active
	s.completed = completed

	metrics.OrderStatusTransitionsTotal.WithLabelValues(string(current.Status), string(status)).Inc()
	logger.FromCtx(logger.WithOrderID(ctx, orderID)).Info("order status changed",
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
	)

	out := updated.clone()
	return &out, nil
}

func (s *store) Get(orderID string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := indexOf(s.active, orderID); i >= 0 {
		o := s.active[i].clone()
		return &o, nil
	}
	if i := indexOf(s.completed, orderID); i >= 0 {
		o := s.completed[i].clone()
		return &o, nil
	}
	return nil, ErrOrderNotFound
}

func (s *store) ActiveOrders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrders(s.active)
}

func (s *store) CompletedOrders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrders(s.completed)
}

// List returns the orders matching filter, sorted by creation time.
// Search is case-insensitive over items, drop location, delivery address
// and customer name.
func (s *store) List(filter ListFilter) []Order {
	s.mu.RLock()
	var src []Order
	switch filter.View {
	case ViewActive:
		src = cloneOrders(s.active)
	case ViewCompleted:
		src = cloneOrders(s.completed)
	default:
		src = append(cloneOrders(s.active), cloneOrders(s.completed)...)
	}
	s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]Order, 0, len(src))
	for _, o := range src {
		if q == "" || matches(o, q) {
			out = append(out, o)
		}
	}

	asc := filter.Sort == SortAsc
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Active:    len(s.active),
		Completed: len(s.completed),
		Total:     len(s.active) + len(s.completed),
	}
}

func (s *store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{
		ActiveOrders:    cloneOrders(s.active),
		CompletedOrders: cloneOrders(s.completed),
	}
}

// persist must be called with s.mu held.
func (s *store) persist(ctx context.Context, active, completed []Order) error {
	snap := &Snapshot{ActiveOrders: active, CompletedOrders: completed}
	if err := s.repo.Save(ctx, snap); err != nil {
		logger.FromCtx(ctx).Error("failed to persist orders", zap.Error(err))
		return fmt.Errorf("persist orders: %w", err)
	}
	return nil
}

func validateInput(in NewOrderInput) error {
	required := []struct {
		field string
		value string
	}{
		{"pickupLocation", in.PickupLocation},
		{"dropLocation", in.DropLocation},
		{"customerName", in.CustomerName},
		{"customerPhone", in.CustomerPhone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "is required"}
		}
	}

	if len(in.Items) == 0 {
		return &ValidationError{Field: "items", Message: "at least one item is required"}
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].name", i), Message: "is required"}
		}
		if it.Quantity < 1 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be at least 1"}
		}
		if it.Price < 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].price", i), Message: "must not be negative"}
		}
	}
	return nil
}

func summarizeItems(items []Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%dx %s", it.Quantity, it.Name)
	}
	return strings.Join(parts, ", ")
}

func matches(o Order, q string) bool {
	fields := []string{o.Items, o.DeliveryAddress, o.CustomerName}
	if o.DropLocation != nil {
		fields = append(fields, *o.DropLocation)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func formatID(seq int) string {
	return fmt.Sprintf("%s%03d", idPrefix, seq)
}

// highestSequence returns the largest numeric id suffix in use, never less
// than idFloor, so generated ids never collide with restored ones.
func highestSequence(partitions ...[]Order) int {
	highest := idFloor
	for _, orders := range partitions {
		for _, o := range orders {
			n, err := strconv.Atoi(strings.TrimPrefix(o.ID, idPrefix))
			if err != nil || !strings.HasPrefix(o.ID, idPrefix) {
				continue
			}
			if n > highest {
				highest = n
			}
		}
	}
	return highest
}

func indexOf(orders []Order, id string) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}

// normalize replaces nil partitions with empty ones so they persist as [].
func normalize(s *Snapshot) *Snapshot {
	if s.ActiveOrders == nil {
		s.ActiveOrders = []Order{}
	}
	if s.CompletedOrders == nil {
		s.CompletedOrders = []Order{}
	}
	return s
}

type repartitionResult struct {
	delivered   int
	undelivered int
	duplicates  int
}

// repartition restores the partition invariant on a loaded snapshot:
// Delivered orders move to the front of completed, anything else found in
// completed moves to the back of active, and each id is kept once. A copy in
// completed wins over one in active, since status never goes backwards;
// within a partition the first occurrence wins.
func repartition(s *Snapshot) repartitionResult {
	var res repartitionResult

	var delivered, active []Order
	for _, o := range s.ActiveOrders {
		if o.Status.IsTerminal() {
			delivered = append(delivered, o)
			res.delivered++
			continue
		}
		active = append(active, o)
	}

	var completed []Order
	for _, o := range s.CompletedOrders {
		if !o.Status.IsTerminal() {
			active = append(active, o)
			res.undelivered++
			continue
		}
		completed = append(completed, o)
	}
	completed = append(delivered, completed...)

	seen := make(map[string]bool, len(active)+len(completed))
	keep := func(in []Order) []Order {
		out := make([]Order, 0, len(in))
		for _, o := range in {
			if seen[o.ID] {
				res.duplicates++
				continue
			}
			seen[o.ID] = true
			out = append(out, o)
		}
		return out
	}
	s.CompletedOrders = keep(completed)
	s.ActiveOrders = keep(active)
	return res
}
