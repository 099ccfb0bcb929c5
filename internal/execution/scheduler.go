package execution

import (
	"container/heap"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// rebalanceEpsilon is the minimum share-count delta worth trading;
// diffs smaller than this are considered already at goal.
const rebalanceEpsilon = 0.1

// pollInterval is how often the worker wakes to check for due children,
// mirroring the teacher's worker-pool/state-manager cadence of a short
// bounded sleep rather than per-item timers.
const pollInterval = 100 * time.Millisecond

// childHeap is a min-heap of *ChildOrder ordered by ScheduledAt,
// grounded on the teacher's evaluation/worker_pool.go fan-out idiom
// generalized from a channel-distributed job queue to a time-ordered one
// via container/heap (the structure the stdlib offers for exactly this:
// a single worker draining a priority queue).
type childHeap []*ChildOrder

func (h childHeap) Len() int            { return len(h) }
func (h childHeap) Less(i, j int) bool  { return h[i].ScheduledAt.Before(h[j].ScheduledAt) }
func (h childHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *childHeap) Push(x interface{}) { *h = append(*h, x.(*ChildOrder)) }
func (h *childHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Scheduler owns the single background worker that fires due child
// orders against a Broker. One mutex guards both the order registry and
// the child queue, per the concurrency contract: structural changes to
// either must be atomic with respect to cancellation.
type Scheduler struct {
	mu       sync.Mutex
	broker   Broker
	log      zerolog.Logger
	queue    childHeap
	orders   map[string]*Order
	lastTick time.Time
	stopCh   chan struct{}
	stopped  chan struct{}
}

// NewScheduler returns a scheduler with an empty queue. Call Start to
// launch its background worker.
func NewScheduler(broker Broker, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		broker: broker,
		log:    log.With().Str("component", "execution_scheduler").Logger(),
		orders: make(map[string]*Order),
	}
}

// Start launches the background worker goroutine. Calling Start twice on
// the same scheduler is a bug in the caller; it is not guarded against.
func (s *Scheduler) Start() {
	s.stopCh = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run()
}

// Stop signals the worker to exit and waits for it to do so.
func (s *Scheduler) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.stopped
}

func (s *Scheduler) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// tick partitions the queue into due and later children under lock, then
// submits each due child still belonging to an ACTIVE parent.
func (s *Scheduler) tick(now time.Time) {
	due := s.popDue(now)
	for _, child := range due {
		s.fire(child)
	}

	s.mu.Lock()
	s.lastTick = now
	s.mu.Unlock()
}

func (s *Scheduler) popDue(now time.Time) []*ChildOrder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*ChildOrder
	for s.queue.Len() > 0 && !s.queue[0].ScheduledAt.After(now) {
		child := heap.Pop(&s.queue).(*ChildOrder)
		due = append(due, child)
	}
	return due
}

// fire submits one child if its parent is still active. Rejection
// (submit_order returning false) marks the parent REJECTED, which
// implicitly drops any remaining siblings since they check IsActive
// before submitting.
func (s *Scheduler) fire(child *ChildOrder) {
	parent := child.Parent
	if !parent.IsActive() {
		return
	}

	ok := s.broker.SubmitOrder(parent.Ticker, child.Quantity, parent.Side)
	if !ok {
		parent.reject()
		s.log.Warn().Str("order_id", parent.ID).Msg("broker rejected child order")
		return
	}
	parent.recordFill(child.Quantity)
}

// VWAPExecute creates a SUBMITTED parent and enqueues `slices` children
// of equal size spaced by interval, starting one interval from now.
func (s *Scheduler) VWAPExecute(ticker string, totalQty float64, side Side, slices int, interval time.Duration) *Order {
	order := NewOrder(ticker, side, totalQty)
	order.submit()

	if slices <= 0 {
		slices = 1
	}
	sliceQty := totalQty / float64(slices)

	s.mu.Lock()
	s.orders[order.ID] = order
	now := time.Now()
	for i := 1; i <= slices; i++ {
		heap.Push(&s.queue, &ChildOrder{
			Parent:      order,
			Quantity:    sliceQty,
			ScheduledAt: now.Add(time.Duration(i) * interval),
		})
	}
	s.mu.Unlock()

	return order
}

// CancelOrder transitions orderID to CANCELLED if it is still active.
func (s *Scheduler) CancelOrder(orderID string) bool {
	s.mu.Lock()
	order, ok := s.orders[orderID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return order.Cancel()
}

// Rebalance cancels every ACTIVE order whose ticker appears in
// goalPositions, reads current broker positions, and VWAP-executes the
// diff for every ticker in goal ∪ current whose absolute delta exceeds
// rebalanceEpsilon.
func (s *Scheduler) Rebalance(goalPositions map[string]float64, interval time.Duration) []*Order {
	s.cancelActiveForTickers(goalPositions)

	current := s.broker.GetPositions()

	tickers := make(map[string]struct{}, len(goalPositions)+len(current))
	for t := range goalPositions {
		tickers[t] = struct{}{}
	}
	for t := range current {
		tickers[t] = struct{}{}
	}

	var submitted []*Order
	for ticker := range tickers {
		goal := goalPositions[ticker]
		have := current[ticker]
		diff := goal - have
		if math.Abs(diff) <= rebalanceEpsilon {
			continue
		}
		side := SideBuy
		if diff < 0 {
			side = SideSell
		}
		order := s.VWAPExecute(ticker, math.Abs(diff), side, 1, interval)
		submitted = append(submitted, order)
	}
	return submitted
}

func (s *Scheduler) cancelActiveForTickers(goalPositions map[string]float64) {
	s.mu.Lock()
	var toCancel []*Order
	for _, order := range s.orders {
		if _, inGoal := goalPositions[order.Ticker]; inGoal && order.IsActive() {
			toCancel = append(toCancel, order)
		}
	}
	s.mu.Unlock()

	for _, order := range toCancel {
		order.Cancel()
	}
}

// Order looks up a tracked order by id.
func (s *Scheduler) Order(orderID string) (*Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	return order, ok
}

// PendingChildren reports how many children remain queued, for tests and
// health probes.
func (s *Scheduler) PendingChildren() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}
