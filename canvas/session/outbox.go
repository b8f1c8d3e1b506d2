package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type operation struct {
	op     string
	itemID string
	run    func(ctx context.Context) error
}

// Outbox runs remote writes in the background. Writes that share a lane run
// one at a time in submission order; different lanes run concurrently.
// Submit never blocks on the network.
type Outbox struct {
	ctx     context.Context
	onError func(error)

	mu    sync.Mutex
	lanes map[string][]operation
	wg    sync.WaitGroup
}

func NewOutbox(ctx context.Context, onError func(error)) *Outbox {
	return &Outbox{ctx: ctx, onError: onError, lanes: make(map[string][]operation)}
}

func (o *Outbox) Submit(lane, op, itemID string, run func(ctx context.Context) error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	queue := o.lanes[lane]
	o.lanes[lane] = append(queue, operation{op: op, itemID: itemID, run: run})
	if len(queue) == 0 {
		o.wg.Add(1)
		go o.drain(lane)
	}
}

func (o *Outbox) drain(lane string) {
	defer o.wg.Done()

	o.mu.Lock()
	next := o.lanes[lane][0]
	o.mu.Unlock()

	for {
		if err := next.run(o.ctx); err != nil {
			o.report(&TransportError{Op: next.op, ItemID: next.itemID, Err: err})
		}

		o.mu.Lock()
		queue := o.lanes[lane][1:]
		if len(queue) == 0 {
			delete(o.lanes, lane)
			o.mu.Unlock()
			return
		}
		o.lanes[lane] = queue
		next = queue[0]
		o.mu.Unlock()
	}
}

func (o *Outbox) report(err *TransportError) {
	logrus.WithFields(logrus.Fields{
		"op":      err.Op,
		"item_id": err.ItemID,
	}).WithError(err.Err).Warn("Remote write failed")
	if o.onError != nil {
		o.onError(err)
	}
}

// Wait blocks until every submitted write has completed.
func (o *Outbox) Wait() {
	o.wg.Wait()
}
