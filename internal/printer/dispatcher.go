package printer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/receipt"
	"github.com/rs/zerolog"
)

// DefaultSettleDelay is the pause between two consecutive jobs that lets the
// printer finish cutting and flush its buffer.
const DefaultSettleDelay = time.Second

// Formatter renders an order. Satisfied by *receipt.Formatter.
type Formatter interface {
	Format(order model.Order, shop receipt.Shop) ([]byte, error)
}

// Job is one queued print of a script.
type Job struct {
	ID         uuid.UUID `json:"id"`
	OrderID    string    `json:"orderId"`
	Copy       int       `json:"copy"`
	Copies     int       `json:"copies"`
	Script     []byte    `json:"-"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

type Status struct {
	Type       string `json:"type"`
	Connected  bool   `json:"connected"`
	QueueDepth int    `json:"queueDepth"`
	Printing   bool   `json:"printing"`
}

// Dispatcher owns the print queue. Jobs are sent strictly in order by a
// single drain goroutine, with a settling delay between them.
type Dispatcher struct {
	transport   Transport
	formatter   Formatter
	printerType string
	settle      time.Duration
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	queue    []Job
	draining bool
	inFlight bool
	closed   bool
	lastDone time.Time
}

type DispatcherConfig struct {
	PrinterType string
	SettleDelay time.Duration
}

func NewDispatcher(t Transport, f Formatter, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.PrinterType == "" {
		cfg.PrinterType = TypeNone
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		transport:   t,
		formatter:   f,
		printerType: cfg.PrinterType,
		settle:      cfg.SettleDelay,
		logger:      logger.With().Str("component", "printer").Logger(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// PrintReceipt formats order once and queues copies jobs of the same script.
func (d *Dispatcher) PrintReceipt(order model.Order, shop receipt.Shop, copies int) ([]Job, error) {
	if copies < 1 {
		copies = 1
	}
	script, err := d.formatter.Format(order, shop)
	if err != nil {
		return nil, fmt.Errorf("print receipt: %w", err)
	}

	now := time.Now()
	jobs := make([]Job, copies)
	for i := range jobs {
		jobs[i] = Job{
			ID:         uuid.New(),
			OrderID:    order.OrderNumber,
			Copy:       i + 1,
			Copies:     copies,
			Script:     script,
			EnqueuedAt: now,
		}
	}

	d.mu.Lock()
	d.queue = append(d.queue, jobs...)
	d.mu.Unlock()

	d.logger.Info().Str("order", order.OrderNumber).Int("copies", copies).Msg("receipt queued")
	d.Process()
	return jobs, nil
}

// Enqueue queues a single raw script, such as a test page or a drawer kick.
func (d *Dispatcher) Enqueue(script []byte, tag string) Job {
	job := Job{
		ID:         uuid.New(),
		OrderID:    tag,
		Copy:       1,
		Copies:     1,
		Script:     script,
		EnqueuedAt: time.Now(),
	}
	d.mu.Lock()
	d.queue = append(d.queue, job)
	d.mu.Unlock()

	d.Process()
	return job
}

// Process starts a drain of the queue. It does nothing while a drain is
// already running; that drain picks up whatever was queued meanwhile.
func (d *Dispatcher) Process() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draining || d.closed || len(d.queue) == 0 {
		return
	}
	d.draining = true
	d.wg.Add(1)
	go d.drain()
}

func (d *Dispatcher) drain() {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(d.queue) == 0 || d.ctx.Err() != nil {
			d.draining = false
			d.mu.Unlock()
			return
		}
		var wait time.Duration
		if !d.lastDone.IsZero() {
			wait = d.settle - time.Since(d.lastDone)
		}
		d.mu.Unlock()

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-d.ctx.Done():
				timer.Stop()
				continue
			case <-timer.C:
			}
		}

		// The queue may have been cleared while settling.
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			continue
		}
		job := d.queue[0]
		d.queue = d.queue[1:]
		d.inFlight = true
		d.mu.Unlock()

		d.send(job)

		d.mu.Lock()
		d.inFlight = false
		d.lastDone = time.Now()
		d.mu.Unlock()
	}
}

func (d *Dispatcher) send(job Job) {
	start := time.Now()
	// A job already handed over is never cut short, even by Close.
	err := d.transport.Send(context.WithoutCancel(d.ctx), job.Script, job.OrderID)
	if err != nil {
		d.logger.Error().Err(err).
			Str("order", job.OrderID).
			Str("job", job.ID.String()).
			Int("copy", job.Copy).
			Msg("print job failed")
		return
	}
	d.logger.Debug().
		Str("order", job.OrderID).
		Str("job", job.ID.String()).
		Int("copy", job.Copy).
		Dur("took", time.Since(start)).
		Msg("print job sent")
}

// ClearQueue drops every job that has not been handed to the transport yet
// and returns how many were dropped. A job in flight is not interrupted.
func (d *Dispatcher) ClearQueue() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.queue)
	d.queue = nil
	return n
}

// Status is a read-only snapshot of the queue and the device.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	s := Status{
		Type:       d.printerType,
		QueueDepth: len(d.queue),
		Printing:   d.inFlight,
	}
	d.mu.Unlock()

	s.Connected = d.transport.IsConnected()
	return s
}

// Close stops the drain after the job in flight and waits for it. Queued
// jobs are discarded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()

	d.mu.Lock()
	d.queue = nil
	d.mu.Unlock()
}
