package printer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/receipt"
	"github.com/rs/zerolog"
)

// --- Mock implementations ---

type sendCall struct {
	orderID string
	script  string
	start   time.Time
	end     time.Time
}

type mockTransport struct {
	mu        sync.Mutex
	calls     []sendCall
	active    int
	overlap   bool
	delay     time.Duration
	err       error
	connected bool
	started   chan struct{}
	release   chan struct{}
}

func (m *mockTransport) Send(ctx context.Context, script []byte, orderID string) error {
	m.mu.Lock()
	m.active++
	if m.active > 1 {
		m.overlap = true
	}
	start := time.Now()
	m.mu.Unlock()

	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	time.Sleep(m.delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	m.calls = append(m.calls, sendCall{orderID: orderID, script: string(script), start: start, end: time.Now()})
	return m.err
}

func (m *mockTransport) IsConnected() bool { return m.connected }

func (m *mockTransport) snapshot() ([]sendCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sendCall, len(m.calls))
	copy(out, m.calls)
	return out, m.overlap
}

type mockFormatter struct {
	calls int
	err   error
}

func (m *mockFormatter) Format(order model.Order, shop receipt.Shop) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []byte("receipt:" + order.OrderNumber), nil
}

func newTestDispatcher(t *testing.T, tr *mockTransport, f Formatter, settle time.Duration) *Dispatcher {
	t.Helper()
	d := NewDispatcher(tr, f, DispatcherConfig{PrinterType: TypeNetwork, SettleDelay: settle}, zerolog.Nop())
	t.Cleanup(d.Close)
	return d
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// --- Tests ---

func TestPrintReceipt_QueuesCopiesOfOneScript(t *testing.T) {
	tr := &mockTransport{}
	f := &mockFormatter{}
	settle := 60 * time.Millisecond
	d := newTestDispatcher(t, tr, f, settle)

	jobs, err := d.PrintReceipt(model.Order{OrderNumber: "MH-001"}, receipt.Shop{}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if f.calls != 1 {
		t.Errorf("expected one format call, got %d", f.calls)
	}
	if jobs[0].ID == jobs[1].ID {
		t.Error("jobs share an id")
	}
	if string(jobs[0].Script) != string(jobs[1].Script) {
		t.Error("copies carry different scripts")
	}

	waitFor(t, func() bool {
		calls, _ := tr.snapshot()
		return len(calls) == 2
	})

	calls, overlap := tr.snapshot()
	if overlap {
		t.Error("jobs were sent concurrently")
	}
	gap := calls[1].start.Sub(calls[0].end)
	if gap < settle {
		t.Errorf("settle delay not observed: gap %v < %v", gap, settle)
	}
	for _, c := range calls {
		if c.orderID != "MH-001" || c.script != "receipt:MH-001" {
			t.Errorf("unexpected call: %+v", c)
		}
	}
}

func TestPrintReceipt_FormatError(t *testing.T) {
	tr := &mockTransport{}
	d := newTestDispatcher(t, tr, &mockFormatter{err: errors.New("boom")}, 0)

	if _, err := d.PrintReceipt(model.Order{OrderNumber: "MH-001"}, receipt.Shop{}, 2); err == nil {
		t.Fatal("expected error")
	}
	if s := d.Status(); s.QueueDepth != 0 {
		t.Errorf("queue depth: got %d, want 0", s.QueueDepth)
	}
}

func TestDispatcher_FIFOAcrossReceipts(t *testing.T) {
	tr := &mockTransport{}
	d := newTestDispatcher(t, tr, &mockFormatter{}, 5*time.Millisecond)

	for _, id := range []string{"A", "B", "C"} {
		if _, err := d.PrintReceipt(model.Order{OrderNumber: id}, receipt.Shop{}, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	waitFor(t, func() bool {
		calls, _ := tr.snapshot()
		return len(calls) == 3
	})
	calls, overlap := tr.snapshot()
	if overlap {
		t.Error("jobs were sent concurrently")
	}
	for i, want := range []string{"A", "B", "C"} {
		if calls[i].orderID != want {
			t.Errorf("call %d: got %s, want %s", i, calls[i].orderID, want)
		}
	}
}

func TestDispatcher_ProcessWhileDrainingIsNoop(t *testing.T) {
	tr := &mockTransport{started: make(chan struct{}, 4), release: make(chan struct{})}
	d := newTestDispatcher(t, tr, &mockFormatter{}, 0)

	d.Enqueue([]byte("one"), "one")
	<-tr.started

	d.Enqueue([]byte("two"), "two")
	d.Process()
	d.Process()

	s := d.Status()
	if !s.Printing {
		t.Error("expected in-flight flag while sending")
	}
	if s.QueueDepth != 1 {
		t.Errorf("queue depth: got %d, want 1", s.QueueDepth)
	}

	close(tr.release)
	waitFor(t, func() bool {
		calls, _ := tr.snapshot()
		return len(calls) == 2
	})
	if _, overlap := tr.snapshot(); overlap {
		t.Error("second drain started while first was running")
	}
}

func TestDispatcher_ClearQueueKeepsJobInFlight(t *testing.T) {
	tr := &mockTransport{started: make(chan struct{}, 4), release: make(chan struct{})}
	d := newTestDispatcher(t, tr, &mockFormatter{}, 0)

	if _, err := d.PrintReceipt(model.Order{OrderNumber: "MH-009"}, receipt.Shop{}, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-tr.started

	if n := d.ClearQueue(); n != 2 {
		t.Errorf("cleared: got %d, want 2", n)
	}
	close(tr.release)

	waitFor(t, func() bool { return !d.Status().Printing })
	time.Sleep(20 * time.Millisecond)

	calls, _ := tr.snapshot()
	if len(calls) != 1 {
		t.Errorf("expected only the in-flight job to be sent, got %d", len(calls))
	}
}

func TestDispatcher_TransportFailureDoesNotStopQueue(t *testing.T) {
	tr := &mockTransport{err: errors.New("paper out")}
	d := newTestDispatcher(t, tr, &mockFormatter{}, 0)

	d.Enqueue([]byte("a"), "a")
	d.Enqueue([]byte("b"), "b")

	waitFor(t, func() bool {
		calls, _ := tr.snapshot()
		return len(calls) == 2
	})
}

func TestDispatcher_Status(t *testing.T) {
	tr := &mockTransport{connected: true}
	d := newTestDispatcher(t, tr, &mockFormatter{}, 0)

	s := d.Status()
	if !s.Connected || s.Type != TypeNetwork || s.QueueDepth != 0 || s.Printing {
		t.Errorf("unexpected status: %+v", s)
	}
}

func TestDispatcher_CloseStopsDraining(t *testing.T) {
	tr := &mockTransport{}
	d := NewDispatcher(tr, &mockFormatter{}, DispatcherConfig{SettleDelay: time.Hour}, zerolog.Nop())

	d.Enqueue([]byte("a"), "a")
	waitFor(t, func() bool {
		calls, _ := tr.snapshot()
		return len(calls) == 1
	})
	d.Enqueue([]byte("b"), "b")

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on the settle delay")
	}

	d.Enqueue([]byte("c"), "c")
	time.Sleep(20 * time.Millisecond)
	if calls, _ := tr.snapshot(); len(calls) != 1 {
		t.Errorf("jobs sent after close: %d", len(calls))
	}
}

func TestNewTransportFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		usb     string
		addr    string
		wantErr bool
	}{
		{"none", TypeNone, "", "", false},
		{"empty", "", "", "", false},
		{"usb", TypeUSB, "/dev/usb/lp0", "", false},
		{"usb without path", TypeUSB, "", "", true},
		{"network", TypeNetwork, "", "192.168.1.50", false},
		{"network without address", TypeNetwork, "", "", true},
		{"unknown", "bluetooth", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTransportFromConfig(tt.typ, tt.usb, tt.addr)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || tr == nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNetworkTransport_DefaultsPort(t *testing.T) {
	tr := NewNetworkTransport("192.168.1.50").(*networkTransport)
	if tr.address != "192.168.1.50:9100" {
		t.Errorf("address: got %s", tr.address)
	}
}
