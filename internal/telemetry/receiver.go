package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"deliverysim/internal/model"

	"github.com/sourcegraph/conc"
)

// maxDatagramSize is the largest UDP payload we accept
const maxDatagramSize = 64 * 1024

// Handler receives decoded messages in arrival order from a single goroutine
type Handler interface {
	Upsert(obs model.Observation)
	Remove(entityID string)
}

// Receiver binds a UDP port and folds every datagram into a Handler
type Receiver struct {
	addr    string
	handler Handler
	logger  *slog.Logger

	mu     sync.Mutex
	conn   net.PacketConn
	cancel context.CancelFunc
	wg     *conc.WaitGroup
}

func NewReceiver(addr string, handler Handler, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{addr: addr, handler: handler, logger: logger}
}

// Start binds the socket with address reuse enabled and runs the receive loop
// in its own goroutine until Stop is called or ctx is canceled.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return errors.New("receiver already started")
	}

	lc := net.ListenConfig{Control: reuseAddrControl}
	conn, err := lc.ListenPacket(ctx, "udp", r.addr)
	if err != nil {
		return fmt.Errorf("bind telemetry receiver %s: %w", r.addr, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	wg := conc.NewWaitGroup()
	r.conn = conn
	r.cancel = cancel
	r.wg = wg

	wg.Go(func() { r.receiveLoop(loopCtx, conn) })

	// Closing the socket is the only way to unblock a pending ReadFrom
	wg.Go(func() {
		<-loopCtx.Done()
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			r.logger.Warn("closing telemetry socket", "err", err)
		}
	})

	// A canceled ctx ends the loop without Stop; release the receiver so it
	// can be started again
	go func() {
		wg.Wait()
		r.release(wg)
	}()

	r.logger.Info("telemetry receiver listening", "addr", conn.LocalAddr().String())
	return nil
}

// Stop cancels the receive loop and waits for it to exit. Once Stop returns no
// further messages reach the handler.
func (r *Receiver) Stop() {
	r.mu.Lock()
	cancel, wg := r.cancel, r.wg
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	wg.Wait()
	r.release(wg)

	r.logger.Info("telemetry receiver stopped")
}

// release clears the running state if it still belongs to wg
func (r *Receiver) release(wg *conc.WaitGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wg != wg {
		return
	}
	r.cancel()
	r.conn, r.cancel, r.wg = nil, nil, nil
}

// Run starts the receiver and blocks until ctx is done
func (r *Receiver) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop()
	return nil
}

// Addr returns the bound local address, or nil before Start
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Receiver) receiveLoop(ctx context.Context, conn net.PacketConn) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Warn("telemetry read error", "err", err)
			continue
		}

		msg, err := Decode(buf[:n])
		if err != nil {
			r.logger.Warn("discarding datagram", "from", from.String(), "bytes", n, "err", err)
			continue
		}

		r.dispatch(msg)
	}
}

func (r *Receiver) dispatch(msg LocationMessage) {
	switch msg.MessageType {
	case MessageTypeAdd:
		r.handler.Upsert(msg.Observation())
	case MessageTypeDelete:
		r.handler.Remove(msg.EntityID)
	}
}
