package telemetry

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"

	"deliverysim/internal/model"
	"deliverysim/internal/util"
)

// SenderOptions tune the simulated traffic variance of reported speeds
type SenderOptions struct {
	Name             string
	SpeedVarianceMin float64 // fraction of the average speed, e.g. 0.75
	SpeedVarianceMax float64 // e.g. 1.5
	Rand             *rand.Rand
	Logger           *slog.Logger
}

// UDPSender transmits location messages as single datagrams to a fixed peer.
// Sends are fire-and-forget: errors are returned to the caller and never retried.
type UDPSender struct {
	conn net.Conn
	opts SenderOptions

	randMu sync.Mutex
}

// DialUDP connects a sender to addr, e.g. "127.0.0.1:8080"
func DialUDP(addr string, opts SenderOptions) (*UDPSender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial telemetry peer %s: %w", addr, err)
	}
	return NewSender(conn, opts), nil
}

// NewSender wraps an already connected datagram socket
func NewSender(conn net.Conn, opts SenderOptions) *UDPSender {
	if opts.SpeedVarianceMin <= 0 {
		opts.SpeedVarianceMin = 0.75
	}
	if opts.SpeedVarianceMax == 0 {
		opts.SpeedVarianceMax = 1.5
	}
	if opts.SpeedVarianceMax < opts.SpeedVarianceMin {
		opts.SpeedVarianceMax = opts.SpeedVarianceMin
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &UDPSender{conn: conn, opts: opts}
}

// SendObservation reports the route's current position with a jittered speed
func (s *UDPSender) SendObservation(route *model.Route) error {
	msg := LocationMessage{
		MessageType:   MessageTypeAdd,
		EntityID:      route.EntityID(),
		Company:       route.Company,
		Name:          s.opts.Name,
		PayloadWeight: route.PayloadWeight,
		Speed:         util.Round2(route.AverageSpeed * s.speedFactor()),
		X:             route.LastPosition.X(),
		Y:             route.LastPosition.Y(),
		Heading:       route.CurrentHeading,
	}
	return s.send(msg)
}

// SendDelete reports that the route reached its destination
func (s *UDPSender) SendDelete(route *model.Route) error {
	end := route.EndPoint()
	msg := LocationMessage{
		MessageType:   MessageTypeDelete,
		EntityID:      route.EntityID(),
		Company:       route.Company,
		Name:          s.opts.Name,
		PayloadWeight: route.PayloadWeight,
		Speed:         0,
		X:             end.X(),
		Y:             end.Y(),
		Heading:       route.CurrentHeading,
	}
	return s.send(msg)
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}

func (s *UDPSender) speedFactor() float64 {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.opts.SpeedVarianceMin + s.opts.Rand.Float64()*(s.opts.SpeedVarianceMax-s.opts.SpeedVarianceMin)
}

func (s *UDPSender) send(msg LocationMessage) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	s.opts.Logger.Debug("sending location message", "entity_id", msg.EntityID, "type", msg.MessageType, "bytes", len(data))
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("send %s message for %s: %w", msg.MessageType, msg.EntityID, err)
	}
	return nil
}
