package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/logging"
)

// Serial defaults
const (
	DefaultBaudRate    = 19200
	DefaultReadTimeout = 500 * time.Millisecond
	DefaultOpenTimeout = 10 * time.Second
)

// SerialConfig describes how to open a meter's port
type SerialConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration // bounds one read so Close is noticed
	OpenTimeout time.Duration // total time spent retrying the open
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	return c
}

// Serial is a Transport over a serial port
type Serial struct {
	cfg    SerialConfig
	port   serial.Port
	events chan Event
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// OpenSerial opens the port 8-N-1 at the configured speed, flushes both
// buffers and starts reading. Busy or missing ports are retried with
// exponential backoff until OpenTimeout elapses; configuration errors fail
// immediately.
func OpenSerial(ctx context.Context, cfg SerialConfig) (*Serial, error) {
	cfg = cfg.withDefaults()
	if cfg.Port == "" {
		return nil, errors.New("serial: port is required")
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = cfg.OpenTimeout

	var port serial.Port
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		p, err := serial.Open(cfg.Port, mode)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			logging.Warn("Serial open failed, retrying",
				zap.String("port", cfg.Port),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		port = p
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Port, err)
	}

	if err := configure(port, cfg); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", cfg.Port, err)
	}

	logging.LogSerialEvent(cfg.Port, "opened",
		zap.Int("baud", cfg.BaudRate),
		zap.Int("attempts", attempt),
	)

	ctx, cancel := context.WithCancel(ctx)
	s := &Serial{
		cfg:    cfg,
		port:   port,
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		pump(ctx, cfg.Port, port, s.events)
	}()
	return s, nil
}

func configure(port serial.Port, cfg SerialConfig) error {
	if err := port.ResetInputBuffer(); err != nil {
		return err
	}
	if err := port.ResetOutputBuffer(); err != nil {
		return err
	}
	return port.SetReadTimeout(cfg.ReadTimeout)
}

// retryable reports whether an open error may clear up on its own
func retryable(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy, serial.PortNotFound:
			return true
		default:
			return false
		}
	}
	return true
}

// Name implements Transport
func (s *Serial) Name() string { return s.cfg.Port }

// Events implements Transport
func (s *Serial) Events() <-chan Event { return s.events }

// Write sends p and waits until it has been transmitted
func (s *Serial) Write(p []byte) (int, error) {
	n, err := s.port.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.port.Drain()
}

// Close implements Transport
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.port.Close()
		<-s.done
		logging.LogSerialEvent(s.cfg.Port, "closed")
	})
	return s.closeErr
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}
