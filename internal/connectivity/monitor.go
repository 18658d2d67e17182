package connectivity

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Prober checks whether the remote side is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor periodically probes the network and updates an Observer.
type Monitor struct {
	observer *Observer
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewMonitor creates a monitor that probes every interval, allowing each
// probe at most timeout.
func NewMonitor(o *Observer, p Prober, interval, timeout time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Monitor{
		observer: o,
		prober:   p,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start probes once immediately and then on every tick until Stop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.loop(ctx)
}

// Stop stops the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Ping(probeCtx)
	if ctx.Err() != nil {
		return
	}
	wasOnline := m.observer.IsOnline()
	m.observer.Set(err == nil)
	switch {
	case err != nil && wasOnline:
		m.logger.Warn("mirror unreachable, going offline", zap.Error(err))
	case err == nil && !wasOnline:
		m.logger.Info("mirror reachable, going online")
	}
}
