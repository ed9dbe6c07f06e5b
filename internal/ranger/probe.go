package ranger

import (
	"context"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// ProbeResult is the outcome of probing one target.
type ProbeResult struct {
	Alive bool
	RTT   time.Duration
	Sent  int
	Lost  int
}

// Prober measures reachability and latency of a single address.
type Prober interface {
	Probe(ctx context.Context, address string) ProbeResult
}

// pingProber probes targets with ICMP echo. Unprivileged runs use UDP
// datagram sockets; Windows always needs privileged mode.
type pingProber struct {
	count      int
	timeout    time.Duration
	privileged bool
	logger     *zap.Logger
}

func newPingProber(cfg *Config, logger *zap.Logger) *pingProber {
	return &pingProber{
		count:      cfg.PingCount,
		timeout:    cfg.Timeout,
		privileged: cfg.Privileged || runtime.GOOS == "windows",
		logger:     logger,
	}
}

func (p *pingProber) Probe(ctx context.Context, address string) ProbeResult {
	pinger, err := probing.NewPinger(address)
	if err != nil {
		p.logger.Debug("failed to create pinger",
			zap.String("address", address),
			zap.Error(err),
		)
		return ProbeResult{}
	}

	pinger.Count = p.count
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(p.privileged)

	// Run with context for cancellation support.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			p.logger.Debug("probe failed",
				zap.String("address", address),
				zap.Error(runErr),
			)
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return ProbeResult{}
	}

	stats := pinger.Statistics()
	return ProbeResult{
		Alive: stats.PacketsRecv > 0,
		RTT:   stats.AvgRtt,
		Sent:  stats.PacketsSent,
		Lost:  stats.PacketsSent - stats.PacketsRecv,
	}
}
