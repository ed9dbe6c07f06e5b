// Package ranger implements the WaveSight field agent. Each interval it
// probes a configured set of target devices, samples the host's wireless
// link, and posts the resulting measurement batch to the server's
// telemetry ingest endpoint. The agent holds no state between cycles; a
// failed batch is retried with backoff and then dropped.
package ranger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
	"go.uber.org/zap"
)

const ingestPath = "/api/v1/telemetry/ingest"

// errUnauthorized marks a rejected agent key. Retrying cannot help.
var errUnauthorized = errors.New("agent key rejected by server")

// Agent is the ranger field agent.
type Agent struct {
	cfg    *Config
	logger *zap.Logger
	client *http.Client
	prober Prober
	link   func() (LinkSample, bool)
	cancel context.CancelFunc
}

// NewAgent creates a new ranger agent instance.
func NewAgent(cfg *Config, logger *zap.Logger) *Agent {
	return &Agent{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.PostTimeout},
		prober: newPingProber(cfg, logger),
		link:   readLink,
	}
}

// Run starts the agent and blocks until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if len(a.cfg.Targets) == 0 {
		a.logger.Warn("no targets configured; agent will idle")
	}

	a.logger.Info("ranger agent running",
		zap.String("agent_id", a.cfg.AgentID),
		zap.String("server", a.cfg.ServerURL),
		zap.Duration("interval", a.cfg.Interval),
		zap.Int("targets", len(a.cfg.Targets)),
	)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	// Initial cycle so the server sees data immediately.
	a.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("ranger agent shutting down")
			return nil
		case <-ticker.C:
			a.cycle(ctx)
		}
	}
}

// Stop signals the agent to shut down.
func (a *Agent) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *Agent) cycle(ctx context.Context) {
	if len(a.cfg.Targets) == 0 {
		return
	}

	batch := a.collect(ctx)
	if len(batch) == 0 {
		return
	}

	if err := a.postBatch(ctx, batch); err != nil {
		a.logger.Warn("batch delivery failed",
			zap.Int("measurements", len(batch)),
			zap.Error(err),
		)
	}
}

// collect probes every target concurrently and assembles one measurement
// per target. The host's link RSSI is stamped on the whole batch; every
// probe transits the agent's radio, so its link quality bounds what any
// target can see.
func (a *Agent) collect(ctx context.Context) []models.Measurement {
	now := time.Now().UTC()

	rssi := a.cfg.FallbackRSSI
	var snr *float64
	if sample, ok := a.link(); ok {
		rssi = sample.RSSI
		if sample.HasSNR {
			v := sample.SNR
			snr = &v
		}
	}

	results := make([]ProbeResult, len(a.cfg.Targets))
	sem := make(chan struct{}, a.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, target := range a.cfg.Targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, addr string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = a.prober.Probe(ctx, addr)
		}(i, target.Address)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}

	batch := make([]models.Measurement, 0, len(a.cfg.Targets))
	for i, target := range a.cfg.Targets {
		res := results[i]
		m := models.Measurement{
			DeviceID:  target.DeviceID,
			AgentID:   a.cfg.AgentID,
			Timestamp: now,
			RSSI:      rssi,
			SNR:       snr,
		}
		online := res.Alive
		m.IsOnline = &online
		if res.Alive {
			rtt := float64(res.RTT.Microseconds()) / 1000.0
			m.ResponseTimeMS = &rtt
		}
		if res.Lost > 0 {
			lost := res.Lost
			m.ErrorCount = &lost
		}
		batch = append(batch, m)
	}
	return batch
}

// postBatch delivers a batch, retrying transient failures with doubling
// backoff. Credential rejections fail fast.
func (a *Agent) postBatch(ctx context.Context, batch []models.Measurement) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	backoff := a.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		err = a.post(ctx, body)
		if err == nil {
			return nil
		}
		if errors.Is(err, errUnauthorized) || attempt >= a.cfg.Retries {
			return err
		}

		a.logger.Warn("ingest post failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (a *Agent) post(ctx context.Context, body []byte) error {
	url := strings.TrimRight(a.cfg.ServerURL, "/") + ingestPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "WaveSight-Ranger/0.1")
	if a.cfg.AgentKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.AgentKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errUnauthorized
	case resp.StatusCode >= 300:
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var result struct {
		Accepted int `json:"accepted"`
		Rejected int `json:"rejected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Delivery succeeded even if the summary did not parse.
		a.logger.Debug("undecodable ingest response", zap.Error(err))
		return nil
	}

	if result.Rejected > 0 {
		a.logger.Warn("server rejected measurements",
			zap.Int("accepted", result.Accepted),
			zap.Int("rejected", result.Rejected),
		)
	} else {
		a.logger.Debug("batch delivered", zap.Int("accepted", result.Accepted))
	}
	return nil
}
