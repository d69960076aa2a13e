// Package keeper is the external caller that settles rounds when their
// deadline passes. In chain mode every NewBlock event is a tick and the block
// header time is "now"; in system mode a ticker drives the local clock.
package keeper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	rpccoretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"

	"round-curator/internal/config"
	"round-curator/internal/logger"
	"round-curator/internal/round"
	"round-curator/internal/tui"
)

const (
	// TUIChannelBufferSize bounds queued dashboard updates; extra updates are dropped.
	TUIChannelBufferSize = 64
	// TUICloseDelay lets the dashboard drain before the process exits.
	TUICloseDelay = 200 * time.Millisecond

	subscriber      = "curator-keeper"
	watchdogTimeout = 30 * time.Second
	reconnectDelay  = 3 * time.Second
)

// Settler is the part of the service the keeper drives.
type Settler interface {
	SettleDue(ctx context.Context, now time.Time) ([]*round.Settlement, error)
	Round(ctx context.Context, key round.Key) (*round.RoundState, error)
}

type Keeper struct {
	cfg     config.Config
	svc     Settler
	log     *logger.Logger
	metrics *Metrics
	updates chan<- interface{}
	watch   *round.Key
	clock   round.Clock

	client          *rpchttp.HTTP
	lastBlockTime   time.Time
	lastBlockTimeMu sync.RWMutex

	statusMu sync.Mutex
	status   tui.Status
	last     *round.Settlement
}

// New wires a keeper. updates may be nil when no dashboard runs.
func New(cfg config.Config, svc Settler, updates chan<- interface{}, metrics *Metrics, log *logger.Logger) (*Keeper, error) {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	k := &Keeper{
		cfg:     cfg,
		svc:     svc,
		log:     log,
		metrics: metrics,
		updates: updates,
		clock:   round.SystemClock,
		status:  tui.Status{Source: cfg.ClockSource},
	}
	if cfg.WatchRound != "" {
		key, err := round.ParseKey(cfg.WatchRound)
		if err != nil {
			return nil, fmt.Errorf("WATCH_ROUND: %w", err)
		}
		k.watch = &key
	}
	return k, nil
}

func (k *Keeper) Run(ctx context.Context) error {
	k.publishRound(ctx)
	if k.cfg.ClockSource == config.ClockSourceSystem {
		return k.pollLoop(ctx)
	}
	for {
		if err := k.runLoop(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// planned reconnects are logged by the watchdog
			if !strings.Contains(err.Error(), "reconnect:") {
				k.log.Error("block loop failed, reconnecting", "err", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reconnectDelay):
			}
		}
	}
}

// Tick settles every round due at now and refreshes the dashboard. height is
// 0 for system-clock ticks.
func (k *Keeper) Tick(ctx context.Context, now time.Time, height int64) {
	settled, err := k.svc.SettleDue(ctx, now)

	k.statusMu.Lock()
	k.status.Now = now
	k.status.Height = height
	for _, s := range settled {
		result := ResultEmpty
		if s.Reward != nil {
			result = ResultRewarded
		}
		k.metrics.Settlements.WithLabelValues(result).Inc()
		k.status.Settled++
		if k.watch != nil && s.Key == *k.watch {
			k.last = s
		}
	}
	if err != nil {
		k.metrics.Settlements.WithLabelValues(ResultError).Inc()
		k.status.Failed++
		k.status.LastError = err.Error()
		k.log.Error("settle due rounds", "now", now.Unix(), "err", err)
	}
	status := k.status
	k.statusMu.Unlock()

	if height > 0 {
		k.metrics.LastHeight.Set(float64(height))
	}
	if len(settled) > 0 {
		k.log.Info("tick", "height", height, "now", now.Unix(), "settled", len(settled))
	}
	k.send(status)
	k.publishRound(ctx)
}

func (k *Keeper) send(v interface{}) {
	if k.updates == nil {
		return
	}
	select {
	case k.updates <- v:
	default:
	}
}

func (k *Keeper) publishRound(ctx context.Context) {
	if k.watch == nil {
		return
	}
	st, err := k.svc.Round(ctx, *k.watch)
	if err != nil {
		k.log.Debug("watched round unavailable", "round", *k.watch, "err", err)
		return
	}
	k.statusMu.Lock()
	info := tui.RoundInfo{State: st, Last: k.last}
	k.statusMu.Unlock()
	k.send(info)
}

func (k *Keeper) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(k.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			k.Tick(ctx, k.clock.Now(), 0)
		}
	}
}

func (k *Keeper) runLoop(ctx context.Context) error {
	// Cancelled on return so a reconnect stops the previous handler.
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	k.cleanupClient(loopCtx)

	if err := k.initClient(); err != nil {
		return err
	}

	blockCh, err := k.client.Subscribe(loopCtx, subscriber, "tm.event = 'NewBlock'")
	if err != nil {
		return fmt.Errorf("subscribe NewBlock: %w", err)
	}
	k.log.Info("subscribed", "rpc", k.cfg.RPCURL, "event", "NewBlock")

	k.updateLastBlockTime()
	k.startEventHandler(loopCtx, "NewBlock", blockCh, func(ev rpccoretypes.ResultEvent) {
		if ev.Data == nil {
			return
		}
		k.updateLastBlockTime()
		k.handleNewBlock(loopCtx, ev)
	})

	return k.watchdogLoop(loopCtx)
}

// cleanupClient stops and cleans up existing client
func (k *Keeper) cleanupClient(ctx context.Context) {
	if k.client == nil {
		return
	}

	unsubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_ = k.client.UnsubscribeAll(unsubCtx, subscriber)
	_ = k.client.Stop()
	k.client = nil
}

// initClient creates and starts a new RPC client
func (k *Keeper) initClient() error {
	client, err := rpchttp.New(k.cfg.RPCURL, k.cfg.WSPath)
	if err != nil {
		return fmt.Errorf("create rpc client: %w", err)
	}

	if err := client.Start(); err != nil {
		return fmt.Errorf("start rpc client: %w", err)
	}

	k.client = client
	return nil
}

// startEventHandler starts a goroutine to handle events from a channel
func (k *Keeper) startEventHandler(ctx context.Context, name string, ch <-chan rpccoretypes.ResultEvent, handler func(rpccoretypes.ResultEvent)) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					k.log.Info("event channel closed", "event", name)
					return
				}
				handler(ev)
			}
		}
	}()
}

func (k *Keeper) updateLastBlockTime() {
	k.lastBlockTimeMu.Lock()
	k.lastBlockTime = time.Now()
	k.lastBlockTimeMu.Unlock()
}

// watchdogLoop forces a reconnect when blocks stop and refreshes the
// dashboard between blocks.
func (k *Keeper) watchdogLoop(ctx context.Context) error {
	watchdog := time.NewTicker(watchdogTimeout)
	defer watchdog.Stop()
	refresh := time.NewTicker(k.cfg.PollInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-refresh.C:
			k.publishRound(ctx)
		case <-watchdog.C:
			if k.shouldReconnect() {
				k.log.Info("no blocks received, reconnecting", "timeout", watchdogTimeout)
				return fmt.Errorf("reconnect: no blocks for %s", watchdogTimeout)
			}
		}
	}
}

func (k *Keeper) shouldReconnect() bool {
	k.lastBlockTimeMu.RLock()
	defer k.lastBlockTimeMu.RUnlock()
	return time.Since(k.lastBlockTime) > watchdogTimeout
}

func (k *Keeper) Close() error {
	if k.client != nil {
		return k.client.Stop()
	}
	return nil
}

func (k *Keeper) handleNewBlock(ctx context.Context, ev rpccoretypes.ResultEvent) {
	data, ok := ev.Data.(cmttypes.EventDataNewBlock)
	if !ok {
		if d2, ok2 := ev.Data.(*cmttypes.EventDataNewBlock); ok2 && d2 != nil {
			data = *d2
			ok = true
		}
	}
	if !ok {
		k.log.Error("unknown NewBlock event data type", "type", fmt.Sprintf("%T", ev.Data))
		return
	}

	blk := data.Block
	if blk == nil || blk.Header.Height == 0 {
		return
	}
	k.Tick(ctx, blk.Header.Time, blk.Header.Height)
}
