package balance

import (
	"context"
	"errors"
	"sync"
	"time"

	"transfers-client/internal/chain"
	"transfers-client/internal/contract"
	"transfers-client/internal/event"
	"transfers-client/internal/keymaterial"
	"transfers-client/pkg/crypto_util"
	"transfers-client/pkg/errno"
	"transfers-client/pkg/logger"
	"transfers-client/pkg/monitor"
	"transfers-client/pkg/utils/lock"

	ethevent "github.com/ethereum/go-ethereum/event"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultResponseTimeout = 2 * time.Minute
	notifyTimeout          = 5 * time.Second
)

// KeySource yields the session key pair.
type KeySource interface {
	CurrentKeyPair(ctx context.Context) (*keymaterial.KeyPair, error)
}

// Correlator subscribes to filtered chain events.
type Correlator interface {
	Subscribe(ctx context.Context, filter string, onEvent event.Handler) (ethevent.Subscription, error)
}

// Notifier is told about every finished round trip.
type Notifier interface {
	Notify(ctx context.Context, o Outcome) error
}

type Config struct {
	Contract        string
	ResponseTimeout time.Duration
	// LockTTL bounds the cross-process lock when a Locker is set.
	LockTTL time.Duration
	// RefreshOnSwitch runs the smart query path whenever the account changes.
	RefreshOnSwitch bool
}

// Options carries the optional collaborators.
type Options struct {
	Notifier Notifier
	Locker   lock.DistributedLock
	Metrics  *monitor.FlowMetrics
	Logger   *zap.Logger
}

// Flow drives the encrypted balance round trip for one session: one
// account at a time, one round trip at a time.
type Flow struct {
	cfg        Config
	keys       KeySource
	executor   chain.Executor
	querier    chain.Querier
	correlator Correlator

	notifier Notifier
	locker   lock.DistributedLock
	metrics  *monitor.FlowMetrics
	log      *zap.Logger

	watchers watchers

	mu        sync.Mutex
	state     State
	account   string
	gen       uint64
	balance   decimal.Decimal
	lastErr   string
	lastPath  Path
	updatedAt time.Time
	pending   *pending
}

func NewFlow(cfg Config, keys KeySource, executor chain.Executor, querier chain.Querier, correlator Correlator, opts Options) *Flow {
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = defaultResponseTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.ResponseTimeout + time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("balance-flow")
	}
	f := &Flow{
		cfg:        cfg,
		keys:       keys,
		executor:   executor,
		querier:    querier,
		correlator: correlator,
		notifier:   opts.Notifier,
		locker:     opts.Locker,
		metrics:    opts.Metrics,
		log:        log,
		balance:    decimal.Zero,
		updatedAt:  time.Now(),
	}
	f.metrics.SetState(Idle.String(), stateNames)
	return f
}

// SubscribeState delivers a Snapshot on every state change. Delivery never
// waits for the subscriber: snapshots that do not fit in ch are skipped,
// Snapshot always has the current one.
func (f *Flow) SubscribeState(ch chan<- Snapshot) ethevent.Subscription {
	return f.watchers.subscribe(ch)
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) Account() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{
		State:     f.state,
		Account:   f.account,
		Balance:   f.balance,
		LastError: f.lastErr,
		LastPath:  f.lastPath,
		UpdatedAt: f.updatedAt,
	}
}

func (f *Flow) setStateLocked(s State) Snapshot {
	f.state = s
	f.updatedAt = time.Now()
	f.metrics.SetState(s.String(), stateNames)
	return f.snapshotLocked()
}

func (f *Flow) publish(snaps ...Snapshot) {
	for _, s := range snaps {
		if missed := f.watchers.send(s); missed > 0 {
			f.log.Debug("state watcher lagging, snapshot skipped",
				zap.String("state", s.State.String()), zap.Int("watchers", missed))
		}
	}
}

// SetAccount connects or switches the session account. A round trip still
// in flight for the previous account is aborted and its subscription torn
// down before this returns, so nothing keyed to the old account outlives
// the switch. The new account's balance is then fetched with Refresh when
// RefreshOnSwitch is set; a refresh failure is recorded in the snapshot,
// not returned.
func (f *Flow) SetAccount(ctx context.Context, account string) error {
	f.mu.Lock()
	if account == f.account {
		f.mu.Unlock()
		return nil
	}
	previous := f.account
	old := f.pending
	f.account = account
	f.gen++
	f.balance = decimal.Zero
	f.lastErr = ""
	f.updatedAt = time.Now()
	f.mu.Unlock()

	if old != nil {
		f.log.Info("account switched during balance round trip, aborting",
			zap.String("from", previous), zap.String("to", account))
		old.abort(errno.ErrAccountSwitched)
		<-old.done
	}
	f.publish(f.Snapshot())

	if account == "" || !f.cfg.RefreshOnSwitch {
		return nil
	}
	if _, err := f.Refresh(ctx); err != nil {
		f.log.Warn("balance refresh after account switch failed", zap.String("account", account), zap.Error(err))
	}
	return nil
}

// Disconnect forgets the account. It is refused while a round trip is in
// flight.
func (f *Flow) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	if f.state.Busy() {
		f.mu.Unlock()
		return errno.ErrBusy
	}
	f.account = ""
	f.gen++
	f.balance = decimal.Zero
	f.lastErr = ""
	snap := f.setStateLocked(Idle)
	f.mu.Unlock()

	f.publish(snap)
	return nil
}

// begin claims the single flight slot for the current account.
func (f *Flow) begin(ctx context.Context, path Path) (*pending, context.Context, error) {
	f.mu.Lock()
	if f.state != Idle {
		f.mu.Unlock()
		f.metrics.ObserveOutcome(string(path), "busy", 0)
		return nil, nil, errno.ErrBusy
	}
	if f.account == "" {
		f.mu.Unlock()
		return nil, nil, errno.ErrNotConnected
	}

	pctx, cancel := context.WithCancel(ctx)
	p := newPending(f.account, f.gen, cancel)
	f.pending = p
	f.lastPath = path
	snap := f.setStateLocked(Requesting)
	f.mu.Unlock()

	f.publish(snap)
	return p, pctx, nil
}

// advance moves p's round trip to s unless it has been superseded.
func (f *Flow) advance(p *pending, s State) bool {
	f.mu.Lock()
	if f.pending != p || p.abortReason() != nil {
		f.mu.Unlock()
		return false
	}
	snap := f.setStateLocked(s)
	f.mu.Unlock()

	f.publish(snap)
	return true
}

// RequestBalance runs the asynchronous round trip: subscribe to the
// store_balance event for the account, submit query_request with the
// session public key, then decrypt the first payload delivered.
func (f *Flow) RequestBalance(ctx context.Context) (decimal.Decimal, error) {
	p, pctx, err := f.begin(ctx, PathRequest)
	if err != nil {
		return decimal.Zero, err
	}
	start := time.Now()
	bal, err := f.request(pctx, p)
	return f.finish(p, PathRequest, start, bal, err)
}

func (f *Flow) request(ctx context.Context, p *pending) (decimal.Decimal, error) {
	if f.locker != nil {
		key := "balance:" + p.account
		ok, err := f.locker.Acquire(ctx, key, f.cfg.LockTTL)
		if err != nil {
			return decimal.Zero, err
		}
		if !ok {
			return decimal.Zero, errno.ErrBusy
		}
		defer func() {
			if err := f.locker.Release(context.Background(), key); err != nil {
				f.log.Warn("release balance lock", zap.Error(err))
			}
		}()
	}

	kp, err := f.keys.CurrentKeyPair(ctx)
	if err != nil {
		return decimal.Zero, asKeyDerivation(err)
	}

	filter := contract.BalanceResponseFilter(f.cfg.Contract, p.account)
	sub, err := f.correlator.Subscribe(ctx, filter, func(ev chain.Event) {
		payload, _ := ev.First(contract.EventEncryptedBalance)
		p.offer(payload)
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !p.attach(sub) {
		sub.Unsubscribe()
		return decimal.Zero, p.abortReason()
	}
	defer p.detach()

	msg := contract.BuildBalanceRequest(kp.PublicKeyHex())
	receipt, err := f.executor.ExecuteContract(ctx, p.account, f.cfg.Contract, msg, nil)
	f.metrics.ObserveExecution(msg.Action(), err)
	if err != nil {
		if !errors.Is(err, errno.ErrSubmissionFailed) {
			err = errno.Wrap(errno.ErrSubmissionFailed, err)
		}
		return decimal.Zero, err
	}
	f.log.Debug("balance request submitted", zap.String("account", p.account), zap.String("tx_hash", receipt.TxHash))

	if !f.advance(p, AwaitingResponse) {
		return decimal.Zero, p.abortReason()
	}

	timer := time.NewTimer(f.cfg.ResponseTimeout)
	defer timer.Stop()

	select {
	case payload := <-p.payloads:
		return f.resolve(kp, payload)
	case err := <-sub.Err():
		// onEvent runs before the stream reports its end, so a payload
		// delivered just before the drop is already buffered.
		select {
		case payload := <-p.payloads:
			return f.resolve(kp, payload)
		default:
		}
		if err == nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return decimal.Zero, ctxErr
			}
			err = errno.ErrSubscriptionClosed
		}
		return decimal.Zero, err
	case <-timer.C:
		return decimal.Zero, errno.ErrCorrelationTimeout
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
}

// Refresh reads the stored encrypted balance with a get_balance smart
// query and resolves it the same way as RequestBalance.
func (f *Flow) Refresh(ctx context.Context) (decimal.Decimal, error) {
	p, pctx, err := f.begin(ctx, PathRefresh)
	if err != nil {
		return decimal.Zero, err
	}
	start := time.Now()
	bal, err := f.refresh(pctx, p)
	return f.finish(p, PathRefresh, start, bal, err)
}

func (f *Flow) refresh(ctx context.Context, p *pending) (decimal.Decimal, error) {
	kp, err := f.keys.CurrentKeyPair(ctx)
	if err != nil {
		return decimal.Zero, asKeyDerivation(err)
	}

	var payload string
	if err := f.querier.QuerySmart(ctx, f.cfg.Contract, contract.BuildBalanceQuery(p.account), &payload); err != nil {
		if !errors.Is(err, errno.ErrQueryFailed) {
			err = errno.Wrap(errno.ErrQueryFailed, err)
		}
		return decimal.Zero, err
	}
	return f.resolve(kp, payload)
}

// resolve is the shared decrypt, parse step. Unreadable plaintext counts
// as a zero balance.
func (f *Flow) resolve(kp *keymaterial.KeyPair, payloadHex string) (decimal.Decimal, error) {
	plaintext, err := crypto_util.Decrypt(kp.PrivateKey(), payloadHex)
	if err != nil {
		return decimal.Zero, err
	}
	bal, ok := contract.ParseBalanceStrict(string(plaintext))
	if !ok {
		f.log.Warn("balance payload not understood, using zero",
			zap.Int("code", errno.ErrParse.Code), zap.Int("plaintext_len", len(plaintext)))
	}
	return bal, nil
}

func (f *Flow) finish(p *pending, path Path, start time.Time, bal decimal.Decimal, err error) (decimal.Decimal, error) {
	elapsed := time.Since(start)

	f.mu.Lock()
	aborted := p.abortReason() != nil || f.gen != p.gen
	if f.pending == p {
		f.pending = nil
	}

	result := "resolved"
	var snaps []Snapshot
	switch {
	case aborted:
		result = "aborted"
		err = errno.Wrap(errno.ErrAccountSwitched, err)
		snaps = append(snaps, f.setStateLocked(Idle))
	case err != nil:
		result = "failed"
		_, f.lastErr = errno.Decode(err)
		snaps = append(snaps, f.setStateLocked(Failed), f.setStateLocked(Idle))
	default:
		f.balance = bal
		f.lastErr = ""
		snaps = append(snaps, f.setStateLocked(Resolved), f.setStateLocked(Idle))
	}
	f.mu.Unlock()

	p.cancel()
	close(p.done)
	f.publish(snaps...)

	outcome := Outcome{
		Account:  p.account,
		Path:     path,
		Result:   result,
		Balance:  bal,
		Duration: elapsed,
		At:       time.Now(),
	}
	if err != nil {
		outcome.Code, outcome.Error = errno.Decode(err)
		outcome.Balance = decimal.Zero
	}
	f.report(outcome)

	if err != nil {
		return decimal.Zero, err
	}
	return bal, nil
}

func (f *Flow) report(o Outcome) {
	f.metrics.ObserveOutcome(string(o.Path), o.Result, o.Duration.Seconds())

	fields := []zap.Field{
		zap.String("account", o.Account),
		zap.String("path", string(o.Path)),
		zap.Duration("took", o.Duration),
	}
	switch o.Result {
	case "resolved":
		f.log.Info("balance resolved", append(fields, zap.String("balance", o.Balance.String()))...)
	case "aborted":
		f.log.Info("balance round trip aborted", append(fields, zap.String("error", o.Error))...)
	default:
		f.log.Warn("balance round trip failed", append(fields, zap.Int("code", o.Code), zap.String("error", o.Error))...)
	}

	if f.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := f.notifier.Notify(ctx, o); err != nil {
		f.log.Warn("notify balance outcome", zap.Error(err))
	}
}

func asKeyDerivation(err error) error {
	if errors.Is(err, errno.ErrKeyDerivation) {
		return err
	}
	return errno.Wrap(errno.ErrKeyDerivation, err)
}
