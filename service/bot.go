package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/amhaddad/okxbot/engine"
	"github.com/amhaddad/okxbot/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// shutdownTimeout bounds the liveness server shutdown.
	shutdownTimeout = time.Second * 5
)

// BotConfig represents the configuration struct for the trading bot.
type BotConfig struct {
	// Symbols represents the tracked trading pairs, processed in order.
	Symbols []string
	// PollInterval is the fixed delay between polling passes.
	PollInterval time.Duration
	// ListenAddr is the liveness endpoint listen address.
	ListenAddr string
	// ManagePosition evaluates the open position for a symbol and closes it
	// if its exit conditions are met.
	ManagePosition func(ctx context.Context, symbol string) (bool, error)
	// Evaluate derives the entry signal for a symbol.
	Evaluate func(ctx context.Context, symbol string) shared.Signal
	// ExecuteBuy opens a position for a symbol.
	ExecuteBuy func(ctx context.Context, symbol string) (*shared.OrderHandle, string, error)
	// Notify sends the provided message to the operator.
	Notify func(message string)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *BotConfig) Validate() error {
	var errs error

	if len(cfg.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no symbols provided for the bot"))
	}
	if cfg.PollInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval))
	}
	if cfg.ListenAddr == "" {
		errs = errors.Join(errs, fmt.Errorf("listen address cannot be an empty string"))
	}
	if cfg.ManagePosition == nil {
		errs = errors.Join(errs, fmt.Errorf("manage position function cannot be nil"))
	}
	if cfg.Evaluate == nil {
		errs = errors.Join(errs, fmt.Errorf("evaluate function cannot be nil"))
	}
	if cfg.ExecuteBuy == nil {
		errs = errors.Join(errs, fmt.Errorf("execute buy function cannot be nil"))
	}
	if cfg.Notify == nil {
		errs = errors.Join(errs, fmt.Errorf("notify function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Bot runs the polling loop over the configured symbols and serves the
// liveness endpoint.
type Bot struct {
	cfg          *BotConfig
	jobScheduler *gocron.Scheduler
	lastPass     atomic.Pointer[time.Time]
	passes       atomic.Uint64
}

// NewBot initializes a new trading bot.
func NewBot(cfg *BotConfig) (*Bot, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Bot{
		cfg:          cfg,
		jobScheduler: gocron.NewScheduler(time.UTC),
	}, nil
}

// processSymbol manages the open position for the provided symbol and then
// evaluates it for a new entry.
func (b *Bot) processSymbol(ctx context.Context, symbol string) {
	closed, err := b.cfg.ManagePosition(ctx, symbol)
	if err != nil {
		b.cfg.Logger.Error().Msgf("managing position for %s: %v", symbol, err)
	}
	if closed {
		b.cfg.Logger.Info().Msgf("closed position for %s", symbol)
	}

	signal := b.cfg.Evaluate(ctx, symbol)
	switch signal {
	case shared.Buy:
		order, msg, err := b.cfg.ExecuteBuy(ctx, symbol)
		switch {
		case errors.Is(err, engine.ErrStateDesync):
			// The exchange holds a live position the store does not track,
			// alert loudly for manual intervention.
			b.cfg.Logger.Error().Msgf("state desync for %s: %v", symbol, err)
			b.cfg.Notify(fmt.Sprintf("ALERT: untracked live position for %s, manual intervention required: %v",
				symbol, err))
		case err != nil:
			b.cfg.Logger.Error().Msgf("executing buy for %s: %v", symbol, err)
		case order != nil:
			b.cfg.Notify(msg)
		default:
			// Capacity and funds rejections are normal negative outcomes.
			b.cfg.Logger.Info().Msg(msg)
		}
	case shared.FetchError:
		// Treated the same as no signal, the fault was already logged.
	case shared.NoSignal:
		// do nothing.
	}
}

// runPass processes every configured symbol sequentially.
func (b *Bot) runPass(ctx context.Context) {
	for _, symbol := range b.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}

		b.processSymbol(ctx, symbol)
	}

	now := time.Now().UTC()
	b.lastPass.Store(&now)
	b.passes.Add(1)
}

// handleLiveness reports the bot status and the time of the last completed
// pass.
func (b *Bot) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	last := "never"
	if t := b.lastPass.Load(); t != nil {
		last = t.Format(time.RFC3339)
	}

	fmt.Fprintf(w, "bot is running\npasses: %d\nlast pass: %s\n", b.passes.Load(), last)
}

// Run manages the lifecycle processes of the bot until the provided context
// is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	// Singleton mode guarantees a new pass never starts while one is still
	// in flight.
	_, err := b.jobScheduler.Every(b.cfg.PollInterval).SingletonMode().Do(func() {
		b.runPass(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling polling job: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", b.handleLiveness)
	server := &http.Server{Addr: b.cfg.ListenAddr, Handler: mux}

	// The liveness endpoint stays responsive independent of the polling
	// loop's progress.
	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.cfg.Logger.Error().Msgf("liveness server: %v", err)
		}
	}()

	b.jobScheduler.StartAsync()

	<-ctx.Done()

	b.jobScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutting down liveness server: %w", err)
	}

	return nil
}
