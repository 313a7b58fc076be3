package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/updownbot/config"
	"github.com/alejandrodnm/updownbot/internal/adapters/metrics"
	"github.com/alejandrodnm/updownbot/internal/adapters/notify"
	"github.com/alejandrodnm/updownbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/updownbot/internal/adapters/redis"
	"github.com/alejandrodnm/updownbot/internal/adapters/storage"
	"github.com/alejandrodnm/updownbot/internal/application/discovery"
	"github.com/alejandrodnm/updownbot/internal/application/engine"
	"github.com/alejandrodnm/updownbot/internal/application/engine/live"
	"github.com/alejandrodnm/updownbot/internal/application/engine/paper"
	"github.com/alejandrodnm/updownbot/internal/application/snapshot"
	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file (.yaml or .toml)")
	liveMode := flag.Bool("live", false, "place real orders (default: simulated)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print dispatch passes as a table (default: compact 1-line)")
	report := flag.Bool("report", false, "print the dispatch journal and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		if err := runReport(ctx, store, notifier); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, *liveMode, store, notifier); err != nil {
		slog.Error("updownbot exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("updownbot stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, liveMode bool, store *storage.SQLiteStorage, notifier *notify.Console) error {
	mode := engine.ModeSimulated
	if liveMode {
		mode = engine.ModeLive
	}
	slog.Info("updownbot starting",
		"mode", mode,
		"interval", cfg.CheckInterval(),
		"window", cfg.DispatchWindow(),
		"limit_price", cfg.Trading.LimitPrice,
		"amount", cfg.Trading.FixedTradeAmount,
		"shares", cfg.Trading.LimitShares,
	)
	if cfg.DispatchWindow() < cfg.CheckInterval() {
		slog.Warn("dispatch window is shorter than the check interval, periods may be missed",
			"window", cfg.DispatchWindow(), "interval", cfg.CheckInterval())
	}

	assets, err := assetConfigs(cfg)
	if err != nil {
		return err
	}

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.RequestTimeout())

	var sink ports.Metrics = metrics.Nop{}
	if cfg.Metrics.Listen != "" {
		prom := metrics.New()
		sink = prom
		go func() {
			if err := prom.Serve(ctx, cfg.Metrics.Listen); err != nil {
				slog.Error("metrics server failed", "err", err)
			}
		}()
	}

	var cache ports.QuoteCache
	var stream *polymarket.QuoteStream
	if cfg.Stream.Enabled {
		stream = polymarket.NewQuoteStream(cfg.API.WSURL)
		cache = stream
		go stream.Run(ctx)
	}

	var guard ports.PeriodGuard
	if cfg.Redis.Addr != "" {
		g, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return fmt.Errorf("period guard: %w", err)
		}
		defer g.Close()
		guard = g
		slog.Info("period guard enabled", "addr", cfg.Redis.Addr, "instance", g.Instance())
	}

	tracker := discovery.NewTracker(discovery.NewResolver(client), assets, store, cache)
	tracker.OnResolve = func(period int64, markets map[domain.Asset]domain.Market) {
		notifier.PrintMarkets(period, markets)
		// En el arranque el stream aún no ha conectado; sin sesión se usan los books REST.
		if stream != nil {
			slog.Info("quote stream status", "period", period, "connected", stream.Connected())
		}
	}
	if _, _, err := tracker.Refresh(ctx, time.Now()); err != nil {
		return fmt.Errorf("initial market resolution: %w", err)
	}

	builder := snapshot.New(client, cache, sink, snapshot.Config{
		RequestTimeout: cfg.RequestTimeout(),
		StreamMaxAge:   cfg.StreamMaxAge(),
	})

	ledger := engine.NewLedger()
	sizing := engine.Sizing{Shares: cfg.Trading.LimitShares, Amount: cfg.Trading.FixedTradeAmount}

	deps := engine.Deps{
		Markets:   tracker,
		Snapshots: builder,
		Ledger:    ledger,
		Notifier:  notifier,
		Guard:     guard,
		Metrics:   sink,
	}

	if liveMode {
		trader, err := newTrader(ctx, cfg, client)
		if err != nil {
			return err
		}
		defer trader.Close()
		exec, err := live.New(trader, ledger, store, sizing)
		if err != nil {
			return err
		}
		deps.Executor = exec
	} else {
		exec := paper.New(ledger, store, sizing)
		deps.Executor = exec
		deps.Watcher = exec
		checkSimulatedAuth(ctx, cfg, client)
	}

	d := engine.NewDispatcher(engine.Config{
		Interval:   cfg.CheckInterval(),
		Window:     cfg.DispatchWindow(),
		LimitPrice: cfg.Trading.LimitPrice,
		Mode:       mode,
	}, deps)
	return d.Run(ctx)
}

// newTrader crea el cliente de trading y se autentica. En modo live
// cualquier fallo es fatal.
func newTrader(ctx context.Context, cfg *config.Config, client *polymarket.Client) (*polymarket.TradingClient, error) {
	auth, err := polymarket.NewAuthClient(client, polymarket.AuthConfig{
		PrivateKeyHex: cfg.Wallet.PrivateKey,
		Funder:        cfg.Wallet.Funder,
		SignatureType: cfg.Wallet.SignatureType,
		Credentials: polymarket.APICredentials{
			APIKey:     cfg.Wallet.APIKey,
			Secret:     cfg.Wallet.APISecret,
			Passphrase: cfg.Wallet.APIPassphrase,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("live mode: %w", err)
	}

	trader, err := polymarket.NewTradingClient(auth, cfg.Wallet.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("live mode: %w", err)
	}
	if err := trader.Authenticate(ctx); err != nil {
		trader.Close()
		return nil, fmt.Errorf("live mode: %w", err)
	}
	slog.Info("live: authenticated", "signer", auth.Address(), "funder", auth.Funder())

	if cfg.Wallet.RPCURL != "" {
		if bal, err := trader.GetBalance(ctx); err != nil {
			slog.Warn("live: balance check failed", "err", err)
		} else {
			slog.Info("live: USDC.e balance", "balance", fmt.Sprintf("$%.2f", bal))
		}
	}
	return trader, nil
}

// checkSimulatedAuth prueba las credenciales si existen. En modo simulado
// un fallo solo se avisa.
func checkSimulatedAuth(ctx context.Context, cfg *config.Config, client *polymarket.Client) {
	if !cfg.HasCredentials() {
		slog.Info("paper: no credentials configured, skipping auth")
		return
	}
	trader, err := newTrader(ctx, cfg, client)
	if err != nil {
		slog.Warn("paper: credentials present but auth failed, continuing simulated", "err", err)
		return
	}
	trader.Close()
}

// assetConfigs combina los flags enable_* y los overrides de assets con los
// valores por defecto de discovery.
func assetConfigs(cfg *config.Config) (map[domain.Asset]discovery.AssetConfig, error) {
	assets := discovery.DefaultAssetConfigs()
	enabled := map[domain.Asset]bool{
		domain.AssetBTC: cfg.BTCEnabled(),
		domain.AssetETH: cfg.Trading.EnableETH,
		domain.AssetSOL: cfg.Trading.EnableSolana,
		domain.AssetXRP: cfg.Trading.EnableXRP,
	}
	for a, on := range enabled {
		ac := assets[a]
		ac.Enabled = on
		assets[a] = ac
	}

	var errs []error
	for name, override := range cfg.Assets {
		a, err := domain.ParseAsset(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("assets.%s: %w", name, err))
			continue
		}
		ac := assets[a]
		if len(override.Prefixes) > 0 {
			ac.Prefixes = override.Prefixes
		}
		if override.IncludePrevious != nil {
			ac.IncludePrevious = *override.IncludePrevious
		}
		assets[a] = ac
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return assets, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
