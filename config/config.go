package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Trading TradingConfig          `yaml:"trading" toml:"trading"`
	Assets  map[string]AssetConfig `yaml:"assets" toml:"assets"`
	API     APIConfig              `yaml:"api" toml:"api"`
	Wallet  WalletConfig           `yaml:"wallet" toml:"wallet"`
	Stream  StreamConfig           `yaml:"stream" toml:"stream"`
	Storage StorageConfig          `yaml:"storage" toml:"storage"`
	Redis   RedisConfig            `yaml:"redis" toml:"redis"`
	Metrics MetricsConfig          `yaml:"metrics" toml:"metrics"`
	Log     LogConfig              `yaml:"log" toml:"log"`
}

// TradingConfig controla el despacho de órdenes al inicio de cada periodo.
type TradingConfig struct {
	CheckIntervalMs  int     `yaml:"check_interval_ms" toml:"check_interval_ms"`
	FixedTradeAmount float64 `yaml:"fixed_trade_amount" toml:"fixed_trade_amount"` // USDC por orden
	LimitShares      float64 `yaml:"limit_shares" toml:"limit_shares"`             // si > 0, tiene prioridad sobre el importe
	LimitPrice       float64 `yaml:"limit_price" toml:"limit_price"`
	DispatchWindowMs int     `yaml:"dispatch_window_ms" toml:"dispatch_window_ms"`

	// BTC siempre estuvo habilitado; el puntero permite desactivarlo explícitamente.
	EnableBTC    *bool `yaml:"enable_btc" toml:"enable_btc"`
	EnableETH    bool  `yaml:"enable_eth" toml:"enable_eth"`
	EnableSolana bool  `yaml:"enable_solana" toml:"enable_solana"`
	EnableXRP    bool  `yaml:"enable_xrp" toml:"enable_xrp"`
}

// AssetConfig sobreescribe los prefijos de slug y el fallback de un asset.
type AssetConfig struct {
	Prefixes        []string `yaml:"prefixes" toml:"prefixes"`
	IncludePrevious *bool    `yaml:"include_previous" toml:"include_previous"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase         string `yaml:"clob_base" toml:"clob_base"`
	GammaBase        string `yaml:"gamma_base" toml:"gamma_base"`
	WSURL            string `yaml:"ws_url" toml:"ws_url"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms" toml:"request_timeout_ms"`
}

// WalletConfig describe la firma de órdenes. La clave privada y las
// credenciales de API solo se leen del entorno (.env), nunca del archivo.
type WalletConfig struct {
	SignatureType int    `yaml:"signature_type" toml:"signature_type"` // 0=EOA, 1=POLY_PROXY, 2=POLY_GNOSIS_SAFE
	Funder        string `yaml:"funder" toml:"funder"`                 // proxy wallet; vacío = la dirección del signer
	RPCURL        string `yaml:"rpc_url" toml:"rpc_url"`               // opcional, para loguear el balance USDC.e

	PrivateKey    string `yaml:"-" toml:"-"`
	APIKey        string `yaml:"-" toml:"-"`
	APISecret     string `yaml:"-" toml:"-"`
	APIPassphrase string `yaml:"-" toml:"-"`
}

// StreamConfig controla el feed websocket de cotizaciones.
type StreamConfig struct {
	Enabled  bool `yaml:"enabled" toml:"enabled"`
	MaxAgeMs int  `yaml:"max_age_ms" toml:"max_age_ms"`
}

// StorageConfig controla dónde se persiste el journal.
type StorageConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// RedisConfig habilita el reclamo de periodo entre instancias. Addr vacío = deshabilitado.
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

// MetricsConfig expone /metrics de Prometheus. Listen vacío = deshabilitado.
type MetricsConfig struct {
	Listen string `yaml:"listen" toml:"listen"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // text | json
}

// Load carga la configuración desde el archivo (YAML o TOML según la extensión)
// y el archivo .env si existe. Los valores del entorno sobreescriben los del archivo.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// CheckInterval devuelve el intervalo de polling como time.Duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Trading.CheckIntervalMs) * time.Millisecond
}

// DispatchWindow devuelve la ventana de despacho tras el inicio del periodo.
func (c *Config) DispatchWindow() time.Duration {
	return time.Duration(c.Trading.DispatchWindowMs) * time.Millisecond
}

// RequestTimeout devuelve el timeout de cada request HTTP.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutMs) * time.Millisecond
}

// StreamMaxAge devuelve la edad máxima de una cotización del stream.
func (c *Config) StreamMaxAge() time.Duration {
	return time.Duration(c.Stream.MaxAgeMs) * time.Millisecond
}

// BTCEnabled indica si BTC está habilitado (por defecto sí).
func (c *Config) BTCEnabled() bool {
	return c.Trading.EnableBTC == nil || *c.Trading.EnableBTC
}

// HasCredentials indica si hay clave privada para firmar.
func (c *Config) HasCredentials() bool {
	return c.Wallet.PrivateKey != ""
}

// Validate comprueba la coherencia de la configuración ya con defaults.
func (c *Config) Validate() error {
	var errs []error
	if c.Trading.LimitPrice <= 0 || c.Trading.LimitPrice >= 1 {
		errs = append(errs, fmt.Errorf("trading.limit_price must be in (0, 1), got %v", c.Trading.LimitPrice))
	}
	if c.Trading.LimitShares < 0 {
		errs = append(errs, fmt.Errorf("trading.limit_shares must be >= 0, got %v", c.Trading.LimitShares))
	}
	if c.RequestTimeout() >= c.CheckInterval() {
		errs = append(errs, fmt.Errorf("api.request_timeout_ms (%d) must be shorter than trading.check_interval_ms (%d)",
			c.API.RequestTimeoutMs, c.Trading.CheckIntervalMs))
	}
	if c.Wallet.SignatureType < 0 || c.Wallet.SignatureType > 2 {
		errs = append(errs, fmt.Errorf("wallet.signature_type must be 0, 1 or 2, got %d", c.Wallet.SignatureType))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	cfg.Wallet.PrivateKey = strings.TrimPrefix(os.Getenv("POLY_PRIVATE_KEY"), "0x")
	cfg.Wallet.APIKey = os.Getenv("POLY_API_KEY")
	cfg.Wallet.APISecret = os.Getenv("POLY_API_SECRET")
	cfg.Wallet.APIPassphrase = os.Getenv("POLY_API_PASSPHRASE")
	if v := os.Getenv("POLY_FUNDER"); v != "" {
		cfg.Wallet.Funder = v
	}
	if v := os.Getenv("POLY_SIGNATURE_TYPE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Wallet.SignatureType = n
		}
	}
	if v := os.Getenv("POLYGON_RPC_URL"); v != "" {
		cfg.Wallet.RPCURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Trading.CheckIntervalMs <= 0 {
		cfg.Trading.CheckIntervalMs = 1000
	}
	if cfg.Trading.LimitPrice <= 0 {
		cfg.Trading.LimitPrice = 0.45
	}
	if cfg.Trading.FixedTradeAmount <= 0 {
		cfg.Trading.FixedTradeAmount = 4.5
	}
	if cfg.Trading.DispatchWindowMs <= 0 {
		cfg.Trading.DispatchWindowMs = 2000
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.WSURL == "" {
		cfg.API.WSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	}
	if cfg.API.RequestTimeoutMs <= 0 {
		// Debe quedar por debajo del intervalo de polling.
		cfg.API.RequestTimeoutMs = cfg.Trading.CheckIntervalMs * 4 / 5
	}
	if cfg.Stream.MaxAgeMs <= 0 {
		cfg.Stream.MaxAgeMs = 5000
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "updownbot.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "updown"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
