package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Shop     ShopConfig
	Printer  PrinterConfig
	Alert    AlertConfig
	Public   PublicConfig
	CORS     CORSConfig
}

type AppConfig struct {
	Env  string
	Port string
}

// DatabaseConfig is empty when orders and the menu live in memory.
type DatabaseConfig struct {
	URL string
}

// RedisConfig is empty when the menu cache lives in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	MenuTTL  time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	AdminPasscode     string
	AdminPasscodeHash string
	StaffPasscode     string
}

type ShopConfig struct {
	Name        string
	Address     string
	Phone       string
	Currency    string
	OrderPrefix string
	TaxRate     decimal.Decimal
	Timezone    string
}

type PrinterConfig struct {
	Type         string
	USBPath      string
	Address      string
	CharsPerLine int
	CodePage     string
	SettleDelay  time.Duration
	Copies       int
}

type AlertConfig struct {
	Interval time.Duration
	ToneGap  time.Duration
}

type PublicConfig struct {
	OrderRate  float64
	OrderBurst int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads .env from the working directory when present, then the
// environment, which takes precedence.
func Load() *Config {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) *Config {
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg(".env file not found, using environment variables")
	}

	setDefaults(v)

	return &Config{
		App: AppConfig{
			Env:  v.GetString("APP_ENV"),
			Port: v.GetString("PORT"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			MenuTTL:  v.GetDuration("MENU_CACHE_TTL"),
		},
		Auth: AuthConfig{
			JWTSecret:         v.GetString("JWT_SECRET"),
			TokenTTL:          v.GetDuration("JWT_TTL"),
			AdminPasscode:     v.GetString("ADMIN_PASSCODE"),
			AdminPasscodeHash: v.GetString("ADMIN_PASSCODE_HASH"),
			StaffPasscode:     v.GetString("STAFF_PASSCODE"),
		},
		Shop: ShopConfig{
			Name:        v.GetString("SHOP_NAME"),
			Address:     v.GetString("SHOP_ADDRESS"),
			Phone:       v.GetString("SHOP_PHONE"),
			Currency:    v.GetString("CURRENCY"),
			OrderPrefix: v.GetString("ORDER_PREFIX"),
			TaxRate:     parseDecimal(v.GetString("TAX_RATE")),
			Timezone:    v.GetString("TIMEZONE"),
		},
		Printer: PrinterConfig{
			Type:         strings.ToLower(v.GetString("PRINTER_TYPE")),
			USBPath:      v.GetString("PRINTER_USB_PATH"),
			Address:      v.GetString("PRINTER_ADDRESS"),
			CharsPerLine: v.GetInt("PRINTER_CHARS_PER_LINE"),
			CodePage:     v.GetString("PRINTER_CODE_PAGE"),
			SettleDelay:  v.GetDuration("PRINTER_SETTLE_DELAY"),
			Copies:       v.GetInt("RECEIPT_COPIES"),
		},
		Alert: AlertConfig{
			Interval: v.GetDuration("ALERT_INTERVAL"),
			ToneGap:  v.GetDuration("ALERT_TONE_GAP"),
		},
		Public: PublicConfig{
			OrderRate:  v.GetFloat64("PUBLIC_ORDER_RATE"),
			OrderBurst: v.GetInt("PUBLIC_ORDER_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8081")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MENU_CACHE_TTL", "5m")
	v.SetDefault("JWT_SECRET", "dev-secret-change-in-production")
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("ADMIN_PASSCODE", "")
	v.SetDefault("ADMIN_PASSCODE_HASH", "")
	v.SetDefault("STAFF_PASSCODE", "")
	v.SetDefault("SHOP_NAME", "Momo House")
	v.SetDefault("SHOP_ADDRESS", "")
	v.SetDefault("SHOP_PHONE", "")
	v.SetDefault("CURRENCY", "£")
	v.SetDefault("ORDER_PREFIX", "MH")
	v.SetDefault("TAX_RATE", "0")
	v.SetDefault("TIMEZONE", "Europe/London")
	v.SetDefault("PRINTER_TYPE", "none")
	v.SetDefault("PRINTER_USB_PATH", "/dev/usb/lp0")
	v.SetDefault("PRINTER_ADDRESS", "")
	v.SetDefault("PRINTER_CHARS_PER_LINE", 32)
	v.SetDefault("PRINTER_CODE_PAGE", "PC858")
	v.SetDefault("PRINTER_SETTLE_DELAY", "1s")
	v.SetDefault("RECEIPT_COPIES", 2)
	v.SetDefault("ALERT_INTERVAL", "2s")
	v.SetDefault("ALERT_TONE_GAP", "400ms")
	v.SetDefault("PUBLIC_ORDER_RATE", 2)
	v.SetDefault("PUBLIC_ORDER_BURST", 10)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		log.Warn().Str("value", s).Msg("invalid TAX_RATE, using 0")
		return decimal.Zero
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
