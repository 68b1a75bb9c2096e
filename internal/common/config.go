package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Store  StoreConfig
	Server ServerConfig
	Line   LineConfig
	Engine EngineConfig
	OCR    OCRConfig
}

// StoreConfig holds workbook-store configuration
type StoreConfig struct {
	WorkbookPath string
	OrdersSheet  string
	CatalogSheet string
	ZipRefSheet  string
	StockInSheet string
	HistorySheet string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// LineConfig holds chat-transport credentials and the access gate
type LineConfig struct {
	ChannelSecret string
	ChannelToken  string
	WhitelistMode string          // "on" | "off"
	AdminUserIDs  map[string]bool // always authorized
	WhitelistTTL  time.Duration
}

// EngineConfig holds resolver and dialogue thresholds
type EngineConfig struct {
	FuzzyThreshold   float64
	QueryDays        int
	PhoneSuffixLen   int
	WriteZipToAddr   bool
	RefDataTTL       time.Duration
	PendingSlotIdle  time.Duration
	MaxCandidates    int
	LeftoverPreview  int
}

// OCRConfig holds shipping-label recognition configuration
type OCRConfig struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "chi_tra+eng"
	TessdataDir string
	LogRawText  bool
}

// LoadConfig loads configuration from environment variables.
// A local .env file is honored when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Store: StoreConfig{
			WorkbookPath: getEnv("WORKBOOK_PATH", "bookship.xlsx"),
			OrdersSheet:  getEnv("MAIN_SHEET_NAME", "寄書任務"),
			CatalogSheet: getEnv("BOOK_MASTER_SHEET_NAME", "書目主檔"),
			ZipRefSheet:  getEnv("ZIPREF_SHEET_NAME", "郵遞區號參照表"),
			StockInSheet: getEnv("STOCK_IN_SHEET_NAME", "入庫明細"),
			HistorySheet: getEnv("HISTORY_SHEET_NAME", "歷史紀錄"),
		},
		Server: ServerConfig{
			Addr: ":" + getEnv("PORT", "8080"),
		},
		Line: LineConfig{
			ChannelSecret: getEnv("LINE_CHANNEL_SECRET", ""),
			ChannelToken:  getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			WhitelistMode: strings.ToLower(getEnv("WHITELIST_MODE", "off")),
			AdminUserIDs:  splitToSet(getEnv("ADMIN_USER_IDS", "")),
			WhitelistTTL:  getEnvAsDuration("WHITELIST_TTL", 5*time.Minute),
		},
		Engine: EngineConfig{
			FuzzyThreshold:  getEnvAsFloat64("FUZZY_THRESHOLD", 0.6),
			QueryDays:       getEnvAsInt("QUERY_DAYS", 30),
			PhoneSuffixLen:  getEnvAsInt("PHONE_SUFFIX_MATCH", 9),
			WriteZipToAddr:  getEnvAsBool("WRITE_ZIP_TO_ADDRESS", true),
			RefDataTTL:      getEnvAsDuration("REFDATA_TTL", 5*time.Minute),
			PendingSlotIdle: getEnvAsDuration("PENDING_SLOT_IDLE", 10*time.Minute),
			MaxCandidates:   getEnvAsInt("MAX_CANDIDATES", 10),
			LeftoverPreview: getEnvAsInt("LEFTOVER_PREVIEW", 10),
		},
		OCR: OCRConfig{
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("TESSERACT_LANG", "chi_tra+eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			LogRawText:  getEnvAsBool("LOG_OCR_RAW", true),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Store.WorkbookPath == "" {
		return NewAppError("CONFIG_ERROR", "WORKBOOK_PATH is required", ErrInvalidInput)
	}
	if c.Line.ChannelSecret == "" || c.Line.ChannelToken == "" {
		return NewAppError("CONFIG_ERROR", "LINE channel credentials are required", ErrInvalidInput)
	}
	if c.Engine.FuzzyThreshold <= 0 || c.Engine.FuzzyThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "FUZZY_THRESHOLD must be in (0,1]", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitToSet(raw string) map[string]bool {
	out := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out[v] = true
		}
	}
	return out
}
