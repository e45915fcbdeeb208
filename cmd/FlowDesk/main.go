package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/BotCanvas/FlowDesk/internal/api"
	"github.com/BotCanvas/FlowDesk/internal/escalation"
	"github.com/BotCanvas/FlowDesk/internal/flow"
	"github.com/BotCanvas/FlowDesk/internal/lockfile"
	"github.com/BotCanvas/FlowDesk/internal/store"
	"github.com/BotCanvas/FlowDesk/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FlowDesk state data
	DefaultStateDir = "/var/lib/flowdesk"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "flowdesk.db"
	// DefaultFlowFile is the default flow definition path
	DefaultFlowFile = "data/flow.json"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	def, err := flow.Load(*flags.flowFile)
	if err != nil {
		slog.Error("Failed to load flow definition", "error", err, "flow_file", *flags.flowFile)
		os.Exit(1)
	}

	// File-backed storage requires exclusive ownership of the state directory.
	if store.DetectDSNType(*flags.dbDSN) == store.DSNTypeSQLite {
		lock, err := lockfile.AcquireLock(filepath.Dir(*flags.dbDSN))
		if err != nil {
			slog.Error("Failed to acquire state directory lock", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	st, err := store.NewStoreFromDSN(*flags.dbDSN, storeOptions()...)
	if err != nil {
		slog.Error("Failed to initialize conversation store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	gw, err := buildGateway(flags)
	if err != nil {
		slog.Error("Failed to initialize escalation gateway", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping FlowDesk", "flow_file", *flags.flowFile, "api_addr", *flags.apiAddr)
	server := api.NewServer(def, st, gw)
	if err := server.Run(ctx, *flags.apiAddr); err != nil {
		slog.Error("FlowDesk failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FlowDesk exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir      string
	DatabaseURL   string
	FlowFile      string
	APIAddr       string
	EscalationURL string
	SupportNumber string
	Debug         bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	flowFile      *string
	apiAddr       *string
	escalationURL *string
	supportNumber *string
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("FLOWDESK_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:      os.Getenv("FLOWDESK_STATE_DIR"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		FlowFile:      os.Getenv("FLOW_FILE"),
		APIAddr:       os.Getenv("API_ADDR"),
		EscalationURL: os.Getenv("ESCALATION_URL"),
		SupportNumber: os.Getenv("TWILIO_SUPPORT_NUMBER"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FLOWDESK_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.FlowFile == "" {
		config.FlowFile = DefaultFlowFile
		slog.Debug("No FLOW_FILE set, using default", "default_flow_file", config.FlowFile)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"FLOWDESK_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"FLOW_FILE", config.FlowFile,
		"API_ADDR", config.APIAddr,
		"ESCALATION_URL_SET", config.EscalationURL != "",
		"TWILIO_SUPPORT_NUMBER_SET", config.SupportNumber != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for FlowDesk data (overrides $FLOWDESK_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "conversation store DSN: postgres://, redis://, or SQLite file path (overrides $DATABASE_URL)"),
		flowFile:      flag.String("flow-file", config.FlowFile, "path to the flow definition JSON (overrides $FLOW_FILE)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		escalationURL: flag.String("escalation-url", config.EscalationURL, "external handoff endpoint URL (overrides $ESCALATION_URL)"),
		supportNumber: flag.String("support-number", config.SupportNumber, "Twilio support number for escalation handoff (overrides $TWILIO_SUPPORT_NUMBER)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"flowFile", *flags.flowFile,
		"apiAddr", *flags.apiAddr,
		"escalationURL_set", *flags.escalationURL != "",
		"supportNumber_set", *flags.supportNumber != "")

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// storeOptions collects the optional store tuning knobs from the environment.
// CONVERSATION_TTL and REDIS_KEY_PREFIX only affect the Redis backend.
func storeOptions() []store.Option {
	var opts []store.Option
	if ttl := util.ParseDurationEnv("CONVERSATION_TTL", 0); ttl > 0 {
		opts = append(opts, store.WithTTL(ttl))
	}
	if prefix := os.Getenv("REDIS_KEY_PREFIX"); prefix != "" {
		opts = append(opts, store.WithKeyPrefix(prefix))
	}
	return opts
}

// buildGateway constructs the escalation gateway: an HTTP handoff endpoint
// when configured, otherwise a Twilio relay to the support number.
func buildGateway(flags Flags) (escalation.Gateway, error) {
	if *flags.escalationURL != "" {
		slog.Debug("Configuring HTTP escalation gateway", "url_set", true)
		return escalation.NewHTTPGateway(escalation.WithURL(*flags.escalationURL))
	}
	slog.Debug("Configuring Twilio escalation gateway", "support_number_set", *flags.supportNumber != "")
	return escalation.NewTwilioGateway(*flags.supportNumber)
}
