package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JonMunkholm/partflow/internal/config"
	"github.com/JonMunkholm/partflow/internal/core"
	"github.com/JonMunkholm/partflow/internal/logging"
	"github.com/JonMunkholm/partflow/internal/notify"
	"github.com/JonMunkholm/partflow/internal/store"
)

// Config keys. Each can be set in the config file, as PARTFLOW_<KEY> in the
// environment, or by the matching flag.
const (
	keyDatabaseURL = "database_url"
	keyRedisAddr   = "redis_addr"
	keyRedisPass   = "redis_password"
	keyChannel     = "notify_channel"
	keyUser        = "user"
	keyUploadDir   = "upload_dir"
	keyEncoding    = "encoding"
	keyLogLevel    = "log_level"
	keyLogFormat   = "log_format"
)

const defaultDatabaseURL = "sqlite://partflow.db"

var (
	flagConfigFile string
	flagJSON       bool

	v = viper.New()

	// app is opened by commands that need the catalog and closed by executeRoot.
	app *application
)

var rootCmd = &cobra.Command{
	Use:           "partsctl",
	Short:         "Manage the manufacturing parts catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		// Logs go to stderr so stdout stays parseable with --json.
		slog.SetDefault(logging.New(os.Stderr, v.GetString(keyLogLevel), v.GetString(keyLogFormat)))
		return nil
	},
}

// executeRoot runs the command line and closes whatever the command opened.
// Cobra skips post-run hooks after a failed RunE, so the close happens here.
func executeRoot(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeApp(); cerr != nil {
		if err == nil {
			return cerr
		}
		slog.Warn("close catalog", "error", cerr)
	}
	return err
}

func closeApp() error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigFile, "config", "", "config file (default: ./partsctl.yaml or ~/.config/partflow/partsctl.yaml)")
	pf.BoolVar(&flagJSON, "json", false, "print results as JSON")
	pf.String("database-url", defaultDatabaseURL, "postgres:// or sqlite:// database URL")
	pf.String("redis-addr", "", "Redis address for part_created notifications")
	pf.String("user", "", "acting user name (default: $USER)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")

	_ = v.BindPFlag(keyDatabaseURL, pf.Lookup("database-url"))
	_ = v.BindPFlag(keyRedisAddr, pf.Lookup("redis-addr"))
	_ = v.BindPFlag(keyUser, pf.Lookup("user"))
	_ = v.BindPFlag(keyLogLevel, pf.Lookup("log-level"))

	rootCmd.AddCommand(importCmd, createCmd, completeCmd, partCmd, partsCmd, groupsCmd, templatesCmd, stagesCmd, watchCmd)
}

// loadConfig layers defaults, the config file, PARTFLOW_* and the server's
// own variable names.
func loadConfig() error {
	v.SetDefault(keyChannel, notify.DefaultChannel)
	v.SetDefault(keyUploadDir, core.DefaultUploadDir)
	v.SetDefault(keyEncoding, "utf-8")
	v.SetDefault(keyLogFormat, "text")

	v.SetEnvPrefix("PARTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(keyDatabaseURL, "PARTFLOW_DATABASE_URL", "DATABASE_URL", "DB_URL")
	_ = v.BindEnv(keyRedisAddr, "PARTFLOW_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv(keyRedisPass, "PARTFLOW_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv(keyChannel, "PARTFLOW_NOTIFY_CHANNEL", "NOTIFY_CHANNEL")
	_ = v.BindEnv(keyUploadDir, "PARTFLOW_UPLOAD_DIR", "UPLOAD_DIR")

	if flagConfigFile != "" {
		v.SetConfigFile(flagConfigFile)
	} else {
		v.SetConfigName("partsctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/partflow")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if flagConfigFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// application holds the opened store and service for one command run.
type application struct {
	store     core.Store
	service   *core.Service
	publisher *notify.RedisPublisher
}

// openApp opens the catalog. Commands that create parts also connect the
// notification publisher so listeners see CLI imports.
func openApp(cmd *cobra.Command, withPublisher bool) (*application, error) {
	_ = closeApp()

	ctx := cmd.Context()
	st, err := store.Open(ctx, config.DatabaseConfig{
		URL:      v.GetString(keyDatabaseURL),
		MaxConns: 4,
		Migrate:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &application{store: st}
	var publisher notify.Publisher = notify.LogPublisher{}
	if withPublisher && v.GetString(keyRedisAddr) != "" {
		a.publisher, err = notify.NewRedisPublisher(ctx, redisOptions())
		if err != nil {
			st.Close()
			return nil, err
		}
		publisher = notify.Multi{a.publisher, notify.LogPublisher{}}
	}

	a.service, err = core.NewService(st, publisher, core.Options{
		UploadDir:      v.GetString(keyUploadDir),
		Encoding:       v.GetString(keyEncoding),
		MaxWaitTime:    time.Minute,
		PublishTimeout: core.DefaultPublishTimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	app = a
	return a, nil
}

func (a *application) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

func redisOptions() notify.RedisOptions {
	return notify.RedisOptions{
		Addr:     v.GetString(keyRedisAddr),
		Password: v.GetString(keyRedisPass),
		Channel:  v.GetString(keyChannel),
	}
}

// actingUser returns the --user value, falling back to the OS user.
func actingUser() core.User {
	name := strings.TrimSpace(v.GetString(keyUser))
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "partsctl"
	}
	return core.User{Username: name}
}
