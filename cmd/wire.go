package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	authadapter "github.com/bnema/exposure-detect/internal/adapters/auth"
	reportadapter "github.com/bnema/exposure-detect/internal/adapters/render/report"
	tomlrepo "github.com/bnema/exposure-detect/internal/adapters/repo/toml"
	chainstore "github.com/bnema/exposure-detect/internal/adapters/secrets/chain"
	filestore "github.com/bnema/exposure-detect/internal/adapters/secrets/file"
	passstore "github.com/bnema/exposure-detect/internal/adapters/secrets/pass"
	"github.com/bnema/exposure-detect/internal/application"
	"github.com/bnema/exposure-detect/internal/ports"
)

const (
	envPrefix = "EXPO"

	batchFloorKey       = "detection.batch_floor"
	capacityKey         = "detection.capacity"
	coalesceGapKey      = "detection.coalesce_gap"
	workersKey          = "detection.workers"
	contactBatchSizeKey = "detection.contact_batch_size"
	ingestBatchSizeKey  = "detection.ingest_batch_size"
	retentionDaysKey    = "keys.retention_days"
	secretsBackendKey   = "secrets.backend"
	secretsDirKey       = "secrets.dir"
)

var errUnknownSecretsBackend = errors.New("unknown secrets backend")

type app struct {
	detection    *application.DetectionService
	keys         *application.TracingKeyService
	state        *tomlrepo.StateStore
	consent      *authadapter.ConsentAuthorizer
	observations *tomlrepo.ObservationLog
	renderer     func(application.DetectionReport, reportadapter.RenderOptions) (string, error)
	retention    int
	logger       *slog.Logger
	now          func() time.Time
}

func wireApp(logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	observations, err := tomlrepo.NewObservationLog(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire observation log: %w", err)
	}
	state, err := tomlrepo.NewStateStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire tracing state store: %w", err)
	}
	consentStore, err := tomlrepo.NewConsentStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire consent store: %w", err)
	}
	secrets, err := wireSecretStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	detectionCfg := application.DetectionConfig{
		BatchFloor:       cfg.GetInt(batchFloorKey),
		Capacity:         cfg.GetInt(capacityKey),
		CoalesceGap:      cfg.GetDuration(coalesceGapKey),
		Workers:          cfg.GetInt(workersKey),
		ContactBatchSize: cfg.GetInt(contactBatchSizeKey),
		IngestBatchSize:  cfg.GetInt(ingestBatchSizeKey),
	}
	if err := detectionCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection config: %w", err)
	}

	clock := ports.SystemClock{}
	consent := authadapter.NewConsentAuthorizer(consentStore, clock)
	retention := cfg.GetInt(retentionDaysKey)
	if retention <= 0 {
		retention = application.DefaultRetentionDays
	}

	return &app{
		detection:    application.NewDetectionService(observations, state, consent, clock, detectionCfg, logger),
		keys:         application.NewTracingKeyService(secrets, clock, retention, logger),
		state:        state,
		consent:      consent,
		observations: observations,
		renderer:     reportadapter.Render,
		retention:    retention,
		logger:       logger,
		now:          clock.Now,
	}, nil
}

// loadConfig layers EXPO_* environment variables over <home>/config.toml over
// built-in defaults. A missing config file is not an error.
func loadConfig() (*viper.Viper, error) {
	cfg := viper.New()
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	home, err := tomlrepo.HomeDir(cfg)
	if err != nil {
		return nil, err
	}

	defaults := application.DefaultDetectionConfig()
	cfg.SetDefault(batchFloorKey, defaults.BatchFloor)
	cfg.SetDefault(capacityKey, defaults.Capacity)
	cfg.SetDefault(coalesceGapKey, defaults.CoalesceGap)
	cfg.SetDefault(workersKey, 0)
	cfg.SetDefault(contactBatchSizeKey, defaults.ContactBatchSize)
	cfg.SetDefault(ingestBatchSizeKey, defaults.IngestBatchSize)
	cfg.SetDefault(retentionDaysKey, application.DefaultRetentionDays)
	cfg.SetDefault(secretsBackendKey, "chain")
	cfg.SetDefault(secretsDirKey, filepath.Join(home, "secrets"))

	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(home)
	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return cfg, nil
}

func wireSecretStore(cfg *viper.Viper) (ports.SecretStore, error) {
	dir := cfg.GetString(secretsDirKey)

	switch backend := strings.ToLower(strings.TrimSpace(cfg.GetString(secretsBackendKey))); backend {
	case "file":
		return filestore.NewStore(dir), nil
	case "pass":
		return passstore.NewStore(), nil
	case "chain", "":
		return chainstore.NewDeviceVault(dir)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownSecretsBackend, backend)
	}
}

// stderrWriter writes to the command's current error stream.
type stderrWriter struct {
	errOut func() io.Writer
}

func (w stderrWriter) Write(p []byte) (int, error) {
	return w.errOut().Write(p)
}
