package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/logiqbot/keypool/internal/adapters/openrouter"
	statusadapter "github.com/logiqbot/keypool/internal/adapters/render/status"
	mongorepo "github.com/logiqbot/keypool/internal/adapters/repo/mongo"
	tomlrepo "github.com/logiqbot/keypool/internal/adapters/repo/toml"
	chainsource "github.com/logiqbot/keypool/internal/adapters/secrets/chain"
	filesource "github.com/logiqbot/keypool/internal/adapters/secrets/file"
	passsource "github.com/logiqbot/keypool/internal/adapters/secrets/pass"
	"github.com/logiqbot/keypool/internal/adapters/secrets/secretbox"
	"github.com/logiqbot/keypool/internal/application"
	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

const mongoConnectTimeout = 10 * time.Second

type app struct {
	keys     *application.KeyService
	chat     *application.ChatService
	settings *application.SettingsService
	creds    ports.CredentialRepository

	secretFile *filesource.Source
	secretPass *passsource.Source

	statusRenderer func([]domain.Credential, statusadapter.RenderOptions) (string, error)

	log   *zap.Logger
	now   func() time.Time
	close func()
}

func wireApp() (*app, error) {
	log, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	dataDir := filepath.Join(homeDir, ".keypool")

	creds, settingsRepo, sessionsRepo, closeStore, err := wireStorage(log)
	if err != nil {
		return nil, err
	}

	secretFile := filesource.NewSource(filepath.Join(dataDir, "enc-secret"))
	secretPass := passsource.NewSource(passsource.DefaultEntry)
	materialSource, err := chainsource.NewDefault(filepath.Join(dataDir, "enc-secret"))
	if err != nil {
		return nil, fmt.Errorf("wire key material chain: %w", err)
	}

	// Missing material yields an unconfigured cipher; commands that never
	// touch encrypted keys still work.
	material, err := materialSource.Material(context.Background())
	if err != nil && !errors.Is(err, ports.ErrNoKeyMaterial) {
		return nil, fmt.Errorf("resolve encryption secret: %w", err)
	}
	cipher := secretbox.New(material)

	client := openrouter.NewClient(envOrDefault("KEYPOOL_BASE_URL", openrouter.DefaultBaseURL))
	clock := ports.SystemClock{}
	notifier := application.LogNotifier{Log: log}

	dispatcher := application.NewDispatcher(creds, cipher, client, notifier, clock, log)
	settings := application.NewSettingsService(settingsRepo, clock)
	chat := application.NewChatService(settings, sessionsRepo, dispatcher, application.NewGate(), application.NewCooldownTracker(), clock, log)
	keys := application.NewKeyService(creds, cipher, client, clock, log)

	return &app{
		keys:           keys,
		chat:           chat,
		settings:       settings,
		creds:          creds,
		secretFile:     secretFile,
		secretPass:     secretPass,
		statusRenderer: statusadapter.Render,
		log:            log,
		now:            time.Now,
		close: func() {
			closeStore()
			_ = log.Sync()
		},
	}, nil
}

// wireStorage picks MongoDB when KEYPOOL_MONGO_URI is set and the local
// TOML store otherwise.
func wireStorage(log *zap.Logger) (ports.CredentialRepository, ports.SettingsRepository, ports.SessionRepository, func(), error) {
	if uri := os.Getenv("KEYPOOL_MONGO_URI"); uri != "" {
		ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
		defer cancel()

		store, err := mongorepo.Connect(ctx, uri, os.Getenv("KEYPOOL_MONGO_DB"))
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("wire mongodb storage: %w", err)
		}

		log.Debug("using mongodb storage")
		closeStore := func() {
			ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
			defer cancel()
			_ = store.Close(ctx)
		}
		return store.Credentials(), store.Settings(), store.Sessions(), closeStore, nil
	}

	cfg, err := tomlrepo.NewConfig(viper.New())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("wire toml storage: %w", err)
	}

	log.Debug("using toml storage")
	return tomlrepo.NewCredentialRepository(cfg),
		tomlrepo.NewSettingsRepository(cfg),
		tomlrepo.NewSessionRepository(cfg),
		func() {},
		nil
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if os.Getenv("KEYPOOL_DEBUG") != "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
