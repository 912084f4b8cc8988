package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/easymo/deeplinks/internal/database"
	deeplinkHTTP "github.com/easymo/deeplinks/internal/deeplink/http"
	deeplinkRepository "github.com/easymo/deeplinks/internal/deeplink/repository"
	deeplinkService "github.com/easymo/deeplinks/internal/deeplink/service"
	deeplinkUseCase "github.com/easymo/deeplinks/internal/deeplink/usecase"
	"github.com/easymo/deeplinks/internal/ratelimit"
)

const (
	rateLimitStoreDatabase = "database"
	flagSourceStatic       = "static"
	sweepInterval          = time.Minute
)

// TokenRepository returns the token record repository based on database driver.
func (c *Container) TokenRepository() (deeplinkUseCase.TokenRepository, error) {
	var err error
	c.tokenRepositoryInit.Do(func() {
		c.tokenRepository, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepository"]; exists {
		return nil, storedErr
	}
	return c.tokenRepository, nil
}

// AuditEventRepository returns the audit event repository based on database driver.
func (c *Container) AuditEventRepository() (deeplinkUseCase.AuditEventRepository, error) {
	var err error
	c.eventRepositoryInit.Do(func() {
		c.eventRepository, err = c.initAuditEventRepository()
		if err != nil {
			c.initErrors["eventRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRepository"]; exists {
		return nil, storedErr
	}
	return c.eventRepository, nil
}

// SessionRepository returns the chat session repository based on database driver.
func (c *Container) SessionRepository() (deeplinkUseCase.SessionRepository, error) {
	var err error
	c.sessionRepositoryInit.Do(func() {
		c.sessionRepository, err = c.initSessionRepository()
		if err != nil {
			c.initErrors["sessionRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionRepository"]; exists {
		return nil, storedErr
	}
	return c.sessionRepository, nil
}

// FlagRepository returns the feature flag repository based on database driver.
func (c *Container) FlagRepository() (deeplinkUseCase.FlagRepository, error) {
	var err error
	c.flagRepositoryInit.Do(func() {
		c.flagRepository, err = c.initFlagRepository()
		if err != nil {
			c.initErrors["flagRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["flagRepository"]; exists {
		return nil, storedErr
	}
	return c.flagRepository, nil
}

// SecretKeeper returns the KMS keeper used to unwrap the signing secret.
func (c *Container) SecretKeeper() deeplinkService.SecretKeeper {
	c.secretKeeperInit.Do(func() {
		c.secretKeeper = deeplinkService.NewKMSSecretKeeper()
	})
	return c.secretKeeper
}

// TokenCodec returns the token signer. It never fails: a missing or
// unreadable secret yields a codec that refuses to sign or verify.
func (c *Container) TokenCodec() deeplinkService.TokenCodec {
	c.tokenCodecInit.Do(func() {
		c.tokenCodec = deeplinkService.NewTokenCodec(c.loadSigningSecret())
	})
	return c.tokenCodec
}

// NonceGenerator returns the per-issuance nonce generator.
func (c *Container) NonceGenerator() deeplinkService.NonceGenerator {
	c.nonceGeneratorInit.Do(func() {
		c.nonceGenerator = deeplinkService.NewNonceGenerator()
	})
	return c.nonceGenerator
}

// RateLimiter returns the fixed-window limiter selected by RATE_LIMIT_STORE.
func (c *Container) RateLimiter() (ratelimit.Limiter, error) {
	var err error
	c.rateLimiterInit.Do(func() {
		c.rateLimiter, err = c.initRateLimiter()
		if err != nil {
			c.initErrors["rateLimiter"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rateLimiter"]; exists {
		return nil, storedErr
	}
	return c.rateLimiter, nil
}

// FlagGate returns the flow flag gate selected by FLAG_SOURCE.
func (c *Container) FlagGate() (deeplinkUseCase.FlagGate, error) {
	var err error
	c.flagGateInit.Do(func() {
		c.flagGate, err = c.initFlagGate()
		if err != nil {
			c.initErrors["flagGate"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["flagGate"]; exists {
		return nil, storedErr
	}
	return c.flagGate, nil
}

// EventRecorder returns the asynchronous audit event recorder.
func (c *Container) EventRecorder() (*deeplinkUseCase.AsyncEventRecorder, error) {
	var err error
	c.eventRecorderInit.Do(func() {
		c.eventRecorder, err = c.initEventRecorder()
		if err != nil {
			c.initErrors["eventRecorder"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRecorder"]; exists {
		return nil, storedErr
	}
	return c.eventRecorder, nil
}

// IssueUseCase returns the issue use case.
func (c *Container) IssueUseCase() (deeplinkUseCase.IssueUseCase, error) {
	var err error
	c.issueUseCaseInit.Do(func() {
		c.issueUseCase, err = c.initIssueUseCase()
		if err != nil {
			c.initErrors["issueUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["issueUseCase"]; exists {
		return nil, storedErr
	}
	return c.issueUseCase, nil
}

// ResolveUseCase returns the resolve use case.
func (c *Container) ResolveUseCase() (deeplinkUseCase.ResolveUseCase, error) {
	var err error
	c.resolveUseCaseInit.Do(func() {
		c.resolveUseCase, err = c.initResolveUseCase()
		if err != nil {
			c.initErrors["resolveUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resolveUseCase"]; exists {
		return nil, storedErr
	}
	return c.resolveUseCase, nil
}

// BootstrapUseCase returns the bootstrap use case.
func (c *Container) BootstrapUseCase() (deeplinkUseCase.BootstrapUseCase, error) {
	var err error
	c.bootstrapUseCaseInit.Do(func() {
		c.bootstrapUseCase, err = c.initBootstrapUseCase()
		if err != nil {
			c.initErrors["bootstrapUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bootstrapUseCase"]; exists {
		return nil, storedErr
	}
	return c.bootstrapUseCase, nil
}

// MaintenanceUseCase returns the cleanup use case.
func (c *Container) MaintenanceUseCase() (deeplinkUseCase.MaintenanceUseCase, error) {
	var err error
	c.maintenanceUseCaseInit.Do(func() {
		c.maintenanceUseCase, err = c.initMaintenanceUseCase()
		if err != nil {
			c.initErrors["maintenanceUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["maintenanceUseCase"]; exists {
		return nil, storedErr
	}
	return c.maintenanceUseCase, nil
}

// DeeplinkHandler returns the HTTP handler for the deep-link endpoints.
func (c *Container) DeeplinkHandler() (*deeplinkHTTP.DeeplinkHandler, error) {
	var err error
	c.deeplinkHandlerInit.Do(func() {
		c.deeplinkHandler, err = c.initDeeplinkHandler()
		if err != nil {
			c.initErrors["deeplinkHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deeplinkHandler"]; exists {
		return nil, storedErr
	}
	return c.deeplinkHandler, nil
}

// useCaseConfig maps application configuration onto the use case tunables.
func (c *Container) useCaseConfig() deeplinkUseCase.Config {
	return deeplinkUseCase.Config{
		BaseURL:         c.config.BaseURL,
		DefaultTTL:      time.Duration(c.config.DefaultTTLMinutes) * time.Minute,
		MaxTTL:          time.Duration(c.config.MaxTTLMinutes) * time.Minute,
		ResolveLimit:    c.config.RateLimitResolveLimit,
		BootstrapLimit:  c.config.RateLimitBootstrapLimit,
		RateLimitWindow: c.config.RateLimitWindow,
	}
}

// loadSigningSecret returns the signing secret, unwrapping it through KMS when
// a ciphertext and key URI are configured. Failures are logged and yield nil.
func (c *Container) loadSigningSecret() []byte {
	logger := c.Logger()

	if c.config.SigningSecretCiphertext != "" && c.config.KMSKeyURI != "" {
		secret, err := c.SecretKeeper().UnwrapSecret(c.ctx, c.config.KMSKeyURI, c.config.SigningSecretCiphertext)
		if err != nil {
			logger.Error("failed to unwrap signing secret, token signing disabled", slog.Any("error", err))
			return nil
		}
		logger.Info("signing secret unwrapped via KMS")
		return secret
	}

	if c.config.SigningSecret == "" {
		logger.Warn("DEEPLINK_SIGNING_SECRET is not set, token signing disabled")
		return nil
	}
	return []byte(c.config.SigningSecret)
}

func (c *Container) initTokenRepository() (deeplinkUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return deeplinkRepository.NewMySQLTokenRepository(db), nil
	case database.DriverPostgres:
		return deeplinkRepository.NewPostgreSQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAuditEventRepository() (deeplinkUseCase.AuditEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit event repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return deeplinkRepository.NewMySQLEventRepository(db), nil
	case database.DriverPostgres:
		return deeplinkRepository.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initSessionRepository() (deeplinkUseCase.SessionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for session repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return deeplinkRepository.NewMySQLSessionRepository(db), nil
	case database.DriverPostgres:
		return deeplinkRepository.NewPostgreSQLSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initFlagRepository() (deeplinkUseCase.FlagRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for flag repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return deeplinkRepository.NewMySQLFlagRepository(db), nil
	case database.DriverPostgres:
		return deeplinkRepository.NewPostgreSQLFlagRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRateLimiter() (ratelimit.Limiter, error) {
	if c.config.RateLimitStore != rateLimitStoreDatabase {
		limiter := ratelimit.NewMemoryLimiter()
		c.stopSweeper = limiter.StartSweeper(sweepInterval)
		return limiter, nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rate limiter: %w", err)
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for rate limiter: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return ratelimit.NewMySQLLimiter(db, txManager), nil
	case database.DriverPostgres:
		return ratelimit.NewPostgreSQLLimiter(db, txManager), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initFlagGate() (deeplinkUseCase.FlagGate, error) {
	disabled := c.config.DisabledFlowList()
	if c.config.FlagSource == flagSourceStatic {
		return deeplinkUseCase.NewStaticFlagGate(disabled), nil
	}

	flagRepo, err := c.FlagRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get flag repository for flag gate: %w", err)
	}
	return deeplinkUseCase.NewFlagGate(flagRepo, disabled), nil
}

func (c *Container) initEventRecorder() (*deeplinkUseCase.AsyncEventRecorder, error) {
	eventRepo, err := c.AuditEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event repository for event recorder: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for event recorder: %w", err)
	}

	return deeplinkUseCase.NewAsyncEventRecorder(
		eventRepo,
		c.Logger(),
		businessMetrics,
		c.config.AuditBufferSize,
		c.config.AuditWriteTimeout,
	), nil
}

func (c *Container) initIssueUseCase() (deeplinkUseCase.IssueUseCase, error) {
	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for issue use case: %w", err)
	}
	flags, err := c.FlagGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get flag gate for issue use case: %w", err)
	}
	recorder, err := c.EventRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get event recorder for issue use case: %w", err)
	}

	baseUseCase := deeplinkUseCase.NewIssueUseCase(
		c.TokenCodec(),
		c.NonceGenerator(),
		tokenRepo,
		flags,
		recorder,
		c.useCaseConfig(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for issue use case: %w", err)
		}
		return deeplinkUseCase.NewIssueUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initResolveUseCase() (deeplinkUseCase.ResolveUseCase, error) {
	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for resolve use case: %w", err)
	}
	flags, err := c.FlagGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get flag gate for resolve use case: %w", err)
	}
	recorder, err := c.EventRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get event recorder for resolve use case: %w", err)
	}
	limiter, err := c.RateLimiter()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limiter for resolve use case: %w", err)
	}

	baseUseCase := deeplinkUseCase.NewResolveUseCase(
		c.TokenCodec(),
		tokenRepo,
		flags,
		recorder,
		limiter,
		c.useCaseConfig(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for resolve use case: %w", err)
		}
		return deeplinkUseCase.NewResolveUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initBootstrapUseCase() (deeplinkUseCase.BootstrapUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for bootstrap use case: %w", err)
	}
	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for bootstrap use case: %w", err)
	}
	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get session repository for bootstrap use case: %w", err)
	}
	flags, err := c.FlagGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get flag gate for bootstrap use case: %w", err)
	}
	recorder, err := c.EventRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get event recorder for bootstrap use case: %w", err)
	}
	limiter, err := c.RateLimiter()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limiter for bootstrap use case: %w", err)
	}

	baseUseCase := deeplinkUseCase.NewBootstrapUseCase(
		txManager,
		c.TokenCodec(),
		tokenRepo,
		sessionRepo,
		flags,
		recorder,
		limiter,
		c.useCaseConfig(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for bootstrap use case: %w", err)
		}
		return deeplinkUseCase.NewBootstrapUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initMaintenanceUseCase() (deeplinkUseCase.MaintenanceUseCase, error) {
	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for maintenance use case: %w", err)
	}
	eventRepo, err := c.AuditEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event repository for maintenance use case: %w", err)
	}

	var purger deeplinkUseCase.RateLimitBucketPurger
	if c.config.RateLimitStore == rateLimitStoreDatabase {
		limiter, err := c.RateLimiter()
		if err != nil {
			return nil, fmt.Errorf("failed to get rate limiter for maintenance use case: %w", err)
		}
		sqlLimiter, ok := limiter.(*ratelimit.SQLLimiter)
		if !ok {
			return nil, fmt.Errorf("rate limiter %T cannot purge buckets", limiter)
		}
		purger = sqlLimiter
	}

	return deeplinkUseCase.NewMaintenanceUseCase(tokenRepo, eventRepo, purger, c.useCaseConfig()), nil
}

func (c *Container) initDeeplinkHandler() (*deeplinkHTTP.DeeplinkHandler, error) {
	issueUseCase, err := c.IssueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get issue use case for deeplink handler: %w", err)
	}
	resolveUseCase, err := c.ResolveUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolve use case for deeplink handler: %w", err)
	}
	bootstrapUseCase, err := c.BootstrapUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get bootstrap use case for deeplink handler: %w", err)
	}

	return deeplinkHTTP.NewDeeplinkHandler(issueUseCase, resolveUseCase, bootstrapUseCase, c.Logger()), nil
}
