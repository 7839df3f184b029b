// Package main provides the go-federation entity process entrypoint.
//
// go-federation runs one OpenID Federation 1.0 Entity: it publishes a
// self-signed Entity Configuration, optionally issues Subordinate
// Statements and Trust Marks to registered subordinates, and resolves
// trust chains on behalf of relying parties through the AuthZEN Trust
// Registry Profile bridge.
//
// # Running the Application
//
// Command line options:
//
//	--host            API server hostname (default: 127.0.0.1)
//	--port            API server port (default: GF_PORT or 6001)
//	--entity-name     Short entity name, used to derive the kid and default entity_id
//	--config          Path to a YAML configuration file
//	--trust-anchor    Trust anchor entity_id(s) the AuthZEN bridge resolves against (repeatable)
//	--required-trust-mark  Trust Mark id(s) the AuthZEN bridge requires (repeatable)
//	--redis-addr      Redis address (host:port) for a shared resolver cache; empty uses an in-process cache
//	--version         Show version information
//	--help            Show help message
//
// # API Endpoints
//
//	GET  /.well-known/openid-federation  - this entity's signed Entity Configuration
//	GET  /fetch?sub=<id>                 - a signed Subordinate Statement for a registered subordinate
//	GET  /manage/...                     - entity, subordinate, and Trust Mark management
//	POST /authzen/decision               - AuthZEN Trust Registry Profile evaluation
//	GET  /health, /ready                 - liveness and readiness probes
//	GET  /metrics                        - Prometheus metrics
//	GET  /swagger/*any                   - Swagger UI
//
// See: https://github.com/SUNET/go-federation for more information.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/redis/go-redis/v9"

	_ "github.com/SUNET/go-federation/docs/swagger" // Import generated docs
	"github.com/SUNET/go-federation/pkg/api"
	"github.com/SUNET/go-federation/pkg/config"
	"github.com/SUNET/go-federation/pkg/entity"
	"github.com/SUNET/go-federation/pkg/keys"
	"github.com/SUNET/go-federation/pkg/logging"
	"github.com/SUNET/go-federation/pkg/registry"
	"github.com/SUNET/go-federation/pkg/registry/oidfed"
	"github.com/SUNET/go-federation/pkg/resolver"
	"github.com/SUNET/go-federation/pkg/resolver/rediscache"
)

// @title go-federation API
// @version 1.0
// @description OpenID Federation 1.0 entity process: Entity Configuration, Subordinate Statements, Trust Chain Resolver, Trust Mark Validator, and the AuthZEN Trust Registry bridge.
// @termsOfService https://github.com/SUNET/go-federation

// @contact.name SUNET
// @contact.url https://github.com/SUNET/go-federation
// @contact.email noreply@sunet.se

// @license.name BSD-2-Clause
// @license.url https://opensource.org/licenses/BSD-2-Clause

// @host localhost:6001
// @BasePath /

// @schemes http https

// @tag.name Federation
// @tag.description Entity Configuration and Subordinate Statement endpoints

// @tag.name Management
// @tag.description Entity state, subordinate registry, and Trust Mark administration

// @tag.name Health
// @tag.description Health check and readiness endpoints for Kubernetes and monitoring systems

// @tag.name AuthZEN
// @tag.description AuthZEN Trust Registry Profile evaluation endpoint

// Version is set at build time using -ldflags.
var Version = "dev"

func usage() {
	prog := os.Args[0]
	fmt.Fprintf(os.Stderr, "\nUsage: %s [options]\n", prog)
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  --help           Show this help message and exit.")
	fmt.Fprintln(os.Stderr, "  --version        Show version information and exit.")
	fmt.Fprintln(os.Stderr, "  --config         Path to a YAML configuration file")
	fmt.Fprintln(os.Stderr, "  --host           API server hostname (default: 127.0.0.1)")
	fmt.Fprintln(os.Stderr, "  --port           API server port (default: 6001)")
	fmt.Fprintln(os.Stderr, "  --entity-name    Short entity name (default: entity)")
	fmt.Fprintln(os.Stderr, "  --trust-anchor   Trust anchor entity_id for the AuthZEN bridge (repeatable)")
	fmt.Fprintln(os.Stderr, "  --required-trust-mark  Trust Mark id required of the AuthZEN bridge's resolved chain (repeatable)")
	fmt.Fprintln(os.Stderr, "  --redis-addr     Redis address (host:port) for a shared resolver cache")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Every flag can also be set via GF_-prefixed environment variables; see pkg/config.")
	fmt.Fprintln(os.Stderr, "")
}

// trustAnchorFlags collects repeated --trust-anchor flags into a slice.
type trustAnchorFlags []string

func (t *trustAnchorFlags) String() string { return strings.Join(*t, ",") }
func (t *trustAnchorFlags) Set(v string) error {
	*t = append(*t, v)
	return nil
}

func main() {
	showHelp := flag.Bool("help", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	host := flag.String("host", "", "API server hostname")
	port := flag.String("port", "", "API server port")
	entityName := flag.String("entity-name", "", "Short entity name")
	redisAddr := flag.String("redis-addr", "", "Redis address (host:port) for a shared resolver cache")
	var trustAnchors trustAnchorFlags
	flag.Var(&trustAnchors, "trust-anchor", "Trust anchor entity_id for the AuthZEN bridge (repeatable)")
	var requiredTrustMarks trustAnchorFlags
	flag.Var(&requiredTrustMarks, "required-trust-mark", "Trust Mark id required of the AuthZEN bridge's resolved chain (repeatable)")
	flag.Parse()

	if *showHelp {
		usage()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Println("Version:", Version)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *entityName != "" {
		cfg.Server.EntityName = *entityName
	}
	if len(trustAnchors) > 0 {
		cfg.Federation.TrustAnchors = trustAnchors
	}
	if len(requiredTrustMarks) > 0 {
		cfg.Federation.RequiredTrustMarks = requiredTrustMarks
	}
	if *redisAddr != "" {
		cfg.Federation.RedisAddr = *redisAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)

	baseURL := cfg.Server.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.example.com", cfg.Server.EntityName)
	}

	mgr := keys.NewManager()
	if err := mgr.Initialize(cfg.Server.EntityName, nil); err != nil {
		logger.WithError(err).Fatal("failed to initialize entity signing key")
		os.Exit(1)
	}

	state := entity.NewState(baseURL, nil)

	fetcher := resolver.NewHTTPFetcher(cfg.Federation.FetchTimeout)
	cache := buildResolverCache(cfg, logger)
	cachedFetcher := resolver.WithCache(fetcher, cache, cfg.Federation.StatementTTL)
	res := resolver.NewWithMaxHops(cachedFetcher, nil, cfg.Federation.MaxHops)

	serverCtx := api.NewServerContext(state, mgr, res, logger, baseURL)
	serverCtx.RateLimiter = api.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	serverCtx.Metrics = api.NewMetrics()

	var reg registry.TrustRegistry
	if len(cfg.Federation.TrustAnchors) > 0 {
		oidfedReg, err := oidfed.NewOIDFedRegistry(res, oidfed.Config{
			TrustAnchorURLs:    cfg.Federation.TrustAnchors,
			RequiredTrustMarks: cfg.Federation.RequiredTrustMarks,
			Description:        fmt.Sprintf("AuthZEN Trust Registry bridge for %s", baseURL),
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to initialize AuthZEN trust registry bridge")
			os.Exit(1)
		}
		reg = oidfedReg
	} else {
		logger.Warn("no trust anchors configured, /authzen/decision will report 503")
	}

	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(serverCtx.RateLimiter.Middleware())
	r.Use(serverCtx.Metrics.MetricsMiddleware())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api.RegisterFederationEndpoints(r, serverCtx)
	api.RegisterManagementEndpoints(r, serverCtx)
	api.RegisterHealthEndpoints(r, serverCtx)
	api.RegisterMetricsEndpoint(r, serverCtx.Metrics)
	api.RegisterAuthZENEndpoints(r, serverCtx, reg)

	listenAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.WithFields(
		logging.F("listen_addr", listenAddr),
		logging.F("entity_id", baseURL),
		logging.F("kid", mgr.KeyID()),
	).Info("go-federation entity process starting")
	fmt.Printf("Swagger UI available at http://%s/swagger/index.html\n", listenAddr)

	if err := r.Run(listenAddr); err != nil {
		logger.WithError(err).Fatal("API server error")
		os.Exit(1)
	}
}

// buildResolverCache selects the resolver.Cache implementation: a
// shared rediscache.Cache when cfg.Federation.RedisAddr is set, so
// multiple entity processes behind the same superior can share fetched
// statements, otherwise an in-process cache from resolver.NewMemoryCache.
func buildResolverCache(cfg *config.Config, logger logging.Logger) resolver.Cache {
	if cfg.Federation.RedisAddr == "" {
		return resolver.NewMemoryCache()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Federation.RedisAddr})
	logger.WithFields(logging.F("redis_addr", cfg.Federation.RedisAddr)).Info("using shared Redis resolver cache")
	return rediscache.New(client, "go-federation:resolver:", nil)
}

func buildLogger(cfg *config.Config) logging.Logger {
	level := parseLevel(cfg.Logging.Level)
	if strings.EqualFold(cfg.Logging.Format, "json") {
		return logging.JSONLogger(level)
	}
	return logging.NewLogger(level)
}

func parseLevel(level string) logging.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logging.DebugLevel
	case "warn":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	case "fatal":
		return logging.FatalLevel
	default:
		return logging.InfoLevel
	}
}
