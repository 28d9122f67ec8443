package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conversagent/core/ai/cache"
	"github.com/conversagent/core/ai/catalog"
	agentcontext "github.com/conversagent/core/ai/context"
	"github.com/conversagent/core/ai/convsummary"
	"github.com/conversagent/core/ai/featureflag"
	"github.com/conversagent/core/ai/filter"
	"github.com/conversagent/core/ai/harmonizer"
	"github.com/conversagent/core/ai/knowledge"
	"github.com/conversagent/core/ai/llmclient"
	"github.com/conversagent/core/ai/orchestrator"
	"github.com/conversagent/core/ai/providerrouter"
	"github.com/conversagent/core/ai/recovery"
	"github.com/conversagent/core/ai/retrieval"
	"github.com/conversagent/core/ai/usage"
	"github.com/conversagent/core/channels"
	"github.com/conversagent/core/channels/whatsapp"
	"github.com/conversagent/core/internal/metrics"
	"github.com/conversagent/core/internal/profile"
	"github.com/conversagent/core/internal/version"
	"github.com/conversagent/core/scheduler"
	"github.com/conversagent/core/server"
	"github.com/conversagent/core/store"
	"github.com/conversagent/core/store/db/postgres"
	"github.com/conversagent/core/store/db/sqlite"
	"github.com/conversagent/core/tenant"
)

// platform is the one outbound channel adapter this module ships. See
// ai/orchestrator.Turn.platform for the full rationale: store.Tenant and
// scheduler.Gateway carry no platform field, so a single hardcoded
// adapter is this module's actual shape, not a shortcut.
const platform = "whatsapp"

var rootCmd = &cobra.Command{
	Use:   "conversagentd",
	Short: "Multi-tenant conversational commerce AI agent orchestration core.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: run,
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28082)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28082, "port of server")
	rootCmd.PersistentFlags().String("unix-sock", "", "path to the unix socket, overrides --addr and --port")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of this conversagentd instance")

	for _, name := range []string{"mode", "addr", "port", "unix-sock", "data", "driver", "dsn", "instance-url"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("conversagent")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func run(_ *cobra.Command, _ []string) {
	instanceProfile := &profile.Profile{
		Mode:        viper.GetString("mode"),
		Addr:        viper.GetString("addr"),
		Port:        viper.GetInt("port"),
		UNIXSock:    viper.GetString("unix-sock"),
		Data:        viper.GetString("data"),
		Driver:      viper.GetString("driver"),
		DSN:         viper.GetString("dsn"),
		InstanceURL: viper.GetString("instance-url"),
		Version:     version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		panic(err)
	}

	log := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver, err := openDriver(instanceProfile)
	if err != nil {
		log.Error("failed to open database driver", "error", err)
		return
	}

	st := store.New(driver, instanceProfile)

	llmSvc := llmclient.New(llmclient.ProviderConfig{
		Provider:       instanceProfile.LLMProvider,
		APIKey:         instanceProfile.LLMAPIKey,
		BaseURL:        instanceProfile.LLMBaseURL,
		DefaultModel:   instanceProfile.LLMModel,
		EmbeddingModel: instanceProfile.EmbeddingModel,
	})
	multi := llmclient.NewMultiProvider(map[string]llmclient.Service{
		instanceProfile.LLMProvider: llmSvc,
	})

	metricsExporter := metrics.New(metrics.DefaultConfig())

	intentCacheCfg := cache.DefaultSemanticCacheConfig()
	intentCacheCfg.EmbeddingService = llmSvc
	intentCache := cache.NewSemanticCache(intentCacheCfg)

	ks := knowledge.NewService(st, llmSvc)
	cat := catalog.NewReader(st, 1024, 30*time.Second).WithMetrics(metricsExporter)

	builder := agentcontext.NewBuilder(st, ks, cat)
	builder = builder.WithSuggester(agentcontext.NewSuggestionEngine(cat))
	builder = builder.WithRetriever(retrieval.NewOrchestrator(
		[]retrieval.Source{retrieval.NewDatabaseSource(ks, st)},
		map[string]int{retrieval.OriginDatabase: 5},
	))
	builder = builder.WithRecovery(recovery.NewDetector(st))

	chRouter := channels.NewRouter()
	chRouter.Register(whatsapp.New(instanceProfile.WebhookSecret))

	recorder := usage.NewRecorder(st, log).WithFilter(filter.NewFilter(filter.DefaultConfig()))

	fallbackChain := make([]providerrouter.Model, 0, len(instanceProfile.LLMFallbackModels))
	for _, modelID := range instanceProfile.LLMFallbackModels {
		fallbackChain = append(fallbackChain, providerrouter.Model{Provider: instanceProfile.LLMProvider, ModelID: modelID})
	}

	turn := orchestrator.New(orchestrator.Config{
		Store:   st,
		Builder: builder,
		LLM:     llmSvc,
		Multi:   multi,
		RouterConfig: providerrouter.Config{
			Default: providerrouter.Model{Provider: instanceProfile.LLMProvider, ModelID: instanceProfile.LLMModel},
			Cheap:   providerrouter.Model{Provider: instanceProfile.LLMProvider, ModelID: instanceProfile.LLMModel},
			FallbackChain: fallbackChain,
		},
		Channels:       chRouter,
		Platform:       platform,
		Recorder:       recorder,
		Summarize:      convsummary.NewGenerator(st, llmSvc),
		Flags:          featureflag.New(),
		Metrics:        metricsExporter,
		IntentCache:    intentCache,
		Log:            log,
		AttemptTimeout: instanceProfile.LLMTimeout,
	})

	burstHarmonizer := harmonizer.New(st, turn, harmonizer.DefaultBurstWindow, harmonizer.DefaultFlushDelay)
	in := newIngress(st, burstHarmonizer, platform)

	scopeCache := tenant.NewScopeCache(4096, 5*time.Minute)
	resolver := tenant.NewResolver(st, defaultScopeChecker{}, noopChannelVerifier{}, scopeCache)

	srv := server.New(server.Config{
		Store:     st,
		Resolver:  resolver,
		Authn:     server.NewJWTAuthenticator(instanceProfile.AdminJWTSecret),
		Channels:  chRouter,
		OnInbound: in.Handle,
	})
	srv.Echo().GET("/metrics", echo.WrapHandler(metricsExporter.Handler()))

	poller := scheduler.NewPoller(st, newChannelGateway(st, chRouter, platform), log).WithInterval(scheduler.DefaultPollInterval)
	go poller.Run(ctx)

	c := make(chan os.Signal, 1)
	signal.Notify(c, terminationSignals...)

	addr := fmt.Sprintf(":%d", instanceProfile.Port)
	if instanceProfile.Addr != "" {
		addr = fmt.Sprintf("%s:%d", instanceProfile.Addr, instanceProfile.Port)
	}

	go func() {
		<-c
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Echo().Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
		cancel()
	}()

	printGreetings(instanceProfile, addr)

	if err := srv.Echo().Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to start server", "error", err)
	}

	<-ctx.Done()
}

func openDriver(p *profile.Profile) (store.Driver, error) {
	if p.Driver == "postgres" {
		return postgres.NewDB(p)
	}
	return sqlite.NewDB(p)
}

func printGreetings(p *profile.Profile, addr string) {
	fmt.Printf("conversagentd %s started successfully!\n", p.Version)
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Database driver: %s\n", p.Driver)
	if p.UNIXSock != "" {
		fmt.Printf("Listening on unix socket: %s\n", p.UNIXSock)
	} else {
		fmt.Printf("Listening on %s\n", addr)
	}
	if !p.IsAIEnabled() {
		fmt.Fprintln(os.Stderr, "Warning: no LLM API key configured, replies will fail provider routing")
	}
}

func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
