// Command aura is the main entry point for the Aura voice banking assistant.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/aurafin/aura/internal/app"
	"github.com/aurafin/aura/internal/config"
	"github.com/aurafin/aura/internal/health"
	"github.com/aurafin/aura/internal/intent"
	"github.com/aurafin/aura/internal/observe"
	"github.com/aurafin/aura/internal/payee"
	"github.com/aurafin/aura/internal/transfer"
	"github.com/aurafin/aura/pkg/capture/wavfile"
	"github.com/aurafin/aura/pkg/collab/bank/bankapi"
	"github.com/aurafin/aura/pkg/collab/nlu/localnlu"
	"github.com/aurafin/aura/pkg/collab/recognition"
	"github.com/aurafin/aura/pkg/collab/recognition/stream"
	recogapi "github.com/aurafin/aura/pkg/collab/recognition/voiceapi"
	"github.com/aurafin/aura/pkg/collab/rules/rulesengine"
	"github.com/aurafin/aura/pkg/collab/speech"
	speechapi "github.com/aurafin/aura/pkg/collab/speech/voiceapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	wavPath := flag.String("wav", "", "WAV file to use as the audio source (overrides recording.wav_file)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "aura: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "aura: %v\n", err)
		}
		return 1
	}
	if *wavPath != "" {
		cfg.Recording.WAVFile = *wavPath
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("aura starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"transport", cfg.Collaborators.Transport,
	)

	// ── Metrics provider ──────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics provider", "err", err)
		return 1
	}

	// ── Collaborator clients ──────────────────────────────────────────────────
	clients, err := buildClients(cfg)
	if err != nil {
		slog.Error("failed to build collaborator clients", "err", err)
		return 1
	}

	// ── Audio source ──────────────────────────────────────────────────────────
	var sourceOpts []wavfile.Option
	if d := cfg.Recording.ChunkInterval.Std(); d > 0 {
		sourceOpts = append(sourceOpts, wavfile.WithInterval(d))
	}
	source := wavfile.New(cfg.Recording.WAVFile, sourceOpts...)

	// ── Application ───────────────────────────────────────────────────────────
	directory := payee.New(cfg.Payees)
	resolver := intent.New(clients.rules, clients.nlu, directory)
	flow := transfer.New(clients.bank, transfer.Account{
		ID:        cfg.Account.ID,
		Currency:  cfg.Account.Currency,
		Reference: cfg.Account.Reference,
	})

	orch := app.New(app.Config{
		Source:      source,
		Recognition: clients.recognition,
		Resolver:    resolver,
		Rules:       clients.rules,
		Bank:        clients.bank,
		Flow:        flow,
		Speech:      clients.speech,
		Listener:    newConsoleListener(),
	})

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStartupSummary(cfg)
	printCommandHelp()

	g, ctx := errgroup.WithContext(ctx)

	// ── Diagnostics server (optional) ─────────────────────────────────────────
	if cfg.Server.ListenAddr != "" {
		srv := diagnosticsServer(cfg)
		g.Go(func() error {
			slog.Info("diagnostics server listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("diagnostics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// ── Event loop and console driver ─────────────────────────────────────────
	g.Go(func() error {
		return orch.Run(ctx)
	})
	g.Go(func() error {
		return readCommands(ctx, cancel, orch)
	})

	slog.Info("ready — press Ctrl+C or type quit to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutting down…")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := shutdownMetrics(shutdownCtx); err != nil {
		slog.Warn("metrics shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Collaborator wiring ───────────────────────────────────────────────────────

// clients bundles the collaborator interfaces built from configuration.
type clients struct {
	recognition recognition.Client
	nlu         *localnlu.Client
	rules       *rulesengine.Client
	bank        *bankapi.Client
	speech      speech.Synthesizer // nil when no endpoint is configured
}

func buildClients(cfg *config.Config) (*clients, error) {
	c := &clients{}

	switch cfg.Collaborators.Transport {
	case config.TransportStream:
		sc, err := stream.New(cfg.Collaborators.Recognition.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("recognition client: %w", err)
		}
		c.recognition = sc
	default:
		var opts []recogapi.Option
		if d := cfg.Collaborators.Recognition.Timeout.Std(); d > 0 {
			opts = append(opts, recogapi.WithTimeout(d))
		}
		rc, err := recogapi.New(cfg.Collaborators.Recognition.BaseURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("recognition client: %w", err)
		}
		c.recognition = rc
	}
	slog.Info("collaborator ready", "kind", "recognition", "transport", cfg.Collaborators.Transport)

	var nluOpts []localnlu.Option
	if d := cfg.Collaborators.NLU.Timeout.Std(); d > 0 {
		nluOpts = append(nluOpts, localnlu.WithTimeout(d))
	}
	nluClient, err := localnlu.New(cfg.Collaborators.NLU.BaseURL, nluOpts...)
	if err != nil {
		return nil, fmt.Errorf("nlu client: %w", err)
	}
	c.nlu = nluClient
	slog.Info("collaborator ready", "kind", "nlu")

	rulesOpts := []rulesengine.Option{}
	if d := cfg.Collaborators.Rules.Timeout.Std(); d > 0 {
		rulesOpts = append(rulesOpts, rulesengine.WithTimeout(d))
	}
	if cfg.Collaborators.VoiceAPI.BaseURL != "" {
		rulesOpts = append(rulesOpts, rulesengine.WithVoiceAPI(cfg.Collaborators.VoiceAPI.BaseURL))
	}
	rulesClient, err := rulesengine.New(cfg.Collaborators.Rules.BaseURL, rulesOpts...)
	if err != nil {
		return nil, fmt.Errorf("rules client: %w", err)
	}
	c.rules = rulesClient
	slog.Info("collaborator ready", "kind", "rules")

	var bankOpts []bankapi.Option
	if d := cfg.Collaborators.Bank.Timeout.Std(); d > 0 {
		bankOpts = append(bankOpts, bankapi.WithTimeout(d))
	}
	bankClient, err := bankapi.New(cfg.Collaborators.Bank.BaseURL, bankOpts...)
	if err != nil {
		return nil, fmt.Errorf("bank client: %w", err)
	}
	c.bank = bankClient
	slog.Info("collaborator ready", "kind", "bank")

	if cfg.Collaborators.Speech.BaseURL != "" {
		var speechOpts []speechapi.Option
		if d := cfg.Collaborators.Speech.Timeout.Std(); d > 0 {
			speechOpts = append(speechOpts, speechapi.WithTimeout(d))
		}
		speechClient, err := speechapi.New(cfg.Collaborators.Speech.BaseURL, speechOpts...)
		if err != nil {
			return nil, fmt.Errorf("speech client: %w", err)
		}
		c.speech = speechClient
		slog.Info("collaborator ready", "kind", "speech")
	} else {
		slog.Info("speech synthesis disabled — no endpoint configured")
	}

	return c, nil
}

// ── Diagnostics ───────────────────────────────────────────────────────────────

func diagnosticsServer(cfg *config.Config) *http.Server {
	checkers := []health.Checker{
		health.Ping("recognition", cfg.Collaborators.Recognition.BaseURL, nil),
		health.Ping("nlu", cfg.Collaborators.NLU.BaseURL, nil),
		health.Ping("rules", cfg.Collaborators.Rules.BaseURL, nil),
		health.Ping("bank", cfg.Collaborators.Bank.BaseURL, nil),
	}
	if cfg.Collaborators.Speech.BaseURL != "" {
		checkers = append(checkers, health.Ping("speech", cfg.Collaborators.Speech.BaseURL, nil))
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Console driver ────────────────────────────────────────────────────────────

// newConsoleListener returns a state listener that prints assistant output to
// stdout. It runs on the reducer goroutine, so the captured locals need no
// locking.
func newConsoleListener() func(app.State) {
	var lastStatus, lastTranscript, lastHint string
	return func(s app.State) {
		if s.Transcript != "" && s.Transcript != lastTranscript {
			lastTranscript = s.Transcript
			fmt.Printf("  you: %s\n", s.Transcript)
		}
		if s.Status != "" && s.Status != lastStatus {
			lastStatus = s.Status
			fmt.Printf("aura: %s\n", s.Status)
		}
		if s.AwaitingOTP && s.OTP.Hint != "" && s.OTP.Hint != lastHint {
			// Demo affordance: the sandbox bank echoes the expected code.
			lastHint = s.OTP.Hint
			fmt.Printf("aura: (demo hint: %s)\n", s.OTP.Hint)
		}
		if !s.AwaitingOTP {
			lastHint = ""
		}
	}
}

// readCommands drives the orchestrator from stdin. It returns when ctx is
// cancelled or stdin closes; "quit" cancels the whole run.
func readCommands(ctx context.Context, cancel context.CancelFunc, orch *app.Orchestrator) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed (e.g. piped input exhausted); keep the
				// event loop running until a signal arrives.
				<-ctx.Done()
				return nil
			}
			cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
			switch strings.ToLower(cmd) {
			case "":
			case "start":
				orch.StartRecording()
			case "stop":
				orch.StopRecording()
			case "confirm", "yes":
				orch.ConfirmTransfer()
			case "decline", "no":
				orch.DeclineTransfer()
			case "otp":
				orch.SubmitOTP(strings.TrimSpace(rest))
			case "cancel":
				orch.CancelOTP()
			case "rule":
				orch.SaveRule(strings.TrimSpace(rest))
			case "simulate":
				orch.SimulateRule(parseSimulatePayload(rest))
			case "trigger":
				orch.TriggerTransaction()
			case "balance":
				orch.RefreshBalance()
			case "help":
				printCommandHelp()
			case "quit", "exit":
				cancel()
				return nil
			default:
				fmt.Printf("unknown command %q — type help for a list\n", cmd)
			}
		}
	}
}

// parseSimulatePayload turns "key=value key=value" arguments into the event
// payload sent to the rules engine. Bare words become {"event": word}.
func parseSimulatePayload(args string) map[string]string {
	payload := make(map[string]string)
	for _, field := range strings.Fields(args) {
		if k, v, ok := strings.Cut(field, "="); ok {
			payload[k] = v
		} else {
			payload["event"] = field
		}
	}
	return payload
}

func printCommandHelp() {
	fmt.Println(`commands:
  start            begin recording from the configured WAV source
  stop             stop recording and interpret the transcript
  confirm | yes    confirm a pending transfer
  decline | no     decline a pending transfer
  otp <code>       submit the one-time code
  cancel           abandon the one-time code step
  rule <text>      save an automation rule from text
  simulate [k=v …] simulate an event against saved rules
  trigger          publish a demo transaction event
  balance          fetch the current balance
  quit             exit`)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════════╗")
	fmt.Println("║          Aura — startup summary           ║")
	fmt.Println("╠═══════════════════════════════════════════╣")
	printEndpoint("Recognition", cfg.Collaborators.Recognition.BaseURL)
	printEndpoint("NLU", cfg.Collaborators.NLU.BaseURL)
	printEndpoint("Rules", cfg.Collaborators.Rules.BaseURL)
	printEndpoint("Bank", cfg.Collaborators.Bank.BaseURL)
	printEndpoint("Speech", cfg.Collaborators.Speech.BaseURL)
	fmt.Printf("║  Transport   : %-25s ║\n", cfg.Collaborators.Transport)
	fmt.Printf("║  Account     : %-25s ║\n", trim(cfg.Account.ID, 25))
	fmt.Printf("║  WAV source  : %-25s ║\n", trim(cfg.Recording.WAVFile, 25))
	fmt.Printf("║  Payees      : %-25d ║\n", len(cfg.Payees))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Diagnostics : %-25s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════════╝")
}

func printEndpoint(kind, baseURL string) {
	value := baseURL
	if value == "" {
		value = "(not configured)"
	}
	fmt.Printf("║  %-11s : %-25s ║\n", kind, trim(value, 25))
}

func trim(s string, n int) string {
	if len(s) > n {
		return s[:n-1] + "…"
	}
	return s
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level.SlogLevel(),
	}))
}
