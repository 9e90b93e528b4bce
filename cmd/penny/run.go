package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/penny/internal/config"
	"github.com/ShayCichocki/penny/internal/orchestrator"
	"github.com/ShayCichocki/penny/internal/tools"
	"github.com/ShayCichocki/penny/internal/tui"
)

var (
	runResume        string
	runTUI           bool
	runModel         string
	runMaxIterations int
	runMaxRetries    int
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run a P&L analysis request",
	Long: `Run a P&L analysis request through the orchestration engine.

The request is decomposed into subtasks, each subtask is executed
against the tool service, hypothetical P&L calculations are
cross-checked against the complement hierarchy, and a final answer is
synthesized from the collected results.

Every merge is checkpointed, so an interrupted run can be continued:
  penny run --resume <run-id>

Examples:
  penny run "What would the P&L impact be if we changed the FHC formula for ACCT-001?"
  penny run --tui "Update the hedging formula and recalculate"
  penny run --resume 3f2a...            # continue an interrupted run`,
	Args: cobra.ArbitraryArgs,
	RunE: runQuery,
}

func init() {
	runCmd.Flags().StringVar(&runResume, "resume", "", "Resume a checkpointed run by id instead of starting a new one")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show an interactive terminal UI instead of plain output")
	runCmd.Flags().StringVar(&runModel, "model", "", "Override the configured reasoning model")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "Iteration ceiling for the run (0 = configured default)")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", 0, "Recovery attempt budget (0 = configured default)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")
	if runResume == "" && strings.TrimSpace(request) == "" {
		return fmt.Errorf("provide a request, or --resume <run-id>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	oracleClient, err := buildOracle(cfg, runModel)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := buildLogger()
	defer logger.Close()

	maxIterations := runMaxIterations
	if maxIterations <= 0 {
		maxIterations = cfg.Defaults.MaxIterations
	}
	maxRetries := runMaxRetries
	if maxRetries <= 0 {
		maxRetries = cfg.Defaults.MaxRetries
	}

	emitter := orchestrator.NewEventEmitter(256)

	engine, err := orchestrator.New(orchestrator.Config{
		Oracle:        oracleClient,
		Invoker:       tools.NewLocal(),
		Store:         store,
		Emitter:       emitter,
		Logger:        logger,
		MaxIterations: maxIterations,
		MaxRetries:    maxRetries,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	// The engine owns the emitter lifetime: events stop when the run does.
	resultCh := make(chan runResult, 1)
	go func() {
		defer emitter.Close()
		var final *orchestrator.RunState
		var runErr error
		if runResume != "" {
			final, runErr = engine.Resume(ctx, runResume)
		} else {
			final, runErr = engine.Run(ctx, request)
		}
		resultCh <- runResult{state: final, err: runErr}
	}()

	if runTUI {
		title := request
		if title == "" {
			title = fmt.Sprintf("resume %s", runResume)
		}
		if err := tui.Run(title, emitter.Events()); err != nil {
			cancel()
			<-resultCh
			return fmt.Errorf("tui: %w", err)
		}
	} else {
		printEvents(emitter.Events())
	}

	res := <-resultCh
	if res.err != nil {
		if res.state != nil {
			fmt.Printf("Run %s interrupted; resume with: penny run --resume %s\n",
				res.state.RunID, res.state.RunID)
		}
		return res.err
	}

	// The TUI swallows the stream, so repeat the answer on plain stdout.
	if runTUI && res.state != nil {
		fmt.Println(res.state.FinalAnswer)
	}

	if n := emitter.DroppedCount(); n > 0 {
		fmt.Printf("warning: %d event(s) dropped by a slow consumer\n", n)
	}

	tracker := oracleClient.Tracker()
	in, out := tracker.Total()
	fmt.Printf("oracle: %d call(s), %d in / %d out tokens, ~$%.4f\n",
		tracker.Calls(), in, out, tracker.Cost())
	return nil
}

type runResult struct {
	state *orchestrator.RunState
	err   error
}
