package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/engine"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/tui"
	validationpkg "github.com/alexisbeaulieu97/converge/internal/validation"
)

type applyOptions struct {
	sourceOptions
	DryRun         bool
	Verbose        bool
	JSONLogs       bool
	NonInteractive bool
}

// isTerminal reports whether stdout is an interactive terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func newApplyCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [recipe...]",
		Short: "Converge the host to the declared recipes",
		Long: `Apply evaluates every enabled resource in declaration order, skipping those
whose guards say so, and converges the rest. The first failure stops the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := applyOptions{
				sourceOptions:  sourceOptions{Recipes: args, RunList: root.runList},
				DryRun:         root.dryRun,
				Verbose:        root.verbose,
				JSONLogs:       root.jsonLogs,
				NonInteractive: root.jsonLogs || !isTerminal(),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runApply(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}

// modelSender applies messages to a model directly when no program runs.
type modelSender struct {
	state *tui.Model
}

func (s *modelSender) Send(msg tea.Msg) {
	updated, _ := s.state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*s.state = m
	}
}

// changeRecorder collects the ids of resources the run changed, or would change
// in a dry run, for the closing log line.
type changeRecorder struct {
	ids []string
}

func (c *changeRecorder) ResourceStarted(string, *config.Resource) {}

func (c *changeRecorder) ResourceFinished(result model.ResourceResult) {
	if result.Changed() {
		c.ids = append(c.ids, result.ResourceID)
	}
}

func runApply(ctx context.Context, opts applyOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	plan, err := loadPlan(opts.sourceOptions)
	if err != nil {
		return err
	}

	interactive := !opts.NonInteractive
	log, err := newLogger(logOptions{
		Command: "apply",
		Verbose: opts.Verbose || anyVerbose(plan),
		JSON:    opts.JSONLogs,
		Quiet:   interactive,
		Writer:  stderr,
	})
	if err != nil {
		return err
	}

	var commandOutput io.Writer
	if !interactive && opts.Verbose {
		commandOutput = stderr
	}
	host := newHost(commandOutput)

	registry, err := newRegistry(host, plan)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	modelState := tui.NewModel(plan, opts.DryRun, opts.NonInteractive)
	var sender tui.Sender = &modelSender{state: &modelState}
	var program *tea.Program
	if interactive {
		program = tea.NewProgram(modelState, tea.WithOutput(stdout), tea.WithContext(ctx))
		sender = program
	}

	changes := &changeRecorder{}
	runner, err := engine.NewRunner(engine.Options{
		Registry: registry,
		Host:     host,
		Logger:   log,
		Observer: engine.Observers{tui.ProgramObserver{Program: sender}, changes},
		DryRun:   opts.DryRun,
	})
	if err != nil {
		return err
	}

	var programErr error
	done := make(chan struct{})
	if interactive {
		go func() {
			defer close(done)
			_, programErr = program.Run()
			// Ctrl-C in the view stops the run as well.
			cancel()
		}()
	}

	summary, runErr := runner.Run(ctx, plan)

	var valErr error
	if runErr == nil && !opts.DryRun {
		checker := &validationpkg.Checker{Host: host}
		results, err := checker.RunRecipes(ctx, plan.Recipes)
		valErr = err
		for _, vr := range results {
			message := validationpkg.Describe(vr.Validation)
			if !vr.Passed {
				message = fmt.Sprintf("%s: %s", message, vr.Message)
			}
			sender.Send(tui.ValidationMsg{Passed: vr.Passed, Message: message})
		}
	}

	finalErr := runErr
	if finalErr == nil {
		finalErr = valErr
	}
	sender.Send(tui.RunFinishedMsg{Err: finalErr})

	if interactive {
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		fmt.Fprintln(stdout, modelState.View())
	}

	log.WithFields(map[string]any{
		"total":          summary.Total,
		"converged":      summary.Converged,
		"up_to_date":     summary.UpToDate,
		"would_converge": summary.WouldConverge,
		"failed":         summary.Failed,
		"pending":        summary.Pending(),
		"changed":        changes.ids,
		"duration":       summary.Duration.String(),
	}).Info("run complete")

	return finalErr
}
