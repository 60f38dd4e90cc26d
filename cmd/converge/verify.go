package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/converge/internal/engine"
	"github.com/alexisbeaulieu97/converge/internal/model"
)

type verifyOptions struct {
	sourceOptions
	Verbose  bool
	JSON     bool
	JSONLogs bool
	Timeout  time.Duration
}

func newVerifyCmd(root *rootFlags) *cobra.Command {
	opts := verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify [recipe...]",
		Short: "Report whether the host matches the recipes without changing it",
		Long: `Verify performs read-only checks against every enabled resource.
Exit codes: 0 when everything is satisfied, 1 when changes are needed,
2 on configuration errors and 3 on runtime errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.sourceOptions = sourceOptions{Recipes: args, RunList: root.runList}
			opts.Verbose = root.verbose
			opts.JSONLogs = root.jsonLogs
			return runVerify(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Timeout per resource, overriding recipe settings (e.g. 60s)")

	return cmd
}

func runVerify(ctx context.Context, opts verifyOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	plan, err := loadPlan(opts.sourceOptions)
	if err != nil {
		return &exitError{code: exitConfigError, err: fmt.Errorf("configuration error: %w", err)}
	}

	log, err := newLogger(logOptions{Command: "verify", Verbose: opts.Verbose, JSON: opts.JSONLogs, Quiet: !opts.Verbose, Writer: stderr})
	if err != nil {
		return &exitError{code: exitRuntime, err: err}
	}

	host := newHost(nil)
	registry, err := newRegistry(host, plan)
	if err != nil {
		return &exitError{code: exitRuntime, err: err}
	}

	runner, err := engine.NewRunner(engine.Options{
		Registry: registry,
		Host:     host,
		Logger:   log,
		Timeout:  opts.Timeout,
	})
	if err != nil {
		return &exitError{code: exitRuntime, err: err}
	}

	log.WithFields(map[string]any{
		"recipes":   len(plan.Recipes),
		"resources": len(plan.Steps()),
	}).Info("starting verification")

	summary, err := runner.Verify(ctx, plan)
	if err != nil {
		if isConfigError(err) {
			return &exitError{code: exitConfigError, err: fmt.Errorf("configuration error: %w", err)}
		}
		return &exitError{code: exitRuntime, err: fmt.Errorf("verification error: %w", err)}
	}

	log.WithFields(map[string]any{
		"total":     summary.TotalResources,
		"satisfied": summary.Satisfied,
		"missing":   summary.Missing,
		"drifted":   summary.Drifted,
		"blocked":   summary.Blocked,
		"unknown":   summary.Unknown,
		"duration":  summary.Duration.String(),
	}).Info("verification complete")

	switch {
	case opts.JSON:
		if err := printJSONOutput(stdout, summary, recipeNames(plan)); err != nil {
			return &exitError{code: exitRuntime, err: err}
		}
	case opts.Verbose:
		printVerboseOutput(stdout, summary)
	default:
		printTableOutput(stdout, summary)
	}

	if code := summary.ExitCode(); code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

func recipeNames(plan *engine.Plan) []string {
	names := make([]string, 0, len(plan.Recipes))
	for _, recipe := range plan.Recipes {
		names = append(names, recipe.Name)
	}
	return names
}

func printTableOutput(w io.Writer, summary *model.VerificationSummary) {
	fmt.Fprintln(w, "\nVerification Results:")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%-32s %-10s %-12s %-8s %s\n", "Resource", "Type", "Status", "Duration", "Message")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, result := range summary.Results {
		fmt.Fprintf(w, "%-32s %-10s %-12s %-8s %s\n",
			truncateString(result.ResourceID, 32),
			result.Type,
			fmt.Sprintf("%s %s", getStatusSymbol(result.Status), result.Status),
			fmt.Sprintf("%.2fs", result.Duration.Seconds()),
			truncateString(result.Message, 40),
		)
	}

	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Total:     %d\n", summary.TotalResources)
	fmt.Fprintf(w, "  ✔ Satisfied: %d\n", summary.Satisfied)
	fmt.Fprintf(w, "  ✖ Missing:   %d\n", summary.Missing)
	fmt.Fprintf(w, "  ⚠ Drifted:   %d\n", summary.Drifted)
	fmt.Fprintf(w, "  🚫 Blocked:  %d\n", summary.Blocked)
	fmt.Fprintf(w, "  ? Unknown:  %d\n", summary.Unknown)
	fmt.Fprintf(w, "  Duration:  %s\n", summary.Duration.String())

	if summary.AllSatisfied() {
		fmt.Fprintln(w, "\n✅ All resources satisfied - no changes needed")
	} else {
		fmt.Fprintln(w, "\n❌ Changes needed - run 'converge apply' to fix")
	}
}

func printVerboseOutput(w io.Writer, summary *model.VerificationSummary) {
	printTableOutput(w, summary)

	hasDetails := false
	header := func(title string) {
		if !hasDetails {
			fmt.Fprintf(w, "\n%s\n", title)
			fmt.Fprintln(w, strings.Repeat("=", 80))
			hasDetails = true
		}
	}

	for _, result := range summary.Results {
		switch {
		case result.Status == model.StatusDrifted && result.Details != "":
			header("Detailed Diff Output:")
			fmt.Fprintf(w, "\n--- Resource: %s ---\n", result.ResourceID)
			fmt.Fprintln(w, result.Details)
		case (result.Status == model.StatusBlocked || result.Status == model.StatusUnknown) && result.Error != nil:
			header("Error Details:")
			fmt.Fprintf(w, "\n--- Resource: %s ---\n", result.ResourceID)
			fmt.Fprintf(w, "Error: %v\n", result.Error)
		}
	}
}

type jsonResult struct {
	ResourceID string  `json:"resource_id"`
	Recipe     string  `json:"recipe"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Details    string  `json:"details,omitempty"`
	Error      string  `json:"error,omitempty"`
	Duration   float64 `json:"duration_seconds"`
	Timestamp  string  `json:"timestamp"`
}

type jsonSummary struct {
	TotalResources int     `json:"total_resources"`
	Satisfied      int     `json:"satisfied"`
	Missing        int     `json:"missing"`
	Drifted        int     `json:"drifted"`
	Blocked        int     `json:"blocked"`
	Unknown        int     `json:"unknown"`
	Duration       float64 `json:"duration_seconds"`
}

type jsonOutput struct {
	Recipes []string     `json:"recipes"`
	Summary jsonSummary  `json:"summary"`
	Results []jsonResult `json:"results"`
}

func printJSONOutput(w io.Writer, summary *model.VerificationSummary, recipes []string) error {
	out := jsonOutput{
		Recipes: recipes,
		Summary: jsonSummary{
			TotalResources: summary.TotalResources,
			Satisfied:      summary.Satisfied,
			Missing:        summary.Missing,
			Drifted:        summary.Drifted,
			Blocked:        summary.Blocked,
			Unknown:        summary.Unknown,
			Duration:       summary.Duration.Seconds(),
		},
		Results: make([]jsonResult, len(summary.Results)),
	}

	for i, result := range summary.Results {
		jr := jsonResult{
			ResourceID: result.ResourceID,
			Recipe:     result.Recipe,
			Type:       result.Type,
			Status:     string(result.Status),
			Message:    result.Message,
			Details:    result.Details,
			Duration:   result.Duration.Seconds(),
			Timestamp:  result.Timestamp.Format(time.RFC3339),
		}
		if result.Error != nil {
			jr.Error = result.Error.Error()
		}
		out.Results[i] = jr
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func getStatusSymbol(status model.VerificationStatus) string {
	switch status {
	case model.StatusSatisfied:
		return "✔"
	case model.StatusMissing:
		return "✖"
	case model.StatusDrifted:
		return "⚠"
	case model.StatusBlocked:
		return "🚫"
	default:
		return "?"
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
