package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/issuesense/config"
	"github.com/c360studio/issuesense/metrics"
	"github.com/c360studio/issuesense/tracker"
)

func analyzeCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <owner/repo#number>",
		Short: "Analyze a single work item and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), *configPath, *logLevel, args[0])
		},
	}
}

func runAnalyze(ctx context.Context, configPath, logLevel, target string) error {
	logger := setupLogging(logLevel)

	loader := config.NewLoader(logger)
	cfg, err := loader.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ref, err := parseTarget(target)
	if err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(cfg, metrics.New(), logger)
	if err != nil {
		return err
	}

	result, err := analyzer.Analyze(ctx, ref)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// parseTarget parses "owner/repo#number".
func parseTarget(s string) (tracker.ItemRef, error) {
	repoPart, numberPart, ok := strings.Cut(s, "#")
	if !ok {
		return tracker.ItemRef{}, fmt.Errorf("expected owner/repo#number, got %q", s)
	}
	owner, repo, err := tracker.ParseRepository(repoPart)
	if err != nil {
		return tracker.ItemRef{}, err
	}
	number, err := strconv.Atoi(numberPart)
	if err != nil || number <= 0 {
		return tracker.ItemRef{}, fmt.Errorf("invalid item number %q", numberPart)
	}
	return tracker.ItemRef{Owner: owner, Repo: repo, Number: number}, nil
}
