package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pinegen/api/internal/app"
	"github.com/pinegen/api/internal/config"
	"github.com/pinegen/api/internal/handlers"
	"github.com/pinegen/api/internal/orchestration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// pipeline is what the commands need from the wired application
type pipeline struct {
	runner    handlers.Runner
	validator handlers.ScriptValidator
	close     func()
}

type pipelineFactory func(ctx context.Context, maxAttempts int, logger *zap.Logger) (*pipeline, error)

func defaultPipeline(ctx context.Context, maxAttempts int, logger *zap.Logger) (*pipeline, error) {
	a, err := app.New(ctx, config.Load(), logger, orchestration.WithMaxAttempts(maxAttempts))
	if err != nil {
		return nil, err
	}
	return &pipeline{runner: a.Orchestrator, validator: a.Validator, close: a.Close}, nil
}

func newRootCmd(build pipelineFactory) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "pinegen",
		Short:        "Generate and validate TradingView Pine Script v5",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")

	newLogger := func(cmd *cobra.Command) *zap.Logger {
		if !verbose {
			return zap.NewNop()
		}
		zapConfig := zap.NewDevelopmentConfig()
		zapConfig.OutputPaths = []string{"stderr"}
		logger, err := zapConfig.Build()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to initialize logger: %v\n", err)
			return zap.NewNop()
		}
		return logger
	}

	var (
		maxAttempts int
		asJSON      bool
	)
	generateCmd := &cobra.Command{
		Use:   "generate [description]",
		Short: "Generate a Pine Script from a description, retrying on syntax errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.TrimSpace(strings.Join(args, " "))
			if description == "" {
				return errors.New("description is required")
			}

			logger := newLogger(cmd)
			defer logger.Sync()

			p, err := build(cmd.Context(), maxAttempts, logger)
			if err != nil {
				return err
			}
			defer p.close()

			outcome := p.runner.Run(cmd.Context(), description)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(outcome); err != nil {
					return err
				}
			} else {
				for _, line := range outcome.Log() {
					fmt.Fprintln(cmd.ErrOrStderr(), line)
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome.FinalScript)
			}

			if !outcome.Succeeded {
				return fmt.Errorf("no valid script after %d attempts", len(outcome.Attempts))
			}
			return nil
		},
	}
	generateCmd.Flags().IntVarP(&maxAttempts, "max-attempts", "n", orchestration.DefaultMaxAttempts, "maximum generate/validate attempts")
	generateCmd.Flags().BoolVar(&asJSON, "json", false, "print the full outcome as JSON")

	validateCmd := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Check a Pine Script with the syntax checker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			logger := newLogger(cmd)
			defer logger.Sync()

			p, err := build(cmd.Context(), orchestration.DefaultMaxAttempts, logger)
			if err != nil {
				return err
			}
			defer p.close()

			result := p.validator.Validate(cmd.Context(), script)
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			if !result.IsValid {
				return errors.New("script is not valid")
			}
			return nil
		},
	}

	rootCmd.AddCommand(generateCmd, validateCmd)
	return rootCmd
}

func readScript(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(b), nil
}
