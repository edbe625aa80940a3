package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/transdata/internal/cli"
	"codeberg.org/snonux/transdata/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags, cli.Handlers{
		Split:     withProcessor(flags, (*processor.Processor).Split),
		Merge:     withProcessor(flags, (*processor.Processor).Merge),
		Translate: withProcessor(flags, (*processor.Processor).Translate),
		Pipeline:  withProcessor(flags, (*processor.Processor).Pipeline),
		Validate:  withProcessor(flags, (*processor.Processor).Validate),
		Models:    withProcessor(flags, (*processor.Processor).ListModels),
		Archive:   withProcessor(flags, (*processor.Processor).Archive),
	})

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Ctrl-C stops after the current row or file
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// withProcessor creates a processor for one command run and closes it
// afterwards, which writes the metrics file
func withProcessor(flags *cli.Flags, run func(*processor.Processor, context.Context, []string) error) cli.RunFunc {
	return func(ctx context.Context, args []string) error {
		proc, err := processor.NewProcessor(flags)
		if err != nil {
			return err
		}

		runErr := run(proc, ctx, args)
		if err := proc.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		return runErr
	}
}
