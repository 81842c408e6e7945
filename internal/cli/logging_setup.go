package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/config"
	"github.com/rshade/lcaprommis/internal/logging"
)

// setupLogging configures logging based on config file, environment, and CLI flags.
func setupLogging(cmd *cobra.Command) logging.LogPathResult {
	loggingCfg := config.GetLoggingConfig()

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = "console"
		loggingCfg.File = ""
	}

	// Ensure log directory exists after all overrides have been applied.
	if loggingCfg.File != "" {
		if err := config.EnsureLogDir(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	result := logging.NewLoggerWithPath(loggingCfg.ToLoggingConfig())
	logger = logging.ComponentLogger(result.Logger, "cli")

	if result.UsingFile && debug {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	logger = logger.With().Str("trace_id", traceID).Logger()
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)

	logger.Info().Str("command", cmd.CommandPath()).Msg("command started")

	return result
}

// cleanupLogging closes the log file handle.
func cleanupLogging(cmd *cobra.Command, logResult *logging.LogPathResult) error {
	if logResult != nil {
		logger.Debug().Str("command", cmd.CommandPath()).Msg("command finished")
		return logResult.Close()
	}
	return nil
}
