package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"golang-social-analytics-service/pkg/errors"
	"golang-social-analytics-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and provides user-friendly messages, returning
// the process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if appErr, ok := errors.AsAppError(err); ok {
		return h.handleAppError(appErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleAppError(err *errors.AppError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "Suggestion: %s\n", err.Suggestion)
	}

	if help := h.getCategoryHelp(err.Category); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory") {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if os.IsPermission(err) || strings.Contains(err.Error(), "permission denied") {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file and data directory permissions\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryParse:
		return `Parse error help:
• Verify the file is a CSV export with a header row
• Ensure the file uses UTF-8 encoding
• Re-export the statistics file if it was edited by hand`

	case errors.CategoryDetection:
		return `Detection error help:
• Only daily summary and per-post statistics exports are supported
• Use --category to force the type when detection is ambiguous
• Check 'socialstats mapping show' for the expected column headers`

	case errors.CategoryMapping:
		return `Mapping error help:
• Use 'socialstats mapping show --category <cat>' to inspect the table
• Remove a conflicting entry before reassigning a column
• Use 'socialstats mapping reset' to restore the defaults`

	case errors.CategoryStorage:
		return `Storage error help:
• Check available disk space
• Verify the data directory is writable (--data-dir)
• Retry the operation; the previous dataset is kept on a failed save`

	default:
		return ""
	}
}
