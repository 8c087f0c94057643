package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/tui/theme"
)

// ErrorHandler renders errors for the terminal.
type ErrorHandler struct {
	Verbose bool
	JSON    bool
	Out     io.Writer
}

// NewErrorHandler creates an error handler writing to stderr.
func NewErrorHandler(opts CommandOptions) *ErrorHandler {
	return &ErrorHandler{
		Verbose: opts.Verbose,
		JSON:    opts.JSONOutput,
		Out:     os.Stderr,
	}
}

// Handle prints err with a hint for the known failure classes and returns it.
// Cancellation is not reported.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil || errors.IsCancelled(err) {
		return err
	}

	syncErr := errors.Classify(err)
	if h.JSON {
		fmt.Fprintln(h.Out, syncErr.ToJSON())
		return err
	}

	t := theme.DefaultTheme
	fmt.Fprintf(h.Out, "%s %s\n", t.Error.Render(theme.IconError+" Error:"), err.Error())

	if hint := hintFor(syncErr); hint != "" {
		fmt.Fprintln(h.Out, t.Muted.Render(hint))
	}

	if h.Verbose && len(syncErr.Details) > 0 {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", syncErr.ToJSON())
	}
	return err
}

func hintFor(e *errors.SyncError) string {
	switch e.Code {
	case errors.ErrCodeConfigNotFound:
		return "Pass --config or create livesync.yml in the working directory."
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		return "Run 'livesync config validate' to check the file, 'livesync config schema' for the format."
	case errors.ErrCodeTransport:
		if socket, ok := e.Details["socket"]; ok {
			return fmt.Sprintf("Nothing is listening on %v. Start 'livesync run --inspect' first.", socket)
		}
		return "The service could not be reached. Check service.url in the config."
	case errors.ErrCodeHTTPStatus:
		return "The service rejected the request."
	}
	if e.Retryable {
		return "This failure is transient; try again."
	}
	return ""
}
