package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	hrerrors "github.com/byteness/hrflow/errors"
)

// FormatErrorWithSuggestion writes error to stderr with suggestion if available.
// Returns the original error for chaining.
func FormatErrorWithSuggestion(err error) error {
	return FormatErrorWithSuggestionTo(os.Stderr, err)
}

// FormatErrorWithSuggestionTo writes to a specific writer (for testing).
// Returns the original error for chaining.
func FormatErrorWithSuggestionTo(w io.Writer, err error) error {
	if err == nil {
		return nil
	}

	hrErr, ok := hrerrors.IsHRFlowError(err)
	if ok {
		fmt.Fprintf(w, "Error: %s\n", hrErr.Error())
		if suggestion := hrErr.Suggestion(); suggestion != "" {
			fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
		}
		if ctx := hrErr.Context(); len(ctx) > 0 {
			keys := make([]string, 0, len(ctx))
			for k := range ctx {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(w, "\nDetails:\n")
			for _, k := range keys {
				fmt.Fprintf(w, "  %s: %s\n", k, ctx[k])
			}
		}
		if hrerrors.IsRetryable(err) {
			fmt.Fprintf(w, "\nThis action can be retried.\n")
		}
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return err
}

// exitOnError prints err with its suggestion and exits non-zero.
func exitOnError(err error) {
	if err != nil {
		FormatErrorWithSuggestion(err)
		os.Exit(1)
	}
}
