package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/logicsquare/konect-query-gateway/cmd"
	"github.com/logicsquare/konect-query-gateway/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var structErr *errors.Error
		if stderrors.As(err, &structErr) {
			for _, suggestion := range structErr.Suggestions {
				fmt.Fprintf(os.Stderr, "  hint: %s\n", suggestion)
			}
		}

		os.Exit(1)
	}
}
