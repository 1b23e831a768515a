// Command fibqpe estimates the period of the Fibonacci sequence modulo N by
// simulated quantum phase estimation, and checks it against the recurrence.
package main

import (
	"context"
	"os"

	"github.com/agbru/fibqpe/internal/app"
	apperrors "github.com/agbru/fibqpe/internal/errors"
)

func main() {
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		os.Exit(apperrors.ExitSuccess)
	}

	application, err := app.New(os.Args, os.Stderr)
	if err != nil {
		if app.IsHelpError(err) {
			os.Exit(apperrors.ExitSuccess)
		}
		os.Exit(apperrors.ExitErrorConfig)
	}

	os.Exit(application.Run(context.Background(), os.Stdout))
}
