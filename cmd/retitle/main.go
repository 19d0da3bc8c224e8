package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"retitle/internal/batch"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, batch.ErrNoValidFiles) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
