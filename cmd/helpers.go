package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"docintel/bootstrap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// defaultTimeout bounds one-shot CLI operations
const defaultTimeout = 5 * time.Minute

// initApp wires the application for a one-shot command. The returned cleanup
// must run before exit.
func initApp(ctx context.Context) (*bootstrap.App, func(), error) {
	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize application: %w", err)
	}
	return app, app.Shutdown, nil
}

// outputAsJSON renders any value as indented JSON on stdout
func outputAsJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSuccess(format string, args ...interface{}) {
	if quiet {
		return
	}
	successColor.Printf(format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	if quiet {
		return
	}
	infoColor.Printf(format+"\n", args...)
}
