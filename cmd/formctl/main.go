package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	forms "github.com/goliatone/go-forms"
	"github.com/goliatone/go-forms/pkg/definition"
	"github.com/goliatone/go-forms/pkg/form"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type globalFlags struct {
	logLevel string
	secret   string
}

func main() {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "formctl",
		Short: "Render, serve and fill forms from definition files",
		Long: `formctl works with form definitions written in YAML or JSON.

Examples:
  formctl render forms.yaml contact
  formctl serve --defs ./forms --addr :8080
  formctl fill forms.yaml contact --format json
  formctl lint ./forms
  formctl openapi api.yaml createContact > contact.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.secret, "csrf-secret", os.Getenv("FORMS_CSRF_SECRET"), "CSRF signing secret, at least 32 bytes")

	rootCmd.AddCommand(
		renderCmd(flags),
		serveCmd(flags),
		fillCmd(flags),
		lintCmd(flags),
		openapiCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func (g *globalFlags) logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(g.logLevel))); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// manager loads the definitions at path, a file or a directory.
func (g *globalFlags) manager(path string, options ...forms.Option) (*form.Manager, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	source := forms.WithDefinitionFiles(path)
	if info.IsDir() {
		source = forms.WithDefinitionsFS(os.DirFS(path))
	}
	options = append([]forms.Option{source, forms.WithLogger(g.logger())}, options...)
	if g.secret != "" {
		options = append(options, forms.WithCSRFSecret([]byte(g.secret)))
	}
	return forms.New(options...)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

func loadDefinitions(path string) ([]definition.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return definition.LoadDir(path)
	}
	return definition.LoadFile(path)
}
