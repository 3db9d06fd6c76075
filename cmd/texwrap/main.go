// Command texwrap compiles LaTeX documents, either once from the command
// line or as an HTTP service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/seantiz/texwrap/internal/config"
)

var version = "dev"

// CLI is the root command line.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable debug logging."`
	Version kong.VersionFlag `name:"version" help:"Show version and exit."`

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP compile service."`
	Compile CompileCmd `cmd:"" help:"Compile LaTeX source files."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("texwrap"),
		kong.Description("Compile LaTeX documents with pdflatex or latex."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "texwrap: %v\n", err)
		os.Exit(1)
	}
	if cli.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	kctx.FatalIfErrorf(kctx.Run(&cfg))
}
