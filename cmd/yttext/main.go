// Command yttext runs the transcription service or transcribes a single URL.
//
//	yttext serve [-config config.yml] [-env production]
//	yttext transcribe [-model base] [-language auto] [-config config.yml] <url>
//	yttext version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kbukum/yttext/app"
	"github.com/kbukum/yttext/bootstrap"
	"github.com/kbukum/yttext/config"
	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/version"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "yttext:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}
	switch args[0] {
	case "serve":
		return serve(ctx, args[1:], stderr)
	case "transcribe":
		return transcribe(ctx, args[1:], stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.Get().String())
		return nil
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return errUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: yttext <command> [flags]

Commands:
  serve        run the HTTP service
  transcribe   transcribe one URL and print the text
  version      print build information
`)
}

type configFlags struct {
	file string
	env  string
}

func (c *configFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.file, "config", "", "config file (default: config.yml lookup)")
	fs.StringVar(&c.env, "env", "", "environment overlay (development, staging, production)")
}

func (c *configFlags) load() (*app.Config, error) {
	cfg := app.Default()
	var opts []config.LoaderOption
	if c.file != "" {
		opts = append(opts, config.WithConfigFile(c.file))
	}
	if c.env != "" {
		opts = append(opts, config.WithEnvironment(c.env))
	}
	if err := config.LoadConfig(app.ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if c.env != "" {
		cfg.Environment = c.env
	}
	return &cfg, nil
}

func serve(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf configFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cf.load()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func transcribe(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf configFlags
	cf.register(fs)
	model := fs.String("model", "", "whisper model size (default from jobs.default_model)")
	language := fs.String("language", "auto", "ISO language code or auto")
	verbose := fs.Bool("v", false, "log at info level")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: yttext transcribe [flags] <url>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	url := fs.Arg(0)

	cfg, err := cf.load()
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout carries only the transcript.
	cfg.Logging.Output = "stderr"
	if !*verbose {
		cfg.Logging.Level = "warn"
	}

	a, err := app.New(ctx, cfg, app.WithoutServer(), app.WithBootstrapOptions(bootstrap.WithoutSummary()))
	if err != nil {
		return err
	}
	return a.RunTask(ctx, func(ctx context.Context) error {
		job, err := a.Jobs().CreateJob(ctx, jobs.CreateRequest{URL: url, Model: *model, Language: *language})
		if err != nil {
			return err
		}
		final, err := follow(ctx, a.Jobs(), job.ID, stderr)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, final.Text)
		return nil
	})
}

// follow prints a progress line whenever the phase or percentage moves and
// returns the terminal job.
func follow(ctx context.Context, orch *jobs.Orchestrator, id string, w io.Writer) (*jobs.Job, error) {
	var (
		last  jobs.Job
		shown bool
	)
	for update := range orch.StreamJobUpdates(ctx, id) {
		if !shown || update.Phase != last.Phase || update.Progress != last.Progress {
			fmt.Fprintf(w, "[%3d%%] %s %s\n", update.Progress, update.Status, update.Phase)
			shown = true
		}
		last = update
	}

	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case last.Status == jobs.StatusCompleted:
		return &last, nil
	case last.Status == jobs.StatusFailed:
		return nil, fmt.Errorf("job %s failed (%s): %s", id, last.ErrorCode, last.Error)
	default:
		return nil, fmt.Errorf("job %s disappeared while %s", id, last.Status)
	}
}
