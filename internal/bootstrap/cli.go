package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"yt-transcriber/internal/domain"
	"yt-transcriber/internal/pipeline"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

var errChecksFailed = errors.New("one or more checks failed")

// usageError marks invalid invocations so they map to ExitUsage.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

// transcribeFlags holds the root command switches.
type transcribeFlags struct {
	timestamps   bool
	noTimestamps bool
	localOnly    bool
	noLocal      bool
	model        string
	languages    []string
	asrLanguage  string
	output       string
}

// CLI is the command-line shell around App.
type CLI struct {
	stdout io.Writer
	stderr io.Writer
	// newApp builds the application for a settings file path.
	newApp func(configPath string) (*App, error)
	// interactive reports whether w can host the progress display.
	interactive func(w io.Writer) bool

	app        *App
	configPath string
	quiet      bool
	verbose    bool
	logLevel   slog.Level
	flags      transcribeFlags
}

// NewCLI creates the shell writing transcripts to stdout and everything else to stderr.
func NewCLI(stdout, stderr io.Writer) *CLI {
	return &CLI{
		stdout:      stdout,
		stderr:      stderr,
		newApp:      New,
		interactive: isTerminal,
	}
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return NewCLI(stdout, stderr).Run(ctx, args)
}

// Run parses args, dispatches the selected command and maps the outcome to
// an exit code. Errors are reported on stderr.
func (c *CLI) Run(ctx context.Context, args []string) int {
	root := c.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	c.reportError(err)
	var usage usageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailure
}

func (c *CLI) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "yt-transcriber [URL]",
		Short: "Print the transcript of a YouTube video",
		Long: "Fetches the hosted YouTube transcript for a video and falls back to local\n" +
			"speech recognition with whisper.cpp when none is available.",
		Example: `  # Hosted captions with timestamps
  yt-transcriber "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

  # Plain text, local transcription only, medium model
  yt-transcriber https://youtu.be/dQw4w9WgXcQ --no-timestamps -l --model medium

  # Hosted captions only, German or English
  yt-transcriber https://youtu.be/dQw4w9WgXcQ --no-local --lang de --lang en`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		RunE:              c.runTranscribe,
	}
	root.SetOut(c.stderr)
	root.SetErr(c.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	persistent := root.PersistentFlags()
	persistent.BoolVarP(&c.quiet, "quiet", "q", false, "Suppress the progress display and informational logs")
	persistent.BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	persistent.StringVar(&c.configPath, "config", "", "Settings file (default ~/.yt-transcriber/config.yaml)")

	flags := root.Flags()
	flags.BoolVarP(&c.flags.timestamps, "timestamps", "t", true, "Prefix each segment with [HH:MM:SS]")
	flags.BoolVar(&c.flags.noTimestamps, "no-timestamps", false, "Print plain text without timestamps")
	flags.BoolVarP(&c.flags.localOnly, "local-only", "l", false, "Skip hosted captions and transcribe locally")
	flags.BoolVar(&c.flags.noLocal, "no-local", false, "Never fall back to local transcription")
	flags.StringVar(&c.flags.model, "model", "", "Whisper model: tiny, base, small, medium or large (default from settings)")
	flags.StringArrayVar(&c.flags.languages, "lang", nil, "Preferred caption language; repeat to add more")
	flags.StringVar(&c.flags.asrLanguage, "asr-language", "", "Spoken language hint for local transcription (default auto)")
	flags.StringVarP(&c.flags.output, "output", "o", "", "Write the transcript to a file instead of stdout")

	root.AddCommand(c.modelsCommand(), c.doctorCommand(), c.configCommand())
	return root
}

// setup configures logging and builds the application before any command runs.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if c.quiet && c.verbose {
		return usageError{errors.New("--quiet and --verbose cannot be combined")}
	}

	level := slog.LevelInfo
	switch {
	case c.verbose:
		level = slog.LevelDebug
	case c.quiet:
		level = slog.LevelWarn
	}
	c.logLevel = level
	slog.SetDefault(slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level})))

	app, err := c.newApp(c.configPath)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func (c *CLI) runTranscribe(cmd *cobra.Command, args []string) error {
	if c.flags.localOnly && c.flags.noLocal {
		return usageError{errors.New("--local-only and --no-local cannot be combined")}
	}
	opts, err := c.app.requestOptions(c.flags)
	if err != nil {
		return usageError{err}
	}

	ctx := cmd.Context()
	run := func() (pipeline.Outcome, error) {
		return c.app.Pipeline.Run(ctx, args[0], opts)
	}

	var outcome pipeline.Outcome
	if !c.quiet && c.app.Events != nil && c.interactive(c.stderr) {
		outcome, err = withProgress(c.stderr, c.app.Events, c.logLevel, run)
	} else {
		outcome, err = run()
	}
	if err != nil {
		return err
	}

	if !c.quiet {
		fmt.Fprintln(c.stderr, titleStyle.Render(transcriptHeader(outcome.Result)))
	}
	if err := c.writeTranscript(outcome.Text); err != nil {
		return err
	}
	if !c.quiet {
		fmt.Fprintln(c.stderr, infoStyle.Render(fmt.Sprintf("Total segments: %d", len(outcome.Result.Segments))))
	}
	return nil
}

// transcriptHeader names the source and, when known, the transcript language.
func transcriptHeader(result domain.TranscriptResult) string {
	if result.Language == "" {
		return "Transcript (Source: " + result.Source.Label() + ")"
	}
	return "Transcript (Source: " + result.Source.Label() + ", language: " + result.Language + ")"
}

func (c *CLI) writeTranscript(text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if c.flags.output == "" {
		_, err := io.WriteString(c.stdout, text)
		return err
	}
	if err := os.WriteFile(c.flags.output, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	slog.Info("transcript written", slog.String("path", c.flags.output))
	return nil
}

func (c *CLI) modelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List whisper models and whether they are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([][]string, 0, len(domain.ModelSizes))
			for _, model := range c.app.Models.Models() {
				status := "not cached"
				if model.Downloaded {
					status = "cached"
				}
				if model.Size == c.app.Settings.DefaultModel {
					status += " (default)"
				}
				rows = append(rows, []string{string(model.Size), model.FileName, model.SizeLabel, status, model.Description})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("SIZE", "FILE", "DOWNLOAD", "STATUS", "DESCRIPTION").
				Rows(rows...)
			fmt.Fprintln(c.stdout, t.Render())
			fmt.Fprintln(c.stdout, "Model directory: "+c.app.Models.Dir())
			return nil
		},
	}
}

func (c *CLI) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check ffmpeg, whisper.cpp and the model directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := c.app.Checker.Run(c.app.Settings)
			for _, item := range report.Items {
				mark := passStyle.Render("ok  ")
				if item.Status == domain.DiagnosticStatusFail {
					mark = errorStyle.Render("FAIL")
				}
				fmt.Fprintf(c.stdout, "%s %s: %s\n", mark, item.Name, item.Message)
				if item.Hint != "" {
					fmt.Fprintln(c.stdout, "     "+hintStyle.Render(item.Hint))
				}
			}
			if report.HasFailures {
				return errChecksFailed
			}
			return nil
		},
	}
}

func (c *CLI) configCommand() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings, optionally saving them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := c.app.Settings
			if save {
				saved, err := c.app.SaveSettings(settings)
				if err != nil {
					return err
				}
				settings = saved
				if p, ok := c.app.Store.(interface{ Path() string }); ok {
					slog.Info("settings saved", slog.String("path", p.Path()))
				}
			}

			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("encode settings: %w", err)
			}
			_, err = c.stdout.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Write the effective settings to the settings file")
	return cmd
}

func (c *CLI) reportError(err error) {
	fmt.Fprintln(c.stderr, errorStyle.Render("Error:")+" "+err.Error())
	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintln(c.stderr, infoStyle.Render("Run 'yt-transcriber --help' for usage."))
		return
	}
	if hint := domain.Hint(domain.KindOf(err)); hint != "" {
		fmt.Fprintln(c.stderr, hintStyle.Render("Hint: "+hint))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
