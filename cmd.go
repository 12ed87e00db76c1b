package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chatsnip/config"
	"chatsnip/internal"
	"chatsnip/logger"
	"chatsnip/metrics"
	"chatsnip/render"
	"chatsnip/server"
	"chatsnip/transcript"
	"chatsnip/types"
)

// convertFlags holds the flags of the convert command
type convertFlags struct {
	format       string
	model        string
	customModel  string
	showStrategy bool
	preview      bool
	style        string
	width        int
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "chatsnip",
		Short: "Turn pasted AI chat transcripts into shareable HTML or Markdown",
		Long: `chatsnip infers who said what in a copied AI chat conversation and renders
the result as chat-bubble HTML or a block-quoted Markdown transcript.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Optional KEY=VALUE file read before the process environment")

	rootCmd.AddCommand(newServeCmd(&envFile))
	rootCmd.AddCommand(newConvertCmd(&envFile))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// setup loads configuration and the logger shared by every command
func setup(cmd *cobra.Command, envFile string) (*config.Config, *logger.ObservabilityLogger, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	obs, err := logger.NewObservabilityLogger(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		Dir:    cfg.LogDir,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	obs.Debug(logger.ComponentConfig, logger.CategoryRequest, "", "Configuration loaded", map[string]interface{}{
		"port":                   cfg.Port,
		"log_level":              cfg.LogLevel,
		"default_assistant_name": cfg.DefaultAssistantName,
		"max_input_bytes":        cfg.MaxInputBytes,
		"env_file_loaded":        cfg.EnvFileLoaded,
		"heuristics_loaded":      cfg.HeuristicsLoaded,
		"extra_speaker_labels":   len(cfg.ExtraSpeakerLabels),
	})
	return cfg, obs, nil
}

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, obs, err := setup(cmd, *envFile)
			if err != nil {
				return err
			}
			defer obs.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(reg)

			svc, err := transcript.NewService(cfg, obs, m)
			if err != nil {
				return err
			}

			handler := server.NewHandler(cfg, svc, obs, m, Version)
			srv := server.NewHTTPServer(cfg, handler.Routes(reg))

			obs.Info(logger.ComponentHTTPServer, logger.CategoryRequest, "", "chatsnip starting", map[string]interface{}{
				"port":       cfg.Port,
				"version":    GetVersionInfo(),
				"git_commit": GetGitCommit(),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.ListenAndServe(gctx, srv, obs)
			})
			if cfg.HeuristicsFile != "" {
				g.Go(func() error {
					if err := config.WatchHeuristics(gctx, cfg.HeuristicsFile, obs, svc.Reload); err != nil {
						obs.Warn(logger.ComponentConfig, logger.CategoryWarning, "", "Heuristics hot reload disabled", map[string]interface{}{"error": err.Error()})
					}
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				obs.Error(logger.ComponentHTTPServer, logger.CategoryError, "", "Server failed", map[string]interface{}{"error": err.Error()})
				return err
			}
			return nil
		},
	}
}

func newConvertCmd(envFile *string) *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a pasted transcript from a file or stdin",
		Long: `Reads a copied conversation from the given file, or stdin when no file is
given, and writes the rendered transcript to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, *envFile, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "html", "Output format: html or markdown")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Assistant name: "+strings.Join(types.KnownAssistantNames, ", ")+" or Custom (default from DEFAULT_ASSISTANT_NAME)")
	cmd.Flags().StringVar(&flags.customModel, "custom-model", "", "Assistant name used with --model Custom")
	cmd.Flags().BoolVar(&flags.showStrategy, "show-strategy", false, "Print the detected strategy to stderr")
	cmd.Flags().BoolVar(&flags.preview, "preview", false, "Render the Markdown transcript for the terminal instead of printing markup")
	cmd.Flags().StringVar(&flags.style, "style", "auto", "Preview style: auto, dark, light, notty, ...")
	cmd.Flags().IntVar(&flags.width, "width", 80, "Preview word-wrap width")
	return cmd
}

func runConvert(cmd *cobra.Command, args []string, envFile string, flags *convertFlags) error {
	if flags.preview {
		if cmd.Flags().Changed("format") {
			if format, err := render.ParseFormat(flags.format); err == nil && format != render.FormatMarkdown {
				return fmt.Errorf("--preview renders Markdown, drop --format %s", flags.format)
			}
		}
		flags.format = string(render.FormatMarkdown)
	}

	cfg, obs, err := setup(cmd, envFile)
	if err != nil {
		return err
	}
	defer obs.Close()

	input := cmd.InOrStdin()
	source := "stdin"
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		input = f
		source = args[0]
	}

	raw, err := io.ReadAll(io.LimitReader(input, cfg.MaxInputBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}
	if int64(len(raw)) > cfg.MaxInputBytes {
		return fmt.Errorf("input from %s exceeds %d bytes", source, cfg.MaxInputBytes)
	}

	svc, err := transcript.NewService(cfg, obs, nil)
	if err != nil {
		return err
	}

	ctx := internal.WithRequestID(cmd.Context(), internal.NewRequestID())
	result, err := svc.Export(ctx, transcript.ExportRequest{
		Text:        string(raw),
		Model:       flags.model,
		CustomModel: flags.customModel,
		Format:      flags.format,
	})
	if errors.Is(err, types.ErrNoUsableText) {
		return fmt.Errorf("nothing to convert, paste a conversation into %s: %w", source, err)
	}
	if err != nil {
		return err
	}

	if flags.showStrategy {
		fmt.Fprintf(cmd.ErrOrStderr(), "strategy: %s (%d messages)\n", result.Conversation.Strategy, result.Conversation.Len())
	}

	out := result.Output
	if flags.preview {
		if out, err = previewMarkdown(out, flags.style, flags.width); err != nil {
			return err
		}
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(cmd.OutOrStdout(), out)
	return err
}

// previewMarkdown renders Markdown for a terminal
func previewMarkdown(markdown, style string, width int) (string, error) {
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStylePath(style)
	}

	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create preview renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return out, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), GetBuildInfo())
		},
	}
}
