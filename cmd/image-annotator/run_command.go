package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	imageannotator "github.com/menta2k/image-annotator"
	"github.com/menta2k/image-annotator/internal/logging"
	"github.com/menta2k/image-annotator/internal/preview"
	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/intent"
	"github.com/menta2k/image-annotator/pkg/session"
)

const lockFileName = ".annotator.lock"

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		modeName   string
		scriptPath string
		inputDir   string
		outputDir  string
		previewDir string
		startAt    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay an intent script against the input images",
		Long: `Run opens the input directory and replays intents read from a script,
one per line:

  move X Y     pointer position on the displayed image
  zoom         toggle the zoomed view around the pointer
  mark X Y     click on the zoomed view
  skip         next mark records a skip
  lane         switch to the second lane
  next, prev   move between images
  key NAME     press a bound key
  code N       press a raw platform key code

Use --script - to read from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if inputDir != "" {
				cfg.Paths.InputDir = inputDir
			}
			if outputDir != "" {
				cfg.Paths.OutputDir = outputDir
			}
			if previewDir != "" {
				cfg.Preview.Dir = previewDir
			}
			if cmd.Flags().Changed("start-at") {
				cfg.Paths.StartAt = startAt
			}

			mode, err := session.ModeByName(modeName)
			if err != nil {
				return err
			}

			intents, err := readScript(cmd, scriptPath)
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if err := utils.EnsureDir(cfg.Paths.OutputDir); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			lock := flock.New(filepath.Join(cfg.Paths.OutputDir, lockFileName))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("output directory %s is in use by another session", cfg.Paths.OutputDir)
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release output lock", "error", err)
				}
			}()

			renderers := preview.Multi{preview.NewLogRenderer(logger)}
			if cfg.Preview.Dir != "" {
				snapshots, err := preview.NewSnapshotRenderer(cfg.Preview, nil)
				if err != nil {
					return err
				}
				renderers = append(renderers, snapshots)
			}

			a, err := imageannotator.Open(cfg, mode,
				imageannotator.WithRenderer(renderers),
				imageannotator.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			summary, err := a.Run(cmd.Context(), intents)
			printSummary(cmd.OutOrStdout(), a.ID, mode, summary)
			return err
		},
	}

	cmd.Flags().StringVarP(&modeName, "mode", "m", session.Distance.Name, "Annotation mode: distance, vehicle or viaduct")
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Intent script file, or - for standard input")
	cmd.Flags().StringVar(&inputDir, "input", "", "Input image directory (overrides config)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Log output directory (overrides config)")
	cmd.Flags().StringVar(&previewDir, "preview", "", "Write every rendered frame to this directory")
	cmd.Flags().IntVar(&startAt, "start-at", 0, "Index of the first image to open")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func readScript(cmd *cobra.Command, path string) ([]intent.Intent, error) {
	var r io.Reader
	if strings.TrimSpace(path) == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	intents, err := intent.ParseScript(r)
	if err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	return intents, nil
}

func printSummary(out io.Writer, id string, mode session.Mode, s imageannotator.Summary) {
	if s.Total == 0 {
		fmt.Fprintf(out, "Session %s (%s): no images to annotate\n", id, mode.Name)
		return
	}
	state := "open"
	if s.Ended {
		state = "ended"
	}
	fmt.Fprintf(out, "Session %s (%s): %d intents, image %d of %d, %s\n",
		id, mode.Name, s.Dispatched, s.Position+1, s.Total, state)
	for _, path := range s.Logs {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
}
