package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/logwriter"
	"github.com/menta2k/image-annotator/pkg/session"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var modeName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show input images and the logs written for them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			modes := session.Modes()
			if modeName != "" {
				mode, err := session.ModeByName(modeName)
				if err != nil {
					return err
				}
				modes = []session.Mode{mode}
			}

			images, err := utils.ListImageFiles(cfg.Paths.InputDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", ctx.configSource())
			fmt.Fprintf(out, "Input:  %s\n", cfg.Paths.InputDir)
			fmt.Fprintf(out, "Output: %s\n", cfg.Paths.OutputDir)
			if len(images) == 0 {
				fmt.Fprintln(out, "No images found")
				return nil
			}

			done := make([]int, len(modes))
			rows := make([][]string, 0, len(images))
			for i, img := range images {
				row := []string{strconv.Itoa(i), filepath.Base(img)}
				for j, m := range modes {
					cell := "-"
					if info, err := os.Stat(logwriter.FilenameFor(m.Prefix, img, cfg.Paths.OutputDir)); err == nil && !info.IsDir() {
						cell = utils.FormatFileSize(info.Size())
						done[j]++
					}
					row = append(row, cell)
				}
				rows = append(rows, row)
			}

			fmt.Fprintln(out, renderModeTable([]string{indexHeader, "Image"}, modes, text.AlignRight, rows))

			counts := make([]string, 0, len(modes))
			for j, m := range modes {
				counts = append(counts, fmt.Sprintf("%s %d/%d", m.Name, done[j], len(images)))
			}
			fmt.Fprintf(out, "Logged: %s\n", strings.Join(counts, ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeName, "mode", "m", "", "Only show logs of this mode")
	return cmd
}
