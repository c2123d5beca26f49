package main

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/pkg/session"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Show key bindings and the key codes that trigger them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if platform == "" {
				platform = runtime.GOOS
			}

			rows := [][]string{}
			for _, a := range cfg.Keys.Bindings.Actions() {
				row := []string{a.Kind.String(), a.Key, codesFor(cfg, platform, a.Key)}
				for _, m := range session.Modes() {
					row = append(row, yesNo(m.Accepts(a.Kind)))
				}
				rows = append(rows, row)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Platform: %s\n", platform)
			fmt.Fprintln(out, renderModeTable([]string{"Action", "Key", "Codes"}, session.Modes(), text.AlignCenter, rows))
			if _, ok := cfg.Keys.Codes[platform]; !ok {
				fmt.Fprintf(out, "No key code table for %s; known platforms: %s\n",
					platform, strings.Join(cfg.Platforms(), ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Platform whose key code table to show (default: current)")
	return cmd
}

func codesFor(cfg *config.Config, platform, key string) string {
	var codes []int
	for code, name := range cfg.Keys.Codes[platform] {
		if name != key {
			continue
		}
		if n, err := strconv.Atoi(code); err == nil {
			codes = append(codes, n)
		}
	}
	if len(codes) == 0 {
		return "-"
	}
	sort.Ints(codes)
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, " ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
