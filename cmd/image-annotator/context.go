package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/utils"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the configuration once: the --config file, else the
// default path when it exists, else the defaults. Environment overrides apply last.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" && utils.FileExists(config.GetConfigPath()) {
			path = config.GetConfigPath()
		}

		cfg := config.Default()
		if path != "" {
			loaded, err := config.LoadFromFile(path)
			if err != nil {
				c.configErr = err
				return
			}
			cfg = loaded
		}
		if err := cfg.ApplyEnv(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// configSource names the file the configuration came from, or "defaults"
func (c *commandContext) configSource() string {
	if c.configPath == "" {
		return "defaults"
	}
	return c.configPath
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
