package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amansearch/configs"
	"github.com/Aman-CERP/amansearch/internal/config"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/output"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage AmanSearch configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/amansearch/config.yaml)
  3. Project config (.amansearch.yaml)
  4. Environment variables (EXA_API_KEY, BRAVE_API_KEY, SEARXNG_URL, AMANSEARCH_*)`,
		Example: `  # Create user config from template
  amansearch config init

  # Show effective configuration with secrets masked
  amansearch config show

  # Check the merged configuration for errors
  amansearch config validate`,
	}

	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigPathCmd(g))
	cmd.AddCommand(newConfigValidateCmd(g))
	cmd.AddCommand(newConfigRestoreCmd(g))

	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var force, project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from a template",
		Long: `Create the user configuration file, or with --project a
.amansearch.yaml in the project directory.

With --force an existing file is backed up, then new options are merged
in with their defaults. Your settings are preserved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, template := config.GetUserConfigPath(), configs.UserConfigTemplate
			if project {
				path, template = filepath.Join(g.dir, ".amansearch.yaml"), configs.ProjectConfigTemplate
			}
			return runConfigInit(cmd, path, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upgrade an existing file with new defaults")
	cmd.Flags().BoolVar(&project, "project", false, "Create .amansearch.yaml in the project directory")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path, template string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("", "Location: %s", path)
			out.Status("", "Use --force to upgrade with new defaults (preserves your settings)")
			return nil
		}
		return runConfigUpgrade(out, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission, "failed to create config directory", err).
			WithDetail("path", filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(template), 0o600); err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission, "failed to write config file", err).
			WithDetail("path", path)
	}

	out.Success("Created configuration")
	out.Statusf("", "Location: %s", path)
	out.Newline()
	out.Status("", "Next steps:")
	out.Status("", "  1. Add API keys or a SearXNG URL")
	out.Status("", "  2. Run 'amansearch config validate'")
	out.Status("", "  3. Run 'amansearch providers' to see which engines are ready")
	return nil
}

// runConfigUpgrade backs up path, merges new defaults into it and rewrites it.
func runConfigUpgrade(out *output.Writer, path string) error {
	backupPath, err := config.BackupFile(path)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	added := cfg.MergeNewDefaults()

	if err := cfg.WriteYAML(path); err != nil {
		return err
	}

	out.Success("Configuration upgraded")
	out.Statusf("", "Location: %s", path)
	out.Statusf("", "Backup: %s", backupPath)
	out.Newline()
	if len(added) == 0 {
		out.Success("Your configuration is already up to date")
		return nil
	}
	out.Status("", "New options added with defaults:")
	for _, field := range added {
		out.Statusf("", "  - %s", field)
	}
	return nil
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources. API keys are masked.

--source selects a single layer: merged, user, project or defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, g.dir, source, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func runConfigShow(cmd *cobra.Command, dir, source string, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg  *config.Config
		desc string
		err  error
	)
	switch source {
	case "merged":
		cfg, err = config.Load(dir)
		desc = "merged (defaults + user + project + env)"
	case "user":
		path := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("", "Expected at: %s", path)
			out.Status("", "Run 'amansearch config init' to create one")
			return nil
		}
		cfg, err = config.LoadFile(path)
		desc = fmt.Sprintf("user (%s)", path)
	case "project":
		path := config.ProjectConfigPath(dir)
		if path == "" {
			out.Warning("No project configuration file found")
			out.Statusf("", "Expected at: %s", filepath.Join(dir, ".amansearch.yaml"))
			out.Status("", "Run 'amansearch config init --project' to create one")
			return nil
		}
		cfg, err = config.LoadFile(path)
		desc = fmt.Sprintf("project (%s)", path)
	case "defaults":
		cfg, desc = config.NewConfig(), "defaults (hardcoded)"
	default:
		return amerrors.New(amerrors.ErrCodeInvalidInput, fmt.Sprintf("invalid source: %s", source), nil).
			WithSuggestion("Use merged, user, project or defaults")
	}
	if err != nil {
		return err
	}

	cfg = cfg.Redacted()
	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return amerrors.InternalError("failed to marshal config", err)
	}
	out.Statusf("", "# Configuration source: %s", desc)
	out.Raw(string(data))
	return nil
}

func newConfigPathCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print config file paths",
		Long:  `Print the user config path and, when present, the project config path.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			if p := config.ProjectConfigPath(g.dir); p != "" {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newConfigValidateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := config.Load(g.dir)
			if err != nil {
				return err
			}

			out.Success("Configuration is valid")
			for _, src := range config.Sources(g.dir) {
				out.Statusf("", "Source: %s", src)
			}
			enabled := cfg.EnabledProviders()
			if len(enabled) == 0 {
				out.Warning("No providers are enabled; searches will fail")
				return nil
			}
			out.Statusf("", "Enabled providers: %v", enabled)
			return nil
		},
	}
}

func newConfigRestoreCmd(g *globalOptions) *cobra.Command {
	var list, project bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore a configuration backup",
		Long: `Restore the newest backup of the user config, or the named backup.
The current file is backed up first so a restore can itself be undone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			path := config.GetUserConfigPath()
			if project {
				path = filepath.Join(g.dir, ".amansearch.yaml")
			}

			backups, err := config.ListBackups(path)
			if err != nil {
				return err
			}
			if list {
				if len(backups) == 0 {
					out.Status("", "No backups found")
				}
				for _, b := range backups {
					out.Raw(b)
				}
				return nil
			}

			var backup string
			switch {
			case len(args) == 1:
				backup = args[0]
			case len(backups) > 0:
				backup = backups[0]
			default:
				return amerrors.New(amerrors.ErrCodeFileNotFound, "no backups to restore", nil).
					WithDetail("path", path)
			}

			if err := config.RestoreFile(path, backup); err != nil {
				return err
			}
			out.Successf("Restored %s", path)
			out.Statusf("", "From: %s", backup)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List available backups, newest first")
	cmd.Flags().BoolVar(&project, "project", false, "Restore the project config instead of the user config")

	return cmd
}
