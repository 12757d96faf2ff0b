package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"canvas/internal/config"
	"canvas/internal/secret"
)

func newConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize configuration",
	}
	cmd.AddCommand(newConfigPathCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newSetPasswordCmd(a))
	return cmd
}

func configPath(a *App) (string, error) {
	if a.ConfigPath != "" {
		return a.ConfigPath, nil
	}
	return config.Path()
}

func newConfigPathCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := configPath(a)
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newConfigShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file plus environment)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(a.cfg)
		},
	}
}

func newConfigInitCmd(a *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := configPath(a)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := os.Stat(p); err == nil && !force {
				return writeErr(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", p))
			}
			if err := config.Save(p, config.Defaults()); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newSetPasswordCmd(a *App) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Store the storage password in the OS keychain (read from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			driver := a.cfg.Storage.Driver
			if driver == "" || driver == "sqlite" || driver == "none" {
				return writeErr(cmd, fmt.Errorf("storage driver %q takes no password", driver))
			}
			key := secret.StorageKey(driver)
			if clear {
				return a.Secrets.Delete(key)
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return writeErr(cmd, errors.New("no password on stdin"))
			}
			pw := strings.TrimRight(line, "\r\n")
			if pw == "" {
				return writeErr(cmd, errors.New("empty password"))
			}
			if err := a.Secrets.Set(key, []byte(pw)); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored password for %s\n", driver)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the stored password instead")
	return cmd
}
