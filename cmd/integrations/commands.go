package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-integrations/core"
	"github.com/goliatone/go-integrations/engine/script"
	"github.com/goliatone/go-integrations/security"
	integrationsync "github.com/goliatone/go-integrations/sync"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the integrations schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := opts.loadConfig(ctx)
			if err != nil {
				return err
			}
			client, err := opts.openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			if err := client.Migrate(ctx); err != nil {
				return core.ExecutionError(err, "migrate: apply failed", map[string]any{"driver": cfg.Database.Driver})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSyncCommand(opts *globalOptions) *cobra.Command {
	var (
		actorID   string
		scheduled bool
	)
	cmd := &cobra.Command{
		Use:   "sync <integration-id>",
		Short: "Run one sync and record its evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runtime, closeAll, err := opts.runtime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeAll()

			trigger := core.SyncTriggerManual
			if scheduled {
				trigger = core.SyncTriggerScheduled
			}
			outcome, err := runtime.ExecuteSync(ctx, integrationsync.SyncRequest{
				IntegrationID: args[0],
				Trigger:       trigger,
				ActorID:       actorID,
			})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), outcome); err != nil {
				return err
			}
			if !outcome.Success {
				return fmt.Errorf("sync %s failed: %s", outcome.JobID, outcome.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "Actor recorded in the audit log")
	cmd.Flags().BoolVar(&scheduled, "scheduled", false, "Record the run as scheduled instead of manual")
	return cmd
}

func newTestEndpointCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-endpoint <integration-id> <index>",
		Short: "Call one configured endpoint without storing evidence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return core.ValidationError("test-endpoint: index must be an integer")
			}
			ctx := cmd.Context()
			runtime, closeAll, err := opts.runtime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeAll()

			result, err := runtime.TestEndpoint(ctx, args[0], index)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newTestSyncCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-sync <integration-id>",
		Short: "Dry-run a sync and preview the evidence it would create",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runtime, closeAll, err := opts.runtime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeAll()

			outcome, err := runtime.TestSync(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), outcome)
		},
	}
}

func newValidateCodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-code <file|->",
		Short: "Statically check a code-mode script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			result := script.Validate(source)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("script is invalid: %s", strings.Join(result.Errors, "; "))
			}
			return nil
		},
	}
}

func newVaultCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Encrypt, decrypt or mask credential values",
	}
	vault := func(cmd *cobra.Command) (*security.Vault, error) {
		cfg, err := opts.loadConfig(cmd.Context())
		if err != nil {
			return nil, err
		}
		return security.NewVaultFromConfig(cfg.Vault)
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "encrypt <value>",
			Short: "Encrypt a value with the master secret from " + masterSecretEnv,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := vault(cmd)
				if err != nil {
					return err
				}
				encrypted, err := v.Encrypt(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), encrypted)
				return nil
			},
		},
		&cobra.Command{
			Use:   "decrypt <value>",
			Short: "Decrypt a value; unreadable input is echoed back",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := vault(cmd)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v.Decrypt(args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "mask <value>",
			Short: "Print the display mask of a value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), security.Mask(args[0]))
				return nil
			},
		},
	)
	return cmd
}

func readSource(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}
