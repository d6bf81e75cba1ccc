package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecscan/backend"
	"github.com/hupe1980/vecscan/backup"
	"github.com/hupe1980/vecscan/blobstore"
	"github.com/hupe1980/vecscan/codec"
	"github.com/hupe1980/vecscan/internal/config"
)

func newBackupCommand(flags *rootFlags) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore the store",
		Long: `Copy consistent snapshots of the bolt or sqlite backend to the configured
backup target (a local directory, MinIO or S3) and restore them.`,
	}

	backupCmd.AddCommand(newBackupRunCommand(flags))
	backupCmd.AddCommand(newBackupListCommand(flags))
	backupCmd.AddCommand(newBackupRestoreCommand(flags))
	backupCmd.AddCommand(newBackupDeleteCommand(flags))

	return backupCmd
}

func openBackupTarget(cmd *cobra.Command, cfg *config.Config) (blobstore.Store, error) {
	return openBlobStore(cmd.Context(), cfg.Backup)
}

func newBackupRunCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Take a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, ok := a.backend.(backend.Snapshotter)
			if !ok {
				return fmt.Errorf("backend %q does not support snapshots", a.cfg.Backend.Type)
			}
			dst, err := openBackupTarget(cmd, a.cfg)
			if err != nil {
				return err
			}
			ct, err := codec.ParseCompression(a.cfg.Backup.Compression)
			if err != nil {
				return err
			}

			m, err := backup.Run(cmd.Context(), snap, dst,
				backup.WithPrefix(a.cfg.Backup.Prefix),
				backup.WithCompression(ct),
			)
			if err != nil {
				return err
			}
			a.logger.Info("backup complete", "id", m.ID, "bytes", m.Bytes)
			return writeJSONLines(cmd.OutOrStdout(), []backup.Manifest{m})
		},
	}
}

func newBackupListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			dst, err := openBackupTarget(cmd, cfg)
			if err != nil {
				return err
			}
			manifests, err := backup.List(cmd.Context(), dst, cfg.Backup.Prefix)
			if err != nil {
				return err
			}
			return writeJSONLines(cmd.OutOrStdout(), manifests)
		},
	}
}

func newBackupRestoreCommand(flags *rootFlags) *cobra.Command {
	var (
		out   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "restore [id]",
		Short: "Restore a backup into a database file",
		Long: `Restore a backup (the latest when no id is given) into a new database
file. The file can be opened with the backend type the backup was taken from.`,
		Example: `  vecscan backup restore --out restored.db
  vecscan backup restore 3f0c... --out restored.db --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			dst, err := openBackupTarget(cmd, cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var m backup.Manifest
			if len(args) == 1 {
				m, err = backup.Get(ctx, dst, cfg.Backup.Prefix, args[0])
			} else {
				m, err = backup.Latest(ctx, dst, cfg.Backup.Prefix)
			}
			if err != nil {
				return err
			}

			mode := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(out, mode, 0o600)
			if err != nil {
				return err
			}

			n, err := backup.Restore(ctx, dst, m, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return errors.Join(err, os.Remove(out))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s (%d bytes) to %s\n", m.ID, n, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "destination database file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newBackupDeleteCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			dst, err := openBackupTarget(cmd, cfg)
			if err != nil {
				return err
			}
			m, err := backup.Get(cmd.Context(), dst, cfg.Backup.Prefix, args[0])
			if err != nil {
				return err
			}
			if err := backup.Delete(cmd.Context(), dst, cfg.Backup.Prefix, m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted backup %s\n", m.ID)
			return nil
		},
	}
}
