package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kifu/internal/adapters"
	"kifu/internal/bootstrap"
	repo "kifu/internal/repository"
	recorduc "kifu/internal/usecase/record"
)

type importOptions struct {
	*options
	encoding string
	format   string
}

func newImportCommand(root *options) *cobra.Command {
	opts := &importOptions{options: root}

	cmd := &cobra.Command{
		Use:   "import <dir>...",
		Short: "Store every KIF file under the given directories",
		Long: `Import walks each directory, parses every .kif and .kifu file and stores the
records in MongoDB (and Redis) using the same configuration as the server.
Broken files are listed in the report and do not stop the import.

Example:
  kifu import --config .env ./records`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "source encoding; default depends on the file extension")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "yaml", "report format (json, yaml)")

	return cmd
}

func runImport(cmd *cobra.Command, opts *importOptions, dirs []string) error {
	cfg, err := bootstrap.Setup(opts.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	encode, err := encoderFor(cmd, opts.format)
	if err != nil {
		return err
	}

	log := opts.logger()
	defer log.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mongoAdapter := adapters.NewAdapterMongo(cfg, log)
	if err = mongoAdapter.Init(ctx); err != nil {
		return err
	}
	defer mongoAdapter.Close(context.Background())

	redisAdapter := adapters.NewAdapterRedis(cfg, log)
	if err = redisAdapter.Init(ctx); err != nil {
		return err
	}
	defer redisAdapter.Close(context.Background())

	recordRepo := repo.NewRecordRepository(*cfg, log, redisAdapter.GetClient(), mongoAdapter.Database)
	if err = recordRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	uc := recorduc.NewRecordUseCase(recordRepo, log, *cfg)

	failed := 0
	for _, dir := range dirs {
		report, err := uc.ImportDir(ctx, dir, opts.encoding)
		if err != nil {
			return fmt.Errorf("import %s: %w", dir, err)
		}
		failed += len(report.Failed)
		if err = encode(report); err != nil {
			return err
		}
		for _, path := range report.Paths() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, report.Failed[path])
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d files failed to import", failed)
	}
	return nil
}
