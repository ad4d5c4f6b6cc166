package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kifu/internal/bootstrap"
	"kifu/internal/domain/kif"
	recorduc "kifu/internal/usecase/record"
)

type parseOptions struct {
	*options
	encoding string
	format   string
}

func newParseCommand(root *options) *cobra.Command {
	opts := &parseOptions{options: root}

	cmd := &cobra.Command{
		Use:   "parse <file.kif>...",
		Short: "Parse KIF files and print their variation trees",
		Long: `Parse builds the variation tree of every file independently and prints it
as JSON or YAML. A file whose variation refers to a move that was never
recorded is reported and skipped; the command then exits with an error.

Example:
  kifu parse game.kif
  kifu parse --encoding shift_jis --format yaml a.kif b.kif`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "source encoding (auto, utf-8, shift_jis); default from config")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format (json, yaml)")

	return cmd
}

func runParse(cmd *cobra.Command, opts *parseOptions, files []string) error {
	cfg, err := bootstrap.Setup(opts.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.encoding != "" {
		cfg.SourceEncoding = opts.encoding
	}

	encode, err := encoderFor(cmd, opts.format)
	if err != nil {
		return err
	}

	log := opts.logger()
	defer log.Sync()
	uc := recorduc.NewRecordUseCase(nil, log, *cfg)

	failed := 0
	for _, path := range files {
		rec, err := parseFile(uc, path, cfg.SourceEncoding)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			continue
		}
		if err = encode(rec); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func parseFile(uc *recorduc.RecordUseCase, path, encoding string) (kif.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return kif.Record{}, err
	}
	defer f.Close()

	lines, err := recorduc.DecodeLines(f, encoding)
	if err != nil {
		return kif.Record{}, err
	}
	return uc.Parse(recorduc.RecordName(path), lines)
}

func encoderFor(cmd *cobra.Command, format string) (func(any) error, error) {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return func(v any) error { return enc.Encode(v) }, nil
	case "yaml":
		return func(v any) error {
			doc, err := yaml.Marshal(v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "---\n%s", doc)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
