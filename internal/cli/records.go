package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vecscan"
)

var errNoInput = errors.New("no input records")

// inputRecord is the JSON-lines shape read by insert and update --file.
type inputRecord struct {
	ID         string         `json:"id"`
	Text       string         `json:"text,omitempty"`
	Vector     []float32      `json:"vector,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// readRecords decodes consecutive JSON objects from r.
func readRecords(r io.Reader) ([]inputRecord, error) {
	dec := gojson.NewDecoder(r)
	var out []inputRecord
	for {
		var rec inputRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, errNoInput
	}
	return out, nil
}

func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

func newInsertCommand(flags *rootFlags) *cobra.Command {
	var (
		file   string
		binary bool
		manual bool
	)

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert records from JSON lines",
		Long: `Insert records read as JSON lines from a file or stdin. Each line is an
object with "id", and optionally "text", "vector" and "attributes".

Records without a vector are embedded from their text when an embedder is
configured. All records are written in one transaction.`,
		Example: `  # Insert dense records
  vecscan insert --file records.jsonl

  # Store binary-quantized vectors for Hamming search
  cat records.jsonl | vecscan insert --binary

  # Store vectors as given, without embedding
  vecscan insert --manual --file records.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, file)
			if err != nil {
				return err
			}
			defer in.Close()

			inputs, err := readRecords(in)
			if err != nil {
				return err
			}
			records := make([]vecscan.Record, len(inputs))
			for i, r := range inputs {
				records[i] = vecscan.Record(r)
			}

			a, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			switch {
			case binary:
				err = a.store.InsertBinaryBatch(ctx, records)
			case manual:
				err = a.store.InsertManualBatch(ctx, records)
			default:
				err = a.store.InsertBatch(ctx, records)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d records\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON lines input (default stdin)")
	cmd.Flags().BoolVar(&binary, "binary", false, "store binary-quantized vectors")
	cmd.Flags().BoolVar(&manual, "manual", false, "store vectors as given, never embed")
	cmd.MarkFlagsMutuallyExclusive("binary", "manual")

	return cmd
}

func newUpdateCommand(flags *rootFlags) *cobra.Command {
	var (
		id     string
		attrs  string
		vector []float32
		file   string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the vector or attributes of existing records",
		Long: `Update one record with --id, or many records read as JSON lines with --file.

Attributes are merged key by key. A new vector replaces the stored one and
is re-quantized when the record holds a binary vector. Updating a missing
record fails; a batch update is all-or-nothing.`,
		Example: `  vecscan update --id doc-1 --attrs '{"status":"published"}'
  vecscan update --id doc-1 --vector 0.1,0.2,0.3
  vecscan update --file patches.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (id == "") == (file == "") {
				return errors.New("exactly one of --id and --file is required")
			}

			var patches []vecscan.Patch
			if file != "" {
				in, err := openInput(cmd, file)
				if err != nil {
					return err
				}
				defer in.Close()
				inputs, err := readRecords(in)
				if err != nil {
					return err
				}
				for _, r := range inputs {
					patches = append(patches, vecscan.Patch{ID: r.ID, Vector: r.Vector, Attributes: r.Attributes})
				}
			} else {
				p := vecscan.Patch{ID: id, Vector: vector}
				if attrs != "" {
					if err := gojson.Unmarshal([]byte(attrs), &p.Attributes); err != nil {
						return fmt.Errorf("invalid --attrs: %w", err)
					}
				}
				patches = append(patches, p)
			}

			a, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(patches) == 1 {
				if err := a.store.Update(cmd.Context(), patches[0].ID, patches[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", patches[0].ID)
				return nil
			}

			outcomes, err := a.store.UpdateBatch(cmd.Context(), patches)
			if err != nil {
				for _, o := range outcomes {
					if o.Err != nil && !errors.Is(o.Err, vecscan.ErrAborted) {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", o.ID, o.Err)
					}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d records\n", len(outcomes))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "record identifier")
	cmd.Flags().StringVar(&attrs, "attrs", "", "attributes to merge, as a JSON object")
	cmd.Flags().Float32SliceVar(&vector, "vector", nil, "replacement vector, comma separated")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON lines patches (\"-\" for stdin)")

	return cmd
}

func newDeleteCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete records",
		Long:  "Delete records by identifier in one transaction. Missing identifiers are ignored.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				err = a.store.Delete(cmd.Context(), args[0])
			} else {
				err = a.store.DeleteBatch(cmd.Context(), args)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", len(args))
			return nil
		},
	}
}

func newKeysCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List all record identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			keys, err := a.store.GetAllKeys(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintln(out, k)
			}
			return nil
		},
	}
}

type hasResult struct {
	ID           string `json:"id"`
	HasEmbedding bool   `json:"hasEmbedding"`
}

func newHasCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "has <id>...",
		Short: "Report whether records carry an embedding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			has, err := a.store.HasEmbeddings(cmd.Context(), args)
			if err != nil {
				return err
			}
			results := make([]hasResult, len(args))
			for i, id := range args {
				results[i] = hasResult{ID: id, HasEmbedding: has[i]}
			}
			return writeJSONLines(cmd.OutOrStdout(), results)
		},
	}
}
