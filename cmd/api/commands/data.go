package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mallmap/core/internal/adapters/document"
	"github.com/mallmap/core/internal/adapters/repository"
	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/infrastructure/config"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/infrastructure/storage"
	"github.com/mallmap/core/internal/ports"
)

// NewDataCommand creates the data command for inspecting and seeding the
// mall document.
func NewDataCommand(opts *Options) *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Mall document commands",
		Long:  "Validate, export and seed the mall document held by the configured storage backend",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the mall document for structural problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return runValidate(cmd, opts, file)
		},
	}
	validateCmd.Flags().String("file", "", "Validate this JSON file instead of the configured backend")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current mall dataset as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return runExport(cmd, opts, out)
		},
	}
	exportCmd.Flags().String("out", "", "Output file (default stdout)")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a dataset to the configured backend",
		Long:  "Write the built-in default dataset, or the malls from --file, to the configured backend. An existing document is kept unless --force is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			force, _ := cmd.Flags().GetBool("force")
			return runSeed(cmd, opts, file, force)
		},
	}
	seedCmd.Flags().String("file", "", "JSON file to seed from (default built-in dataset)")
	seedCmd.Flags().Bool("force", false, "Overwrite an existing document")

	dataCmd.AddCommand(validateCmd, exportCmd, seedCmd)
	return dataCmd
}

// openBackend loads configuration and opens the document backend it names.
func openBackend(ctx context.Context, opts *Options) (*logger.Logger, *storage.Backend, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// stdout is reserved for command output
	cfg.Logger.Output = "stderr"
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		appLogger.Close()
		return nil, nil, fmt.Errorf("failed to open %s backend: %w", cfg.Storage.Driver, err)
	}
	return appLogger, backend, nil
}

func decodeMalls(data []byte) ([]entities.Mall, error) {
	var malls []entities.Mall
	if err := json.Unmarshal(data, &malls); err != nil {
		return nil, fmt.Errorf("decode mall document: %w", err)
	}
	return malls, nil
}

func runValidate(cmd *cobra.Command, opts *Options, file string) error {
	var (
		data   []byte
		source string
		err    error
	)
	if file != "" {
		source = file
		data, err = os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
	} else {
		appLogger, backend, err := openBackend(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer appLogger.Close()
		defer backend.Close()

		source = backend.Name()
		data, err = backend.Read(cmd.Context())
		if errors.Is(err, ports.ErrDocumentNotFound) {
			return fmt.Errorf("no mall document in %s backend, run data seed first", source)
		}
		if err != nil {
			return err
		}
	}

	malls, err := decodeMalls(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	warnings, err := entities.ValidateDataset(malls)
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d malls, %d stores, ok\n", source, len(malls), storeCount(malls))
	return nil
}

func runExport(cmd *cobra.Command, opts *Options, outPath string) error {
	appLogger, backend, err := openBackend(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer appLogger.Close()
	defer backend.Close()

	repo := repository.NewMallRepository(backend, appLogger)
	if err := repo.Load(cmd.Context()); err != nil {
		return err
	}

	data, err := json.MarshalIndent(repo.List(cmd.Context()), "", "  ")
	if err != nil {
		return fmt.Errorf("encode malls: %w", err)
	}
	data = append(data, '\n')

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func runSeed(cmd *cobra.Command, opts *Options, file string, force bool) error {
	malls := repository.DefaultMalls()
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if malls, err = decodeMalls(data); err != nil {
			return err
		}
	}
	if _, err := entities.ValidateDataset(malls); err != nil {
		return fmt.Errorf("refusing to seed invalid dataset: %w", err)
	}

	appLogger, backend, err := openBackend(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer appLogger.Close()
	defer backend.Close()

	if !force {
		_, err := backend.Read(cmd.Context())
		if err == nil {
			return fmt.Errorf("%s backend already holds a mall document, use --force to overwrite", backend.Name())
		}
		if !errors.Is(err, ports.ErrDocumentNotFound) {
			return err
		}
	}

	repo := repository.NewMallRepository(backend, appLogger, repository.WithMalls(malls))
	if err := repo.Persist(cmd.Context()); err != nil {
		return err
	}

	where := backend.Name()
	if f, ok := backend.DocumentStore.(*document.File); ok {
		where = f.Path()
	}
	appLogger.Infow("Mall document seeded", "backend", backend.Name(), "target", where, "malls", len(malls))
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d malls, %d stores into %s\n", len(malls), storeCount(malls), where)
	return nil
}

func storeCount(malls []entities.Mall) int {
	n := 0
	for _, m := range malls {
		n += len(m.Stores)
	}
	return n
}
