package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/sdskit/internal"
	"github.com/starford/sdskit/internal/dataset"
	"github.com/starford/sdskit/internal/fsops"
	"github.com/starford/sdskit/internal/mcpserver"
	"github.com/starford/sdskit/internal/tabular"
	pkgconfig "github.com/starford/sdskit/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

// loadConfig builds the effective configuration: defaults, then the
// config file when present, then command-line overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	found, err := pkgconfig.LoadIfExists(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	if cmd.IsSet("dataset") {
		cfg.Dataset.Path = cmd.String("dataset")
	}
	if cmd.IsSet("resources") {
		cfg.Templates.ResourcesDir = cmd.String("resources")
	}
	if cmd.IsSet("version") {
		cfg.Dataset.Version = cmd.String("version")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newDataset(cfg *internal.Config) *dataset.Dataset {
	return dataset.New(
		dataset.WithResourcesDir(cfg.Templates.ResourcesDir),
		dataset.WithVersion(cfg.Version()),
	)
}

// openDataset loads the configured dataset directory.
func openDataset(cmd *cli.Command) (*internal.Config, *dataset.Dataset, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	ds := newDataset(cfg)
	if err := ds.LoadDataset(cfg.Dataset.Path); err != nil {
		return nil, nil, fmt.Errorf("load dataset: %w", err)
	}
	return cfg, ds, nil
}

// persistMetadata writes one mutated metadata table back to disk.
func persistMetadata(ds *dataset.Dataset, file string) error {
	ed, err := ds.GetMetadata(file)
	if err != nil {
		return err
	}
	return ed.Save()
}

func cmdCreate() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new dataset directory from the bundled template",
		ArgsUsage: "<destination>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dest := cmd.Args().First()
			if dest == "" {
				dest = cfg.Dataset.Path
			}
			ds := newDataset(cfg)
			if err := ds.LoadFromTemplate(cfg.Version()); err != nil {
				return err
			}
			if err := ds.Save(dest, false, false); err != nil {
				return err
			}
			fmt.Printf("created %s dataset at %s\n", ds.Version(), dest)
			return nil
		},
	}
}

func cmdSave() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Write the dataset back to disk",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Destination directory (default: in place)"},
			&cli.BoolFlag{Name: "remove-empty", Usage: "Drop dataset_description rows without a Value"},
			&cli.BoolFlag{Name: "keep-style", Usage: "Reapply template workbook styling"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			dir := cmd.String("dir")
			if err := ds.Save(dir, cmd.Bool("remove-empty"), cmd.Bool("keep-style")); err != nil {
				return err
			}
			if dir == "" {
				dir = ds.Path()
			}
			fmt.Printf("saved dataset to %s\n", dir)
			return nil
		},
	}
}

func cmdFiles() *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "List the metadata files of the template version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			names, err := newDataset(cfg).ListMetadataFiles("")
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func cmdElements() *cli.Command {
	return &cli.Command{
		Name:      "elements",
		Usage:     "List the elements of a metadata file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "by-row", Usage: "List first-column values instead of column headers"},
			&cli.BoolFlag{Name: "describe", Usage: "Include requirement, type and example from the schema"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			file := cmd.Args().First()
			if file == "" {
				return fmt.Errorf("metadata file name is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ds := newDataset(cfg)
			if cmd.Bool("describe") {
				infos, err := ds.DescribeElements(file, "")
				if err != nil {
					return err
				}
				for _, info := range infos {
					fmt.Printf("%s\t%s\t%s\t%s\n", info.Element, info.Required, info.Type, info.Description)
				}
				return nil
			}
			names, err := ds.ListElements(file, cmd.Bool("by-row"))
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func cmdSetField() *cli.Command {
	return &cli.Command{
		Name:  "set-field",
		Usage: "Set one cell of a metadata table",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "Logical table name"},
			&cli.IntFlag{Name: "row", Usage: "Spreadsheet row number (first value row is 2)"},
			&cli.StringFlag{Name: "name", Usage: "Row's first-column value, alternative to --row"},
			&cli.StringFlag{Name: "header", Required: true, Usage: "Column header"},
			&cli.StringFlag{Name: "value", Required: true, Usage: "Cell value"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			file := cmd.String("file")
			switch {
			case cmd.IsSet("row"):
				err = ds.SetField(file, int(cmd.Int("row")), cmd.String("header"), cmd.String("value"))
			case cmd.String("name") != "":
				err = ds.SetFieldByRowName(file, cmd.String("name"), cmd.String("header"), cmd.String("value"))
			default:
				return fmt.Errorf("either --row or --name is required")
			}
			if err != nil {
				return err
			}
			return persistMetadata(ds, file)
		},
	}
}

func cmdAddRow() *cli.Command {
	return &cli.Command{
		Name:  "add-row",
		Usage: "Append a row to a metadata table",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "Logical table name"},
			&cli.StringFlag{Name: "row", Required: true, Usage: "Row cells as a JSON object of column to value"},
			&cli.StringFlag{Name: "unique-column", Usage: "Column that identifies an existing row to merge into"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			row, err := tabular.ParseRow([]byte(cmd.String("row")))
			if err != nil {
				return err
			}
			file := cmd.String("file")
			unique := cmd.String("unique-column")
			if _, err := ds.Append(file, row, unique != "", unique); err != nil {
				return err
			}
			return persistMetadata(ds, file)
		},
	}
}

func cmdUpdateJSON() *cli.Command {
	return &cli.Command{
		Name:      "update-json",
		Usage:     "Update a metadata table from a JSON document",
		ArgsUsage: "<json-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "Logical table name"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			jsonPath := cmd.Args().First()
			if jsonPath == "" {
				return fmt.Errorf("a JSON file argument is required")
			}
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			file := cmd.String("file")
			if err := ds.UpdateFromJSON(file, jsonPath); err != nil {
				return err
			}
			return persistMetadata(ds, file)
		},
	}
}

func cmdAddData() *cli.Command {
	return &cli.Command{
		Name:  "add-data",
		Usage: "Place a file or flat directory into a subject/sample folder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Required: true, Usage: "File or directory to add"},
			&cli.StringFlag{Name: "subject", Required: true, Usage: "Subject folder name"},
			&cli.StringFlag{Name: "sample", Required: true, Usage: "Sample folder name"},
			&cli.StringFlag{Name: "data-type", Value: "primary", Usage: "Target tree: primary or derivative"},
			&cli.BoolFlag{Name: "move", Usage: "Move the source instead of copying it"},
			&cli.BoolFlag{Name: "overwrite", Usage: "Replace an existing destination"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			source := cmd.String("source")
			subject := cmd.String("subject")
			sample := cmd.String("sample")
			copyData := !cmd.Bool("move")
			overwrite := cmd.Bool("overwrite")
			switch dataType := cmd.String("data-type"); dataType {
			case "primary":
				err = ds.AddSampleData(source, subject, sample, dataType, copyData, overwrite)
			case "derivative":
				err = ds.AddDerivativeData(source, subject, sample, copyData, overwrite)
			default:
				return fmt.Errorf("unsupported data type: %s", dataType)
			}
			return err
		},
	}
}

func cmdAddThumbnail() *cli.Command {
	return &cli.Command{
		Name:      "add-thumbnail",
		Usage:     "Place a thumbnail file under docs/",
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "move", Usage: "Move the source instead of copying it"},
			&cli.BoolFlag{Name: "overwrite", Usage: "Replace an existing destination"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			source := cmd.Args().First()
			if source == "" {
				return fmt.Errorf("a source file argument is required")
			}
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			return ds.AddThumbnail(source, !cmd.Bool("move"), cmd.Bool("overwrite"))
		},
	}
}

func cmdDeleteSubject() *cli.Command {
	return &cli.Command{
		Name:      "delete-subject",
		Usage:     "Delete subject folders and their metadata rows",
		ArgsUsage: "<subject-folder>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-type", Value: "primary", Usage: "Tree the folders live in"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("at least one subject folder is required")
			}
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			dataType := cmd.String("data-type")
			folders := make([]string, 0, cmd.Args().Len())
			for _, name := range cmd.Args().Slice() {
				folders = append(folders, filepath.Join(ds.Path(), dataType, name))
			}
			return ds.DeleteSubjects(folders, dataType)
		},
	}
}

func cmdDeleteSample() *cli.Command {
	return &cli.Command{
		Name:      "delete-sample",
		Usage:     "Delete sample folders and their metadata rows",
		ArgsUsage: "<sample-folder>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Required: true, Usage: "Subject folder the samples belong to"},
			&cli.StringFlag{Name: "data-type", Value: "primary", Usage: "Tree the folders live in"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("at least one sample folder is required")
			}
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			dataType := cmd.String("data-type")
			subject := cmd.String("subject")
			folders := make([]string, 0, cmd.Args().Len())
			for _, name := range cmd.Args().Slice() {
				folders = append(folders, filepath.Join(ds.Path(), dataType, subject, name))
			}
			return ds.DeleteSamples(folders, dataType)
		},
	}
}

func cmdDeleteData() *cli.Command {
	return &cli.Command{
		Name:      "delete-data",
		Usage:     "Delete data files or directories, clearing manifest rows for files",
		ArgsUsage: "<path>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("at least one path is required")
			}
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			for _, arg := range cmd.Args().Slice() {
				p := arg
				if !filepath.IsAbs(p) {
					p, err = fsops.Within(ds.Path(), filepath.FromSlash(arg))
					if err != nil {
						return err
					}
				}
				if err := ds.DeleteData(p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func cmdWatch() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the manifest in step with the data trees until interrupted",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func cmdMCP() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve dataset editing tools over the Model Context Protocol on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, ds, err := openDataset(cmd)
			if err != nil {
				return err
			}
			return mcpserver.New(ds).ServeStdio()
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "sdskit",
		Usage: "Manage versioned scientific dataset directories with spreadsheet metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Usage: "Dataset directory (overrides config)"},
			&cli.StringFlag{Name: "resources", Usage: "Template resources directory (overrides config)"},
			&cli.StringFlag{Name: "version", Usage: "Dataset version (overrides config)"},
		},
		Commands: []*cli.Command{
			cmdCreate(),
			cmdSave(),
			cmdFiles(),
			cmdElements(),
			cmdSetField(),
			cmdAddRow(),
			cmdUpdateJSON(),
			cmdAddData(),
			cmdAddThumbnail(),
			cmdDeleteSubject(),
			cmdDeleteSample(),
			cmdDeleteData(),
			cmdWatch(),
			cmdMCP(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
