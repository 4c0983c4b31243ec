package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/binfalse/CombineArchive-fb/internal/app"
	"github.com/binfalse/CombineArchive-fb/internal/config"
	"github.com/binfalse/CombineArchive-fb/internal/formats"
	"github.com/binfalse/CombineArchive-fb/internal/metadata"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an OmexApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Create", "CatalogScan").
func newApp(operation string) (*app.OmexApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewOmexApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "omex",
	Short: "COMBINE archive manager",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Staging Dir:  %s\n", cfg.Storage.StagingDir)
		fmt.Printf("Catalog:      %s\n", cfg.Storage.CatalogPath)
		fmt.Printf("Remote Type:  %s\n", cfg.Remote.Type)
		return nil
	},
}

// create command
var createCmd = &cobra.Command{
	Use:   "create ARCHIVE FILE...",
	Short: "Create a new archive from files",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		describe, _ := cmd.Flags().GetString("describe")

		a, err := newApp("Create")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Create(args[0], args[1:], format, describe)
		if err != nil {
			return err
		}

		fmt.Printf("Created %s with %d file(s)\n", args[0], n)
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add ARCHIVE FILE...",
	Short: "Add files to an existing archive",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		describe, _ := cmd.Flags().GetString("describe")

		a, err := newApp("Add")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Add(args[0], args[1:], format, describe)
		if err != nil {
			return err
		}

		fmt.Printf("Added %d file(s) to %s\n", n, args[0])
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list ARCHIVE",
	Short: "List the members of an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withFiles, _ := cmd.Flags().GetBool("files")

		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.Inspect(args[0])
		if err != nil {
			return err
		}

		headers := []string{"Location", "Format"}
		if withFiles {
			headers = append(headers, "Staged file")
		}

		rows := make([][]string, 0, len(info.Entries))
		for _, e := range info.Entries {
			row := []string{e.Location, e.Format}
			if withFiles {
				path, ok := info.LocalPaths[e.Location]
				if !ok {
					path = "-"
				}
				row = append(row, path)
			}
			rows = append(rows, row)
		}
		fmt.Println(renderTable(headers, rows))
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ARCHIVE",
	Short: "Summarize an archive and its descriptions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Inspect")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.Inspect(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Archive:      %s\n", info.Path)
		if info.MainFile != "" {
			fmt.Printf("Main file:    %s\n", info.MainFile)
		}
		fmt.Printf("Entries:      %d\n", len(info.Entries))
		fmt.Printf("Descriptions: %d\n", len(info.Descriptions))

		if len(info.Descriptions) == 0 {
			return nil
		}
		fmt.Println()
		for _, d := range info.Descriptions {
			od, ok := d.(*metadata.OmexDescription)
			if !ok {
				fmt.Printf("  %s\n", d.About())
				continue
			}
			fmt.Printf("  %s: %s\n", od.About(), od.Text)
			for _, c := range od.Creators {
				fmt.Printf("      creator: %s\n", c)
			}
			if !od.Created.IsZero() {
				fmt.Printf("      created: %s\n", od.Created.Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

// extract command
var extractCmd = &cobra.Command{
	Use:   "extract ARCHIVE [DIR]",
	Short: "Extract archive members to a directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Extract")
		if err != nil {
			return err
		}
		defer a.Close()

		destDir := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		if len(args) > 1 {
			destDir = args[1]
		}

		extracted, err := a.Extract(args[0], destDir)
		if err != nil {
			return err
		}

		fmt.Printf("Extracted %d file(s) to %s\n", len(extracted), destDir)
		return nil
	},
}

// describe command
var describeCmd = &cobra.Command{
	Use:   "describe ARCHIVE",
	Short: "Attach a description to an archive or one of its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		location, _ := cmd.Flags().GetString("location")

		if text == "" {
			return fmt.Errorf("nothing to attach: pass --text")
		}

		a, err := newApp("Describe")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Describe(args[0], location, text); err != nil {
			return err
		}

		if location == "" {
			fmt.Printf("Described %s\n", args[0])
		} else {
			fmt.Printf("Described %s in %s\n", location, args[0])
		}
		return nil
	},
}

// formats command
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List known format aliases",
	RunE: func(cmd *cobra.Command, args []string) error {
		known := formats.Known()
		rows := make([][]string, 0, len(known))
		for _, alias := range known {
			rows = append(rows, []string{alias.Name, alias.Identifier})
		}
		fmt.Println(renderTable([]string{"Alias", "Identifier"}, rows))
		return nil
	},
}

// catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local archive catalog",
}

var catalogMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the catalog database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CatalogMigrate")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CatalogMigrate(); err != nil {
			return err
		}

		fmt.Println("Catalog is up to date.")
		return nil
	},
}

var catalogScanCmd = &cobra.Command{
	Use:   "scan [DIR]",
	Short: "Scan a directory for archives and catalog them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CatalogScan")
		if err != nil {
			return err
		}
		defer a.Close()

		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		n, err := a.ScanCatalog(cmd.Context(), dir)
		if err != nil {
			return err
		}

		fmt.Printf("Cataloged %d archive(s)\n", n)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CatalogList")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.CatalogList()
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No archives cataloged.")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []string{
				rec.Path,
				rec.MainFile,
				strconv.FormatInt(rec.Entries, 10),
				strconv.FormatInt(rec.Size, 10),
				rec.UpdatedAt.Format("2006-01-02 15:04"),
			})
		}
		fmt.Println(renderTable([]string{"Path", "Main file", "Entries", "Size", "Updated"}, rows, 2, 3))
		return nil
	},
}

var catalogRmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "Remove an archive from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CatalogRemove")
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.CatalogRemove(args[0])
		if err != nil {
			return err
		}

		if !removed {
			fmt.Printf("%s was not cataloged.\n", args[0])
			return nil
		}
		fmt.Printf("Removed %s from the catalog\n", args[0])
		return nil
	},
}

// remote command
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Push and pull archives to a remote store",
}

var remoteKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an age key pair for sealed uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoteKeygen")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoteKeygen(); err != nil {
			return err
		}

		fmt.Println("Generated age key pair; uploads will be sealed from now on.")
		return nil
	},
}

var remoteLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store remote credentials in the config",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Access key: ")
		accessKey, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading access key: %w", err)
		}

		fmt.Print("Secret key: ")
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading secret key: %w", err)
		}

		cfg.Remote.AccessKey = strings.TrimSpace(accessKey)
		cfg.Remote.SecretKey = string(secret)

		if err := config.Save(defaults["config_path"], cfg); err != nil {
			return err
		}

		fmt.Printf("Credentials stored in %s\n", defaults["config_path"])
		return nil
	},
}

var remotePushCmd = &cobra.Command{
	Use:   "push ARCHIVE",
	Short: "Upload an archive to the remote store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemotePush")
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.RemotePush(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Pushed %s as %s\n", args[0], name)
		return nil
	},
}

var remotePullCmd = &cobra.Command{
	Use:   "pull NAME [DEST]",
	Short: "Download an archive from the remote store",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemotePull")
		if err != nil {
			return err
		}
		defer a.Close()

		dest := ""
		if len(args) > 1 {
			dest = args[1]
		}

		path, err := a.RemotePull(cmd.Context(), args[0], dest)
		if err != nil {
			return err
		}

		fmt.Printf("Pulled %s to %s\n", args[0], path)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archives in the remote store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoteList")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.RemoteList(cmd.Context())
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("Remote store is empty.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	// catalog subcommands
	catalogCmd.AddCommand(catalogMigrateCmd)
	catalogCmd.AddCommand(catalogScanCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogRmCmd)

	// remote subcommands
	remoteCmd.AddCommand(remoteKeygenCmd)
	remoteCmd.AddCommand(remoteLoginCmd)
	remoteCmd.AddCommand(remotePushCmd)
	remoteCmd.AddCommand(remotePullCmd)
	remoteCmd.AddCommand(remoteListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringP("format", "f", "", "Format alias or identifier for the added files")
	createCmd.Flags().StringP("describe", "d", "", "Describe the first file, making it the main file")
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringP("format", "f", "", "Format alias or identifier for the added files")
	addCmd.Flags().StringP("describe", "d", "", "Describe the first file, making it the main file")
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("files", false, "Include the staged file paths")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringP("text", "t", "", "Description text to attach")
	describeCmd.Flags().StringP("location", "l", "", "Member to describe (defaults to the archive itself)")
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(remoteCmd)
}
