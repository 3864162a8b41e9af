// backend-go/cmd/console/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/vanchoco/backend-go/internal/backend"
	"github.com/vanchoco/backend-go/internal/cache"
	"github.com/vanchoco/backend-go/internal/config"
	"github.com/vanchoco/backend-go/internal/export"
	"github.com/vanchoco/backend-go/internal/repository/postgres"
	"github.com/vanchoco/backend-go/internal/service"
	"github.com/vanchoco/backend-go/internal/snapshot"
	"github.com/vanchoco/backend-go/internal/storage"
	"github.com/vanchoco/backend-go/pkg/logger"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func newDateFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: usage + " (YYYY-MM-DD, defaults to today)",
	}
}

func initDB(c *cli.Context) error {
	dsn := c.String("db-url")
	if dsn == "" {
		dsn = config.Load().Database.DSN()
	}

	conn, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.PingContext(c.Context); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey{}, postgres.Wrap(conn))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	return c.Context.Value(dbKey{}).(*postgres.DB)
}

// newReportService wires the report service the same way the API server does,
// without a cache. Object storage is only opened when withStorage is set.
func newReportService(c *cli.Context, withStorage bool) (*service.ReportService, error) {
	cfg := config.Load()

	var store storage.ObjectStorage
	if withStorage {
		s, err := storage.New(c.Context, cfg.Storage, cfg.App.ExportDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open object storage: %w", err)
		}
		store = s
	}

	return service.NewReportService(
		backend.NewClient(cfg.Backend),
		postgres.NewSnapshotRepository(dbFrom(c)),
		cache.NewNoopReportCache(),
		store,
		cfg.Storage.Prefix,
		cfg.Reports.Location(),
	), nil
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Server.Mode, cfg.Server.LogLevel)

	app := &cli.App{
		Name:  "console",
		Usage: "Operator tasks for the reconciliation service",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Before: initDB,
		After:  closeDB,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create or update the snapshot and catalog tables",
				Action: runMigrate,
			},
			{
				Name:  "snapshot",
				Usage: "Manage daily stock snapshots",
				Subcommands: []*cli.Command{
					{
						Name:   "capture",
						Usage:  "Store the backend's current stock summary as a snapshot",
						Flags:  []cli.Flag{newDateFlag("Snapshot day")},
						Action: runSnapshotCapture,
					},
					{
						Name:  "import",
						Usage: "Import a CSV or XLSX stock summary as a snapshot",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "file",
								Usage:    "Path to the .csv or .xlsx file",
								Required: true,
							},
							newDateFlag("Snapshot day; read from the file name when omitted"),
						},
						Action: runSnapshotImport,
					},
					{
						Name:  "sync",
						Usage: "Import every dated snapshot file found in object storage",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "prefix", Value: "snapshots", Usage: "Object key prefix to scan"},
							&cli.StringFlag{Name: "dir", Value: os.TempDir(), Usage: "Scratch directory for downloads"},
						},
						Action: runSnapshotSync,
					},
					{
						Name:  "list",
						Usage: "List stored snapshots",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 30},
						},
						Action: runSnapshotList,
					},
				},
			},
			{
				Name:  "report",
				Usage: "Render reports",
				Subcommands: []*cli.Command{
					{
						Name:  "daily",
						Usage: "Render the daily stock movement report",
						Flags: []cli.Flag{
							newDateFlag("Report day"),
							&cli.StringFlag{Name: "format", Value: "xlsx", Usage: "csv or xlsx"},
							&cli.StringFlag{Name: "out", Value: ".", Usage: "Directory to write the file to"},
							&cli.BoolFlag{Name: "upload", Usage: "Also upload the file to object storage"},
						},
						Action: runReportDaily,
					},
					{
						Name:  "pull",
						Usage: "Download an uploaded report",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "key", Required: true, Usage: "Object key, see 'report list'"},
							&cli.StringFlag{Name: "out", Value: ".", Usage: "Directory to write the file to"},
						},
						Action: runReportPull,
					},
					{
						Name:   "list",
						Usage:  "List uploaded reports",
						Action: runReportList,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("console command failed")
	}
}

func runMigrate(c *cli.Context) error {
	if err := postgres.Migrate(c.Context, dbFrom(c)); err != nil {
		return err
	}
	log.Info().Msg("schema is up to date")
	return nil
}

func runSnapshotCapture(c *cli.Context) error {
	svc, err := newReportService(c, false)
	if err != nil {
		return err
	}
	day, err := svc.ParseDay(c.String("date"))
	if err != nil {
		return err
	}

	n, err := svc.CaptureSnapshot(c.Context, day)
	if err != nil {
		return err
	}
	fmt.Printf("captured %d rows for %s\n", n, day.Format("2006-01-02"))
	return nil
}

func runSnapshotImport(c *cli.Context) error {
	svc, err := newReportService(c, false)
	if err != nil {
		return err
	}

	path := c.String("file")
	day, err := svc.ParseDay(c.String("date"))
	if err != nil {
		return err
	}
	if !c.IsSet("date") {
		if fromName, ok := snapshot.DateFromFilename(path, svc.Location()); ok {
			day = fromName
		}
	}

	rows, result, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	if err := svc.ImportSnapshot(c.Context, day, rows); err != nil {
		return err
	}

	fmt.Printf("imported %d rows (%d skipped, %d units) for %s\n",
		result.Rows, result.Skipped, result.Total, day.Format("2006-01-02"))
	return nil
}

func runSnapshotSync(c *cli.Context) error {
	cfg := config.Load()
	svc, err := newReportService(c, false)
	if err != nil {
		return err
	}
	store, err := storage.New(c.Context, cfg.Storage, cfg.App.ExportDir)
	if err != nil {
		return fmt.Errorf("failed to open object storage: %w", err)
	}

	result, err := snapshot.Sync(c.Context, store, svc, snapshot.SyncOptions{
		Prefix:      storage.ObjectKey(cfg.Storage.Prefix, c.String("prefix")),
		DownloadDir: filepath.Join(c.String("dir"), "snapshot-sync"),
		Location:    svc.Location(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("imported %d files, skipped %d\n", len(result.Imported), len(result.Skipped))
	return nil
}

func runSnapshotList(c *cli.Context) error {
	svc, err := newReportService(c, false)
	if err != nil {
		return err
	}

	infos, err := svc.ListSnapshots(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tROWS\tUNITS")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%d\n", info.Date.Format("2006-01-02"), info.Rows, info.TotalStock)
	}
	return w.Flush()
}

func runReportDaily(c *cli.Context) error {
	format, err := export.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	svc, err := newReportService(c, c.Bool("upload"))
	if err != nil {
		return err
	}
	day, err := svc.ParseDay(c.String("date"))
	if err != nil {
		return err
	}

	result, err := svc.ExportDaily(c.Context, day, format, c.Bool("upload"))
	if err != nil {
		return err
	}

	dest := filepath.Join(c.String("out"), result.Filename)
	if err := os.WriteFile(dest, result.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	fmt.Printf("wrote %s\n", dest)
	if result.ObjectKey != "" {
		fmt.Printf("uploaded %s\n", result.ObjectKey)
	}
	return nil
}

func runReportPull(c *cli.Context) error {
	svc, err := newReportService(c, true)
	if err != nil {
		return err
	}

	key := c.String("key")
	dest := filepath.Join(c.String("out"), filepath.Base(key))
	if err := svc.FetchExport(c.Context, key, dest); err != nil {
		return err
	}
	fmt.Printf("downloaded %s\n", dest)
	return nil
}

func runReportList(c *cli.Context) error {
	svc, err := newReportService(c, true)
	if err != nil {
		return err
	}

	objects, err := svc.ListExports(c.Context)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE")
	for _, obj := range objects {
		fmt.Fprintf(w, "%s\t%d\n", obj.Key, obj.Size)
	}
	return w.Flush()
}
