// cmd/migrate/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/unclebandit/emailace-backend/internal/config"
	"github.com/unclebandit/emailace-backend/internal/db"
	"github.com/unclebandit/emailace-backend/internal/logger"
)

// schema owns the migrator for one command invocation.
type schema struct {
	dir string
	cfg *config.Config
	log *logger.Logger
	m   *migrate.Migrate
}

func main() {
	s := &schema{}
	err := s.command().Execute()
	if s.m != nil {
		s.m.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (s *schema) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the outreach database schema (candidates, lists, templates, campaigns, recipient logs)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s.cfg = cfg
			s.log = logger.New(cfg.Log.Level, cfg.Log.Format).WithComponent("migrate")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&s.dir, "dir", "migrations", "migrations directory")

	var all bool
	down := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (one step by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(cmd); err != nil {
				return err
			}
			if all {
				s.log.Warn().Msg("dropping every migration, campaign data will be lost")
				return ignoreNoChange(s.m.Down())
			}
			n, err := stepsArg(args, 1)
			if err != nil {
				return err
			}
			s.log.Info().Int("steps", n).Msg("rolling back")
			return ignoreNoChange(s.m.Steps(-n))
		},
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")

	root.AddCommand(
		&cobra.Command{
			Use:   "up [steps]",
			Short: "Apply pending migrations, all of them unless steps is given",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := s.open(cmd); err != nil {
					return err
				}
				n, err := stepsArg(args, 0)
				if err != nil {
					return err
				}
				if n == 0 {
					err = s.m.Up()
				} else {
					err = s.m.Steps(n)
				}
				if err := ignoreNoChange(err); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				return s.report()
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied version and the migrations still pending",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := s.open(cmd); err != nil {
					return err
				}
				return s.report()
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the version and clear the dirty flag after a failed migration was repaired by hand",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				if err := s.open(cmd); err != nil {
					return err
				}
				if err := s.m.Force(v); err != nil {
					return fmt.Errorf("force failed: %w", err)
				}
				s.log.Warn().Int("version", v).Msg("schema version forced")
				return nil
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create the next up/down migration pair",
			Args:  cobra.ExactArgs(1),
			// no database needed
			PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
			RunE: func(_ *cobra.Command, args []string) error {
				files, err := createPair(s.dir, args[0])
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Println("created", f)
				}
				return nil
			},
		},
	)
	return root
}

func (s *schema) open(cmd *cobra.Command) error {
	conn, err := db.Open(cmd.Context(), s.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	s.m, err = migrate.NewWithDatabaseInstance("file://"+s.dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	return nil
}

// report prints the applied version and lists newer files on disk.
func (s *schema) report() error {
	version, dirty, err := s.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		version = 0
	case err != nil:
		return fmt.Errorf("failed to get version: %w", err)
	}

	versions, err := localVersions(s.dir)
	if err != nil {
		return err
	}
	pending := 0
	for _, v := range versions {
		if v > version {
			pending++
		}
	}
	s.log.Info().Uint("version", version).Bool("dirty", dirty).Int("pending", pending).Msg("schema status")
	if dirty {
		s.log.Warn().Msg("schema is dirty, repair it and run force <version>")
	}
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func stepsArg(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("steps must be a positive number, got %q", args[0])
	}
	return n, nil
}

var migrationFile = regexp.MustCompile(`^(\d+)_[a-z0-9_]+\.(up|down)\.sql$`)

// localVersions returns the distinct migration versions in dir, ascending.
func localVersions(dir string) ([]uint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	seen := map[uint]bool{}
	versions := []uint{}
	for _, e := range entries {
		match := migrationFile.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		v, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil || seen[uint(v)] {
			continue
		}
		seen[uint(v)] = true
		versions = append(versions, uint(v))
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

var nameCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// createPair writes <next>_<name>.up.sql and .down.sql, numbering after the highest existing version.
func createPair(dir, name string) ([]string, error) {
	slug := nameCleaner.ReplaceAllString(strings.ToLower(name), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return nil, fmt.Errorf("invalid migration name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}
	versions, err := localVersions(dir)
	if err != nil {
		return nil, err
	}
	next := uint(1)
	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	files := []string{}
	for _, direction := range []string{"up", "down"} {
		path := filepath.Join(dir, fmt.Sprintf("%06d_%s.%s.sql", next, slug, direction))
		if err := os.WriteFile(path, []byte("-- "+direction+" migration for "+slug+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to create %s migration: %w", direction, err)
		}
		files = append(files, path)
	}
	return files, nil
}
