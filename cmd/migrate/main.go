package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gobayes/adapters/postgres"
	"gobayes/domain/core"
	"gobayes/domain/evidence"
	"gobayes/internal"
	"gobayes/internal/errors"
	"gobayes/internal/migration"
)

// migrate creates the run ledger schema and optionally imports report JSON
// files written by `gobayes run --json --out`.
func main() {
	if err := internal.SetupLogging(os.Stderr, os.Getenv("LOG_LEVEL"), "console"); err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: migrate <database_url> [reports_dir]")
	}

	databaseURL := os.Args[1]
	ctx := context.Background()

	db, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}
	log.Info().Str("version", runner.Version()).Msg("schema up to date")

	if len(os.Args) < 3 {
		return
	}

	files, err := findReportFiles(os.Args[2])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to find report files")
	}
	log.Info().Int("files", len(files)).Msg("importing reports")

	repo := postgres.NewReportRepository(db)
	imported, skipped := 0, 0
	for _, file := range files {
		report, err := loadReportFromFile(file)
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("failed to load report")
			skipped++
			continue
		}
		if err := repo.StoreReport(ctx, report); err != nil {
			if errors.HasCode(err, errors.CodeInvalidInput) {
				log.Info().Str("run_id", report.RunID.String()).Msg("run already imported")
			} else {
				log.Warn().Err(err).Str("file", file).Msg("failed to store report")
			}
			skipped++
			continue
		}
		imported++
		log.Info().Str("run_id", report.RunID.String()).Str("file", filepath.Base(file)).Msg("imported report")
	}

	log.Info().Int("imported", imported).Int("skipped", skipped).Msg("import complete")
}

func findReportFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func loadReportFromFile(filePath string) (*evidence.Report, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var report evidence.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	if report.RunID == "" {
		// deterministic, so re-importing the same file is detected as a duplicate
		report.RunID = core.RunID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(filePath)).String())
	}
	return &report, nil
}
