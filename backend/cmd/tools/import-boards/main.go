// Command import-boards loads planning poker boards exported from the old
// document store into postgres. Boards whose id already exists are skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sawatantra/api/backend/internal/storage/pg"
	"github.com/sawatantra/api/shared/config"
	"github.com/sawatantra/api/shared/logger"
)

func main() {
	var (
		configFolder string
		file         string
		dryRun       bool
	)
	flag.StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	flag.StringVar(&file, "file", "-", "export file, - reads stdin")
	flag.BoolVar(&dryRun, "dry-run", false, "parse the export without writing to the database")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(configFolder, file, dryRun); err != nil {
		logger.Log.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(configFolder, file string, dryRun bool) error {
	var in io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	exported, err := readExport(in)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	boards := make([]pg.ImportedBoard, 0, len(exported))
	for _, e := range exported {
		b, err := toImported(e, now)
		if err != nil {
			return err
		}
		boards = append(boards, b)
	}
	logger.Log.Info("export parsed", "boards", len(boards))
	if dryRun {
		return nil
	}

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON, "import-boards")

	ctx := context.Background()
	storage, err := pg.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Cleanup()

	var imported, skipped int
	for _, b := range boards {
		ok, err := storage.ImportBoard(ctx, b)
		if err != nil {
			return fmt.Errorf("board %s: %w", b.Board.Id, err)
		}
		if ok {
			imported++
		} else {
			skipped++
			logger.Log.Info("board already exists, skipped", "board_id", b.Board.Id)
		}
	}
	logger.Log.Info("import finished", "imported", imported, "skipped", skipped)
	return nil
}
