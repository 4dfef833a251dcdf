// Command spshell is an interactive shell over one slotted file.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/tuannm99/novaspage/internal"
	"github.com/tuannm99/novaspage/internal/bufferpool"
	"github.com/tuannm99/novaspage/internal/engine"
	"github.com/tuannm99/novaspage/internal/pagefile"
)

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".novaspage_history"
	}
	return filepath.Join(home, ".novaspage_history")
}

// openOrCreate opens name, creating it with codecName first if it is missing.
func openOrCreate(db *engine.Database, name, codecName string, policy bufferpool.Policy) (*engine.Table, error) {
	tbl, err := db.OpenFile(name, policy)
	if errors.Is(err, pagefile.ErrFileNotFound) {
		if err := db.CreateFile(name, codecName); err != nil {
			return nil, err
		}
		return db.OpenFile(name, policy)
	}
	if err != nil {
		return nil, err
	}
	if codecName != "" && tbl.Codec().Name() != strings.ToLower(codecName) {
		slog.Warn("file keeps its codec", "name", name, "codec", tbl.Codec().Name(), "requested", codecName)
	}
	return tbl, nil
}

func main() {
	var (
		cfgPath  string
		name     string
		compress string
		policy   string
		histPath string
	)
	pflag.StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	pflag.StringVar(&name, "db", "records", "slotted file name inside the data directory")
	pflag.StringVar(&compress, "compress", "", "record codec for a new file: none, snappy or lz4")
	pflag.StringVar(&policy, "policy", "", "override bufferpool.policy (LRU, MRU, CLOCK)")
	pflag.StringVar(&histPath, "history", defaultHistoryPath(), "history file path")
	pflag.Parse()

	cfg, err := internal.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spshell: %v\n", err)
		os.Exit(1)
	}
	if policy != "" {
		cfg.BufferPool.Policy = policy
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "spshell: %v\n", err)
			os.Exit(1)
		}
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	db := engine.NewDatabase(engine.Options{
		DataDir:      cfg.Storage.Workdir,
		PoolCapacity: cfg.BufferPool.Capacity,
		MaxScans:     cfg.Scan.MaxScans,
	})
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("close database", "err", err)
		}
	}()

	tbl, err := openOrCreate(db, name, compress, cfg.Policy())
	if err != nil {
		slog.Error("open", "db", name, "err", err)
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "novaspage> ",
		HistoryFile:     histPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		slog.Error("readline", "err", err)
		return
	}
	defer func() { _ = rl.Close() }()

	sh := &shell{tbl: tbl, out: rl.Stdout()}
	fmt.Fprintf(sh.out, "file %q: %d pages, codec %s. Type help.\n", name, tbl.PageCount(), tbl.Codec().Name())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			slog.Error("readline", "err", err)
			return
		}

		err = sh.exec(line)
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}
