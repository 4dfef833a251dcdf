// Command spload loads a text file into a slotted file, one record per line,
// and compares the result with fixed-size record packing.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/tuannm99/novaspage/internal"
)

func main() {
	var (
		opts    loadOptions
		cfgPath string
	)
	pflag.StringVarP(&opts.Input, "input", "i", "", "text file to load, one record per line")
	pflag.StringVar(&opts.DB, "db", "records", "slotted file name inside the data directory")
	pflag.StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	pflag.IntSliceVar(&opts.Fixed, "fixed", []int{64, 128, 256}, "fixed record sizes to compare against")
	pflag.StringVar(&opts.Compress, "compress", "none", "record codec: none, snappy or lz4")
	pflag.BoolVar(&opts.PerPage, "per-page", false, "print utilization of every page")
	pflag.Parse()

	if opts.Input == "" {
		fmt.Fprintln(os.Stderr, "spload: --input is required")
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := internal.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spload: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	lines, err := readLines(opts.Input)
	if err != nil {
		slog.Error("read input", "path", opts.Input, "err", err)
		os.Exit(1)
	}

	res, err := load(cfg, opts, lines)
	if err != nil {
		slog.Error("load", "db", opts.DB, "err", err)
		os.Exit(1)
	}
	if err := report(os.Stdout, opts, lines, res); err != nil {
		slog.Error("report", "err", err)
		os.Exit(1)
	}
	if res.Scanned != res.Inserted {
		slog.Error("scan mismatch", "inserted", res.Inserted, "scanned", res.Scanned)
		os.Exit(1)
	}
}
