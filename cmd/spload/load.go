package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/tuannm99/novaspage/internal"
	"github.com/tuannm99/novaspage/internal/engine"
	"github.com/tuannm99/novaspage/internal/heap"
	"github.com/tuannm99/novaspage/internal/pagefile"
	"github.com/tuannm99/novaspage/internal/storage"
)

type loadOptions struct {
	Input    string
	DB       string
	Fixed    []int
	Compress string
	PerPage  bool
}

// fixedReport is what packing the same lines into fixed-size slots would cost.
type fixedReport struct {
	Size      int
	PerPage   int
	Pages     int
	Truncated int // records longer than Size
	Percent   float64
}

func fixedPacking(lengths []int, size int) fixedReport {
	r := fixedReport{Size: size}
	if size <= 0 || size > storage.PageSize {
		return r
	}
	r.PerPage = storage.PageSize / size

	stored := 0
	for _, n := range lengths {
		if n > size {
			r.Truncated++
			n = size
		}
		stored += n
	}
	r.Pages = (len(lengths) + r.PerPage - 1) / r.PerPage
	if r.Pages > 0 {
		r.Percent = float64(stored) / float64(r.Pages*storage.PageSize) * 100
	}
	return r
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	return lines, sc.Err()
}

type loadResult struct {
	Inserted int
	Scanned  int
	Stats    heap.FileStats
	IO       pagefile.Stats
}

// load recreates opts.DB, inserts every line, and reads it all back with a scan.
func load(cfg *internal.NovaSpageConfig, opts loadOptions, lines [][]byte) (res loadResult, err error) {
	db := engine.NewDatabase(engine.Options{
		DataDir:      cfg.Storage.Workdir,
		PoolCapacity: cfg.BufferPool.Capacity,
		MaxScans:     cfg.Scan.MaxScans,
	})
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	if err := db.DropFile(opts.DB); err != nil && !isNotFound(err) {
		return res, fmt.Errorf("drop %s: %w", opts.DB, err)
	}
	if err := db.CreateFile(opts.DB, opts.Compress); err != nil {
		return res, err
	}
	tbl, err := db.OpenFile(opts.DB, cfg.Policy())
	if err != nil {
		return res, err
	}

	for i, line := range lines {
		if _, err := tbl.Insert(line); err != nil {
			return res, fmt.Errorf("line %d: %w", i+1, err)
		}
		res.Inserted++
	}
	if err := tbl.Flush(); err != nil {
		return res, err
	}

	err = tbl.Scan(func(heap.RecordID, []byte) error {
		res.Scanned++
		return nil
	})
	if err != nil {
		return res, err
	}
	if res.Stats, err = tbl.Stats(); err != nil {
		return res, err
	}
	res.IO = tbl.IOStats()
	return res, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, pagefile.ErrFileNotFound)
}

func report(w io.Writer, opts loadOptions, lines [][]byte, res loadResult) error {
	lengths := make([]int, len(lines))
	raw := 0
	for i, l := range lines {
		lengths[i] = len(l)
		raw += len(l)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "records\t%d\n", len(lines))
	fmt.Fprintf(tw, "raw bytes\t%d\n", raw)
	fmt.Fprintf(tw, "page size\t%d\n\n", storage.PageSize)

	fmt.Fprintf(tw, "FIXED\tper page\tpages\ttruncated\tutil %%\n")
	for _, size := range opts.Fixed {
		r := fixedPacking(lengths, size)
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.2f\n", r.Size, r.PerPage, r.Pages, r.Truncated, r.Percent)
	}

	st := res.Stats
	fmt.Fprintf(tw, "\nSLOTTED (%s)\tpages\tlive\tdead\tutil %%\n", opts.Compress)
	fmt.Fprintf(tw, "\t%d\t%d\t%d\t%.2f\n", len(st.Pages), st.LiveRecords, st.DeadSlots, st.AvgUtilization())
	if opts.PerPage {
		fmt.Fprintf(tw, "\npage\tslots\tfree\tused\tutil %%\n")
		for _, p := range st.Pages {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.2f\n", p.PageNum, p.Slots, p.FreeSpace, p.UsedBytes, p.Percent)
		}
	}

	fmt.Fprintf(tw, "\nlogical reads\t%d\n", res.IO.LogicalReads)
	fmt.Fprintf(tw, "physical reads\t%d\n", res.IO.PhysicalReads)
	fmt.Fprintf(tw, "physical writes\t%d\n", res.IO.PhysicalWrites)
	fmt.Fprintf(tw, "pages allocated\t%d\n", res.IO.PagesAllocated)
	fmt.Fprintf(tw, "scan check\t%d/%d\n", res.Scanned, res.Inserted)
	return tw.Flush()
}
