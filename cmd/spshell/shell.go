package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tuannm99/novaspage/internal/engine"
	"github.com/tuannm99/novaspage/internal/heap"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  insert <text>          store text as a new record
  get <page> <slot>      print a record
  delete <page> <slot>   tombstone a record
  scan                   print every live record
  util [page]            utilization of one page or of the whole file
  dump <page>            page header, slots and record previews
  stats                  buffer pool and allocation counters
  flush                  write dirty pages
  help                   this text
  exit                   leave`

type shell struct {
	tbl *engine.Table
	out io.Writer
}

// exec runs one command line. errQuit ends the session.
func (s *shell) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "insert":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		id, err := s.tbl.Insert([]byte(text))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "inserted %s\n", id)
	case "get":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		rec, err := s.tbl.Get(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s %q\n", id, rec)
	case "delete":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		if err := s.tbl.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "deleted %s\n", id)
	case "scan":
		n := 0
		err := s.tbl.Scan(func(id heap.RecordID, rec []byte) error {
			n++
			_, err := fmt.Fprintf(s.out, "%s %q\n", id, rec)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "(%d records)\n", n)
	case "util":
		return s.util(args)
	case "dump":
		num, err := parsePage(args)
		if err != nil {
			return err
		}
		return s.tbl.DumpPage(num, s.out)
	case "stats":
		st := s.tbl.IOStats()
		fmt.Fprintf(s.out, "pages=%d logical=%d physical_reads=%d physical_writes=%d allocated=%d pinned=%d\n",
			s.tbl.PageCount(), st.LogicalReads, st.PhysicalReads, st.PhysicalWrites, st.PagesAllocated, s.tbl.PinnedPages())
	case "flush":
		return s.tbl.Flush()
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "exit", "quit", `\q`:
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (s *shell) util(args []string) error {
	if len(args) > 0 {
		num, err := parsePage(args)
		if err != nil {
			return err
		}
		p, err := s.tbl.PageStats(num)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "page %d: slots=%d live=%d free=%d used=%d (%.2f%%)\n",
			p.PageNum, p.Slots, p.LiveRecords, p.FreeSpace, p.UsedBytes, p.Percent)
		return nil
	}

	st, err := s.tbl.Stats()
	if err != nil {
		return err
	}
	for _, p := range st.Pages {
		fmt.Fprintf(s.out, "page %d: slots=%d live=%d free=%d used=%d (%.2f%%)\n",
			p.PageNum, p.Slots, p.LiveRecords, p.FreeSpace, p.UsedBytes, p.Percent)
	}
	fmt.Fprintf(s.out, "pages=%d live=%d dead=%d avg=%.2f%%\n",
		len(st.Pages), st.LiveRecords, st.DeadSlots, st.AvgUtilization())
	return nil
}

func parsePage(args []string) (int32, error) {
	if len(args) != 1 {
		return 0, errors.New("usage: <page>")
	}
	n, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("page %q: %w", args[0], err)
	}
	return int32(n), nil
}

func parseID(args []string) (heap.RecordID, error) {
	if len(args) != 2 {
		return heap.RecordID{}, errors.New("usage: <page> <slot>")
	}
	var nums [2]int32
	for i, a := range args {
		n, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return heap.RecordID{}, fmt.Errorf("%q: %w", a, err)
		}
		nums[i] = int32(n)
	}
	return heap.RecordID{PageNum: nums[0], SlotNum: nums[1]}, nil
}
