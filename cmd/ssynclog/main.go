// Command ssynclog is a line-oriented analyzer for the request/response
// trace lines the engine's log formatters emit (FormatRequestLog,
// FormatResponseLog). It groups the indented continuation lines under each
// ">>> REQUEST" / "<<< RESPONSE" line back into one record per tick and
// prints aggregate counts per list, in the spirit of the teacher's
// cmd/debugop SYNC/INSERT/DELETE instruction parser repointed at this
// client's own log format.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	flagFile = flag.String("file", "", "Path to a log file containing >>> REQUEST / <<< RESPONSE trace lines")
)

var (
	requestLineRegexp     = regexp.MustCompile(`^>>> REQUEST`)
	responseLineRegexp    = regexp.MustCompile(`^<<< RESPONSE`)
	requestListRegexp     = regexp.MustCompile(`list:(\S+)=\[(-?\d+), (-?\d+)\]`)
	responseListRegexp    = regexp.MustCompile(`list:(\S+) count=(\d+)(?: range=\[(-?\d+), (-?\d+)\])?`)
	loadingStateRegexp    = regexp.MustCompile(`(?m)^\s*(\S+):(not_loaded|preloaded|partially_loaded|fully_loaded)\b`)
	fullySyncedRegexp     = regexp.MustCompile(`\[FULLY SYNCED\]`)
)

// listStats accumulates per-list observations across every tick in the log.
type listStats struct {
	name            string
	requests        int
	responses       int
	lastRange       [2]int64
	hasRange        bool
	lastCount       int64
	lastLoadingState string
}

func main() {
	flag.Parse()
	if *flagFile == "" {
		flag.Usage()
		os.Exit(1)
	}
	mode := "summary"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}

	stats := make(map[string]*listStats)
	var order []string
	fullySyncedTicks := 0

	statFor := func(name string) *listStats {
		s, ok := stats[name]
		if !ok {
			s = &listStats{name: name}
			stats[name] = s
			order = append(order, name)
		}
		return s
	}

	requestLines, responseLines := extractLines(*flagFile)

	if mode == "requests" || mode == "summary" {
		for _, line := range requestLines {
			for _, m := range requestListRegexp.FindAllStringSubmatch(line, -1) {
				s := statFor(m[1])
				s.requests++
				s.hasRange = true
				s.lastRange[0] = toInt64(m[2])
				s.lastRange[1] = toInt64(m[3])
			}
		}
	}

	if mode == "responses" || mode == "summary" {
		for _, line := range responseLines {
			if fullySyncedRegexp.MatchString(line) {
				fullySyncedTicks++
			}
			for _, m := range responseListRegexp.FindAllStringSubmatch(line, -1) {
				s := statFor(m[1])
				s.responses++
				s.lastCount = toInt64(m[2])
				if m[3] != "" && m[4] != "" {
					s.hasRange = true
					s.lastRange[0] = toInt64(m[3])
					s.lastRange[1] = toInt64(m[4])
				}
			}
			for _, m := range loadingStateRegexp.FindAllStringSubmatch(line, -1) {
				if s, ok := stats[m[1]]; ok {
					s.lastLoadingState = m[2]
				}
			}
		}
	}

	sort.Strings(order)
	for _, name := range order {
		s := stats[name]
		rangeStr := "none"
		if s.hasRange {
			rangeStr = fmt.Sprintf("[%d, %d]", s.lastRange[0], s.lastRange[1])
		}
		fmt.Printf("list:%s requests=%d responses=%d last_range=%s last_count=%d loading_state=%s\n",
			s.name, s.requests, s.responses, rangeStr, s.lastCount, s.lastLoadingState)
	}
	fmt.Printf("fully_synced_ticks=%d\n", fullySyncedTicks)
}

func toInt64(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Fatalf("not an int: %v", s)
	}
	return i
}

// extractLines splits the log file into its request-block lines and
// response-block lines: each block is the ">>> REQUEST"/"<<< RESPONSE" line
// plus its indented continuation lines.
func extractLines(fname string) (requests, responses []string) {
	file, err := os.Open(fname)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 1*1024*1024)
	var current *[]string
	var block strings.Builder

	flush := func() {
		if current != nil {
			*current = append(*current, block.String())
		}
		block.Reset()
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			log.Fatalf("failed to read line: %s", err)
		}
		trimmed := strings.TrimRight(line, "\n")

		switch {
		case requestLineRegexp.MatchString(trimmed):
			flush()
			current = &requests
			block.WriteString(trimmed)
		case responseLineRegexp.MatchString(trimmed):
			flush()
			current = &responses
			block.WriteString(trimmed)
		case strings.HasPrefix(trimmed, "  ") && current != nil:
			block.WriteString("\n")
			block.WriteString(trimmed)
		default:
			flush()
			current = nil
		}

		if err == io.EOF {
			break
		}
	}
	flush()
	return
}
