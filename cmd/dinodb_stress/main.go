package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"dinodb/pkg/hash"
)

var STARTUP = 100 * time.Millisecond
var MAX_DELAY int64 = 10

// Listens for SIGINT or SIGTERM and closes the index.
func setupCloseHandler(index *hash.HashIndex[int64, int64]) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("closehandler invoked")
		index.Close()
		os.Exit(0)
	}()
}

// Get delay jitter.
func jitter() time.Duration {
	return time.Duration(rand.Int63n(MAX_DELAY)+1) * time.Millisecond
}

// Parse workload: each line is "insert <key> <value>", "remove <key>", or
// "find <key>".
func parseWorkload(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var workload []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			workload = append(workload, line)
		}
	}
	return workload, scanner.Err()
}

// runLine executes a single workload line against the index.
func runLine(index *hash.HashIndex[int64, int64], line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("malformed workload line: %q", line)
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return err
	}
	switch fields[0] {
	case "insert":
		if len(fields) != 3 {
			return fmt.Errorf("malformed insert line: %q", line)
		}
		value, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return err
		}
		_, err = index.Insert(key, value)
		return err
	case "remove":
		_, err := index.Remove(key)
		return err
	case "find":
		_, _, err := index.GetValue(key)
		return err
	default:
		return fmt.Errorf("unknown workload command: %q", fields[0])
	}
}

// Start the stress harness.
func main() {
	var dbFlag = flag.String("db", "data/stress.db", "hash index db file")
	var workloadFlag = flag.String("workload", "", "workload file (required)")
	var nFlag = flag.Int("n", 1, "number of worker goroutines to run (default: 1)")
	var verifyFlag = flag.Bool("verify", false, "verify the index's structural invariants once the workload finishes")
	flag.Parse()

	os.Remove(*dbFlag)
	index, err := hash.OpenTable(*dbFlag)
	if err != nil {
		panic(err)
	}
	defer index.Close()
	setupCloseHandler(index)

	if *workloadFlag == "" {
		fmt.Println("no workload file given")
		return
	}
	workload, err := parseWorkload(*workloadFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	time.Sleep(STARTUP)

	var group errgroup.Group
	n := *nFlag
	for worker := 0; worker < n; worker++ {
		worker := worker
		group.Go(func() error {
			for i := worker; i < len(workload); i += n {
				time.Sleep(jitter())
				if err := runLine(index, workload[i]); err != nil {
					return fmt.Errorf("line %q: %w", workload[i], err)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		fmt.Println(err)
		return
	}

	if *verifyFlag {
		if err := index.VerifyIntegrity(); err != nil {
			fmt.Println("integrity check failed:", err)
			return
		}
		fmt.Println("index passed integrity verification")
	}
}
