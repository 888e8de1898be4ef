package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alignecoderepos/heron/internal/protocol"
	"github.com/alignecoderepos/heron/pkg/client"
)

func main() {
	var (
		address     = flag.String("addr", "localhost:9010", "Server address")
		operation   = flag.String("op", "put", "Operation to benchmark (put|get|mixed)")
		duration    = flag.Duration("duration", 10*time.Second, "Test duration")
		clients     = flag.Int("clients", 10, "Number of concurrent clients")
		keySize     = flag.Int("key-size", 16, "Key size in bytes")
		valueSize   = flag.Int("value-size", 100, "Value size in bytes")
		keyspace    = flag.Int("keyspace", 10000, "Size of key space")
		ttl         = flag.Duration("ttl", 0, "TTL attached to every put (0 means none)")
		reportTicks = flag.Duration("report", 1*time.Second, "Reporting interval")
	)
	flag.Parse()

	switch *operation {
	case "put", "get", "mixed":
	default:
		log.Fatalf("Unknown operation: %s", *operation)
	}
	if *keySize < 5 || *keySize > protocol.MaxKeyLength {
		log.Fatalf("Key size must be between 5 and %d bytes", protocol.MaxKeyLength)
	}
	if *keyspace <= 0 || *clients <= 0 {
		log.Fatalf("Key space and clients must be positive")
	}

	fmt.Printf("Heron Benchmark Tool\n")
	fmt.Printf("====================\n")
	fmt.Printf("Server: %s\n", *address)
	fmt.Printf("Operation: %s\n", *operation)
	fmt.Printf("Duration: %s\n", *duration)
	fmt.Printf("Clients: %d\n", *clients)
	fmt.Printf("Key size: %d bytes\n", *keySize)
	fmt.Printf("Value size: %d bytes\n", *valueSize)
	fmt.Printf("Key space: %d\n", *keyspace)
	fmt.Printf("TTL: %s\n", *ttl)
	fmt.Printf("CPUs: %d\n", runtime.NumCPU())
	fmt.Printf("\n")

	// Test connectivity
	err := client.WithClient(*address, func(c *client.Client) error {
		_, _, err := c.GetBytes("__bench_probe")
		return err
	})
	if err != nil {
		log.Fatalf("Server probe failed: %v", err)
	}

	// Generate test data
	keys := generateKeys(*keyspace, *keySize)
	value := generateValue(*valueSize)

	// Pre-populate for GET benchmarks
	if *operation == "get" || *operation == "mixed" {
		fmt.Printf("Pre-populating %d keys...\n", *keyspace)
		populateKeys(*address, keys, value)
		fmt.Printf("Pre-population complete\n\n")
	}

	// Statistics
	var (
		totalOps   atomic.Int64
		errors     atomic.Int64
		lastOps    int64
		lastErrors int64
		startTime  = time.Now()
		lastReport = startTime
	)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	// Start reporting
	reportDone := make(chan struct{})
	go func() {
		defer close(reportDone)
		ticker := time.NewTicker(*reportTicks)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				now := time.Now()
				currentOps := totalOps.Load()
				currentErrors := errors.Load()

				elapsed := now.Sub(lastReport).Seconds()
				opsPerSec := float64(currentOps-lastOps) / elapsed
				errorsPerSec := float64(currentErrors-lastErrors) / elapsed

				fmt.Printf("Ops: %d (%.0f/sec), Errors: %d (%.2f/sec), Total: %d\n",
					currentOps-lastOps, opsPerSec, currentErrors-lastErrors, errorsPerSec, currentOps)

				lastOps = currentOps
				lastErrors = currentErrors
				lastReport = now

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start benchmark workers
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *clients; i++ {
		clientID := i
		g.Go(func() error {
			return runWorker(gctx, clientID, *address, *operation, keys, value, *ttl, &totalOps, &errors)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("Benchmark aborted: %v", err)
	}
	<-reportDone

	// Final statistics
	finalOps := totalOps.Load()
	finalErrors := errors.Load()
	totalDuration := time.Since(startTime).Seconds()

	fmt.Printf("\nBenchmark Results\n")
	fmt.Printf("=================\n")
	fmt.Printf("Total operations: %d\n", finalOps)
	fmt.Printf("Total errors: %d\n", finalErrors)
	if finalOps == 0 {
		return
	}
	fmt.Printf("Success rate: %.2f%%\n", float64(finalOps-finalErrors)/float64(finalOps)*100)
	fmt.Printf("Duration: %.2f seconds\n", totalDuration)
	fmt.Printf("Throughput: %.2f ops/sec\n", float64(finalOps)/totalDuration)
	fmt.Printf("Average latency: %.2f μs/op\n", totalDuration*1000000/float64(finalOps)*float64(*clients))
}

// runWorker drives one connection until ctx is done. A failed connection
// aborts the whole run.
func runWorker(ctx context.Context, clientID int, address, operation string, keys []string, value []byte, ttl time.Duration, totalOps, errors *atomic.Int64) error {
	c, err := client.Dial(ctx, address)
	if err != nil {
		return fmt.Errorf("client %d: failed to connect: %w", clientID, err)
	}
	defer c.Close()

	keyIndex := clientID % len(keys)
	for ctx.Err() == nil {
		var err error
		switch {
		case operation == "put", operation == "mixed" && keyIndex%2 == 0:
			_, err = c.PutBytes(keys[keyIndex], value, ttl)
		default:
			_, _, err = c.GetBytes(keys[keyIndex])
		}

		if err != nil {
			errors.Add(1)
		}

		totalOps.Add(1)
		keyIndex = (keyIndex + 1) % len(keys)
	}
	return nil
}

func populateKeys(address string, keys []string, value []byte) {
	err := client.WithClient(address, func(c *client.Client) error {
		for i, key := range keys {
			if _, err := c.PutBytes(key, value, 0); err != nil {
				log.Printf("Failed to populate key %d: %v", i, err)
			}

			if i%1000 == 0 {
				fmt.Printf("Populated %d/%d keys\r", i, len(keys))
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to connect for population: %v", err)
	}
	fmt.Printf("Populated %d/%d keys\n", len(keys), len(keys))
}

func generateKeys(count, size int) []string {
	keys := make([]string, count)
	for i := 0; i < count; i++ {
		key := fmt.Sprintf("key_%0*d", size-4, i)
		if len(key) > size {
			key = key[:size]
		}
		keys[i] = key
	}
	return keys
}

func generateValue(size int) []byte {
	value := make([]byte, size)
	for i := 0; i < size; i++ {
		value[i] = byte('a' + (i % 26))
	}
	return value
}
