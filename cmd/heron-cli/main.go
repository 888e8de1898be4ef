package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alignecoderepos/heron/pkg/client"
)

func main() {
	var (
		address = flag.String("addr", "localhost:9010", "Server address")
		ttl     = flag.Duration("ttl", 0, "Time to live for put (0 means no expiry)")
		output  = flag.String("out", "", "Output file for binary values")
		input   = flag.String("in", "", "Input file for binary values (use '-' for stdin)")
	)
	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Println("Usage: heron-cli [options] <command> [args...]")
		fmt.Println("\nCommands:")
		fmt.Println("  put <key> [value]")
		fmt.Println("  get <key>")
		fmt.Println("  remove <key>")
		fmt.Println("  clear")
		fmt.Println("\nOptions:")
		fmt.Println("  -addr string      Server address (default \"localhost:9010\")")
		fmt.Println("  -ttl duration     Time to live for put, e.g. 1500ms or 10s")
		fmt.Println("  -in string        Input file for binary values (use '-' for stdin)")
		fmt.Println("  -out string       Output file for binary values")
		os.Exit(1)
	}

	c, err := client.New(*address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	cmd := strings.ToLower(flag.Args()[0])
	args := flag.Args()[1:]

	switch cmd {
	case "put":
		handlePut(c, args, *input, *ttl)
	case "get":
		handleGet(c, args, *output)
	case "remove", "del":
		handleRemove(c, args)
	case "clear":
		handleClear(c)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

func handlePut(c *client.Client, args []string, inputFile string, ttl time.Duration) {
	if len(args) < 1 || (inputFile == "" && len(args) != 2) {
		fmt.Fprintf(os.Stderr, "Usage: put <key> <value> | -in <file> put <key>\n")
		os.Exit(1)
	}

	var value []byte
	if inputFile != "" {
		var err error
		if inputFile == "-" {
			value, err = io.ReadAll(os.Stdin)
		} else {
			value, err = os.ReadFile(inputFile)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
			os.Exit(1)
		}
	} else {
		value = []byte(args[1])
	}

	status, err := c.PutBytes(args[0], value, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(status)
}

func handleGet(c *client.Client, args []string, outputFile string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: get <key>\n")
		os.Exit(1)
	}

	value, ok, err := c.GetBytes(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !ok {
		fmt.Println(client.StatusNotFound)
		return
	}

	fmt.Printf("%s %d\n", client.StatusGotten, len(value))

	if outputFile != "" {
		err := os.WriteFile(outputFile, value, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Value written to %s\n", outputFile)
	} else {
		os.Stdout.Write(value)
		fmt.Println()
	}
}

func handleRemove(c *client.Client, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: remove <key>\n")
		os.Exit(1)
	}

	status, err := c.Remove(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(status)
}

func handleClear(c *client.Client) {
	status, err := c.Clear()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(status)
}
