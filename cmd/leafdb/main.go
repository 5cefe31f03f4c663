package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/leafdb/leafdb/internal/leafdb"
	"github.com/leafdb/leafdb/internal/parser"
	"github.com/leafdb/leafdb/internal/pkg/logging"
	"github.com/leafdb/leafdb/internal/pkg/util"
)

const cliName string = "leafdb"

func printPrompt() {
	fmt.Print(cliName, "> ")
}

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Exit
	Constants
)

func isMetaCommand(inputBuffer string) bool {
	return len(inputBuffer) > 0 && inputBuffer[:1] == "."
}

func doMetaCommand(inputBuffer string) metaCommand {
	switch strings.ToLower(inputBuffer) {
	case "help":
		return Help
	case "exit":
		return Exit
	case "constants":
		return Constants
	default:
		return Unknown
	}
}

func printConstants() {
	fmt.Printf("page size:           %d\n", leafdb.PageSize)
	fmt.Printf("row size:            %d\n", leafdb.RowSize)
	fmt.Printf("node header size:    %d\n", leafdb.NodeHeaderSize)
	fmt.Printf("max cells per leaf:  %d\n", leafdb.MaxLeafCells(leafdb.RowSize))
	fmt.Printf("max cells per node:  %d\n", leafdb.MaxInternalCells())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbName := flag.String("db", "leafdb", "base name for the .db/.idx/.wal files")
	flag.Parse()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	logger, err := logging.New(level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flushes buffer, if any

	aDatabase, err := leafdb.OpenDatabase(ctx, logger, *dbName)
	if err != nil {
		panic(err)
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		reader := bufio.NewScanner(os.Stdin)
		printPrompt()

		// REPL (Read-eval-print loop) start
		for reader.Scan() {
			if ctx.Err() != nil {
				break
			}

			inputBuffer := strings.TrimSpace(reader.Text())
			if isMetaCommand(inputBuffer) {
				switch doMetaCommand(inputBuffer[1:]) {
				case Help:
					fmt.Println(".help       - Show available commands")
					fmt.Println(".exit       - Closes program")
					fmt.Println(".constants  - Print storage layout constants")
					fmt.Println("insert <id> <username> <email>")
					fmt.Println("where email=<value>")
					fmt.Println("select")
				case Exit:
					return
				case Constants:
					printConstants()
				case Unknown:
					fmt.Printf("Unrecognized meta command: %s\n", inputBuffer)
				}
			} else if inputBuffer != "" {
				executeCommand(ctx, aDatabase, inputBuffer)
			}
			printPrompt()
		}
		// Print an additional line if we encountered an EOF character
		fmt.Println()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-done:
	}

	if err := aDatabase.Close(ctx); err != nil {
		fmt.Printf("error closing database: %s\n", err)
	}

	cancel()
}

func executeCommand(ctx context.Context, aDatabase *leafdb.Database, inputBuffer string) {
	aCommand, err := parser.Parse(inputBuffer)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	switch aCommand.Kind {
	case parser.Insert:
		if err := aDatabase.Insert(ctx, aCommand.Row); err != nil {
			fmt.Printf("Error executing insert: %s\n", err)
			return
		}
		fmt.Println("Rows affected: 1")
	case parser.WhereEmail:
		aRow, err := aDatabase.LookupByEmail(ctx, aCommand.Email)
		if errors.Is(err, leafdb.ErrKeyNotFound) {
			fmt.Println("No rows found")
			return
		}
		if err != nil {
			fmt.Printf("Error executing where: %s\n", err)
			return
		}
		util.PrintTableHeader(os.Stdout)
		util.PrintTableRow(os.Stdout, aRow)
		util.PrintTableEnd(os.Stdout)
	case parser.Select:
		count := 0
		util.PrintTableHeader(os.Stdout)
		err := aDatabase.Scan(ctx, func(aRow leafdb.Row) error {
			util.PrintTableRow(os.Stdout, aRow)
			count++
			return nil
		})
		if err != nil {
			fmt.Printf("Error executing select: %s\n", err)
			return
		}
		util.PrintTableEnd(os.Stdout)
		fmt.Printf("Rows returned: %d\n", count)
	}
}
