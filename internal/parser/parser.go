package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leafdb/leafdb/internal/leafdb"
)

var (
	ErrMalformedCommand = fmt.Errorf("malformed command")
	ErrIDOutOfRange     = fmt.Errorf("id must fit an unsigned 32-bit integer")
)

type Kind int

const (
	Insert Kind = iota + 1
	WhereEmail
	Select
)

// Command is one parsed statement from the prompt.
type Command struct {
	Kind  Kind
	Row   leafdb.Row
	Email string
}

// Parse turns one input line into a Command. Supported statements:
//
//	insert <id> <username> <email>
//	where email=<value>
//	select
func Parse(input string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty input", ErrMalformedCommand)
	}

	switch strings.ToLower(fields[0]) {
	case "insert":
		return parseInsert(fields)
	case "where":
		return parseWhere(fields)
	case "select":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("%w: select takes no arguments", ErrMalformedCommand)
		}
		return Command{Kind: Select}, nil
	default:
		return Command{}, fmt.Errorf("%w: unrecognized statement %q", ErrMalformedCommand, fields[0])
	}
}

func parseInsert(fields []string) (Command, error) {
	if len(fields) != 4 {
		return Command{}, fmt.Errorf("%w: expected insert <id> <username> <email>", ErrMalformedCommand)
	}

	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q", ErrIDOutOfRange, fields[1])
	}
	username := fields[2]
	email := fields[3]
	if len(username) > leafdb.UsernameSize {
		return Command{}, fmt.Errorf("%w: username exceeds %d bytes", ErrMalformedCommand, leafdb.UsernameSize)
	}
	if len(email) > leafdb.EmailSize {
		return Command{}, fmt.Errorf("%w: email exceeds %d bytes", ErrMalformedCommand, leafdb.EmailSize)
	}

	return Command{
		Kind: Insert,
		Row: leafdb.Row{
			ID:       uint32(id),
			Username: username,
			Email:    email,
		},
	}, nil
}

func parseWhere(fields []string) (Command, error) {
	if len(fields) != 2 {
		return Command{}, fmt.Errorf("%w: expected where email=<value>", ErrMalformedCommand)
	}

	column, value, found := strings.Cut(fields[1], "=")
	if !found || !strings.EqualFold(column, "email") {
		return Command{}, fmt.Errorf("%w: only email equality is supported", ErrMalformedCommand)
	}
	if value == "" {
		return Command{}, fmt.Errorf("%w: empty email value", ErrMalformedCommand)
	}

	return Command{Kind: WhereEmail, Email: value}, nil
}
