package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafdb/leafdb/internal/leafdb"
)

func TestParse_Insert(t *testing.T) {
	t.Parallel()

	aCommand, err := Parse("insert 7 alice alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, Insert, aCommand.Kind)
	assert.Equal(t, leafdb.Row{
		ID:       7,
		Username: "alice",
		Email:    "alice@example.com",
	}, aCommand.Row)
}

func TestParse_Insert_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
		err   error
	}{
		{"missing fields", "insert 7 alice", ErrMalformedCommand},
		{"too many fields", "insert 7 alice a@example.com extra", ErrMalformedCommand},
		{"non numeric id", "insert abc alice a@example.com", ErrIDOutOfRange},
		{"negative id", "insert -1 alice a@example.com", ErrIDOutOfRange},
		{"id overflows uint32", "insert 4294967296 alice a@example.com", ErrIDOutOfRange},
		{"username too long", "insert 1 " + strings.Repeat("u", leafdb.UsernameSize+1) + " a@example.com", ErrMalformedCommand},
		{"email too long", "insert 1 alice " + strings.Repeat("e", leafdb.EmailSize+1), ErrMalformedCommand},
	}

	for _, aTestCase := range testCases {
		aTestCase := aTestCase
		t.Run(aTestCase.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(aTestCase.input)
			require.ErrorIs(t, err, aTestCase.err)
		})
	}
}

func TestParse_Insert_MaxID(t *testing.T) {
	t.Parallel()

	aCommand, err := Parse("insert 4294967295 alice alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), aCommand.Row.ID)
}

func TestParse_WhereEmail(t *testing.T) {
	t.Parallel()

	aCommand, err := Parse("where email=alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, WhereEmail, aCommand.Kind)
	assert.Equal(t, "alice@example.com", aCommand.Email)
}

func TestParse_WhereEmail_Errors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"where",
		"where email",
		"where email=",
		"where name=alice",
		"where email=a b",
	} {
		_, err := Parse(input)
		require.ErrorIs(t, err, ErrMalformedCommand, input)
	}
}

func TestParse_Select(t *testing.T) {
	t.Parallel()

	aCommand, err := Parse("select")
	require.NoError(t, err)
	assert.Equal(t, Select, aCommand.Kind)

	_, err = Parse("select extra")
	require.ErrorIs(t, err, ErrMalformedCommand)
}

func TestParse_Unrecognized(t *testing.T) {
	t.Parallel()

	_, err := Parse("drop table users")
	require.ErrorIs(t, err, ErrMalformedCommand)

	_, err = Parse("   ")
	require.ErrorIs(t, err, ErrMalformedCommand)
}

func TestParse_CaseInsensitiveKeyword(t *testing.T) {
	t.Parallel()

	aCommand, err := Parse("INSERT 1 Alice Alice@Example.com")
	require.NoError(t, err)
	// Keywords fold, values keep their case
	assert.Equal(t, "Alice", aCommand.Row.Username)
	assert.Equal(t, "Alice@Example.com", aCommand.Row.Email)
}
