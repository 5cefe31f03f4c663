package leafdb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leafdb/leafdb/internal/pkg/logging"
)

var (
	gen = newDataGen(uint64(time.Now().Unix()))

	testLogger *zap.Logger
)

func init() {
	logConf := logging.DefaultConfig()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "debug"
	}

	l, err := logging.ParseLevel(level)
	if err != nil {
		panic(err)
	}
	logConf.Level = zap.NewAtomicLevelAt(l)

	testLogger, err = logConf.Build()
	if err != nil {
		panic(err)
	}
}

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed uint64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(int64(seed)),
	}

	return &g
}

func (g *dataGen) Row() Row {
	return Row{
		ID:       g.Uint32(),
		Username: g.Username(),
		Email:    g.Email(),
	}
}

func (g *dataGen) Rows(number int) []Row {
	// Make sure all rows will have unique IDs and emails, this is
	// important in some tests
	idMap := map[uint32]struct{}{}
	emailMap := map[string]struct{}{}
	rows := make([]Row, 0, number)
	for len(rows) < number {
		aRow := g.Row()
		if _, ok := idMap[aRow.ID]; ok {
			continue
		}
		if _, ok := emailMap[aRow.Email]; ok {
			continue
		}
		rows = append(rows, aRow)
		idMap[aRow.ID] = struct{}{}
		emailMap[aRow.Email] = struct{}{}
	}
	return rows
}

func tempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "leafdb-*.db")
	require.NoError(t, err)
	t.Cleanup(func() {
		f.Close()
	})
	return f
}

func newTestTree(t *testing.T, valueSize uint32, unique bool) (*BTree, *Pager) {
	t.Helper()
	aPager, err := NewPager(tempFile(t), PageSize, valueSize, 0)
	require.NoError(t, err)
	aTree, err := NewBTree(context.Background(), testLogger, aPager, valueSize, unique)
	require.NoError(t, err)
	return aTree, aPager
}

func testValue(key uint32, valueSize uint32) []byte {
	value := make([]byte, valueSize)
	copy(value, fmt.Sprintf("value-%d", key))
	return value
}
