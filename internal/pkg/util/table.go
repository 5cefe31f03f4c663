package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/leafdb/leafdb/internal/leafdb"
)

const (
	truncatedStringEnd = " ..."
	idColumnLength     = 10
	maxLength          = 40
)

var columnNames = []string{"id", "username", "email"}

func PrintTableHeader(w io.Writer) {
	columnSize, tableWidth := computeTableSize()

	// add top horizontal border
	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", tableWidth-2))

	for i, name := range columnNames {
		// pad with columnSize[i] spaces on the right rather than the left
		// (left-justify the field), an asterisk * in the format specifies
		// that the padding size should be given as an argument
		fmt.Fprintf(w, "| %-*s ", columnSize[i], name)
	}
	fmt.Fprintf(w, "|\n")

	// add horizontal border bellow the header row
	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", tableWidth-2))
}

func PrintTableRow(w io.Writer, aRow leafdb.Row) {
	columnSize, _ := computeTableSize()

	values := []string{
		fmt.Sprint(aRow.ID),
		aRow.Username,
		aRow.Email,
	}
	for i, aValue := range values {
		r := []rune(aValue)
		if len(r) >= maxLength-len(truncatedStringEnd) {
			aValue = string(r[0:maxLength-len(truncatedStringEnd)]) + truncatedStringEnd
		}
		fmt.Fprintf(w, "| %-*s ", columnSize[i], aValue)
	}
	fmt.Fprintf(w, "|\n")
}

func PrintTableEnd(w io.Writer) {
	_, tableWidth := computeTableSize()

	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", tableWidth-2))
}

func computeTableSize() ([]int, int) {
	columnSize := make([]int, len(columnNames))
	for i := range columnNames {
		if i == 0 {
			columnSize[i] = idColumnLength
		} else {
			columnSize[i] = maxLength
		}
	}

	// left border is | followed by a space, right border is space followed by | (2+2=4)
	// then between each column we have space, |, space (3)
	tableWidth := 4 + (len(columnSize)-1)*3
	for _, columnWidth := range columnSize {
		tableWidth += columnWidth
	}

	return columnSize, tableWidth
}
