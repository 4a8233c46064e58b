package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ErrNoSuchFile is returned by Load when the table path does not exist.
var ErrNoSuchFile = errors.New("no such table file")

// DefaultIDColumn names the column that identifies a row.
const DefaultIDColumn = "KOAID"

// Row is one record line of a loaded table.
type Row struct {
	// ID is the value of the id column ("" when the table has none).
	ID     string
	Values map[string]string
}

// Table is a loaded table file.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Load reads the table at path. A missing path yields an error matching
// ErrNoSuchFile so batch callers can tell it apart from parse failures.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchFile, path)
		}
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f, path, DefaultIDColumn)
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a table from r. Column boundaries come from the first line:
// it is split on '|', segments of length <= 1 are dropped, and a segment of
// width w spans w+1 characters of every line. The three preamble lines after
// the first are skipped. Cells are stripped of '|' and spaces.
func Parse(r io.Reader, name, idColumn string) (*Table, error) {
	sc := bufio.NewScanner(transform.NewReader(r, runes.ReplaceIllFormed()))
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)

	t := &Table{Name: name}
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return t, nil
	}
	first := strings.TrimRight(sc.Text(), "\r")

	var widths []int
	for _, seg := range strings.Split(first, "|") {
		if n := len([]rune(seg)); n > 1 {
			widths = append(widths, n+1)
		}
	}
	t.Columns = splitFixed(first, widths)

	for skipped := 0; skipped < PreambleLines-1; skipped++ {
		if !sc.Scan() {
			return t, sc.Err()
		}
	}

	idIdx := -1
	for i, c := range t.Columns {
		if c == idColumn {
			idIdx = i
			break
		}
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		cells := splitFixed(line, widths)
		row := Row{Values: make(map[string]string, len(cells))}
		for i, c := range t.Columns {
			row.Values[c] = cells[i]
		}
		if idIdx >= 0 {
			row.ID = cells[idIdx]
		}
		t.Rows = append(t.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// splitFixed slices line into len(widths) cells by rune offsets. Cells past
// the end of a short line are empty.
func splitFixed(line string, widths []int) []string {
	rs := []rune(line)
	out := make([]string, len(widths))
	pos := 0
	for i, w := range widths {
		if pos >= len(rs) {
			break
		}
		end := min(pos+w, len(rs))
		out[i] = strings.Trim(string(rs[pos:end]), "| ")
		pos = end
	}
	return out
}

// Column returns the values of column name in row order.
func (t *Table) Column(name string) []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r.Values[name])
	}
	return out
}
