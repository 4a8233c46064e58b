package table

import (
	"bufio"
	"fmt"
	"io"
	"unicode/utf8"

	"dep/internal/header"
	"dep/internal/validate"
)

// FileEntry pairs an archived input file with its record id.
type FileEntry struct {
	File string
	ID   string
}

// WriteFileList writes one "<file> <id>" line per entry followed by the total
// count line.
func WriteFileList(w io.Writer, entries []FileEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s %s\n", e.File, e.ID); err != nil {
			return fmt.Errorf("write file list: %w", err)
		}
	}
	if _, err := fmt.Fprintf(bw, "    %d Total FITS files\n", len(entries)); err != nil {
		return fmt.Errorf("write file list: %w", err)
	}
	return bw.Flush()
}

// ExtColumn is one column of an extension header table.
type ExtColumn = header.ExtColumn

// WriteExtTable writes an extension header table: a comment line naming the
// extension, a preamble where every column is typed char and the null row is
// blank, then one line per row. Column widths are widened to fit the name.
// Rows shorter than the column list render blank cells.
func WriteExtTable(w io.Writer, extName string, cols []ExtColumn, rows [][]string) error {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = max(c.Width, utf8.RuneCountInString(c.Name), 1)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ Extended Header Name: %s\n", extName)

	lines := [PreambleLines]func(i int) string{
		func(i int) string { return cols[i].Name },
		func(int) string { return "char" },
		func(int) string { return "" },
		func(int) string { return "" },
	}
	for _, pick := range lines {
		for i := range cols {
			bw.WriteByte('|')
			bw.WriteString(validate.Pad(pick(i), widths[i]))
		}
		bw.WriteString("|\n")
	}

	for _, r := range rows {
		for i := range cols {
			v := ""
			if i < len(r) {
				v = r[i]
			}
			bw.WriteByte(' ')
			bw.WriteString(validate.Pad(v, widths[i]))
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write ext table %s: %w", extName, err)
	}
	return nil
}

// ExtTableName returns the file name of the i-th extension table of base,
// e.g. "KB.20240101.00001.00.ext1.TRACE.tbl" for base "KB.20240101.00001.00".
func ExtTableName(base string, i int, extName string) string {
	return fmt.Sprintf("%s.ext%d.%s.tbl", base, i, extName)
}
