package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// required header columns of a keyword format file.
var headerColumns = []string{"keyword", "dataType", "colSize", "allowNull"}

// Load reads a keyword format file from path.
//
// An unreadable file yields *MissingInputError (errors.Is(err, fs.ErrNotExist)
// holds for a missing file). Every row is checked before Load returns; any
// row whose colSize is smaller than its keyword, or whose type or null flag
// is unrecognized, yields *ConfigError.
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MissingInputError{Path: path, Err: err}
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
			return nil, ce
		}
		return nil, &MissingInputError{Path: path, Err: err}
	}
	return s, nil
}

// Parse decodes a tab-separated keyword format definition. Columns are
// located by header name so their order in the file does not matter; rows
// keep their order.
func Parse(r io.Reader) (*Schema, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ConfigError{Reason: "empty keyword format file"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	for _, want := range headerColumns {
		if _, ok := pos[want]; !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("missing column %q in header", want)}
		}
	}

	var fields []FieldSpec
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++
		if isBlank(rec) {
			row--
			continue
		}

		cell := func(name string) string {
			i := pos[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		f, err := parseField(cell("keyword"), cell("dataType"), cell("colSize"), cell("allowNull"))
		if err != nil {
			return nil, &ConfigError{Row: row, Keyword: cell("keyword"), Reason: err.Error()}
		}
		fields = append(fields, f)
	}

	return New(fields)
}

func parseField(keyword, dataType, colSize, allowNull string) (FieldSpec, error) {
	if keyword == "" {
		return FieldSpec{}, errors.New("empty keyword")
	}
	dt, err := ParseDataType(dataType)
	if err != nil {
		return FieldSpec{}, err
	}
	width, err := strconv.Atoi(colSize)
	if err != nil || width <= 0 {
		return FieldSpec{}, fmt.Errorf("colSize %q is not a positive integer", colSize)
	}

	var nullable bool
	switch strings.ToUpper(allowNull) {
	case "Y":
		nullable = true
	case "N":
		nullable = false
	default:
		return FieldSpec{}, fmt.Errorf("allowNull %q must be Y or N", allowNull)
	}

	return FieldSpec{Name: keyword, Type: dt, Width: width, Nullable: nullable}, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
