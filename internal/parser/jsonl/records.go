// Package jsonl decodes the record stream handed to a generation run by the
// upstream file walk: one JSON object per record, whitespace separated
// (JSONL/NDJSON), of the form
//
//	{"file": "KB.20240101.00001.fits", "header": {...}, "extra": {...},
//	 "extensions": [{"name": "TRACE", "columns": [{"name": "X", "width": 8}], "rows": [[1.5]]}]}
//
// Header and extra objects are decoded token by token so that keyword order is
// preserved. Values map onto header.Value as follows:
//
//   - JSON integers → KindInt, other numbers → KindFloat
//   - true/false → KindBool, null → KindNull, strings → KindString
//   - {"undefined": true} → KindUndefined (the header's undefined marker)
//   - any other object or array → KindString holding the raw JSON text
package jsonl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"dep/internal/header"
)

// Decoder reads records from a JSONL stream.
type Decoder struct {
	dec      *json.Decoder
	idColumn string
	line     int
}

// NewDecoder returns a Decoder reading from r. idColumn names the keyword
// whose value becomes Record.ID when the object carries no explicit "id".
func NewDecoder(r io.Reader, idColumn string) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{dec: dec, idColumn: idColumn}
}

// Next decodes the next record. It returns io.EOF after the last one.
func (d *Decoder) Next() (header.Record, error) {
	if !d.dec.More() {
		return header.Record{}, io.EOF
	}
	d.line++

	rec := header.Record{Header: header.NewLookup(), Extra: header.NewLookup()}
	if err := expectDelim(d.dec, '{'); err != nil {
		return rec, fmt.Errorf("record %d: %w", d.line, err)
	}
	for d.dec.More() {
		key, err := readKey(d.dec)
		if err != nil {
			return rec, fmt.Errorf("record %d: %w", d.line, err)
		}
		switch key {
		case "file":
			if err := d.dec.Decode(&rec.File); err != nil {
				return rec, fmt.Errorf("record %d: file: %w", d.line, err)
			}
		case "id":
			if err := d.dec.Decode(&rec.ID); err != nil {
				return rec, fmt.Errorf("record %d: id: %w", d.line, err)
			}
		case "header":
			if err := decodeLookup(d.dec, rec.Header); err != nil {
				return rec, fmt.Errorf("record %d: header: %w", d.line, err)
			}
		case "extra":
			if err := decodeLookup(d.dec, rec.Extra); err != nil {
				return rec, fmt.Errorf("record %d: extra: %w", d.line, err)
			}
		case "extensions":
			exts, err := decodeExtensions(d.dec)
			if err != nil {
				return rec, fmt.Errorf("record %d: extensions: %w", d.line, err)
			}
			rec.Extensions = exts
		default:
			var skip json.RawMessage
			if err := d.dec.Decode(&skip); err != nil {
				return rec, fmt.Errorf("record %d: %s: %w", d.line, key, err)
			}
		}
	}
	if err := expectDelim(d.dec, '}'); err != nil {
		return rec, fmt.Errorf("record %d: %w", d.line, err)
	}

	if rec.ID == "" && d.idColumn != "" {
		if v, src := rec.Resolve(d.idColumn); src != header.FromNone && v.Kind == header.KindString {
			rec.ID = v.S
		}
	}
	return rec, nil
}

// ReadAll decodes every record from r. It stops early when ctx is done.
func ReadAll(ctx context.Context, r io.Reader, idColumn string) ([]header.Record, error) {
	d := NewDecoder(r, idColumn)
	var out []header.Record
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	k, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return k, nil
}

func decodeLookup(dec *json.Decoder, into *header.Lookup) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		v, err := valueFromRaw(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		into.Set(key, v)
	}
	return expectDelim(dec, '}')
}

type rawExtension struct {
	Name    string `json:"name"`
	Columns []struct {
		Name  string `json:"name"`
		Width int    `json:"width"`
	} `json:"columns"`
	Rows [][]json.RawMessage `json:"rows"`
}

// decodeExtensions decodes the extension list; cells are rendered with
// header.Value.String so numbers print like header values.
func decodeExtensions(dec *json.Decoder) ([]header.Extension, error) {
	var raws []rawExtension
	if err := dec.Decode(&raws); err != nil {
		return nil, err
	}
	out := make([]header.Extension, 0, len(raws))
	for _, re := range raws {
		ext := header.Extension{Name: re.Name}
		for _, c := range re.Columns {
			ext.Columns = append(ext.Columns, header.ExtColumn{Name: c.Name, Width: c.Width})
		}
		for _, row := range re.Rows {
			cells := make([]string, len(row))
			for i, raw := range row {
				v, err := valueFromRaw(raw)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", re.Name, err)
				}
				if v.Kind != header.KindNull {
					cells[i] = v.String()
				}
			}
			ext.Rows = append(ext.Rows, cells)
		}
		out = append(out, ext)
	}
	return out, nil
}

func valueFromRaw(raw json.RawMessage) (header.Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return header.Null(), nil
	}
	switch raw[0] {
	case 'n':
		return header.Null(), nil
	case 't':
		return header.Bool(true), nil
	case 'f':
		return header.Bool(false), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return header.Value{}, err
		}
		return header.Str(s), nil
	case '{':
		var marker struct {
			Undefined bool `json:"undefined"`
		}
		if err := json.Unmarshal(raw, &marker); err == nil && marker.Undefined {
			return header.Undefined(), nil
		}
		return header.Str(string(raw)), nil
	case '[':
		return header.Str(string(raw)), nil
	default:
		return numberFromRaw(string(raw))
	}
}

func numberFromRaw(s string) (header.Value, error) {
	if !bytes.ContainsAny([]byte(s), ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return header.Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return header.Value{}, fmt.Errorf("invalid number %q", s)
	}
	return header.Float(f), nil
}
