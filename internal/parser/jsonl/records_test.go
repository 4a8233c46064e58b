package jsonl

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"dep/internal/header"
)

func TestReadAll_KindsAndOrder(t *testing.T) {
	in := `{"file":"b.fits","header":{"KOAID":"KB.20240101.00002.00","EXPTIME":12.5,"FRAMENO":7,"SIMPLE":true,"OBJECT":null,"RA":{"undefined":true}},"extra":{"PROGID":"C123"}}
{"file":"a.fits","id":"explicit","header":{"KOAID":"KB.20240101.00001.00","AIRMASS":1e-5}}
`
	recs, err := ReadAll(context.Background(), strings.NewReader(in), "KOAID")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}

	r := recs[0]
	if r.File != "b.fits" || r.ID != "KB.20240101.00002.00" {
		t.Fatalf("file/id = %q/%q", r.File, r.ID)
	}
	wantKeys := []string{"KOAID", "EXPTIME", "FRAMENO", "SIMPLE", "OBJECT", "RA"}
	if got := r.Header.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Fatalf("keys = %v, want %v", got, wantKeys)
	}

	kinds := map[string]header.Kind{
		"KOAID":   header.KindString,
		"EXPTIME": header.KindFloat,
		"FRAMENO": header.KindInt,
		"SIMPLE":  header.KindBool,
		"OBJECT":  header.KindNull,
		"RA":      header.KindUndefined,
	}
	for k, want := range kinds {
		v, _ := r.Header.Get(k)
		if v.Kind != want {
			t.Errorf("%s kind = %v, want %v", k, v.Kind, want)
		}
	}
	if v, src := r.Resolve("PROGID"); src != header.FromExtra || v.S != "C123" {
		t.Errorf("PROGID resolve = %+v from %v", v, src)
	}

	if recs[1].ID != "explicit" {
		t.Errorf("explicit id not honored: %q", recs[1].ID)
	}
	if v, _ := recs[1].Header.Get("AIRMASS"); v.Kind != header.KindFloat || v.F != 1e-5 {
		t.Errorf("AIRMASS = %+v", v)
	}
}

func TestReadAll_Empty(t *testing.T) {
	recs, err := ReadAll(context.Background(), strings.NewReader("\n  \n"), "KOAID")
	if err != nil || len(recs) != 0 {
		t.Fatalf("got %v, %v", recs, err)
	}
}

func TestReadAll_Malformed(t *testing.T) {
	_, err := ReadAll(context.Background(), strings.NewReader(`{"header": [1,2]}`), "KOAID")
	if err == nil {
		t.Fatal("expected error for array header")
	}
	if !strings.Contains(err.Error(), "record 1") {
		t.Fatalf("error lacks record position: %v", err)
	}
}

func TestReadAll_Extensions(t *testing.T) {
	in := `{"file":"a.fits","header":{"KOAID":"KB.1"},"extensions":[{"name":"TRACE","columns":[{"name":"X","width":8},{"name":"LABEL","width":4}],"rows":[[1.5,"a"],[2,null]]}]}`
	recs, err := ReadAll(context.Background(), strings.NewReader(in), "KOAID")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	exts := recs[0].Extensions
	if len(exts) != 1 || exts[0].Name != "TRACE" || len(exts[0].Columns) != 2 {
		t.Fatalf("extensions = %+v", exts)
	}
	want := [][]string{{"1.5", "a"}, {"2", ""}}
	if !reflect.DeepEqual(exts[0].Rows, want) {
		t.Fatalf("rows = %v, want %v", exts[0].Rows, want)
	}
	if exts[0].Columns[0] != (header.ExtColumn{Name: "X", Width: 8}) {
		t.Fatalf("column = %+v", exts[0].Columns[0])
	}
}
