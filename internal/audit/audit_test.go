package audit

import (
	"reflect"
	"testing"

	"dep/internal/header"
	"dep/internal/schema"
)

func fixture(t *testing.T) (*schema.Schema, header.Record) {
	t.Helper()
	s, err := schema.New([]schema.FieldSpec{
		{Name: "KOAID", Type: schema.Char, Width: 24},
		{Name: "EXPTIME", Type: schema.Double, Width: 8},
		{Name: "PROGTITL", Type: schema.Char, Width: 50},
		{Name: "OBJECT", Type: schema.Char, Width: 20, Nullable: true},
		{Name: "SEMID", Type: schema.Char, Width: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	h := header.NewLookup()
	for _, k := range []string{"SIMPLE", "KOAID", "COMMENT", "WXTEMP01", "NAXIS", "PROGTL1", "CCDGAIN"} {
		h.Set(k, header.Str("x"))
	}
	e := header.NewLookup()
	e.Set("SEMID", header.Str("2024A_C123"))
	e.Set("DQA_VERS", header.Str("1.0"))
	return s, header.Record{ID: "KB.20240101.00001.00", Header: h, Extra: e}
}

func keywords(as []Advisory, kind AdvisoryKind) []string {
	var out []string
	for _, a := range as {
		if a.Kind == kind {
			out = append(out, a.Keyword)
		}
	}
	return out
}

func TestAudit(t *testing.T) {
	s, rec := fixture(t)

	cases := []struct {
		name       string
		extra      []string
		unexpected []string
	}{
		{"defaults", nil, []string{"WXTEMP01", "NAXIS", "CCDGAIN", "DQA_VERS"}},
		{"substring", []string{"TEMP"}, []string{"NAXIS", "CCDGAIN", "DQA_VERS"}},
		{"prefix", []string{"prefix:CCD", "prefix:GAIN"}, []string{"WXTEMP01", "NAXIS", "DQA_VERS"}},
		{"exact", []string{"exact:NAXI", "exact:NAXIS"}, []string{"WXTEMP01", "CCDGAIN", "DQA_VERS"}},
		{"regexp", []string{`regexp:^DQA_`, `regexp:\d+$`}, []string{"NAXIS", "CCDGAIN"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := New(s, c.extra)
			if err != nil {
				t.Fatal(err)
			}
			got := a.Audit(rec)
			if u := keywords(got, UnexpectedKeyword); !reflect.DeepEqual(u, c.unexpected) {
				t.Errorf("unexpected = %v, want %v", u, c.unexpected)
			}
			// PROGTITL is allow-listed, OBJECT is nullable, SEMID comes from extra.
			if m := keywords(got, MissingRequired); !reflect.DeepEqual(m, []string{"EXPTIME"}) {
				t.Errorf("missing = %v, want [EXPTIME]", m)
			}
		})
	}
}

func TestAudit_Allow(t *testing.T) {
	s, rec := fixture(t)
	a, err := New(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	a.Allow("EXPTIME")
	if m := keywords(a.Audit(rec), MissingRequired); len(m) != 0 {
		t.Errorf("missing = %v, want none", m)
	}
}

func TestParseSkip_Errors(t *testing.T) {
	for _, p := range []string{"regexp:(", "prefix:", ""} {
		if _, err := ParseSkip(p); err == nil {
			t.Errorf("ParseSkip(%q): expected error", p)
		}
	}
	sp, err := ParseSkip("DATE:OBS")
	if err != nil || !sp.Match("XDATE:OBSY") {
		t.Errorf("unknown kind should match as text: %v", err)
	}
}

func TestKeywordReport(t *testing.T) {
	s, rec := fixture(t)
	r := KeywordReport(s, rec)
	wantH := []string{"CCDGAIN", "COMMENT", "DQA_VERS", "NAXIS", "PROGTL1", "SIMPLE", "WXTEMP01"}
	wantS := []string{"EXPTIME", "OBJECT", "PROGTITL"}
	if !reflect.DeepEqual(r.HeaderOnly, wantH) {
		t.Errorf("header only = %v", r.HeaderOnly)
	}
	if !reflect.DeepEqual(r.SchemaOnly, wantS) {
		t.Errorf("schema only = %v", r.SchemaOnly)
	}
}
