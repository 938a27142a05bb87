package types

import (
	"testing"
)

func TestParse(t *testing.T) {
	tbl := NewTable(4)
	tests := []struct {
		spec  string
		size  int64
		align int64
		str   string
	}{
		{"char", 1, 1, "char"},
		{"unsigned  short", 2, 2, "unsigned short"},
		{"int", 4, 4, "int"},
		{"long", 4, 4, "long"},
		{"char*", 4, 4, "char*"},
		{"int**", 4, 4, "int**"},
		{"int[10]", 40, 4, "int[10]"},
		{"char[3]", 3, 1, "char[3]"},
		{"int[2][3]", 24, 4, "int[2][3]"},
		{"char*[4]", 16, 4, "char*[4]"},
	}
	for _, tt := range tests {
		typ, err := tbl.Parse(tt.spec)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.spec, err)
		}
		if typ.Size() != tt.size || typ.Alignment() != tt.align || typ.String() != tt.str {
			t.Errorf("Parse(%q) = %s size %d align %d, want %s size %d align %d",
				tt.spec, typ, typ.Size(), typ.Alignment(), tt.str, tt.size, tt.align)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tbl := NewTable(4)
	for _, spec := range []string{"", "float", "int[", "int[x]", "int[-1]", "void[2]", "int[4611686018427387904]", "char[3037000500][3037000500]"} {
		if _, err := tbl.Parse(spec); err == nil {
			t.Errorf("Parse(%q): expected error", spec)
		}
	}
}

func TestLongFollowsPointerSize(t *testing.T) {
	tbl := NewTable(8)
	long, _ := tbl.Lookup("long")
	if long.Size() != 8 {
		t.Fatalf("long on an 8-byte target should be 8 bytes, got %d", long.Size())
	}
	if p := tbl.PointerTo(long); p.Size() != 8 || !p.IsPointer() || !p.IsScalar() {
		t.Fatalf("unexpected pointer type %s (%d)", p, p.Size())
	}
}
