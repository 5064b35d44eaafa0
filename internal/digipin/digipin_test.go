package digipin

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
)

func TestEncode_RegressionVectors(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"bengaluru", 12.9716, 77.5946, "4P3-JK8-52C9"},
		{"dak_bhawan", 28.622788, 77.213033, "39J-49L-L8T4"},
		{"south_west_corner", 2.5, 63.5, "LLL-LLL-LLLL"},
		{"north_east_corner", 38.5, 99.5, "888-888-8888"},
		{"north_west_corner", 38.5, 63.5, "FFF-FFF-FFFF"},
		{"south_east_corner", 2.5, 99.5, "TTT-TTT-TTTT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.lat, tc.lon)
			if err != nil {
				t.Fatalf("Encode(%v,%v): %v", tc.lat, tc.lon, err)
			}
			if got != tc.want {
				t.Fatalf("Encode(%v,%v)=%s want %s", tc.lat, tc.lon, got, tc.want)
			}
		})
	}
}

func TestEncode_RangeValidation(t *testing.T) {
	bad := []struct {
		lat, lon float64
		axis     Axis
	}{
		{2.4999, 80, AxisLatitude},
		{38.5001, 80, AxisLatitude},
		{-10, 80, AxisLatitude},
		{math.NaN(), 80, AxisLatitude},
		{20, 63.4999, AxisLongitude},
		{20, 99.5001, AxisLongitude},
		{20, math.Inf(1), AxisLongitude},
	}
	for _, tc := range bad {
		_, err := Encode(tc.lat, tc.lon)
		var oor *OutOfRangeError
		if !errors.As(err, &oor) {
			t.Fatalf("Encode(%v,%v) err=%v, want OutOfRangeError", tc.lat, tc.lon, err)
		}
		if oor.Axis != tc.axis {
			t.Fatalf("Encode(%v,%v) axis=%s want %s", tc.lat, tc.lon, oor.Axis, tc.axis)
		}
	}

	for _, lat := range []float64{2.5, 2.500001, 20, 38.499999, 38.5} {
		for _, lon := range []float64{63.5, 63.500001, 81.5, 99.499999, 99.5} {
			if _, err := Encode(lat, lon); err != nil {
				t.Fatalf("Encode(%v,%v) unexpected err: %v", lat, lon, err)
			}
		}
	}
}

func TestOutOfRangeError_MessageNamesAxisValueAndBound(t *testing.T) {
	_, err := Encode(40, 80)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"latitude", "2.5", "38.5", "40"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestEncode_FormatInvariant(t *testing.T) {
	for lat := 2.5; lat <= 38.5; lat += 1.37 {
		for lon := 63.5; lon <= 99.5; lon += 1.91 {
			code, err := Encode(lat, lon)
			if err != nil {
				t.Fatalf("Encode(%v,%v): %v", lat, lon, err)
			}
			if len(code) != 12 {
				t.Fatalf("len(%q)=%d want 12", code, len(code))
			}
			if code[3] != Separator || code[7] != Separator {
				t.Fatalf("separators misplaced in %q", code)
			}
			if n := strings.Count(code, string(Separator)); n != 2 {
				t.Fatalf("%q has %d separators", code, n)
			}
			for i, r := range strings.ReplaceAll(code, "-", "") {
				if _, ok := symbolPos[byte(r)]; !ok {
					t.Fatalf("%q symbol %d (%q) not in grid", code, i, r)
				}
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	a, _ := Encode(21.1458, 79.0882)
	b, _ := Encode(21.1458, 79.0882)
	if a != b {
		t.Fatalf("encode not deterministic: %s vs %s", a, b)
	}
	c1, _ := Decode(a)
	c2, _ := Decode(a)
	if c1 != c2 {
		t.Fatalf("decode not deterministic: %+v vs %+v", c1, c2)
	}
}

func TestDecode_RoundTripStaysInsideLeafCell(t *testing.T) {
	latCell, lonCell := CellSize(Levels)
	points := []Coordinate{
		{12.9716, 77.5946},
		{28.622788, 77.213033},
		{22.5726, 88.3639},
		{19.0760, 72.8777},
		{2.5, 63.5},
		{38.5, 99.5},
		{38.5, 63.5},
		{2.5, 99.5},
		{20.5, 81.5},
	}
	for lat := 2.5; lat <= 38.5; lat += 0.731 {
		for lon := 63.5; lon <= 99.5; lon += 0.917 {
			points = append(points, Coordinate{lat, lon})
		}
	}
	for _, p := range points {
		code, err := Encode(p.Lat, p.Lon)
		if err != nil {
			t.Fatalf("Encode(%v): %v", p, err)
		}
		got, err := Decode(code)
		if err != nil {
			t.Fatalf("Decode(%s): %v", code, err)
		}
		if d := math.Abs(got.Lat - p.Lat); d >= latCell {
			t.Fatalf("%s lat drift %g >= cell %g (in=%v out=%v)", code, d, latCell, p, got)
		}
		if d := math.Abs(got.Lon - p.Lon); d >= lonCell {
			t.Fatalf("%s lon drift %g >= cell %g (in=%v out=%v)", code, d, lonCell, p, got)
		}
		again, err := Encode(got.Lat, got.Lon)
		if err != nil || again != code {
			t.Fatalf("re-encoding center of %s gave %s (err=%v)", code, again, err)
		}
	}
}

func TestDecode_KnownCenter(t *testing.T) {
	got, err := Decode("39J-49L-L8T4")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.FormattedLat() != "28.622793" || got.FormattedLon() != "77.213049" {
		t.Fatalf("center=%s", got)
	}
}

func TestDecode_AcceptsMissingSeparators(t *testing.T) {
	a, err := Decode("4P3JK852C9")
	if err != nil {
		t.Fatalf("Decode bare: %v", err)
	}
	b, _ := Decode("4P3-JK8-52C9")
	if a != b {
		t.Fatalf("bare and formatted decode differ: %+v vs %+v", a, b)
	}
}

func TestDecode_InvalidCodes(t *testing.T) {
	cases := []struct {
		code    string
		char    rune
		pos     int
		wantLen int
	}{
		{code: "ABC-DEF-GHIJ", char: 'A', pos: 1},
		{code: "AB-CD", wantLen: 4},
		{code: "XY", wantLen: 2},
		{code: "FC-98", wantLen: 4},
		{code: "FC9-8J3-27K4L", wantLen: 11},
		{code: "4P3-JK8-52C0", char: '0', pos: 12},
		{code: "4p3-JK8-52C9", char: 'p', pos: 2},
		{code: ""},
		{code: "---"},
	}
	for _, tc := range cases {
		_, err := Decode(tc.code)
		var ice *InvalidCodeError
		if !errors.As(err, &ice) {
			t.Fatalf("Decode(%q) err=%v want InvalidCodeError", tc.code, err)
		}
		if ice.Char != tc.char || ice.Position != tc.pos {
			t.Fatalf("Decode(%q) char=%q pos=%d want %q/%d", tc.code, ice.Char, ice.Position, tc.char, tc.pos)
		}
		if tc.char == 0 && ice.Length != tc.wantLen {
			t.Fatalf("Decode(%q) length=%d want %d", tc.code, ice.Length, tc.wantLen)
		}
	}
}

func TestEncode_MonotonicNarrowing(t *testing.T) {
	lat, lon := 12.9716, 77.5946
	box := Domain()
	for level := 1; level <= Levels; level++ {
		row, col := locate(box, lat, lon)
		next := encodeCell(box, row, col)
		assertStrictlyNarrower(t, level, box, next)
		if !next.Contains(Coordinate{lat, lon}) {
			t.Fatalf("level %d cell %v lost the point", level, next)
		}
		box = next
	}
}

func TestDecode_MonotonicNarrowingAndFullWidthCells(t *testing.T) {
	symbols, err := Normalize("4P3-JK8-52C9")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	box := Domain()
	for i := 0; i < len(symbols); i++ {
		p := symbolPos[symbols[i]]
		next := decodeCell(box, p.row, p.col)
		assertStrictlyNarrower(t, i+1, box, next)

		wantH, wantW := CellSize(i + 1)
		if math.Abs(next.Height()-wantH) > wantH*1e-9 || math.Abs(next.Width()-wantW) > wantW*1e-9 {
			t.Fatalf("level %d cell %gx%g want %gx%g", i+1, next.Height(), next.Width(), wantH, wantW)
		}
		box = next
	}
}

func assertStrictlyNarrower(t *testing.T, level int, outer, inner Bounds) {
	t.Helper()
	if inner.MinLat < outer.MinLat || inner.MaxLat > outer.MaxLat ||
		inner.MinLon < outer.MinLon || inner.MaxLon > outer.MaxLon {
		t.Fatalf("level %d: %v not inside %v", level, inner, outer)
	}
	if inner.Height() <= 0 || inner.Width() <= 0 {
		t.Fatalf("level %d: empty cell %v", level, inner)
	}
	if inner.Height() >= outer.Height() || inner.Width() >= outer.Width() {
		t.Fatalf("level %d: %v not smaller than %v", level, inner, outer)
	}
}

func TestPrefixBoundsContainsLeafCell(t *testing.T) {
	leaf, err := DecodeBounds("39J-49L-L8T4")
	if err != nil {
		t.Fatalf("DecodeBounds: %v", err)
	}
	for level := 1; level <= Levels; level++ {
		parent, err := Parent("39J-49L-L8T4", level)
		if err != nil {
			t.Fatalf("Parent(%d): %v", level, err)
		}
		pb, err := PrefixBounds(parent)
		if err != nil {
			t.Fatalf("PrefixBounds(%s): %v", parent, err)
		}
		if !pb.Contains(leaf.Center()) {
			t.Fatalf("level %d prefix %s bounds %v miss leaf center", level, parent, pb)
		}
	}
	if _, err := PrefixBounds(""); err == nil {
		t.Fatal("expected error for empty prefix")
	}
	if _, err := PrefixBounds("39J-49L-L8T4-F"); err == nil {
		t.Fatal("expected error for 11-symbol prefix")
	}
}

func TestParentAndChildren(t *testing.T) {
	p, err := Parent("39J-49L-L8T4", 6)
	if err != nil || p != "39J-49L" {
		t.Fatalf("Parent=%q err=%v", p, err)
	}
	if p, _ := Parent("39J49LL8T4", 4); p != "39J-4" {
		t.Fatalf("Parent level 4=%q", p)
	}
	if _, err := Parent("39J", 4); err == nil {
		t.Fatal("expected error for short code")
	}
	if _, err := Parent("39J-49L-L8T4", 0); err == nil {
		t.Fatal("expected error for level 0")
	}

	kids, err := Children("39J-49")
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(kids) != 16 || kids[0] != "39J-49F" || kids[15] != "39J-49T" {
		t.Fatalf("unexpected children: %v", kids)
	}
	if _, err := Children("39J-49L-L8T4"); err == nil {
		t.Fatal("expected error for leaf children")
	}
}

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"39":         "39",
		"39J":        "39J",
		"39J4":       "39J-4",
		"39J49LL":    "39J-49L-L",
		"39J49LL8T4": "39J-49L-L8T4",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Fatalf("Format(%q)=%q want %q", in, got, want)
		}
	}
}

func TestConcurrentCalls(t *testing.T) {
	want, _ := Encode(12.9716, 77.5946)
	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Encode(12.9716, 77.5946)
			if err != nil || got != want {
				errs <- got
				return
			}
			if _, err := Decode(got); err != nil {
				errs <- err.Error()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatalf("concurrent call mismatch: %s", e)
	}
}

func BenchmarkEncode(b *testing.B) {
	for b.Loop() {
		_, _ = Encode(12.9716, 77.5946)
	}
}

func BenchmarkDecode(b *testing.B) {
	for b.Loop() {
		_, _ = Decode("4P3-JK8-52C9")
	}
}
