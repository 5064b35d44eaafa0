package estimate

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
)

func ptr(v float64) *float64 { return &v }

func fixed(e *Estimator) *Estimator {
	e.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestEstimate_FromCoordinates(t *testing.T) {
	e := fixed(New(DefaultTariff()))
	q, err := e.Estimate(Request{
		Weight:      1,
		PickupLat:   ptr(10),
		PickupLng:   ptr(70),
		DeliveryLat: ptr(13),
		DeliveryLng: ptr(74),
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if q.DistanceKm != 555 {
		t.Fatalf("distance=%v want 555", q.DistanceKm)
	}
	if q.Price != 1447.5 {
		t.Fatalf("price=%v want 1447.5", q.Price)
	}
	if q.Notes != Notes {
		t.Fatalf("notes=%q", q.Notes)
	}
	if len(q.RoutePath) != 2 || q.RoutePath[0] != (Point{10, 70}) || q.RoutePath[1] != (Point{13, 74}) {
		t.Fatalf("routePath=%+v", q.RoutePath)
	}
	wantPickup, _ := digipin.Encode(10, 70)
	if q.PickupDigiPin != wantPickup {
		t.Fatalf("pickup pin=%q want %q", q.PickupDigiPin, wantPickup)
	}
	if q.QuoteID == "" || !q.IssuedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected id/time: %q %v", q.QuoteID, q.IssuedAt)
	}
}

func TestEstimate_DecodesMissingCoordinates(t *testing.T) {
	e := New(DefaultTariff())
	q, err := e.Estimate(Request{
		PickupDigiPin:   "4p3-jk8-52c9",
		DeliveryDigiPin: "39J49LL8T4",
		Weight:          0,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if q.PickupDigiPin != "4P3-JK8-52C9" || q.DeliveryDigiPin != "39J-49L-L8T4" {
		t.Fatalf("pins=%q %q", q.PickupDigiPin, q.DeliveryDigiPin)
	}
	c, _ := digipin.Decode("39J-49L-L8T4")
	if q.RoutePath[1] != (Point{c.Lat, c.Lon}) {
		t.Fatalf("delivery point=%+v want decoded center %+v", q.RoutePath[1], c)
	}
	want := 50 + math.Hypot(q.RoutePath[1].Lat-q.RoutePath[0].Lat, q.RoutePath[1].Lng-q.RoutePath[0].Lng)*111*2.5
	if math.Abs(q.Price-want) > 1e-9 {
		t.Fatalf("price=%v want %v", q.Price, want)
	}
}

func TestEstimate_SameInputSameQuoteID(t *testing.T) {
	e := New(DefaultTariff())
	req := Request{PickupDigiPin: "4P3-JK8-52C9", DeliveryDigiPin: "39J-49L-L8T4", Weight: 3}
	a, err := e.Estimate(req)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Estimate(req)
	if a.QuoteID != b.QuoteID {
		t.Fatalf("quote ids differ: %s vs %s", a.QuoteID, b.QuoteID)
	}
	req.Weight = 4
	c, _ := e.Estimate(req)
	if c.QuoteID == a.QuoteID {
		t.Fatal("weight change must change the quote id")
	}
}

func TestEstimate_Errors(t *testing.T) {
	e := New(DefaultTariff())

	cases := []struct {
		name    string
		req     Request
		invalid bool
		codec   bool
	}{
		{"missing pickup", Request{DeliveryDigiPin: "39J-49L-L8T4"}, true, false},
		{"half coordinates", Request{PickupLat: ptr(12), DeliveryDigiPin: "39J-49L-L8T4"}, true, false},
		{"negative weight", Request{PickupDigiPin: "4P3-JK8-52C9", DeliveryDigiPin: "39J-49L-L8T4", Weight: -1}, true, false},
		{"bad pin", Request{PickupDigiPin: "ABC-DEF-GHIJ", DeliveryDigiPin: "39J-49L-L8T4"}, false, true},
		{"out of range", Request{PickupLat: ptr(50), PickupLng: ptr(77), DeliveryDigiPin: "39J-49L-L8T4"}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Estimate(tc.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrInvalidRequest); got != tc.invalid {
				t.Fatalf("errors.Is(ErrInvalidRequest)=%v want %v (%v)", got, tc.invalid, err)
			}
			var ice *digipin.InvalidCodeError
			var ore *digipin.OutOfRangeError
			if got := errors.As(err, &ice) || errors.As(err, &ore); got != tc.codec {
				t.Fatalf("codec error=%v want %v (%v)", got, tc.codec, err)
			}
		})
	}
}

func TestLoadTariff(t *testing.T) {
	def, err := LoadTariff("")
	if err != nil || def != DefaultTariff() {
		t.Fatalf("empty path: %+v %v", def, err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "tariff.yaml")
	if err := os.WriteFile(path, []byte("base: 80\nper_kg: 12.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadTariff(path)
	if err != nil {
		t.Fatalf("LoadTariff: %v", err)
	}
	want := Tariff{Base: 80, PerKm: 2.5, PerKg: 12.5, KmPerDegree: 111}
	if got != want {
		t.Fatalf("tariff=%+v want %+v", got, want)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("per_km: -1\n"), 0o600)
	if _, err := LoadTariff(bad); err == nil {
		t.Fatal("expected error for negative rate")
	}
	if _, err := LoadTariff(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	_ = os.WriteFile(bad, []byte("base: [1\n"), 0o600)
	if _, err := LoadTariff(bad); err == nil {
		t.Fatal("expected parse error")
	}
}
