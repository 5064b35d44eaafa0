// Package estimate prices a courier trip between two points.
//
// Distance is a planar approximation over degrees; there is no routing.
package estimate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mohammed-shakir/digipin-courier/internal/cache/keys"
	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
)

const Notes = "Estimation based on approximate distance and weight."

// ErrInvalidRequest marks requests the caller has to fix. Codec errors are
// returned unwrapped so errors.As still finds them.
var ErrInvalidRequest = errors.New("invalid estimate request")

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Request is the estimate payload. A coordinate pair may be omitted when the
// matching pin is given.
type Request struct {
	PickupDigiPin   string   `json:"pickupDigiPin"`
	DeliveryDigiPin string   `json:"deliveryDigiPin"`
	Weight          float64  `json:"weight"`
	PickupLat       *float64 `json:"pickupLat,omitempty"`
	PickupLng       *float64 `json:"pickupLng,omitempty"`
	DeliveryLat     *float64 `json:"deliveryLat,omitempty"`
	DeliveryLng     *float64 `json:"deliveryLng,omitempty"`
}

type Quote struct {
	QuoteID         string    `json:"quoteId"`
	Price           float64   `json:"price"`
	DistanceKm      float64   `json:"distanceKm"`
	Notes           string    `json:"notes"`
	RoutePath       []Point   `json:"routePath"`
	PickupDigiPin   string    `json:"pickupDigiPin"`
	DeliveryDigiPin string    `json:"deliveryDigiPin"`
	Weight          float64   `json:"weight"`
	IssuedAt        time.Time `json:"issuedAt"`
}

type Estimator struct {
	tariff Tariff
	now    func() time.Time
}

func New(t Tariff) *Estimator {
	return &Estimator{tariff: t, now: time.Now}
}

func (e *Estimator) Tariff() Tariff { return e.tariff }

// Estimate resolves both endpoints and prices the trip.
func (e *Estimator) Estimate(req Request) (Quote, error) {
	if math.IsNaN(req.Weight) || req.Weight < 0 {
		return Quote{}, fmt.Errorf("%w: weight must be a non-negative number", ErrInvalidRequest)
	}

	pickup, pickupPin, err := resolve("pickup", req.PickupDigiPin, req.PickupLat, req.PickupLng)
	if err != nil {
		return Quote{}, err
	}
	delivery, deliveryPin, err := resolve("delivery", req.DeliveryDigiPin, req.DeliveryLat, req.DeliveryLng)
	if err != nil {
		return Quote{}, err
	}

	km := e.Distance(pickup, delivery)
	return Quote{
		QuoteID:         keys.QuoteID(pickup.Lat, pickup.Lng, delivery.Lat, delivery.Lng, req.Weight),
		Price:           e.tariff.Base + km*e.tariff.PerKm + req.Weight*e.tariff.PerKg,
		DistanceKm:      km,
		Notes:           Notes,
		RoutePath:       []Point{pickup, delivery},
		PickupDigiPin:   pickupPin,
		DeliveryDigiPin: deliveryPin,
		Weight:          req.Weight,
		IssuedAt:        e.now().UTC(),
	}, nil
}

// Distance is the planar distance in km between a and b.
func (e *Estimator) Distance(a, b Point) float64 {
	return math.Hypot(b.Lat-a.Lat, b.Lng-a.Lng) * e.tariff.KmPerDegree
}

// resolve prefers explicit coordinates and decodes the pin otherwise. The
// returned pin is always the encoding of the point used.
func resolve(which, pin string, lat, lng *float64) (Point, string, error) {
	if lat != nil && lng != nil {
		code, err := digipin.Encode(*lat, *lng)
		if err != nil {
			return Point{}, "", err
		}
		return Point{Lat: *lat, Lng: *lng}, code, nil
	}
	if lat != nil || lng != nil {
		return Point{}, "", fmt.Errorf("%w: %s latitude and longitude must be given together", ErrInvalidRequest, which)
	}

	pin = strings.ToUpper(strings.TrimSpace(pin))
	if pin == "" {
		return Point{}, "", fmt.Errorf("%w: %s needs a DIGIPIN or coordinates", ErrInvalidRequest, which)
	}
	c, err := digipin.Decode(pin)
	if err != nil {
		return Point{}, "", err
	}
	symbols, _ := digipin.Normalize(pin)
	return Point{Lat: c.Lat, Lng: c.Lon}, digipin.Format(symbols), nil
}
