package session

import (
	"errors"
	"strings"

	"delivery-realtime/internal/domain/geo"
	"delivery-realtime/internal/general/contracts"
)

var errMissingCoordinates = errors.New("latitude and longitude are required")

// location reads the position flat or nested under "location"; flat wins.
func location(msg contracts.WSInbound) (geo.Location, error) {
	lat, lng := msg.Latitude, msg.Longitude
	if msg.Location != nil {
		if lat == nil {
			lat = msg.Location.Latitude
		}
		if lng == nil {
			lng = msg.Location.Longitude
		}
	}
	if lat == nil || lng == nil {
		return geo.Location{}, errMissingCoordinates
	}
	return geo.NewLocation(*lat, *lng)
}

// orderRef is the order a location update belongs to, if any.
func orderRef(msg contracts.WSInbound) string {
	if id := strings.TrimSpace(msg.CurrentOrderID); id != "" {
		return id
	}
	return strings.TrimSpace(msg.OrderID)
}

func normalizeType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "" {
		return contracts.WSLocationUpdate
	}
	return t
}
