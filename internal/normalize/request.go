package normalize

import (
	"encoding/json"
	"strings"

	"github.com/five82/tanker/internal/models"
)

// Request extracts a single delivery request.
func Request(payload json.RawMessage) (models.Request, bool) {
	raw, _, ok := Extract(payload, requestRules)
	if !ok {
		return models.Request{}, false
	}
	return request(raw)
}

// Requests extracts a request list. Entries without an id are dropped.
func Requests(payload json.RawMessage) ([]models.Request, bool) {
	raw, _, ok := Extract(payload, requestListRules)
	if !ok {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	out := make([]models.Request, 0, len(entries))
	for _, entry := range entries {
		if r, ok := request(entry); ok {
			out = append(out, r)
		}
	}
	return out, true
}

func request(raw json.RawMessage) (models.Request, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.Request{}, false
	}
	r := models.Request{
		ID:         id(m, "id", "_id", "requestId"),
		CustomerID: id(m, "customerId", "customer"),
		Location:   requestLocation(m),
		Price:      numberPtr(m, "price"),
		Distance:   numberPtr(m, "distance"),
		Date:       timestamp(m, "date"),
		Status:     models.Status(strings.ToLower(str(m, "status"))),
		CreatedAt:  timestamp(m, "createdAt"),
	}
	r.Provider = provider(m, r.Status)
	if r.ID == "" {
		return models.Request{}, false
	}
	if litres, ok := integer(m, "litres", "liters"); ok {
		r.Litres = litres
	}
	if t := timestamp(m, "deliveredAt"); !t.IsZero() {
		r.DeliveredAt = &t
	}
	return r, true
}

func requestLocation(m map[string]any) models.RequestLocation {
	if loc, ok := object(m, "location"); ok {
		lat, _ := number(loc, "latitude", "lat")
		lng, _ := number(loc, "longitude", "lng")
		return models.RequestLocation{Address: str(loc, "address"), Latitude: lat, Longitude: lng}
	}
	lat, _ := number(m, "latitude", "lat")
	lng, _ := number(m, "longitude", "lng")
	return models.RequestLocation{Address: str(m, "location", "address"), Latitude: lat, Longitude: lng}
}

var (
	prefixedProviderKeys = [5]string{"providerName", "providerPhoneNumber", "providerEmail", "providerRating", "providerTotalReviews"}
	spreadProviderKeys   = [5]string{"name", "phoneNumber", "email", "rating", "totalReviews"}
)

// provider prefers a nested "provider" object, then top-level
// provider-prefixed fields, then a summary spread onto the request. Bare
// name/phone/email fields on a pending request belong to the customer, so
// the spread shape is only read once someone has accepted it.
func provider(m map[string]any, status models.Status) *models.Provider {
	if nested, ok := object(m, "provider"); ok {
		if p, ok := providerFrom(nested, spreadProviderKeys); ok {
			return p
		}
	}
	if p, ok := providerFrom(m, prefixedProviderKeys); ok {
		return p
	}
	if status == models.StatusPending {
		return nil
	}
	if p, ok := providerFrom(m, spreadProviderKeys); ok {
		return p
	}
	return nil
}

func providerFrom(m map[string]any, keys [5]string) (*models.Provider, bool) {
	p := models.Provider{
		Name:        str(m, keys[0]),
		PhoneNumber: str(m, keys[1]),
		Email:       str(m, keys[2]),
	}
	if p.Name == "" && p.PhoneNumber == "" && p.Email == "" {
		return nil, false
	}
	if rating, ok := number(m, keys[3]); ok {
		p.Rating = rating
	}
	if reviews, ok := integer(m, keys[4]); ok {
		p.TotalReviews = reviews
	}
	return &p, true
}
