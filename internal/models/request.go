package models

import "time"

// Status is the backend-reported lifecycle state of a delivery request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// RequestLocation is the drop-off point attached to a request.
type RequestLocation struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates returns the drop-off position.
func (l RequestLocation) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// LocationFromAddress converts a saved address into a request drop-off.
func LocationFromAddress(a Address) RequestLocation {
	return RequestLocation{Address: a.Address, Latitude: a.Latitude, Longitude: a.Longitude}
}

// Provider is the summary of whoever accepted a request.
type Provider struct {
	Name         string  `json:"name"`
	PhoneNumber  string  `json:"phoneNumber"`
	Email        string  `json:"email"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"totalReviews"`
}

// ProviderFromUser builds the summary a provider submits when accepting.
func ProviderFromUser(u User) Provider {
	p := Provider{Name: u.Name, PhoneNumber: u.PhoneNumber, Email: u.Email}
	if u.Rating != nil {
		p.Rating = *u.Rating
	}
	if u.TotalReviews != nil {
		p.TotalReviews = *u.TotalReviews
	}
	return p
}

// Request is a water/ice delivery request.
type Request struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	Litres      int             `json:"litres"`
	Location    RequestLocation `json:"location"`
	Price       *float64        `json:"price,omitempty"`
	Distance    *float64        `json:"distance,omitempty"`
	Date        time.Time       `json:"date"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	DeliveredAt *time.Time      `json:"deliveredAt,omitempty"`
	Provider    *Provider       `json:"provider,omitempty"`
}

// Clone returns a deep copy so snapshots never share pointers with the store.
func (r Request) Clone() Request {
	dup := r
	if r.Price != nil {
		v := *r.Price
		dup.Price = &v
	}
	if r.Distance != nil {
		v := *r.Distance
		dup.Distance = &v
	}
	if r.DeliveredAt != nil {
		v := *r.DeliveredAt
		dup.DeliveredAt = &v
	}
	if r.Provider != nil {
		v := *r.Provider
		dup.Provider = &v
	}
	return dup
}

// CloneRequests deep-copies a request list.
func CloneRequests(items []Request) []Request {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Request, len(items))
	for i, r := range items {
		dup[i] = r.Clone()
	}
	return dup
}
