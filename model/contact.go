package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Office types.
const (
	OfficeHeadquarters = "headquarters"
	OfficeBranch       = "branch"
	OfficeLaboratory   = "laboratory"
)

// Address is a postal address.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// Validate implements Validator.
func (a Address) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.City, validation.Required),
		validation.Field(&a.Country, validation.Required),
	)
}

// Equal reports whether two addresses are the same after trimming and case
// folding.
func (a Address) Equal(b Address) bool {
	eq := func(x, y string) bool { return strings.EqualFold(strings.TrimSpace(x), strings.TrimSpace(y)) }
	return eq(a.Street, b.Street) && eq(a.City, b.City) && eq(a.State, b.State) &&
		eq(a.PostalCode, b.PostalCode) && eq(a.Country, b.Country)
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ContactOffice is a physical office shown on the contact page map.
type ContactOffice struct {
	Base
	Name       string     `json:"name"`
	OfficeType string     `json:"office_type"`
	Region     string     `json:"region,omitempty"`
	Address    Address    `json:"address"`
	Phone      string     `json:"phone,omitempty"`
	Email      string     `json:"email,omitempty"`
	Hours      string     `json:"hours,omitempty"`
	Location   *GeoPoint  `json:"location,omitempty"`
	GeocodedAt *time.Time `json:"geocoded_at,omitempty"`
	Order      int        `json:"order"`
}

// Validate implements Validator.
func (o *ContactOffice) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Name, validation.Required, validation.Length(1, 160)),
		validation.Field(&o.OfficeType, validation.Required, validation.In(OfficeHeadquarters, OfficeBranch, OfficeLaboratory)),
		validation.Field(&o.Address),
		validation.Field(&o.Email, is.EmailFormat),
		validation.Field(&o.Location, validation.By(validLocation)),
	)
}

// NeedsGeocoding reports whether the office must be geocoded given the
// previously stored version, which may be nil.
func (o *ContactOffice) NeedsGeocoding(previous *ContactOffice) bool {
	if o.Location == nil {
		return true
	}
	return previous != nil && !previous.Address.Equal(o.Address)
}

func validLocation(value any) error {
	p, _ := value.(*GeoPoint)
	if p == nil {
		return nil
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return validation.NewError("validation_location_range", "coordinates out of range")
	}
	return nil
}

// Inquiry statuses.
const (
	InquiryNew     = "new"
	InquiryHandled = "handled"
)

// Inquiry is a message submitted through the public contact form.
type Inquiry struct {
	Base
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
	Service   string `json:"service,omitempty"`
	OfficeKey string `json:"office_key,omitempty"`
	Status    string `json:"status"`
}

// Prepare defaults the status.
func (i *Inquiry) Prepare(time.Time) error {
	i.Email = NormalizeEmail(i.Email)
	if i.Status == "" {
		i.Status = InquiryNew
	}
	return nil
}

// Validate implements Validator.
func (i *Inquiry) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&i.Email, validation.Required, is.EmailFormat),
		validation.Field(&i.Phone, validation.Length(0, 40)),
		validation.Field(&i.Subject, validation.Length(0, 200)),
		validation.Field(&i.Message, validation.Required, validation.Length(1, 5000)),
		validation.Field(&i.Status, validation.Required, validation.In(InquiryNew, InquiryHandled)),
	)
}
