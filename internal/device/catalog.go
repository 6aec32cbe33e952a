package device

import "github.com/nerrad567/lockbridge/internal/infrastructure/config"

// Name holds the display names for a device, in the shape the platform's
// SYNC response expects.
type Name struct {
	DefaultNames []string `json:"defaultNames,omitempty"`
	Name         string   `json:"name"`
	Nicknames    []string `json:"nicknames,omitempty"`
}

// Info holds manufacturer metadata for a device.
type Info struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	HWVersion    string `json:"hwVersion,omitempty"`
	SWVersion    string `json:"swVersion,omitempty"`
}

// Descriptor is the static declaration of one device as enumerated in the
// SYNC response. Metadata is immutable for the process lifetime; devices
// are not created or deleted at runtime.
type Descriptor struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Traits          []string `json:"traits"`
	Name            Name     `json:"name"`
	DeviceInfo      Info     `json:"deviceInfo"`
	WillReportState bool     `json:"willReportState"`
}

// Catalog is the fixed set of devices this deployment exposes.
type Catalog []Descriptor

// CatalogFromConfig builds the device catalog from configuration.
func CatalogFromConfig(devices []config.DeviceConfig) Catalog {
	catalog := make(Catalog, 0, len(devices))
	for _, d := range devices {
		catalog = append(catalog, Descriptor{
			ID:     d.ID,
			Type:   d.Type,
			Traits: append([]string(nil), d.Traits...),
			Name: Name{
				DefaultNames: append([]string(nil), d.DefaultNames...),
				Name:         d.Name,
				Nicknames:    append([]string(nil), d.Nicknames...),
			},
			DeviceInfo: Info{
				Manufacturer: d.Manufacturer,
				Model:        d.Model,
				HWVersion:    d.HWVersion,
				SWVersion:    d.SWVersion,
			},
			WillReportState: d.WillReportState,
		})
	}
	return catalog
}

// IDs returns the device identifiers in catalog order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, d := range c {
		ids = append(ids, d.ID)
	}
	return ids
}
