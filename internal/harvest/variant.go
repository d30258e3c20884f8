package harvest

import (
	"fmt"
	"strings"
)

// Variant is one document-type family. Dashboard URLs carry a literal suffix
// before ".html" that selects the download base URL for the files they list.
type Variant struct {
	Name              string `mapstructure:"name"`
	Suffix            string `mapstructure:"suffix"`
	BaseURL           string `mapstructure:"base_url"`
	DashboardTemplate string `mapstructure:"dashboard_template"`
}

// DefaultVariants returns the two production document-type variants.
func DefaultVariants() []Variant {
	return []Variant{
		{
			Name:              "ALCALDE",
			Suffix:            "-4.html",
			BaseURL:           "https://divulgacion.tse.gob.sv/actas/ALCALDE",
			DashboardTemplate: "https://divulgacion.tse.gob.sv/dashboard-jrv-%d-4.html",
		},
		{
			Name:              "DIP_PARLACEN",
			Suffix:            "-2.html",
			BaseURL:           "https://divulgacion.tse.gob.sv/actas/DIP_PARLACEN",
			DashboardTemplate: "https://divulgacion.tse.gob.sv/dashboard-jrv-%d-2.html",
		},
	}
}

// DetectVariant selects the variant whose suffix matches the dashboard URL.
func DetectVariant(dashboardURL string, variants []Variant) (Variant, error) {
	for _, v := range variants {
		if strings.Contains(dashboardURL, v.Suffix) {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("no document variant matches dashboard url %s", dashboardURL)
}

// DashboardURL renders the variant's dashboard URL for a numeric precinct ID.
func (v Variant) DashboardURL(id int) string {
	return fmt.Sprintf(v.DashboardTemplate, id)
}

// FileURL resolves a dashboard-listed file name against the download base.
func (v Variant) FileURL(name string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(v.BaseURL, "/"), name)
}

// Enumerate builds pending actas for IDs start..total inclusive across every
// variant, variant-major, matching a fresh (checkpoint-less) initialization.
func Enumerate(variants []Variant, start, total int) ActaSet {
	if start < 1 {
		start = 1
	}
	var set ActaSet
	for _, v := range variants {
		for id := start; id <= total; id++ {
			set = append(set, NewActa(v.DashboardURL(id)))
		}
	}
	return set
}
