package software

// Asset is a purchased software product in a company's portfolio.
type Asset struct {
	ID           string  `json:"id"`
	CompanyID    string  `json:"companyId"`
	Name         string  `json:"name"`
	Vendor       string  `json:"vendor,omitempty"`
	Category     string  `json:"category,omitempty"`
	Description  string  `json:"description,omitempty"`
	AnnualCost   float64 `json:"annualCost"`
	LicenseCount int     `json:"licenseCount"`
	Active       bool    `json:"active"`
}

// HasCost reports whether the asset carries usable cost data.
func (a Asset) HasCost() bool {
	return a.AnnualCost > 0
}
