package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/pricing"
)

// DemoProducts returns the sample catalog used by the seeder and by the API
// when no database is configured.
func DemoProducts() []Product {
	vat := func() *pricing.TaxInfo {
		return &pricing.TaxInfo{Name: "VAT", Rate: decimal.NewFromInt(15)}
	}
	d := decimal.RequireFromString
	return []Product{
		{ID: "sku-cement", Name: "Portland Cement 50kg", Units: "bag", PurchasePrice: d("80"), SellingPrice: d("100"), Tax: vat()},
		{ID: "sku-sand", Name: "River Sand", Units: "kg", PurchasePrice: d("40"), SellingPrice: d("50")},
		{ID: "sku-rebar", Name: "Rebar 12mm", Units: "pcs", PurchasePrice: d("7.25"), SellingPrice: d("9.5"), Tax: vat()},
		{ID: "sku-brick", Name: "Clay Brick", Units: "pcs", PurchasePrice: d("0.35"), SellingPrice: d("0.5"), Tax: vat()},
		{ID: "sku-paint", Name: "Exterior Paint 20L", Units: "can", PurchasePrice: d("42"), SellingPrice: d("55.75"),
			Tax: &pricing.TaxInfo{Name: "VAT reduced", Rate: d("7.5")}},
		{ID: "svc-delivery", Name: "Delivery", Units: "trip", SellingPrice: d("25")},
	}
}
