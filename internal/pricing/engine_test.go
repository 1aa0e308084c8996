package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func percentItem() LineItem {
	return Reprice(LineItem{
		ProductID:     "p-1",
		Quantity:      Int(3),
		Rate:          Int(100),
		DiscountValue: Int(10),
		DiscountType:  Percent,
		Tax:           &TaxInfo{Name: "VAT", Rate: dec("15")},
	})
}

func flatItem() LineItem {
	return Reprice(LineItem{
		ProductID:     "p-2",
		Quantity:      Int(2),
		Rate:          Int(50),
		DiscountValue: Int(20),
		DiscountType:  Flat,
		Tax:           &TaxInfo{Name: "Zero", Rate: decimal.Zero},
	})
}

func TestBreakdownPercentDiscountWithTax(t *testing.T) {
	b := Breakdown(percentItem())
	requireDecimal(t, "300", b.Base)
	requireDecimal(t, "30", b.Discount)
	requireDecimal(t, "270", b.Discounted)
	requireDecimal(t, "40.5", b.Tax)
	requireDecimal(t, "310.5", b.Amount)
}

func TestBreakdownFlatDiscount(t *testing.T) {
	item := flatItem()
	requireDecimal(t, "80", item.Amount)
}

func TestZeroQuantityPricesToZero(t *testing.T) {
	cases := []LineItem{
		{Quantity: Int(0), Rate: Int(999)},
		{Quantity: Int(0), Rate: Int(10), DiscountValue: Int(5), DiscountType: Flat, Tax: &TaxInfo{Rate: dec("20")}},
		{Quantity: ParseInput(""), Rate: Int(10), DiscountValue: Int(50), DiscountType: Percent},
	}
	for _, item := range cases {
		requireDecimal(t, "0", Reprice(item).Amount)
	}
}

func TestOverDiscountClampsToZero(t *testing.T) {
	item := Reprice(LineItem{Quantity: Int(1), Rate: Int(100), DiscountValue: Int(250), DiscountType: Flat, Tax: &TaxInfo{Rate: dec("10")}})
	b := Breakdown(item)
	requireDecimal(t, "100", b.Discount)
	requireDecimal(t, "0", b.Discounted)
	requireDecimal(t, "0", item.Amount)

	pct := Reprice(LineItem{Quantity: Int(2), Rate: Int(10), DiscountValue: Int(150), DiscountType: Percent})
	requireDecimal(t, "0", pct.Amount)
}

func TestNegativeInputsAreClamped(t *testing.T) {
	item := Reprice(LineItem{Quantity: Int(2), Rate: Int(-10), DiscountValue: Int(-5), Tax: &TaxInfo{Rate: dec("-10")}})
	requireDecimal(t, "0", item.Amount)

	q := PriceLine(LineItem{Rate: Int(10)}, SetQuantity("-4"))
	requireDecimal(t, "0", q.Quantity.Decimal())
	requireDecimal(t, "0", q.Amount)
}

func TestQuantityIsFloored(t *testing.T) {
	item := PriceLine(LineItem{Rate: Int(10)}, SetQuantity("2.9"))
	require.Equal(t, "2", item.Quantity.Raw)
	requireDecimal(t, "20", item.Amount)
	require.Equal(t, EditQuantity, item.LastEdit)
}

func TestInvalidInputKeepsRawAndPricesAsZero(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(2)}, SetRate("12a"))
	require.Equal(t, "12a", item.Rate.Raw)
	require.False(t, item.Rate.Valid)
	requireDecimal(t, "0", item.Amount)

	item = PriceLine(item, SetRate("12"))
	requireDecimal(t, "24", item.Amount)

	typing := PriceLine(item, SetDiscount(""))
	require.Equal(t, "", typing.DiscountValue.Raw)
	requireDecimal(t, "24", typing.Amount)
}

func TestRateEditSnapshotsLineRate(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(3)}, SetRate("600"))
	require.NotNil(t, item.RateIntent)
	requireDecimal(t, "600", item.RateIntent.LineRate)
	requireDecimal(t, "3", item.RateIntent.Quantity)
	requireDecimal(t, "200", item.RateIntent.RateFor(dec("1")))
	require.Equal(t, EditRate, item.LastEdit)
	require.True(t, item.Manual.Has(EditRate))

	item = PriceLine(item, SetQuantity("5"))
	requireDecimal(t, "1000", item.Rate.Decimal())
	requireDecimal(t, "5000", item.Amount)
}

func TestRateRoundTrip(t *testing.T) {
	cases := []struct {
		rate, qty, qty2 string
	}{
		{"600", "3", "5"},
		{"100", "3", "7"},
		{"99.99", "4", "1"},
		{"250", "10", "0"},
	}
	for _, tc := range cases {
		item := PriceLine(LineItem{Quantity: ParseInput(tc.qty)}, SetRate(tc.rate))
		item = PriceLine(item, SetQuantity(tc.qty2))
		want := dec(tc.rate).Div(dec(tc.qty)).Mul(dec(tc.qty2))
		diff := want.Sub(item.Rate.Decimal()).Abs()
		require.Truef(t, diff.LessThan(dec("0.000001")), "rate %s qty %s->%s: want %s got %s", tc.rate, tc.qty, tc.qty2, want, item.Rate.Decimal())
	}
}

func TestRateIntentIsExactForUnevenQuantities(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(3)}, SetRate("100"))

	same := PriceLine(item, SetQuantity("3"))
	require.Equal(t, "100", same.Rate.Decimal().String())
	requireDecimal(t, "300", same.Amount)

	double := PriceLine(item, SetQuantity("6"))
	require.Equal(t, "200", double.Rate.Decimal().String())
	requireDecimal(t, "1200", double.Amount)

	back := PriceLine(PriceLine(item, SetQuantity("7")), SetQuantity("3"))
	require.Equal(t, "100", back.Rate.Decimal().String())

	doc := Aggregate([]LineItem{same}, false)
	requireDecimal(t, "300", doc.TotalAmount)
}

func TestUnparsedQuantityLeavesRateIntact(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(2)}, SetRate("50"))

	typing := PriceLine(item, SetQuantity("abc"))
	require.Equal(t, "abc", typing.Quantity.Raw)
	require.Equal(t, "50", typing.Rate.Raw)
	requireDecimal(t, "0", typing.Amount)

	typing = PriceLine(typing, SetQuantity("4"))
	requireDecimal(t, "100", typing.Rate.Decimal())
	requireDecimal(t, "100", typing.Amount)
}

func TestDiscountEditsAreNotManualForProductSeeding(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(1)}, SetDiscount("5"))
	item = PriceLine(item, SetDiscountType(Percent))
	require.Equal(t, EditDiscount, item.LastEdit)
	require.False(t, item.Manual.Has(EditDiscount))
	require.Equal(t, EditSet(0), item.Manual)
}

func TestRateEditWithZeroQuantityUsesUnitDivisor(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(0)}, SetRate("80"))
	requireDecimal(t, "1", item.RateIntent.Quantity)
	requireDecimal(t, "0", item.Amount)

	item = PriceLine(item, SetQuantity("2"))
	requireDecimal(t, "160", item.Rate.Decimal())
}

func TestQuantityChangeReplaysRateIntentDiscountAndTax(t *testing.T) {
	vat := &TaxInfo{Name: "VAT", Rate: dec("10")}
	item := PriceLine(LineItem{Quantity: Int(2), Tax: vat}, SetDiscount("5"))
	item = PriceLine(item, SetRate("100"))

	item = PriceLine(item, SetDiscount("40"))
	item = PriceLine(item, SetTax(nil))
	require.Equal(t, EditTax, item.LastEdit)
	requireDecimal(t, "5", item.RateIntent.DiscountValue.Decimal())

	item = PriceLine(item, SetQuantity("4"))
	requireDecimal(t, "200", item.Rate.Decimal())
	requireDecimal(t, "5", item.DiscountValue.Decimal())
	require.NotNil(t, item.Tax)
	requireDecimal(t, "10", item.Tax.Rate)
	// 4*200 - 5 = 795, +10% = 874.5
	requireDecimal(t, "874.5", item.Amount)
}

func TestQuantityChangeWithoutRateIntentKeepsRate(t *testing.T) {
	item := PriceLine(LineItem{Rate: Int(25)}, SetQuantity("4"))
	requireDecimal(t, "25", item.Rate.Decimal())
	requireDecimal(t, "100", item.Amount)
	require.Nil(t, item.RateIntent)
}

func TestDiscountTypeAndTaxChanges(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(1), Rate: Int(200)}, SetDiscount("10"))
	requireDecimal(t, "190", item.Amount)

	item = PriceLine(item, SetDiscountType(Percent))
	requireDecimal(t, "180", item.Amount)

	item = PriceLine(item, SetTax(&TaxInfo{Name: "GST", Rate: dec("5")}))
	requireDecimal(t, "189", item.Amount)
	require.True(t, item.Manual.Has(EditTax))
	require.Nil(t, item.RateIntent)
}

func TestSelectProductSeedsRateAndTax(t *testing.T) {
	p := Product{ID: "sku-1", Name: "Cement", Units: "bag", Price: dec("12.5"), Tax: &TaxInfo{Name: "VAT", Rate: dec("13")}}
	item := PriceLine(LineItem{Quantity: Int(4)}, SelectProduct(p))
	require.Equal(t, "sku-1", item.ProductID)
	require.Equal(t, "Cement", item.Name)
	require.Equal(t, "bag", item.Units)
	require.Equal(t, EditProduct, item.LastEdit)
	requireDecimal(t, "12.5", item.Rate.Decimal())
	// 50 + 13% = 56.5
	requireDecimal(t, "56.5", item.Amount)
}

func TestSelectProductKeepsManualRateAndTax(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(2)}, SetRate("30"))
	item = PriceLine(item, SetTax(&TaxInfo{Name: "Exempt", Rate: decimal.Zero}))

	p := Product{ID: "sku-2", Name: "Sand", Price: dec("99"), Tax: &TaxInfo{Name: "VAT", Rate: dec("13")}}
	item = PriceLine(item, SelectProduct(p))
	require.Equal(t, "sku-2", item.ProductID)
	// the rate intent replays: 15 per unit * 2 with the tax captured at rate-edit time (none)
	requireDecimal(t, "30", item.Rate.Decimal())
	require.Nil(t, item.Tax)
	requireDecimal(t, "60", item.Amount)
}

func TestPriceLineDoesNotMutateInput(t *testing.T) {
	vat := &TaxInfo{Name: "VAT", Rate: dec("10")}
	orig := PriceLine(LineItem{Quantity: Int(2), Tax: vat}, SetRate("100"))
	_ = PriceLine(orig, SetQuantity("9"))
	_ = PriceLine(orig, SetTax(&TaxInfo{Rate: dec("50")}))
	requireDecimal(t, "100", orig.Rate.Decimal())
	requireDecimal(t, "10", orig.Tax.Rate)
	requireDecimal(t, "2", orig.Quantity.Decimal())
}

func TestAmountIgnoresStaleCachedValue(t *testing.T) {
	item := percentItem()
	item.Amount = dec("1")
	requireDecimal(t, "310.5", Breakdown(item).Amount)
}

func TestLineItemJSONRoundTrip(t *testing.T) {
	item := PriceLine(LineItem{Quantity: Int(3), Rate: ParseInput("1,000")}, SetRate("600"))
	data, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded LineItem
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, EditRate, decoded.LastEdit)
	require.NotNil(t, decoded.RateIntent)
	requireDecimal(t, "600", decoded.RateIntent.LineRate)
	requireDecimal(t, "3", decoded.RateIntent.Quantity)

	decoded = PriceLine(decoded, SetQuantity("5"))
	requireDecimal(t, "1000", decoded.Rate.Decimal())
}

func TestFieldText(t *testing.T) {
	var f Field
	require.NoError(t, f.UnmarshalText([]byte("discountType")))
	require.Equal(t, FieldDiscountType, f)
	require.NoError(t, f.UnmarshalText([]byte("discount")))
	require.Equal(t, FieldDiscountValue, f)
	require.Error(t, f.UnmarshalText([]byte("colour")))
}
