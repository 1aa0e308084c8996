package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/pricing"
)

// ErrUnknownKind is returned for a document kind with no profile.
var ErrUnknownKind = errors.New("document: unknown kind")

// Kind names a billing document type.
type Kind string

const (
	KindInvoice         Kind = "invoice"
	KindDeliveryChallan Kind = "delivery-challan"
	KindDebitNote       Kind = "debit-note"
	KindQuotation       Kind = "quotation"
	KindPurchase        Kind = "purchase"
	KindSalesReturn     Kind = "sales-return"
)

// Profile describes how a document kind prices its rows.
type Profile struct {
	Kind     Kind
	Basis    catalog.PriceBasis
	Rounding pricing.RoundingMode
}

var profiles = map[Kind]Profile{
	KindInvoice:         {Kind: KindInvoice, Basis: catalog.BasisSelling},
	KindDeliveryChallan: {Kind: KindDeliveryChallan, Basis: catalog.BasisSelling},
	KindQuotation:       {Kind: KindQuotation, Basis: catalog.BasisSelling},
	KindSalesReturn:     {Kind: KindSalesReturn, Basis: catalog.BasisSelling},
	KindPurchase:        {Kind: KindPurchase, Basis: catalog.BasisPurchase},
	KindDebitNote:       {Kind: KindDebitNote, Basis: catalog.BasisPurchase},
}

// Kinds lists every known document kind.
func Kinds() []Kind {
	return []Kind{KindInvoice, KindDeliveryChallan, KindDebitNote, KindQuotation, KindPurchase, KindSalesReturn}
}

// ParseKind reads a kind name. Underscores and case are ignored.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-"))
	if _, ok := profiles[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// ProfileFor returns the default profile of kind.
func ProfileFor(kind Kind) (Profile, error) {
	p, ok := profiles[kind]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return p, nil
}
