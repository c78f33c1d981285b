package provider

import (
	"github.com/smallbiznis/kassa/internal/attachment"
	"github.com/smallbiznis/kassa/internal/orderline"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

// Session statuses reported by the provider.
const (
	StatusIncomplete = "checkout_incomplete"
	StatusComplete   = "checkout_complete"
	StatusCreated    = "created"
)

// CompletedStatus reports whether a session status allows local order
// creation.
func CompletedStatus(status string) bool {
	return status == StatusComplete || status == StatusCreated
}

// Customer is the prefilled shopper block of a session payload.
type Customer struct {
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Type        string `json:"type,omitempty"`
}

// MerchantURLs is the callback URL set the provider invokes during the
// session lifecycle.
type MerchantURLs struct {
	Terms                string `json:"terms,omitempty"`
	CancellationTerms    string `json:"cancellation_terms,omitempty"`
	Checkout             string `json:"checkout"`
	Confirmation         string `json:"confirmation"`
	Push                 string `json:"push"`
	Notification         string `json:"notification,omitempty"`
	Validation           string `json:"validation,omitempty"`
	AddressUpdate        string `json:"address_update,omitempty"`
	ShippingOptionUpdate string `json:"shipping_option_update,omitempty"`
}

// GUI carries presentation options for the hosted snippet.
type GUI struct {
	Options []string `json:"options,omitempty"`
}

// Options carries merchant design options. The mandatory toggles must only be
// sent on API variants that support them.
type Options struct {
	AllowSeparateShippingAddress bool       `json:"allow_separate_shipping_address,omitempty"`
	AllowedCustomerTypes         []string   `json:"allowed_customer_types,omitempty"`
	TitleMandatory               bool       `json:"title_mandatory,omitempty"`
	PhoneMandatory               bool       `json:"phone_mandatory,omitempty"`
	NationalIDMandatory          bool       `json:"national_identification_number_mandatory,omitempty"`
	DateOfBirthMandatory         bool       `json:"date_of_birth_mandatory,omitempty"`
	AdditionalCheckboxes         []Checkbox `json:"additional_checkboxes,omitempty"`
}

type Checkbox struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Checked  bool   `json:"checked"`
	Required bool   `json:"required"`
}

// ExternalPaymentMethod advertises a non-provider payment option inside the
// hosted checkout.
type ExternalPaymentMethod struct {
	Name        string `json:"name"`
	RedirectURL string `json:"redirect_url"`
	ImageURL    string `json:"image_url,omitempty"`
	Fee         int64  `json:"fee,omitempty"`
}

// ShippingOption is a provider-side shipping choice, possibly a pickup point
// that does not exist in the host's shipping rate catalog.
type ShippingOption struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Price          int64  `json:"price"`
	TaxAmount      int64  `json:"tax_amount"`
	TaxRate        int64  `json:"tax_rate"`
	ShippingMethod string `json:"shipping_method,omitempty"`
	Preselected    bool   `json:"preselected,omitempty"`
}

// IsPickupPoint reports whether the option is a pickup-point style delivery.
func (o ShippingOption) IsPickupPoint() bool {
	switch o.ShippingMethod {
	case "PickUpStore", "PickUpPoint", "PostOffice":
		return true
	}
	return false
}

// SessionRequest is the create/update payload for a checkout session. On
// update only the order lines (and recurring, on the extended variant) are
// regenerated; the rest is immutable once created.
type SessionRequest struct {
	PurchaseCountry   string                  `json:"purchase_country,omitempty"`
	PurchaseCurrency  string                  `json:"purchase_currency,omitempty"`
	Locale            string                  `json:"locale,omitempty"`
	OrderAmount       int64                   `json:"order_amount"`
	OrderTaxAmount    int64                   `json:"order_tax_amount"`
	OrderLines        []orderline.Line        `json:"order_lines"`
	BillingAddress    *quotedomain.Address    `json:"billing_address,omitempty"`
	ShippingAddress   *quotedomain.Address    `json:"shipping_address,omitempty"`
	Customer          *Customer               `json:"customer,omitempty"`
	MerchantURLs      *MerchantURLs           `json:"merchant_urls,omitempty"`
	GUI               *GUI                    `json:"gui,omitempty"`
	Options           *Options                `json:"options,omitempty"`
	ExternalMethods   []ExternalPaymentMethod `json:"external_payment_methods,omitempty"`
	Attachment        *attachment.Attachment  `json:"attachment,omitempty"`
	MerchantReference string                  `json:"merchant_reference1,omitempty"`
	Recurring         *bool                   `json:"recurring,omitempty"`
}

// Session is the provider's representation of an in-progress checkout.
type Session struct {
	ID                     string               `json:"order_id"`
	Status                 string               `json:"status"`
	PurchaseCountry        string               `json:"purchase_country"`
	PurchaseCurrency       string               `json:"purchase_currency"`
	Locale                 string               `json:"locale"`
	OrderAmount            int64                `json:"order_amount"`
	OrderTaxAmount         int64                `json:"order_tax_amount"`
	OrderLines             []orderline.Line     `json:"order_lines"`
	BillingAddress         *quotedomain.Address `json:"billing_address,omitempty"`
	ShippingAddress        *quotedomain.Address `json:"shipping_address,omitempty"`
	Customer               *Customer            `json:"customer,omitempty"`
	HTMLSnippet            string               `json:"html_snippet,omitempty"`
	MerchantReference      string               `json:"merchant_reference1,omitempty"`
	SelectedShippingOption *ShippingOption      `json:"selected_shipping_option,omitempty"`
	ShippingOptions        []ShippingOption     `json:"shipping_options,omitempty"`
	ReservationID          string               `json:"reservation,omitempty"`
	Recurring              bool                 `json:"recurring,omitempty"`
}

// RemoteOrder is the order-management view of a completed session.
type RemoteOrder struct {
	ID                string `json:"order_id"`
	Status            string `json:"status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	OrderAmount       int64  `json:"order_amount"`
	CapturedAmount    int64  `json:"captured_amount"`
	RefundedAmount    int64  `json:"refunded_amount"`
	RemainingAmount   int64  `json:"remaining_authorized_amount"`
	MerchantReference string `json:"merchant_reference1,omitempty"`
}

// CaptureRequest captures part or all of a remote order.
type CaptureRequest struct {
	CapturedAmount int64            `json:"captured_amount"`
	Description    string           `json:"description,omitempty"`
	OrderLines     []orderline.Line `json:"order_lines,omitempty"`
}

// RefundRequest refunds a captured amount.
type RefundRequest struct {
	RefundedAmount int64            `json:"refunded_amount"`
	Description    string           `json:"description,omitempty"`
	OrderLines     []orderline.Line `json:"order_lines,omitempty"`
}

// UpdateReferencesRequest rewrites the merchant references on a remote order.
type UpdateReferencesRequest struct {
	MerchantReference1 string `json:"merchant_reference1,omitempty"`
	MerchantReference2 string `json:"merchant_reference2,omitempty"`
}
