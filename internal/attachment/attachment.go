// Package attachment produces the out-of-band merchant metadata attached to
// a checkout session payload, parallel to the order-line collectors.
package attachment

import (
	"encoding/json"

	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

const contentTypeEMD = "application/vnd.checkout.internal.emd-v2+json"

// Attachment is the provider's session attachment shape: a content type and
// a serialized JSON body.
type Attachment struct {
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// Collector contributes one keyed fragment to the attachment body.
type Collector interface {
	Code() string
	Collect(quote *quotedomain.Quote) (any, error)
}

// Registry merges collector fragments into a single attachment. A session
// with no applicable fragments gets no attachment at all.
type Registry struct {
	collectors []Collector
}

func NewRegistry(collectors ...Collector) *Registry {
	return &Registry{collectors: collectors}
}

func (r *Registry) Build(quote *quotedomain.Quote) (*Attachment, error) {
	if quote == nil {
		return nil, nil
	}

	body := map[string]any{}
	for _, collector := range r.collectors {
		fragment, err := collector.Collect(quote)
		if err != nil {
			return nil, err
		}
		if fragment == nil {
			continue
		}
		body[collector.Code()] = fragment
	}
	if len(body) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &Attachment{
		ContentType: contentTypeEMD,
		Body:        string(raw),
	}, nil
}

// CustomerAccountCollector reports account facts about the shopper.
type CustomerAccountCollector struct{}

func NewCustomerAccountCollector() *CustomerAccountCollector {
	return &CustomerAccountCollector{}
}

func (c *CustomerAccountCollector) Code() string { return "customer_account_info" }

func (c *CustomerAccountCollector) Collect(quote *quotedomain.Quote) (any, error) {
	if quote.CustomerEmail == "" {
		return nil, nil
	}
	info := map[string]any{
		"unique_account_identifier": quote.CustomerEmail,
	}
	if quote.CustomerDOB != "" {
		info["date_of_birth"] = quote.CustomerDOB
	}
	return []map[string]any{info}, nil
}

// OtherDeliveryAddressCollector flags a shipping address that differs from
// billing, which some markets require as explicit metadata.
type OtherDeliveryAddressCollector struct{}

func NewOtherDeliveryAddressCollector() *OtherDeliveryAddressCollector {
	return &OtherDeliveryAddressCollector{}
}

func (c *OtherDeliveryAddressCollector) Code() string { return "other_delivery_address" }

func (c *OtherDeliveryAddressCollector) Collect(quote *quotedomain.Quote) (any, error) {
	if quote.BillingAddress == nil || quote.ShippingAddress == nil {
		return nil, nil
	}
	if quote.BillingAddress.SameAsExceptEmail(*quote.ShippingAddress) {
		return nil, nil
	}
	shipping := quote.ShippingAddress
	return []map[string]any{{
		"first_name":     shipping.FirstName,
		"last_name":      shipping.LastName,
		"street_address": shipping.Street,
		"street_number":  shipping.Street2,
		"postal_code":    shipping.PostalCode,
		"city":           shipping.City,
		"country":        shipping.Country,
	}}, nil
}
