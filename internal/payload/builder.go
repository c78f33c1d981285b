// Package payload assembles the create and update payloads for a provider
// checkout session from cart, store and merchant configuration state.
package payload

import (
	"context"
	"strings"

	"github.com/smallbiznis/kassa/internal/attachment"
	"github.com/smallbiznis/kassa/internal/config"
	"github.com/smallbiznis/kassa/internal/hooks"
	"github.com/smallbiznis/kassa/internal/money"
	"github.com/smallbiznis/kassa/internal/orderline"
	"github.com/smallbiznis/kassa/internal/provider"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	"go.uber.org/zap"
)

// Mode selects which parts of the session payload are generated.
type Mode int

const (
	// ModeCreate assembles the full session configuration.
	ModeCreate Mode = iota
	// ModeUpdate regenerates only the order lines (and recurring on the
	// extended variant); the rest is immutable once the session exists.
	ModeUpdate
)

type Builder struct {
	providerCfg config.ProviderConfig
	merchant    *config.MerchantConfigHolder
	lines       *orderline.Registry
	attachments *attachment.Registry
	hooks       *hooks.Registry
	log         *zap.Logger
}

func NewBuilder(
	providerCfg config.ProviderConfig,
	merchant *config.MerchantConfigHolder,
	lines *orderline.Registry,
	attachments *attachment.Registry,
	hookRegistry *hooks.Registry,
	log *zap.Logger,
) *Builder {
	return &Builder{
		providerCfg: providerCfg,
		merchant:    merchant,
		lines:       lines,
		attachments: attachments,
		hooks:       hookRegistry,
		log:         log.Named("payload.builder"),
	}
}

// Generate builds the session request for the given mode. The shipping
// override is the active gateway record, nil when host rates apply.
func (b *Builder) Generate(ctx context.Context, mode Mode, quote *quotedomain.Quote, override *orderline.ShippingOverride) (*provider.SessionRequest, error) {
	if quote == nil {
		return nil, orderline.ErrNilPriceable
	}

	merchant := b.merchant.Get()

	acc := orderline.NewAccumulator(merchant)
	acc.Override = override
	result, err := b.lines.Build(orderline.VariantCheckout, quote, acc)
	if err != nil {
		return nil, err
	}

	req := &provider.SessionRequest{
		OrderAmount:    money.ToMinor(quote.GrandTotalInclTax()),
		OrderTaxAmount: result.TaxAmount,
		OrderLines:     result.Lines,
	}

	if mode == ModeUpdate {
		if b.providerCfg.SupportsRecurring() {
			recurring := quote.Recurring()
			req.Recurring = &recurring
		}
		return b.finish(ctx, quote, req)
	}

	store := quote.StoreContext()
	req.PurchaseCountry = firstNonEmpty(store.Country, merchant.PurchaseCountry)
	req.PurchaseCurrency = store.Currency
	req.Locale = firstNonEmpty(store.Locale, merchant.Locale)
	req.MerchantReference = quote.ReservedOrderID
	req.MerchantURLs = b.merchantURLs(merchant)
	req.GUI = b.gui(quote)
	req.Options = b.options(merchant)
	req.ExternalMethods = externalMethods(merchant)

	b.applyPrefill(req, quote, merchant)

	att, err := b.attachments.Build(quote)
	if err != nil {
		return nil, err
	}
	req.Attachment = att

	return b.finish(ctx, quote, req)
}

func (b *Builder) finish(ctx context.Context, quote *quotedomain.Quote, req *provider.SessionRequest) (*provider.SessionRequest, error) {
	if err := b.hooks.PreRequestBuild(ctx, quote, req); err != nil {
		return nil, err
	}
	if err := b.hooks.PostRequestBuild(ctx, quote, req); err != nil {
		return nil, err
	}
	return req, nil
}

// applyPrefill attaches customer and address blocks unless the purchase
// country requires a prefill-notice consent the shopper has not given.
func (b *Builder) applyPrefill(req *provider.SessionRequest, quote *quotedomain.Quote, merchant config.MerchantConfig) {
	if !merchant.PrefillEnabled {
		return
	}
	if merchant.RequiresPrefillConsent(req.PurchaseCountry) && !quote.PrefillConsented {
		return
	}

	if quote.CustomerDOB != "" {
		req.Customer = &provider.Customer{DateOfBirth: quote.CustomerDOB}
	}

	billing := quote.BillingAddress
	if billing == nil {
		if quote.CustomerEmail != "" {
			req.BillingAddress = &quotedomain.Address{Email: quote.CustomerEmail}
		}
		return
	}
	req.BillingAddress = billing

	shipping := quote.ShippingAddress
	if shipping == nil {
		return
	}
	// Same as billing except a bare email: omit the block entirely.
	if billing.SameAsExceptEmail(*shipping) {
		return
	}
	req.ShippingAddress = shipping
}

func (b *Builder) merchantURLs(merchant config.MerchantConfig) *provider.MerchantURLs {
	base := strings.TrimSuffix(merchant.CallbackBaseURL, "/")
	return &provider.MerchantURLs{
		Terms:                merchant.TermsURL,
		CancellationTerms:    merchant.CancelTermsURL,
		Checkout:             base + "/checkout",
		Confirmation:         base + "/api/v1/callbacks/confirmation?sid={checkout.order.id}",
		Push:                 base + "/api/v1/callbacks/push?sid={checkout.order.id}",
		Notification:         base + "/api/v1/callbacks/notification?sid={checkout.order.id}",
		Validation:           base + "/api/v1/callbacks/validate?sid={checkout.order.id}",
		AddressUpdate:        base + "/api/v1/callbacks/address-update?sid={checkout.order.id}",
		ShippingOptionUpdate: base + "/api/v1/callbacks/shipping-update?sid={checkout.order.id}",
	}
}

func (b *Builder) gui(quote *quotedomain.Quote) *provider.GUI {
	var options []string
	if quote.IsVirtualOnly {
		options = append(options, "disable_autofocus")
	}
	if len(options) == 0 {
		return nil
	}
	return &provider.GUI{Options: options}
}

// options builds the merchant design options. Mandatory-field toggles are
// gated by both the API variant capability and the merchant flag: the
// standard variant must never receive them as true.
func (b *Builder) options(merchant config.MerchantConfig) *provider.Options {
	opts := &provider.Options{
		AllowSeparateShippingAddress: merchant.AllowSeparateShippingAddress,
	}

	if merchant.B2BEnabled {
		opts.AllowedCustomerTypes = []string{"person", "organization"}
	}

	if b.providerCfg.SupportsMandatoryFields() {
		opts.TitleMandatory = merchant.TitleMandatory
		opts.PhoneMandatory = merchant.PhoneMandatory
		opts.NationalIDMandatory = merchant.NationalIDMandatory
		opts.DateOfBirthMandatory = merchant.DateOfBirthMandatory
	}

	for _, checkbox := range merchant.Checkboxes {
		opts.AdditionalCheckboxes = append(opts.AdditionalCheckboxes, provider.Checkbox{
			ID:       checkbox.ID,
			Text:     checkbox.Text,
			Checked:  checkbox.Checked,
			Required: checkbox.Required,
		})
	}

	return opts
}

func externalMethods(merchant config.MerchantConfig) []provider.ExternalPaymentMethod {
	out := make([]provider.ExternalPaymentMethod, 0, len(merchant.ExternalPaymentMethods))
	for _, method := range merchant.ExternalPaymentMethods {
		if strings.TrimSpace(method.Name) == "" || strings.TrimSpace(method.RedirectURL) == "" {
			continue
		}
		out = append(out, provider.ExternalPaymentMethod{
			Name:        method.Name,
			RedirectURL: method.RedirectURL,
			ImageURL:    method.ImageURL,
			Fee:         method.Fee,
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
