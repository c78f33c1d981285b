package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// MerchantConfig is the store-scoped, merchant-tunable behavior. It is loaded
// from a mounted YAML file and hot-reloaded on change.
type MerchantConfig struct {
	PurchaseCountry string `mapstructure:"purchaseCountry"`
	Locale          string `mapstructure:"locale"`

	// SeparateTaxLine controls whether tax is emitted as its own order line.
	// When false, tax is folded into every line's unit price.
	SeparateTaxLine bool `mapstructure:"separateTaxLine"`

	// DisplaySurchargeInSubtotal enables the fixed-product-tax surcharge line.
	DisplaySurchargeInSubtotal bool `mapstructure:"displaySurchargeInSubtotal"`

	B2BEnabled          bool   `mapstructure:"b2bEnabled"`
	DefaultCustomerType string `mapstructure:"defaultCustomerType"`

	TitleMandatory       bool `mapstructure:"titleMandatory"`
	PhoneMandatory       bool `mapstructure:"phoneMandatory"`
	NationalIDMandatory  bool `mapstructure:"nationalIdMandatory"`
	DateOfBirthMandatory bool `mapstructure:"dateOfBirthMandatory"`

	PrefillEnabled bool `mapstructure:"prefillEnabled"`
	// PrefillNoticeCountries lists purchase countries where prefilled customer
	// data may only be sent after the shopper accepted the prefill notice.
	PrefillNoticeCountries []string `mapstructure:"prefillNoticeCountries"`

	AllowSeparateShippingAddress bool `mapstructure:"allowSeparateShippingAddress"`

	TermsURL        string `mapstructure:"termsUrl"`
	CancelTermsURL  string `mapstructure:"cancelTermsUrl"`
	CallbackBaseURL string `mapstructure:"callbackBaseUrl"`

	WeightUnit    string `mapstructure:"weightUnit"`
	DimensionUnit string `mapstructure:"dimensionUnit"`

	Checkboxes             []MerchantCheckbox      `mapstructure:"checkboxes"`
	ExternalPaymentMethods []ExternalPaymentMethod `mapstructure:"externalPaymentMethods"`
}

type MerchantCheckbox struct {
	ID       string `mapstructure:"id"`
	Text     string `mapstructure:"text"`
	Checked  bool   `mapstructure:"checked"`
	Required bool   `mapstructure:"required"`
}

type ExternalPaymentMethod struct {
	Name        string `mapstructure:"name"`
	RedirectURL string `mapstructure:"redirectUrl"`
	ImageURL    string `mapstructure:"imageUrl"`
	Fee         int64  `mapstructure:"fee"`
}

func DefaultMerchantConfig() MerchantConfig {
	return MerchantConfig{
		PurchaseCountry:              "SE",
		Locale:                       "sv-SE",
		SeparateTaxLine:              false,
		DisplaySurchargeInSubtotal:   false,
		DefaultCustomerType:          "person",
		PrefillEnabled:               true,
		PrefillNoticeCountries:       []string{"DE", "AT"},
		AllowSeparateShippingAddress: true,
		WeightUnit:                   "kg",
		DimensionUnit:                "cm",
	}
}

// RequiresPrefillConsent reports whether the given purchase country forbids
// sending prefilled customer data without an accepted notice.
func (m MerchantConfig) RequiresPrefillConsent(country string) bool {
	country = strings.ToUpper(strings.TrimSpace(country))
	for _, c := range m.PrefillNoticeCountries {
		if strings.ToUpper(strings.TrimSpace(c)) == country {
			return true
		}
	}
	return false
}

type MerchantConfigHolder struct {
	current atomic.Value // holds MerchantConfig
}

func NewMerchantConfigHolder() (*MerchantConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("merchant")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/kassa/config") // Volume-mounted config
	v.AddConfigPath("/etc/kassa")            // System config
	v.AddConfigPath(".")                     // Current directory (dev mode)

	v.SetEnvPrefix("KASSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultMerchantConfig()
		v.SetDefault("merchant.purchaseCountry", defaults.PurchaseCountry)
		v.SetDefault("merchant.locale", defaults.Locale)
		v.SetDefault("merchant.defaultCustomerType", defaults.DefaultCustomerType)
		v.SetDefault("merchant.prefillEnabled", defaults.PrefillEnabled)
		v.SetDefault("merchant.prefillNoticeCountries", defaults.PrefillNoticeCountries)
		v.SetDefault("merchant.allowSeparateShippingAddress", defaults.AllowSeparateShippingAddress)
		v.SetDefault("merchant.weightUnit", defaults.WeightUnit)
		v.SetDefault("merchant.dimensionUnit", defaults.DimensionUnit)
	}

	var cfg MerchantConfig
	if err := v.UnmarshalKey("merchant", &cfg); err != nil {
		return nil, err
	}
	if err := validateMerchantConfig(cfg); err != nil {
		return nil, err
	}

	holder := &MerchantConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var next MerchantConfig
		if err := v.UnmarshalKey("merchant", &next); err != nil {
			log.Printf("merchant config reload failed: %v", err)
			return
		}
		if err := validateMerchantConfig(next); err != nil {
			log.Printf("merchant config reload rejected: %v", err)
			return
		}
		holder.current.Store(next)
	})

	return holder, nil
}

func (h *MerchantConfigHolder) Get() MerchantConfig {
	if h == nil {
		return DefaultMerchantConfig()
	}
	if cfg, ok := h.current.Load().(MerchantConfig); ok {
		return cfg
	}
	return DefaultMerchantConfig()
}

// Store replaces the active merchant config. Used by tests.
func (h *MerchantConfigHolder) Store(cfg MerchantConfig) {
	h.current.Store(cfg)
}

func NewStaticMerchantConfigHolder(cfg MerchantConfig) *MerchantConfigHolder {
	holder := &MerchantConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateMerchantConfig(cfg MerchantConfig) error {
	if strings.TrimSpace(cfg.PurchaseCountry) == "" {
		return errors.New("merchant purchaseCountry is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.DimensionUnit)) {
	case "", "cm", "inch", "mm":
	default:
		return errors.New("merchant dimensionUnit must be one of cm, inch, mm")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.DefaultCustomerType)) {
	case "", "person", "organization":
	default:
		return errors.New("merchant defaultCustomerType must be person or organization")
	}
	for _, checkbox := range cfg.Checkboxes {
		if strings.TrimSpace(checkbox.ID) == "" {
			return errors.New("merchant checkbox id is required")
		}
	}
	return nil
}
