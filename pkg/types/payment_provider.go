package types

type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
)
