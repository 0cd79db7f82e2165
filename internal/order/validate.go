package order

import "strings"

// Validate trims the shipping snapshot and resolves the payment method.
// All blank fields are reported together, in form order.
func (in ShippingInput) Validate() (Shipping, PaymentMethod, error) {
	s := Shipping{
		FullName:   strings.TrimSpace(in.FullName),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
	}

	fields := []struct {
		name, value string
	}{
		{"shipping_full_name", s.FullName},
		{"shipping_phone", s.Phone},
		{"shipping_address", s.Address},
		{"shipping_city", s.City},
		{"shipping_state", s.State},
		{"shipping_postal_code", s.PostalCode},
	}
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Shipping{}, "", &MissingShippingFieldsError{Fields: missing}
	}

	method := strings.ToUpper(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = string(PaymentCOD)
	}
	if PaymentMethod(method) != PaymentCOD {
		return Shipping{}, "", &UnsupportedPaymentMethodError{Method: method}
	}
	return s, PaymentCOD, nil
}
