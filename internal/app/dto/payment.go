package dto

// PaymentInitiated is returned when an online payment has been started
// and the tenant must be redirected to the gateway checkout page.
type PaymentInitiated struct {
	InstallmentID string `json:"installment_id"`
	ExternalID    string `json:"external_id"`
	InvoiceURL    string `json:"invoice_url"`
}

// PaymentSettled is returned when a payment reached the terminal PAID
// state, whichever path it took (cash, webhook, manual confirmation).
type PaymentSettled struct {
	Installment InstallmentView `json:"installment"`
}

// WebhookAck is the body returned to the gateway. Callbacks for unknown
// invoices still acknowledge with 200 so the gateway stops retrying;
// Processed tells the two cases apart.
type WebhookAck struct {
	Processed bool   `json:"processed"`
	Detail    string `json:"detail,omitempty"`
}
