package provider

// Wire types for the FooPay payments API.

type hostedSessionRequest struct {
	ReferenceID string       `json:"referenceId"`
	Amount      int64        `json:"amount"`
	Currency    string       `json:"currency"`
	Customer    customerDTO  `json:"customer"`
	Address     addressDTO   `json:"billingAddress"`
	LineItems   []lineItem   `json:"lineItems"`
	AutoCapture bool         `json:"autoCapture"`
	WebhookURL  string       `json:"webhookUrl"`
	ReturnURL   string       `json:"returnUrl"`
}

type customerDTO struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

type addressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

const (
	categoryPhysical = "physical"
	categoryDigital  = "digital"
)

type lineItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Category  string `json:"category"`
}

type hostedSessionResponse struct {
	PaymentID   string `json:"paymentId"`
	RedirectURL string `json:"redirectUrl"`
}

type paymentResponse struct {
	PaymentState string `json:"paymentState"`
}

// PATCH /api/apps/{appId} wraps every field in a {"value": ...} object.
type settingValue struct {
	Value string `json:"value"`
}

type webhookConfigRequest struct {
	PaymentWebhookURL                   settingValue `json:"paymentWebhookUrl"`
	WebhookAuthorizationHeaderScheme    settingValue `json:"webhookAuthorizationHeaderScheme"`
	WebhookAuthorizationHeaderParameter settingValue `json:"webhookAuthorizationHeaderParameter"`
}

type errorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}
