package mercadopago

// PreferenceItem is one purchasable line inside a checkout preference.
type PreferenceItem struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id,omitempty"`
	PictureURL string  `json:"picture_url,omitempty"`
}

// BackURLs tells the gateway where to send the buyer after checkout.
type BackURLs struct {
	Success string `json:"success,omitempty"`
	Pending string `json:"pending,omitempty"`
	Failure string `json:"failure,omitempty"`
}

// Payer carries buyer contact details forwarded to the gateway.
type Payer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone *Phone `json:"phone,omitempty"`
}

// Phone is the gateway's split phone representation.
type Phone struct {
	AreaCode string `json:"area_code,omitempty"`
	Number   string `json:"number,omitempty"`
}

// PreferenceRequest is the payload for creating a checkout preference.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             *Payer           `json:"payer,omitempty"`
	BackURLs          *BackURLs        `json:"back_urls,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	ExternalReference string           `json:"external_reference,omitempty"`
	StatementDescript string           `json:"statement_descriptor,omitempty"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
}

// Preference is the gateway's response to a preference creation.
type Preference struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

// PaymentPayer is the buyer block on an authoritative payment record.
type PaymentPayer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Payment is the authoritative payment detail fetched after a notification.
type Payment struct {
	ID                int64        `json:"id"`
	Status            string       `json:"status"`
	StatusDetail      string       `json:"status_detail"`
	ExternalReference string       `json:"external_reference"`
	TransactionAmount float64      `json:"transaction_amount"`
	CurrencyID        string       `json:"currency_id"`
	DateApproved      string       `json:"date_approved"`
	Payer             PaymentPayer `json:"payer"`
}

// TokenResponse is the OAuth refresh response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	UserID       int64  `json:"user_id"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}
