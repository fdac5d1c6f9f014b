package reconcile

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Notification is the parsed webhook hint. Only the payment id is used;
// everything else is confirmed against the gateway.
type Notification struct {
	SellerID  string
	PaymentID string
	Topic     string
}

type notificationBody struct {
	ID    json.Number `json:"id"`
	Type  string      `json:"type"`
	Topic string      `json:"topic"`
	Data  struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// ParseNotification extracts a payment id from the two known payload
// shapes ({data:{id}} and {id}), falling back to the query string the
// gateway uses for legacy IPN deliveries.
func ParseNotification(body []byte, query url.Values) Notification {
	n := Notification{
		SellerID: strings.TrimSpace(query.Get("seller")),
	}

	var parsed notificationBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Data.ID != "" {
			n.PaymentID = parsed.Data.ID.String()
		} else if parsed.ID != "" {
			n.PaymentID = parsed.ID.String()
		}
		if parsed.Type != "" {
			n.Topic = parsed.Type
		} else {
			n.Topic = parsed.Topic
		}
	}

	if n.PaymentID == "" {
		if v := query.Get("data.id"); v != "" {
			n.PaymentID = v
		} else if v := query.Get("id"); v != "" {
			n.PaymentID = v
		}
	}
	if n.Topic == "" {
		if v := query.Get("type"); v != "" {
			n.Topic = v
		} else {
			n.Topic = query.Get("topic")
		}
	}
	return n
}
