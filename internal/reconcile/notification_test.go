package reconcile

import (
	"net/url"
	"testing"
)

func TestParseNotificationShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		body  string
		query url.Values
		want  Notification
	}{
		{
			name:  "v2 data id",
			body:  `{"type":"payment","data":{"id":"12345"}}`,
			query: url.Values{"seller": {"tienda@example.com"}},
			want:  Notification{SellerID: "tienda@example.com", PaymentID: "12345", Topic: "payment"},
		},
		{
			name:  "numeric ids survive as strings",
			body:  `{"type":"payment","data":{"id":118846298357}}`,
			query: url.Values{"seller": {"s@example.com"}},
			want:  Notification{SellerID: "s@example.com", PaymentID: "118846298357", Topic: "payment"},
		},
		{
			name:  "flat id with topic",
			body:  `{"id":777,"topic":"merchant_order"}`,
			query: url.Values{},
			want:  Notification{PaymentID: "777", Topic: "merchant_order"},
		},
		{
			name:  "legacy ipn query only",
			body:  ``,
			query: url.Values{"data.id": {"42"}, "type": {"payment"}, "seller": {" s@example.com "}},
			want:  Notification{SellerID: "s@example.com", PaymentID: "42", Topic: "payment"},
		},
		{
			name:  "id query fallback",
			body:  `not json`,
			query: url.Values{"id": {"9"}, "topic": {"payment"}},
			want:  Notification{PaymentID: "9", Topic: "payment"},
		},
		{
			name:  "empty everything",
			body:  `{}`,
			query: url.Values{},
			want:  Notification{},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ParseNotification([]byte(tc.body), tc.query)
			if got != tc.want {
				t.Fatalf("ParseNotification() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
