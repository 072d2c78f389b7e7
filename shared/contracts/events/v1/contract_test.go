package v1

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeValidate(t *testing.T) {
	ok := Envelope{V: Version, Type: TypeTaskCreated, TS: time.Now(), Payload: json.RawMessage(`{}`)}

	cases := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{"valid", ok, false},
		{"missing version", Envelope{Type: TypeHello}, true},
		{"wrong version", Envelope{V: "v2", Type: TypeHello}, true},
		{"missing type", Envelope{V: Version}, true},
		{"unknown type", Envelope{V: Version, Type: "message_send"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.env.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}
