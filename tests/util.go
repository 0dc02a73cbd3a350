package testutil

import (
	"context"
	"encoding/json"
	"net/mail"
	"reflect"
	"testing"
	"time"

	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/trust"
)

// Config returns the app configuration tests run with.
func Config() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "PAES",
		SecretKey:        "test-secret",
		DefaultFromEmail: mail.Address{Name: "PAES", Address: "noreply@paes.test"},
		ModeratorEmails:  []mail.Address{{Name: "Mod", Address: "mod@paes.test"}},
		Server:           core.ServerConfig{ShutdownTimeout: time.Second},
		Trust: core.TrustConfig{
			HardFloor:         0.3,
			SoftFlagThreshold: 0.5,
			FingerprintKey:    "test-key",
		},
	}
}

// CreateAction stores a validated action, filling in the fields tests rarely care about.
func CreateAction(t *testing.T, repo trust.Repository, a trust.ValidatedAction) trust.ValidatedAction {
	t.Helper()
	if a.ActionType == "" {
		a.ActionType = trust.ActionLessonViewed
	}
	if a.ItemID == "" {
		a.ItemID = "item-" + a.ID
	}
	if a.SessionID == "" {
		a.SessionID = "sess-1"
	}
	if a.Attempts == 0 {
		a.Attempts = 1
	}
	if a.ServerTimestamp.IsZero() {
		a.ServerTimestamp = time.Now().UTC()
	}
	if a.ClientTimestamp == 0 {
		a.ClientTimestamp = float64(a.ServerTimestamp.Unix())
	}
	if a.Metadata == nil {
		a.Metadata = map[string][]string{}
	}
	if err := repo.InsertAction(context.Background(), a); err != nil {
		t.Fatalf("CreateAction() failed: %v", err)
	}
	return a
}

func MarshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("MarshalObj() failed: %v", err)
	}
	return data
}

// JSONBytesEqual compares two JSON documents regardless of key order.
func JSONBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}
