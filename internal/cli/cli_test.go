package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Shivanand-hulikatti/event-checkin/internal/auth"
	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "token", "staff-token", "scan", "seed"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "", "--format", "xml", "token", "decode", "JTM-EVENT:gala:user7:1700000000")
	assert.ErrorContains(t, err, "invalid format")
}

func TestTokenEncodeDecode(t *testing.T) {
	out, err := execute(t, "", "token", "encode", "gala", "user7", "--at", "1700000000")
	require.NoError(t, err)
	assert.Equal(t, "JTM-EVENT:gala:user7:1700000000\n", out)

	out, err = execute(t, "", "--format", "json", "token", "decode", "JTM-EVENT:gala:user7:1700000000")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]string{
		"event_id":  "gala",
		"user_id":   "user7",
		"issued_at": "2023-11-14T22:13:20Z",
	}, got)

	_, err = execute(t, "", "token", "decode", "JTM-EVENT:gala:user7")
	assert.Error(t, err)

	_, err = execute(t, "", "token", "encode", "ga:la", "user7")
	assert.Error(t, err)
}

func TestStaffToken(t *testing.T) {
	chdirForTest(t, t.TempDir())
	t.Setenv("JWT_SECRET", "door-secret")

	out, err := execute(t, "", "staff-token", "door-1", "--role", "admin")
	require.NoError(t, err)

	claims, err := auth.NewSigner("door-secret").Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "door-1", claims.Sub)
	assert.Equal(t, auth.RoleAdmin, claims.Role)

	_, err = execute(t, "", "staff-token", "door-1", "--role", "owner")
	assert.ErrorContains(t, err, "invalid role")
}

const seedJSON = `{
  "events": [{"id": "gala", "title": "Annual Gala", "date": "2023-11-14T18:00:00Z", "location": "Town Hall",
              "fields": [{"id": "tshirt", "kind": "choice", "choices": ["S", "M", "L"]}]}],
  "registrants": [{"id": "user7", "name": "Asha Rao", "email": "Asha@Example.com"}],
  "rsvps": [{"id": "rsvp-1", "event_id": "gala", "user_id": "user7", "payment_confirmed": true,
             "guest_count": 2, "meals": {"veg": 2, "kids": 1},
             "responses": {"tshirt": {"kind": "choice", "value": "M"}}}]
}`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSeedFile_Apply(t *testing.T) {
	f, err := ReadSeedFile(writeSeed(t, seedJSON))
	require.NoError(t, err)

	mem := repository.NewMemory()
	require.NoError(t, f.Apply(context.Background(), mem))

	rsvp, err := mem.FindRSVP(context.Background(), "gala", "user7")
	require.NoError(t, err)
	assert.Equal(t, 3, rsvp.CouponsOwed())
	assert.Equal(t, model.Meals{Veg: 2, Kids: 1}, rsvp.Meals)
	assert.Equal(t, model.Choice("M"), rsvp.Responses["tshirt"])

	reg, err := mem.FindRegistrantByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user7", reg.ID)

	assert.ErrorIs(t, f.Apply(context.Background(), mem), repository.ErrDuplicate)
}

func TestReadSeedFile_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad event id":      `{"events": [{"id": "ga la", "title": "x"}]}`,
		"bad user id":       `{"registrants": [{"id": "user:7", "name": "A", "email": "a@example.com"}]}`,
		"bad email":         `{"registrants": [{"id": "user7", "name": "A", "email": "nope"}]}`,
		"negative guests":   `{"rsvps": [{"event_id": "gala", "user_id": "user7", "guest_count": -1}]}`,
		"negative meals":    `{"rsvps": [{"event_id": "gala", "user_id": "user7", "meals": {"veg": -2}}]}`,
		"bad response kind": `{"rsvps": [{"event_id": "gala", "user_id": "user7", "responses": {"x": {"kind": "date", "value": "today"}}}]}`,
		"not json":          `events: []`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSeedFile(writeSeed(t, body))
			assert.Error(t, err)
		})
	}
}

func TestDescribe(t *testing.T) {
	reg := model.RegistrantInfo{Name: "Asha Rao"}
	assert.Equal(t, "CHECKED IN  Asha Rao, hand over 3 coupons",
		describe(&model.ScanResult{Success: true, CouponsOwed: 3, Registrant: reg}, http.StatusOK))
	assert.Equal(t, "ALREADY IN  Asha Rao, coupons owed 3, food given true",
		describe(&model.ScanResult{Success: true, AlreadyCheckedIn: true, CouponsOwed: 3, FoodTokenGiven: true, Registrant: reg}, http.StatusOK))
	assert.Equal(t, "REFUSED (402) payment not confirmed",
		describe(&model.ScanResult{Error: "payment not confirmed"}, http.StatusPaymentRequired))
}
