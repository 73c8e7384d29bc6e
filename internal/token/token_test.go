package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	issued := time.Unix(1700000000, 0).UTC()
	tests := []struct {
		eventID string
		userID  string
	}{
		{"evt1", "user7"},
		{uuid.NewString(), uuid.NewString()},
		{"a", "b"},
		{"event_2024-spring", "USER-42"},
	}

	for _, tt := range tests {
		t.Run(tt.eventID, func(t *testing.T) {
			ref, err := Decode(Encode(tt.eventID, tt.userID, issued))
			require.NoError(t, err)
			assert.Equal(t, tt.eventID, ref.EventID)
			assert.Equal(t, tt.userID, ref.UserID)
			assert.True(t, issued.Equal(ref.IssuedAt))
		})
	}
}

func TestEncode_Format(t *testing.T) {
	got := Encode("evt1", "user7", time.Unix(1700000000, 0))
	assert.Equal(t, "JTM-EVENT:evt1:user7:1700000000", got)
}

func TestDecode_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"JTM-EVENT",
		"JTM-EVENT:evt1:user7",
		"JTM-EVENT:evt1:user7:1700000000:extra",
		"OTHER-TAG:evt1:user7:1700000000",
		"jtm-event:evt1:user7:1700000000",
		"someone@example.com",
		"https://example.com/checkin?evt=1",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestDecode_TypeMismatch(t *testing.T) {
	inputs := []string{
		"JTM-EVENT::user7:1700000000",
		"JTM-EVENT:evt1::1700000000",
		"JTM-EVENT:evt 1:user7:1700000000",
		"JTM-EVENT:evt1:user/7:1700000000",
		"JTM-EVENT:evt1:user7:yesterday",
		"JTM-EVENT:evt1:user7:",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			assert.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

func TestDecode_TrimsScannerWhitespace(t *testing.T) {
	ref, err := Decode("  JTM-EVENT:evt1:user7:1700000000\r\n")
	require.NoError(t, err)
	assert.Equal(t, "evt1", ref.EventID)
	assert.Equal(t, "user7", ref.UserID)
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("evt1"))
	assert.True(t, ValidID(uuid.NewString()))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("has space"))
	assert.False(t, ValidID("colon:inside"))
	assert.False(t, ValidID(string(make([]byte, 65))))
}

func TestCodec_Check(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := Codec{MaxAge: 24 * time.Hour, Skew: 5 * time.Minute, Now: func() time.Time { return now }}

	tests := []struct {
		name    string
		issued  time.Time
		wantErr bool
	}{
		{"fresh", now.Add(-time.Hour), false},
		{"at max age", now.Add(-24 * time.Hour), false},
		{"stale", now.Add(-25 * time.Hour), true},
		{"within skew", now.Add(2 * time.Minute), false},
		{"future", now.Add(time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(Ref{EventID: "e", UserID: "u", IssuedAt: tt.issued})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrExpiredToken)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCodec_ZeroMaxAgeDisablesExpiry(t *testing.T) {
	c := Codec{Now: func() time.Time { return time.Unix(1900000000, 0) }}
	_, err := c.Parse("JTM-EVENT:evt1:user7:1700000000")
	assert.NoError(t, err)
}

func TestCodec_Issue(t *testing.T) {
	c := Codec{Now: func() time.Time { return time.Unix(1700000000, 0) }}

	tok, err := c.Issue("evt1", "user7")
	require.NoError(t, err)
	assert.Equal(t, "JTM-EVENT:evt1:user7:1700000000", tok)

	_, err = c.Issue("evt:1", "user7")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
