package adminsession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestIssueParse(t *testing.T) {
	m := NewManager(secret, time.Hour)
	raw, exp, err := m.Issue("Ops@Example.com ")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := m.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", c.Email())
}

func TestParse_Rejects(t *testing.T) {
	m := NewManager(secret, time.Hour)
	raw, _, err := m.Issue("ops@example.com")
	require.NoError(t, err)

	other := NewManager("another-secret-another-secret-xx", time.Hour)
	_, err = other.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidSession)

	_, err = m.Parse("")
	require.ErrorIs(t, err, ErrInvalidSession)

	_, err = m.Parse("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestParse_Expired(t *testing.T) {
	m := NewManager(secret, time.Minute)
	past := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return past }
	raw, _, err := m.Issue("ops@example.com")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(raw)
	require.ErrorIs(t, err, ErrExpiredSession)
}
