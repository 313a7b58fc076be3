package polymarket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestOrderAmounts(t *testing.T) {
	cases := []struct {
		name         string
		price, size  float64
		maker, taker int64
	}{
		{"tick 0.01", 0.45, 10, 4_500_000, 10_000_000},
		{"fractional shares", 0.45, 12.34, 5_553_000, 12_340_000},
		{"tick 0.001", 0.455, 10, 4_550_000, 10_000_000},
		{"sub-cent shares round", 0.50, 10.004, 5_000_000, 10_000_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			maker, taker, err := orderAmounts(tc.price, tc.size)
			require.NoError(t, err)
			assert.Equal(t, tc.maker, maker)
			assert.Equal(t, tc.taker, taker)
		})
	}
}

func TestOrderAmounts_Invalid(t *testing.T) {
	_, _, err := orderAmounts(0.45, 0.001)
	assert.Error(t, err)
	_, _, err = orderAmounts(0, 10)
	assert.Error(t, err)
}

func TestL2Headers_HMAC(t *testing.T) {
	ac, err := NewAuthClient(NewClient("", "", 0), AuthConfig{
		PrivateKeyHex: testPrivateKey,
		Credentials: APICredentials{
			APIKey:     "key-1",
			Secret:     "c2VjcmV0LXNlY3JldC1zZWNyZXQ=",
			Passphrase: "pass-1",
		},
	})
	require.NoError(t, err)

	h, err := ac.l2Headers("post", "/order", `{"a":1}`, time.Unix(1700000000, 0))
	require.NoError(t, err)

	assert.Equal(t, "UPcILEOcW9N1dYcB42keHjHwHCP4D8Ne3vYQEn8JmJg=", h["POLY_SIGNATURE"])
	assert.Equal(t, "1700000000", h["POLY_TIMESTAMP"])
	assert.Equal(t, "key-1", h["POLY_API_KEY"])
	assert.Equal(t, "pass-1", h["POLY_PASSPHRASE"])
	assert.Equal(t, ac.Address(), h["POLY_ADDRESS"])
}

func TestL2Headers_NoCredentials(t *testing.T) {
	ac, err := NewAuthClient(NewClient("", "", 0), AuthConfig{PrivateKeyHex: testPrivateKey})
	require.NoError(t, err)

	_, err = ac.l2Headers("GET", "/orders", "", time.Now())
	assert.Error(t, err)
}

func TestDetectPricePrecision(t *testing.T) {
	assert.Equal(t, int64(100), detectPricePrecision(0.45))
	assert.Equal(t, int64(1000), detectPricePrecision(0.673))
	assert.Equal(t, int64(10000), detectPricePrecision(0.6735))
}
