package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInputAcceptsFormattedText(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"  1,234.50  ", "1234.5"},
		{"0.75", "0.75"},
		{"1_000", "1000"},
	}
	for _, tc := range cases {
		in := ParseInput(tc.in)
		require.Truef(t, in.Valid, "ParseInput(%q) should be valid", tc.in)
		require.Equal(t, tc.in, in.Raw)
		require.Equal(t, tc.expected, in.Decimal().String())
	}
}

func TestParseInputInvalidIsZero(t *testing.T) {
	for _, raw := range []string{"", "  ", "NaN", "abc", "1.2.3"} {
		in := ParseInput(raw)
		require.False(t, in.Valid, raw)
		require.Equal(t, raw, in.Raw)
		require.True(t, in.Decimal().IsZero(), raw)
	}
}

func TestInputJSON(t *testing.T) {
	var payload struct {
		A Input `json:"a"`
		B Input `json:"b"`
		C Input `json:"c"`
		D Input `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.5,"b":"1,000","c":null,"d":"12."}`), &payload))
	require.Equal(t, "12.5", payload.A.Decimal().String())
	require.Equal(t, "1000", payload.B.Decimal().String())
	require.False(t, payload.C.Valid)
	require.Equal(t, "12.", payload.D.Raw)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":12.5,"b":"1,000","c":"","d":"12."}`, string(out))
}

func TestDiscountEncoding(t *testing.T) {
	require.Equal(t, 1, FlatZero.Encode(Percent))
	require.Equal(t, 0, PercentZero.Encode(Percent))
	require.Equal(t, 1, PercentZero.Encode(Flat))

	dt, ok := PercentZero.Decode("0")
	require.True(t, ok)
	require.Equal(t, Percent, dt)

	dt, ok = FlatZero.Decode("P")
	require.True(t, ok)
	require.Equal(t, Percent, dt)

	_, ok = FlatZero.Decode("7")
	require.False(t, ok)

	enc, err := ParseDiscountEncoding("percent-zero")
	require.NoError(t, err)
	require.Equal(t, PercentZero, enc)
}

func TestDiscountTypeJSON(t *testing.T) {
	var item struct {
		A DiscountType `json:"a"`
		B DiscountType `json:"b"`
		C DiscountType `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":"flat","c":"%"}`), &item))
	require.Equal(t, Percent, item.A)
	require.Equal(t, Flat, item.B)
	require.Equal(t, Percent, item.C)

	var bad DiscountType
	require.Error(t, json.Unmarshal([]byte(`"bogus"`), &bad))
}

func TestDiscountEncodingDecodeJSON(t *testing.T) {
	cases := []struct {
		enc  DiscountEncoding
		data string
		want DiscountType
	}{
		{PercentZero, `0`, Percent},
		{PercentZero, `"1"`, Flat},
		{PercentZero, `"flat"`, Flat},
		{FlatZero, `0`, Flat},
		{FlatZero, `null`, Flat},
		{PercentZero, ``, Flat},
	}
	for _, tc := range cases {
		got, err := tc.enc.DecodeJSON([]byte(tc.data))
		require.NoError(t, err, tc.data)
		require.Equal(t, tc.want, got, "%s %s", tc.enc, tc.data)
	}

	_, err := PercentZero.DecodeJSON([]byte(`2`))
	require.Error(t, err)
	_, err = PercentZero.DecodeJSON([]byte(`{}`))
	require.Error(t, err)
}
