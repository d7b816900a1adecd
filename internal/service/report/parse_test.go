package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name   string
		raw    *string
		want   parsedResult
		reason skipReason
	}{
		{name: "nil", raw: nil, reason: skipEmpty},
		{name: "empty", raw: str(""), reason: skipEmpty},
		{name: "oversized", raw: str(`{"hair_count":1,"pad":"` + strings.Repeat("x", MaxResultChars) + `"}`), reason: skipOversized},
		{name: "invalid json", raw: str(`{"hair_count":`), reason: skipMalformed},
		{name: "array root", raw: str(`[1,2,3]`), reason: skipMalformed},
		{name: "scalar root", raw: str(`42`), reason: skipMalformed},
		{name: "fractional hair count", raw: str(`{"hair_count":12.5}`), reason: skipMalformed},
		{name: "exponent hair count", raw: str(`{"hair_count":1e3}`), reason: skipMalformed},
		{name: "hair count beyond int32", raw: str(`{"hair_count":3000000000}`), reason: skipMalformed},
		{name: "both metrics", raw: str(`{"hair_count":120,"density":45.678}`), want: parsedResult{HairCount: 120, Density: 45.678, HasDensity: true}},
		{name: "negative values kept raw", raw: str(` {"hair_count":-5,"density":-1} `), want: parsedResult{HairCount: -5, Density: -1, HasDensity: true}},
		{name: "string metrics ignored", raw: str(`{"hair_count":"120","density":"high"}`), want: parsedResult{}},
		{name: "missing metrics", raw: str(`{"follicles":[]}`), want: parsedResult{}},
		{name: "nested metrics ignored", raw: str(`{"stats":{"hair_count":9}}`), want: parsedResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := parseResult(tt.raw)
			assert.Equal(t, tt.reason, reason)
			if tt.reason == skipNone {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseResultAtSizeLimit(t *testing.T) {
	prefix := `{"hair_count":7,"pad":"`
	pad := strings.Repeat("x", MaxResultChars-len(prefix)-2)
	raw := prefix + pad + `"}`

	got, reason := parseResult(&raw)
	assert.Equal(t, skipNone, reason)
	assert.Equal(t, 7, got.HairCount)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 20.0, round2(20))
	assert.Equal(t, 45.68, round2(45.678))
	assert.Equal(t, 0.12, round2(0.125))
	assert.Equal(t, 0.38, round2(0.375))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, clamp(-3, 0, maxHairCount))
	assert.Equal(t, maxHairCount, clamp(25_000, 0, maxHairCount))
	assert.Equal(t, 42, clamp(42, 0, maxHairCount))
}

func str(s string) *string { return &s }
