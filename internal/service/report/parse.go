package report

import (
	"bytes"
	"encoding/json"
	"math"
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// MaxResultChars bounds the analysis result a single job may contribute.
const MaxResultChars = 100_000

type skipReason string

const (
	skipNone      skipReason = ""
	skipEmpty     skipReason = "empty"
	skipOversized skipReason = "oversized"
	skipMalformed skipReason = "malformed"
)

// parsedResult holds the metrics extracted from one job. Fields absent from
// the payload, or present with a non-numeric type, stay zero.
type parsedResult struct {
	HairCount int
	Density   float64
	// HasDensity is false when the payload carries no numeric density.
	HasDensity bool
}

// parseResult returns either the job's metrics or the reason it must be
// skipped.
func parseResult(raw *string) (parsedResult, skipReason) {
	var p parsedResult
	if raw == nil || *raw == "" {
		return p, skipEmpty
	}
	if len(*raw) > MaxResultChars && utf8.RuneCountInString(*raw) > MaxResultChars {
		return p, skipOversized
	}

	data := bytes.TrimSpace([]byte(*raw))
	if !json.Valid(data) || data[0] != '{' {
		return p, skipMalformed
	}

	if v, typ, _, err := jsonparser.Get(data, "hair_count"); err == nil && typ == jsonparser.Number {
		n, err := jsonparser.ParseInt(v)
		if err != nil || n < math.MinInt32 || n > math.MaxInt32 {
			return p, skipMalformed
		}
		p.HairCount = int(n)
	}

	if v, typ, _, err := jsonparser.Get(data, "density"); err == nil && typ == jsonparser.Number {
		f, err := jsonparser.ParseFloat(v)
		if err != nil {
			return p, skipMalformed
		}
		p.Density = f
		p.HasDensity = true
	}

	return p, skipNone
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}

// round2 rounds half to even at two decimals.
func round2(f float64) float64 {
	return math.RoundToEven(f*100) / 100
}
