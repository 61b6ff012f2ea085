package payments

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
)

// IntegritySignature computes the widget integrity hash:
// sha256(reference + amountInCents + currency + integrityKey), hex encoded.
//
// The gateway defines the fields without a delimiter, so ("order1", "00") and
// ("order", "100") hash the same. Field order must not change; empty fields
// are rejected so at least the degenerate collisions cannot be produced.
func IntegritySignature(reference, amountInCents, currency, integrityKey string) (string, error) {
	return IntegritySignatureWithExpiration(reference, amountInCents, currency, "", integrityKey)
}

// IntegritySignatureWithExpiration includes the optional ISO8601 expiration
// time between currency and key, as the gateway expects.
func IntegritySignatureWithExpiration(reference, amountInCents, currency, expirationTime, integrityKey string) (string, error) {
	if integrityKey == "" {
		return "", apperror.NewConfig("WOMPI_INTEGRITY_KEY is not configured")
	}
	if reference == "" {
		return "", apperror.NewValidation("missing_reference", "reference is required")
	}
	if amountInCents == "" {
		return "", apperror.NewValidation("missing_amount", "amount is required")
	}
	if !isDigits(amountInCents) {
		return "", apperror.NewValidation("invalid_amount", "amount must be an integer number of cents")
	}
	if currency == "" {
		return "", apperror.NewValidation("missing_currency", "currency is required")
	}

	var b strings.Builder
	b.WriteString(reference)
	b.WriteString(amountInCents)
	b.WriteString(currency)
	b.WriteString(expirationTime)
	b.WriteString(integrityKey)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

var maxAmountInCents = decimal.NewFromInt(math.MaxInt64)

// ParseAmountInCents accepts minor units ("200000") or a decimal amount in
// major units ("2000.50"), which is converted to cents.
func ParseAmountInCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, apperror.NewValidation("missing_amount", "amount is required")
	}

	if isDigits(s) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, apperror.NewValidation("invalid_amount", "amount is out of range")
		}
		return v, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, apperror.NewValidation("invalid_amount", "amount must be a number")
	}
	if d.IsNegative() {
		return 0, apperror.NewValidation("invalid_amount", "amount must not be negative")
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, apperror.NewValidation("invalid_amount", "amount has more than two decimals")
	}
	// IntPart wraps silently past int64.
	if cents.GreaterThan(maxAmountInCents) {
		return 0, apperror.NewValidation("invalid_amount", "amount is out of range")
	}
	return cents.IntPart(), nil
}

// VerifyEventChecksum checks a gateway event: sha256 over the values named in
// signature.properties (resolved against data), the timestamp and the events
// secret. headerChecksum is used when the body carries none.
func VerifyEventChecksum(payload []byte, headerChecksum, eventsSecret string) bool {
	secret := strings.TrimSpace(eventsSecret)
	if secret == "" || !gjson.ValidBytes(payload) {
		return false
	}

	expected := strings.TrimSpace(gjson.GetBytes(payload, "signature.checksum").String())
	if expected == "" {
		expected = strings.TrimSpace(headerChecksum)
	}
	if expected == "" {
		return false
	}

	props := gjson.GetBytes(payload, "signature.properties").Array()
	if len(props) == 0 {
		return false
	}

	data := gjson.GetBytes(payload, "data")
	var b strings.Builder
	for _, p := range props {
		b.WriteString(data.Get(p.String()).String())
	}
	b.WriteString(gjson.GetBytes(payload, "timestamp").String())
	b.WriteString(secret)

	sum := sha256.Sum256([]byte(b.String()))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(expected))) == 1
}

// EventID derives a stable delivery id. The gateway retries with the same
// body, so the payload hash dedupes redeliveries.
func EventID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "hash:" + hex.EncodeToString(sum[:])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
