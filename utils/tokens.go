package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

//
// ===========================================================
//  TOKEN & CODE GENERATORS
// ===========================================================
//

const digitCharset = "0123456789"

// GenerateSecureToken returns a hex token of length bytes.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateNumericCode returns n random decimal digits (crypto/rand, no modulo bias).
func GenerateNumericCode(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid length")
	}
	var sb strings.Builder
	max := big.NewInt(int64(len(digitCharset)))
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(digitCharset[num.Int64()])
	}
	return sb.String(), nil
}

//
// ===========================================================
//  DIGITS
// ===========================================================
//

// NormalizeDigits maps Bangla digits (০-৯) to ASCII and drops everything
// that is not a digit.
func NormalizeDigits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r >= '০' && r <= '৯':
			sb.WriteRune('0' + (r - '০'))
		}
	}
	return sb.String()
}

//
// ===========================================================
//  LINKS / MASKING
// ===========================================================
//

// BuildFrontendLink joins the frontend base URL, a path and a token query.
func BuildFrontendLink(frontendURL, path, token string) string {
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	frontendURL = strings.TrimRight(frontendURL, "/")
	return fmt.Sprintf("%s/%s?token=%s", frontendURL, strings.TrimLeft(path, "/"), token)
}

// MaskEmail returns masked email for safe display and logs.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}
	local := parts[0]
	domain := parts[1]

	maskedLocal := local
	if len(local) > 2 {
		maskedLocal = local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:]
	} else if len(local) == 2 {
		maskedLocal = local[:1] + "*"
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) >= 2 && len(domainParts[0]) > 1 {
		domainParts[0] = domainParts[0][:1] + strings.Repeat("*", len(domainParts[0])-1)
	}

	return maskedLocal + "@" + strings.Join(domainParts, ".")
}
