package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

const (
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars     = "0123456789"
)

// generateAttempts bounds the rejection-sampling loop in Generate. A
// candidate only fails validation by colliding with the common-password
// blocklist or a degenerate policy, so one retry is already rare.
const generateAttempts = 16

// Generate assembles a password that satisfies every minimum-count
// requirement of the policy, pads to MinLength from the union alphabet and
// shuffles the result. Each candidate is checked against the full policy
// before being returned, so the round-trip property holds unconditionally:
// the returned password always validates against the same policy.
//
// Uses crypto/rand throughout; an error surfaces when the system entropy
// source fails or the policy admits no compliant password.
func Generate(policy domain.PasswordPolicy) (string, error) {
	for i := 0; i < generateAttempts; i++ {
		candidate, err := generateCandidate(policy)
		if err != nil {
			return "", err
		}
		if Validate(candidate, policy, PersonalHints{}).Valid {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no policy-compliant password after %d attempts", generateAttempts)
}

func generateCandidate(policy domain.PasswordPolicy) (string, error) {
	specials := specialAlphabet(policy)

	var chars []byte

	pick := func(alphabet string, n int) error {
		for i := 0; i < n; i++ {
			c, err := randomChar(alphabet)
			if err != nil {
				return err
			}
			chars = append(chars, c)
		}
		return nil
	}

	// Satisfy each declared class minimum first.
	if policy.RequireUppercase {
		if err := pick(uppercaseChars, max(policy.MinUppercase, 1)); err != nil {
			return "", err
		}
	}
	if policy.RequireLowercase {
		if err := pick(lowercaseChars, max(policy.MinLowercase, 1)); err != nil {
			return "", err
		}
	}
	if policy.RequireNumbers {
		if err := pick(digitChars, max(policy.MinNumbers, 1)); err != nil {
			return "", err
		}
	}
	if policy.RequireSpecialChars {
		if err := pick(specials, max(policy.MinSpecialChars, 1)); err != nil {
			return "", err
		}
	}

	// Pad to MinLength from the union alphabet. The union always includes
	// lowercase so an all-flags-off policy still yields characters.
	union := buildUnion(policy, specials)
	for len(chars) < policy.MinLength {
		c, err := randomChar(union)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	if err := shuffle(chars); err != nil {
		return "", err
	}

	return string(chars), nil
}

func buildUnion(policy domain.PasswordPolicy, specials string) string {
	var b strings.Builder
	if policy.RequireUppercase {
		b.WriteString(uppercaseChars)
	}
	if policy.RequireLowercase {
		b.WriteString(lowercaseChars)
	}
	if policy.RequireNumbers {
		b.WriteString(digitChars)
	}
	if policy.RequireSpecialChars {
		b.WriteString(specials)
	}
	if b.Len() == 0 {
		b.WriteString(lowercaseChars)
	}
	return b.String()
}

func randomChar(alphabet string) (byte, error) {
	if alphabet == "" {
		return 0, fmt.Errorf("empty alphabet")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return alphabet[n.Int64()], nil
}

// shuffle performs a Fisher-Yates shuffle backed by crypto/rand.
func shuffle(chars []byte) error {
	for i := len(chars) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("read entropy: %w", err)
		}
		j := n.Int64()
		chars[i], chars[j] = chars[j], chars[i]
	}
	return nil
}
