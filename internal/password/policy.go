// Package password implements the configurable password policy: a pure
// validator collecting every violation, a coarse 0–5 strength score and a
// generator whose output always satisfies the policy it was generated from.
package password

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

// DefaultSpecialChars is the special alphabet used when the policy leaves it blank.
const DefaultSpecialChars = `!@#$%^&*()_+-=[]{}|;:,.<>?`

// commonPasswords is the fixed blocklist checked case-insensitively when the
// policy enables DisallowCommonPasswords.
var commonPasswords = []string{
	"password", "123456", "123456789", "12345678", "qwerty",
	"abc123", "111111", "123123", "senha", "senha123",
	"admin", "admin123", "letmein", "welcome", "iloveyou",
	"dragon", "monkey", "master", "sunshine", "princess",
	"000000", "654321", "1q2w3e4r", "qwerty123", "password1",
	"brasil", "mudar123", "teste123",
}

// PersonalHints are optional identity fragments a password must not contain
// when the policy enables DisallowPersonalInfo.
type PersonalHints struct {
	Name  string
	Email string
}

// Result is the outcome of a validation. Errors keeps rule order, so the
// first message is always the most basic violation (length before classes).
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Strength int      `json:"strength"` // 0..5
}

// DefaultPolicy is the rule set applied when no policy row is configured.
func DefaultPolicy() domain.PasswordPolicy {
	return domain.PasswordPolicy{
		MinLength:               8,
		MaxLength:               128,
		RequireUppercase:        true,
		MinUppercase:            1,
		RequireLowercase:        true,
		MinLowercase:            1,
		RequireNumbers:          true,
		MinNumbers:              1,
		RequireSpecialChars:     false,
		MinSpecialChars:         1,
		AllowedSpecialChars:     DefaultSpecialChars,
		DisallowCommonPasswords: true,
		DisallowPersonalInfo:    true,
		HistoryCount:            5,
		Active:                  true,
	}
}

// Validate checks password against policy and hints. All rules are evaluated
// independently; every violation is collected. The function is pure.
//
// The strength score is a coarse heuristic: one point per satisfied
// requirement among length/upper/lower/digit/special, capped at 5. It is not
// entropy-based and should not be treated as a security measurement.
func Validate(password string, policy domain.PasswordPolicy, hints PersonalHints) Result {
	var errs []string
	strength := 0

	upper, lower, digits, specials := countClasses(password, specialAlphabet(policy))

	// 1. Length
	if len(password) < policy.MinLength {
		errs = append(errs, fmt.Sprintf("A senha deve ter pelo menos %d caracteres", policy.MinLength))
	} else if policy.MaxLength > 0 && len(password) > policy.MaxLength {
		errs = append(errs, fmt.Sprintf("A senha deve ter no máximo %d caracteres", policy.MaxLength))
	} else {
		strength++
	}

	// 2. Uppercase
	if policy.RequireUppercase {
		if upper < policy.MinUppercase {
			errs = append(errs, fmt.Sprintf("A senha deve conter pelo menos %d letra(s) maiúscula(s)", policy.MinUppercase))
		} else {
			strength++
		}
	}

	// 3. Lowercase
	if policy.RequireLowercase {
		if lower < policy.MinLowercase {
			errs = append(errs, fmt.Sprintf("A senha deve conter pelo menos %d letra(s) minúscula(s)", policy.MinLowercase))
		} else {
			strength++
		}
	}

	// 3b. Digits
	if policy.RequireNumbers {
		if digits < policy.MinNumbers {
			errs = append(errs, fmt.Sprintf("A senha deve conter pelo menos %d número(s)", policy.MinNumbers))
		} else {
			strength++
		}
	}

	// 3c. Special characters
	if policy.RequireSpecialChars {
		if specials < policy.MinSpecialChars {
			errs = append(errs, fmt.Sprintf("A senha deve conter pelo menos %d caractere(s) especial(is) (%s)", policy.MinSpecialChars, specialAlphabet(policy)))
		} else {
			strength++
		}
	}

	// 4. Common password blocklist
	if policy.DisallowCommonPasswords {
		lowered := strings.ToLower(password)
		for _, common := range commonPasswords {
			if lowered == common {
				errs = append(errs, "Esta senha é muito comum e não pode ser usada")
				break
			}
		}
	}

	// 5. Personal info
	if policy.DisallowPersonalInfo {
		if msg := personalInfoViolation(password, hints); msg != "" {
			errs = append(errs, msg)
		}
	}

	if strength > 5 {
		strength = 5
	}

	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Strength: strength,
	}
}

// specialAlphabet returns the policy's special alphabet, defaulted when blank.
func specialAlphabet(policy domain.PasswordPolicy) string {
	if policy.AllowedSpecialChars == "" {
		return DefaultSpecialChars
	}
	return policy.AllowedSpecialChars
}

// countClasses counts character-class membership in a single pass.
// Special membership comes from the policy alphabet, regex-escaped so
// characters like ] and - are taken literally.
func countClasses(password, specialChars string) (upper, lower, digits, specials int) {
	specialRe := regexp.MustCompile("[" + regexp.QuoteMeta(specialChars) + "]")
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsDigit(r):
			digits++
		}
		if specialRe.MatchString(string(r)) {
			specials++
		}
	}
	return
}

// personalInfoViolation reports a message when the password contains the
// user's name or the local-part of their email, case-insensitive. Fragments
// shorter than 3 runes are ignored to avoid rejecting on noise.
func personalInfoViolation(password string, hints PersonalHints) string {
	lowered := strings.ToLower(password)

	if name := strings.ToLower(strings.TrimSpace(hints.Name)); len(name) >= 3 {
		if strings.Contains(lowered, name) {
			return "A senha não pode conter o seu nome"
		}
	}

	if email := strings.ToLower(strings.TrimSpace(hints.Email)); email != "" {
		local := email
		if idx := strings.Index(email, "@"); idx > 0 {
			local = email[:idx]
		}
		if len(local) >= 3 && strings.Contains(lowered, local) {
			return "A senha não pode conter o seu e-mail"
		}
	}

	return ""
}
