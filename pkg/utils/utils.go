package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	mrand "math/rand"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// keyChars is the character pool used by the random string generators.
const keyChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789abcdefghijklmnopqrstuvwxyz"

var (
	inumPattern   = regexp.MustCompile(`[@!.]`)
	renderPattern = regexp.MustCompile(`%\(([^)]+)\)s`)
)

// AsBoolean reports whether val represents a truthy string.
// Accepted truthy values are "t", "T", "true", "True", "TRUE" and "1";
// anything else (including unrecognized strings) is false.
func AsBoolean(val string) bool {
	switch val {
	case "t", "T", "true", "True", "TRUE", "1":
		return true
	}
	return false
}

// GetRandomChars returns a random string of the given size drawn from
// ASCII letters and digits. It is suitable for identifiers and
// non-sensitive tokens; use GetSysRandomChars for secrets.
func GetRandomChars(size int) string {
	b := make([]byte, size)
	for i := range b {
		b[i] = keyChars[mrand.Intn(len(keyChars))]
	}
	return string(b)
}

// GetSysRandomChars returns a random string of the given size drawn from
// ASCII letters and digits using the operating system's CSPRNG.
func GetSysRandomChars(size int) (string, error) {
	b := make([]byte, size)
	max := big.NewInt(int64(len(keyChars)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = keyChars[n.Int64()]
	}
	return string(b), nil
}

// GetQuad returns a 4-character uppercase hexadecimal chunk taken from a
// random UUID, as used in inum generation.
func GetQuad() string {
	return strings.ToUpper(uuid.NewString()[:4])
}

// JoinQuadStr returns num quads joined with dots, e.g. "ABC1.DEF2".
func JoinQuadStr(num int) string {
	quads := make([]string, num)
	for i := range quads {
		quads[i] = GetQuad()
	}
	return strings.Join(quads, ".")
}

// SafeInumStr strips characters that are unsafe in inum-derived names
// ("@", "!" and ".").
func SafeInumStr(val string) string {
	return inumPattern.ReplaceAllString(val, "")
}

// Reindent strips leading whitespace from every line of text and indents
// each line with numSpaces spaces.
func Reindent(text string, numSpaces int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Repeat(" ", numSpaces) + strings.TrimLeft(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// GenerateBase64Contents encodes text as base64 and reindents the result,
// matching the layout expected by LDIF and property templates.
func GenerateBase64Contents(text string, numSpaces int) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	return Reindent(encoded, numSpaces)
}

// SafeRender substitutes "%(name)s" placeholders in text with values from
// ctx. Literal percent signs and placeholders with no matching key are
// left untouched.
//
// Example usage:
//
//	out := utils.SafeRender("host: %(hostname)s", map[string]string{"hostname": "db-1"})
func SafeRender(text string, ctx map[string]string) string {
	return renderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := renderPattern.FindStringSubmatch(match)[1]
		if val, ok := ctx[key]; ok {
			return val
		}
		return match
	})
}
