package matcher

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileBasicRules(t *testing.T) {
	body := "! comment\n[Adblock Plus]\n||ads.example.com^\n@@||safe.ads.example.com^\ntracker\n"
	a, err := Compile(body)
	assert.NoError(t, err)

	assert.True(t, a.Matches("ads.example.com"))
	assert.True(t, a.Matches("sub.ads.example.com"))
	assert.False(t, a.Matches("safe.ads.example.com"), "exception should veto the include match")
	assert.True(t, a.Matches("mytracker.com"), "substring rule")
	assert.False(t, a.Matches("clean.com"))
}

func TestCompileGlobRule(t *testing.T) {
	a, err := Compile("||example.com/ads/*^\n")
	assert.NoError(t, err)
	_ = a // glob compiles without error; exact host-only matching is exercised above
}

func TestDecodeAndCompileBase64(t *testing.T) {
	body := "||blocked.example.com^\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(body))
	a, err := DecodeAndCompile(encoded)
	assert.NoError(t, err)
	assert.True(t, a.Matches("blocked.example.com"))
	assert.False(t, a.Matches("allowed.example.com"))
}

func TestDecodeAndCompileInvalidBase64(t *testing.T) {
	_, err := DecodeAndCompile("not-base64!!")
	assert.Error(t, err)
}
