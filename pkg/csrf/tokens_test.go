package csrf_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-forms/pkg/csrf"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestGenerateVerifyScoped(t *testing.T) {
	tokens, err := csrf.New(secret)
	require.NoError(t, err)

	token, err := tokens.Generate("Formcontact")
	require.NoError(t, err)

	assert.True(t, tokens.Verify("Formcontact", token))
	assert.False(t, tokens.Verify("Formnewsletter", token))
	assert.False(t, tokens.Verify("Formcontact", ""))
	assert.False(t, tokens.Verify("Formcontact", "not-base64!"))
	assert.False(t, tokens.Verify("Formcontact", token[:len(token)-2]))
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	issuer, err := csrf.New(secret)
	require.NoError(t, err)
	other, err := csrf.New([]byte(strings.Repeat("z", 32)))
	require.NoError(t, err)

	token, err := issuer.Generate("Formcontact")
	require.NoError(t, err)
	assert.False(t, other.Verify("Formcontact", token))
}

func TestGenerateUsesRandomSource(t *testing.T) {
	tokens, err := csrf.New(secret, csrf.WithRandom(bytes.NewReader(make([]byte, 32))))
	require.NoError(t, err)

	first, err := tokens.Generate("Formcontact")
	require.NoError(t, err)
	second, err := tokens.Generate("Formcontact")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = tokens.Generate("Formcontact")
	assert.Error(t, err, "random source exhausted")
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := csrf.New([]byte("short"))
	assert.ErrorIs(t, err, csrf.ErrSecretTooShort)
}
