package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	bodies := [][]byte{
		[]byte(`{"event":"payment.completed"}`),
		[]byte(``),
		[]byte("\x00\xffbinary"),
	}
	for _, body := range bodies {
		sig := Sign(body, "secret")
		assert.Len(t, sig, 64)
		assert.True(t, Verify(body, sig, "secret"))
		assert.False(t, Verify(body, sig, "other"))
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	body := []byte(`{"event":"payment.completed","data":{"amount":500}}`)
	sig := Sign(body, "secret")

	mutated := append([]byte(nil), body...)
	mutated[len(mutated)-3] = '1'
	assert.False(t, Verify(mutated, sig, "secret"))

	badSig := []byte(sig)
	if badSig[0] == 'a' {
		badSig[0] = 'b'
	} else {
		badSig[0] = 'a'
	}
	assert.False(t, Verify(body, string(badSig), "secret"))

	assert.False(t, Verify(body, "not-hex", "secret"))
	assert.False(t, Verify(body, sig[:10], "secret"))
}
