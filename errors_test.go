package easyhttp

import (
	"context"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHttpErrorCodes(t *testing.T) {
	cases := []struct {
		err  *HttpError
		kind Kind
		code int
	}{
		{IllegalStateError("x"), KindIllegalState, CodeIllegalState},
		{IllegalArgumentError("x"), KindIllegalArgument, CodeIllegalArgument},
		{ExecutionError("x"), KindExecution, CodeExecution},
		{TimeoutError(errors.New("boom")), KindTimeout, CodeTimeout},
		{SslError(errors.New("boom")), KindSsl, CodeSsl},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, c.err.Kind)
		assert.Equal(t, c.code, c.err.Code)
		assert.True(t, IsKind(c.err, c.kind))
	}
}

func TestHttpErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := TimeoutError(cause)
	assert.ErrorIs(t, err, cause)
}

func TestClassifyErrorPassesThroughExistingHttpError(t *testing.T) {
	original := ExecutionError("cancelled")
	assert.Same(t, original, classifyError(original))
}

func TestClassifyErrorMapsDeadlineExceededToTimeout(t *testing.T) {
	err := classifyError(context.DeadlineExceeded)
	assert.True(t, IsKind(err, KindTimeout))
}

func TestClassifyErrorMapsCertificateFailureToSsl(t *testing.T) {
	err := classifyError(x509.HostnameError{Certificate: &x509.Certificate{}, Host: "example.com"})
	assert.True(t, IsKind(err, KindSsl))
}

func TestClassifyErrorMapsOtherErrorsToExecution(t *testing.T) {
	err := classifyError(errors.New("connection reset by peer"))
	assert.True(t, IsKind(err, KindExecution))
}

func TestHttpErrorMessage(t *testing.T) {
	err := ExecutionError("too many retry request. 5 times.")
	assert.Contains(t, err.Error(), "too many retry request. 5 times.")
	assert.Contains(t, err.Error(), "100720")
}
