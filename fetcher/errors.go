package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"

	"github.com/cockroachdb/errors"
)

const (
	kindTimeout    = "timeout"
	kindDNS        = "dns"
	kindConnection = "connection"
	kindTLS        = "tls"
	kindCanceled   = "canceled"
	kindProtocol   = "protocol"
	kindOther      = "other"
)

// errDecode marks response bodies that could not be decoded.
var errDecode = errors.New("malformed response body")

func newFailure(err error) *Failure {
	return &Failure{
		Message: err.Error(),
		Kind:    classify(err),
	}
}

// classify labels a transport error by its underlying cause.
func classify(err error) string {
	if err == nil {
		return kindOther
	}
	if errors.Is(err, context.Canceled) {
		return kindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return kindTimeout
	}
	if errors.Is(err, errDecode) {
		return kindProtocol
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return kindTimeout
		}
		return kindDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return kindTimeout
	}

	if isTLSError(err) {
		return kindTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return kindConnection
	}
	return kindOther
}

func isTLSError(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		certInvalid x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &certInvalid)
}
