package guard

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"accountd/internal/apperr"
	"accountd/internal/geo"
	"accountd/internal/token"
)

const (
	msgNoToken        = "No authorization token was found."
	msgSessionExpired = "Your session has expired."
)

// verifyAuthorization distinguishes only "no token at all" from "token
// present but unusable". Both are Unauthorized; callers cannot probe further.
func verifyAuthorization(codec *token.Codec, raw string) error {
	if raw == "" {
		return apperr.New(apperr.Unauthorized, msgNoToken)
	}
	if _, err := codec.Verify(raw); err != nil {
		return apperr.Wrap(apperr.Unauthorized, msgSessionExpired, err)
	}
	return nil
}

// Authenticated requires a verifiable token whose accountId claim is a
// structurally valid UUID.
func Authenticated(codec *token.Codec) Guard {
	return func(ctx context.Context, req *Request) Result {
		if err := verifyAuthorization(codec, req.RawToken); err != nil {
			return Deny(err)
		}
		if req.Claims.AccountID == "" || uuid.Validate(req.Claims.AccountID) != nil {
			return Deny(apperr.New(apperr.Unauthorized, msgSessionExpired))
		}
		return Skip()
	}
}

// HasCredentials requires a verifiable token whose credentialId claim is a
// structurally valid UUID. No gateway operation is credential-scoped yet; it
// is kept alongside Authenticated for operations that act on the credential
// rather than the account, such as a password change.
func HasCredentials(codec *token.Codec) Guard {
	return func(ctx context.Context, req *Request) Result {
		if err := verifyAuthorization(codec, req.RawToken); err != nil {
			return Deny(err)
		}
		if req.Claims.CredentialID == "" || uuid.Validate(req.Claims.CredentialID) != nil {
			return Deny(apperr.New(apperr.Unauthorized, msgSessionExpired))
		}
		return Skip()
	}
}

var ipv4Pattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// extractIPv4 pulls the first IPv4-looking substring out of addr. When there
// is none (IPv6, garbage), addr passes through unchanged and the lookup
// provider decides what to make of it.
func extractIPv4(addr string) string {
	if match := ipv4Pattern.FindString(addr); match != "" {
		return match
	}
	return addr
}

// BlockEmbargoed denies callers resolved to the embargoed region. With
// bypass set (development-like environments) it never objects, regardless of
// the lookup collaborator.
func BlockEmbargoed(lookup geo.Lookup, region, message string, bypass bool) Guard {
	return func(ctx context.Context, req *Request) Result {
		if bypass {
			return Skip()
		}

		resolved, err := lookup.Lookup(ctx, extractIPv4(req.IP))
		if err != nil {
			return Deny(apperr.Wrap(apperr.External,
				"A data provider seems to be down right now. Try again later.", err))
		}

		if resolved.ContinentCode == region {
			return Deny(apperr.New(apperr.UnavailableForLegalReasons, message))
		}
		return Skip()
	}
}
