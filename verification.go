package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/authgate-io/authgate/internal"
	"github.com/authgate-io/authgate/token"
)

const verificationSMSFormat = "verification code: %s"

func (s *Service) lookupIdentity(ctx context.Context, ref IdentityRef) (*UserRecord, error) {
	switch ref.Kind {
	case token.UserReal:
		return s.directory.ByNationalCode(ctx, ref.NationalCode)
	case token.UserLegal:
		return s.directory.ByCompanyCode(ctx, ref.CompanyCode)
	default:
		return nil, ErrUnknownIdentityKind
	}
}

// validateIntent enforces the identity-consistency rules shared by send and
// verify: an EXISTENT_USER intent must resolve to an account carrying the
// same phone number, a NEW_USER intent must not resolve at all. It runs
// before any cache mutation; an inconsistent identity state always wins over
// code correctness.
func (s *Service) validateIntent(ctx context.Context, identity IdentityRef, phone string, verifyAs VerifyAs) error {
	switch verifyAs {
	case VerifyAsExistentUser:
		user, err := s.lookupIdentity(ctx, identity)
		if err != nil {
			if errors.Is(err, ErrUserDoesNotExist) {
				return ErrUserDoesNotExist
			}
			return err
		}
		if user.Phone != phone {
			return ErrUserDoesNotExist
		}
		return nil
	case VerifyAsNewUser:
		_, err := s.lookupIdentity(ctx, identity)
		if err == nil {
			return ErrUserAlreadyExists
		}
		if errors.Is(err, ErrUserDoesNotExist) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("invalid verify_as intent %q", verifyAs)
	}
}

// SendVerificationCode validates the request, generates a fresh code for the
// phone number, stores it with the configured TTL, and schedules the SMS
// fire-and-forget: the caller observes success as soon as the cache write
// lands, regardless of delivery.
//
// A live record for the same phone and disambiguator fails with
// [ErrCodeAlreadySent] and sends nothing; a live record bound to a different
// disambiguator is overwritten — the last successful send wins. The window
// between the record check and the cache write is not atomic against a
// concurrent send for the same phone; the shared cache is the consistency
// envelope, best effort by design.
func (s *Service) SendVerificationCode(ctx context.Context, req SendCodeRequest) error {
	if err := s.validateIntent(ctx, req.Identity, req.Phone, req.VerifyAs); err != nil {
		return err
	}

	extra, err := req.Identity.Disambiguator()
	if err != nil {
		return err
	}

	existing, err := s.verification.Get(ctx, req.Phone)
	if err != nil {
		return err
	}
	if existing != nil && existing.Extra == extra {
		s.metrics.Inc(MetricCodeResendBlocked)
		return ErrCodeAlreadySent
	}

	code, err := internal.NewVerificationCode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	record := &verificationRecord{Code: code, Extra: extra}
	if err := s.verification.Save(ctx, req.Phone, record, s.config.Verification.CodeTTL); err != nil {
		return err
	}

	s.metrics.Inc(MetricCodeSent)
	s.notify.Enqueue(notification{
		phone: req.Phone,
		text:  fmt.Sprintf(verificationSMSFormat, code),
	})
	return nil
}

// CodeAlreadySent reports whether a live code bound to this request's
// identity already exists. It validates the same rules as send and mutates
// nothing; API layers use it to answer "already sent" without reissuing.
func (s *Service) CodeAlreadySent(ctx context.Context, req SendCodeRequest) (bool, error) {
	if err := s.validateIntent(ctx, req.Identity, req.Phone, req.VerifyAs); err != nil {
		return false, err
	}

	extra, err := req.Identity.Disambiguator()
	if err != nil {
		return false, err
	}

	record, err := s.verification.Get(ctx, req.Phone)
	if err != nil {
		return false, err
	}
	return record != nil && record.Extra == extra, nil
}

// VerifyCode checks a submitted code against the live record for the phone
// number. Success requires code equality and disambiguator equality; a
// missing record, a wrong code, and a wrong disambiguator all fail with the
// same [ErrInvalidVerificationCode] so callers cannot enumerate valid codes
// or identities. With deleteOnSuccess the record is consumed (one-time use);
// otherwise it survives until natural expiry for idempotent re-checks.
func (s *Service) VerifyCode(ctx context.Context, req VerifyCodeRequest, deleteOnSuccess bool) error {
	if err := s.validateIntent(ctx, req.Identity, req.Phone, req.VerifyAs); err != nil {
		return err
	}

	extra, err := req.Identity.Disambiguator()
	if err != nil {
		return err
	}

	record, err := s.verification.Get(ctx, req.Phone)
	if err != nil {
		return err
	}
	if record == nil || record.Code != req.Code || record.Extra != extra {
		s.metrics.Inc(MetricCodeRejected)
		return ErrInvalidVerificationCode
	}

	if deleteOnSuccess {
		if err := s.verification.Delete(ctx, req.Phone); err != nil {
			return err
		}
	}

	s.metrics.Inc(MetricCodeVerified)
	return nil
}
