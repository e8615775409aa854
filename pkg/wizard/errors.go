package wizard

import (
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/templates"
)

// Text codes carried by wizard errors.
const (
	TextCodeMissingSession   = "MISSING_SESSION"
	TextCodeWrongStep        = "WRONG_STEP"
	TextCodeNoAccess         = "NO_ACCESS"
	TextCodeAccessExpired    = "ACCESS_EXPIRED"
	TextCodeZeroRemaining    = "ZERO_REMAINING"
	TextCodeTransportFailure = "TRANSPORT_FAILURE"
	TextCodeRenderFailure    = "RENDER_FAILURE"
)

// MissingSession is returned when a continuation finds no live session.
func MissingSession(userID string) error {
	return goerrors.New("your session has expired, please start again", goerrors.CategoryNotFound).
		WithTextCode(TextCodeMissingSession).
		WithMetadata(map[string]any{"user": userID})
}

func wrongStep(want, got State) error {
	return goerrors.New(fmt.Sprintf("this step is not open (session is at %s)", got), goerrors.CategoryConflict).
		WithTextCode(TextCodeWrongStep).
		WithMetadata(map[string]any{"expected": string(want), "state": string(got)})
}

// AccessDenied converts a denied decision into an authorization error that
// carries the reason and expiry as metadata.
func AccessDenied(d access.Decision) error {
	code, msg := TextCodeNoAccess, "you do not have access, redeem a code or ask an administrator"
	switch d.Reason {
	case access.ReasonExpired:
		code, msg = TextCodeAccessExpired, "your access has expired"
	case access.ReasonZeroRemaining:
		code, msg = TextCodeZeroRemaining, "you have no remaining uses"
	}

	meta := map[string]any{"reason": string(d.Reason)}
	if d.ExpiresAt != nil {
		meta["expires_at"] = d.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return goerrors.New(msg, goerrors.CategoryAuthz).WithTextCode(code).WithMetadata(meta)
}

// TransportFailure wraps a mail delivery error.
func TransportFailure(err error) error {
	return wrapAs(err, goerrors.CategoryExternal, TextCodeTransportFailure, "the order email could not be sent")
}

func renderFailure(err error) error {
	return wrapAs(err, goerrors.CategoryInternal, TextCodeRenderFailure, "the order document could not be rendered")
}

// wrapAs wraps err and forces category; go-errors keeps the source category
// when err is already an *Error.
func wrapAs(err error, category goerrors.Category, code, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := goerrors.Wrap(err, category, msg)
	wrapped.Category = category
	return wrapped.WithTextCode(code)
}

// TextCode returns the go-errors text code of err, or "".
func TextCode(err error) string {
	var e *goerrors.Error
	if goerrors.As(err, &e) && e != nil {
		return e.TextCode
	}
	return ""
}

// IsValidation reports a field validation failure; the step stays open.
func IsValidation(err error) bool {
	return goerrors.IsValidation(err)
}

// IsMissingSession reports whether err is a MissingSession error.
func IsMissingSession(err error) bool {
	return TextCode(err) == TextCodeMissingSession
}

// IsUnknownTemplate reports whether err names a template missing from the catalog.
func IsUnknownTemplate(err error) bool {
	return templates.IsUnknownTemplate(err)
}

// IsTransportFailure reports whether err is a mail delivery failure.
func IsTransportFailure(err error) bool {
	return TextCode(err) == TextCodeTransportFailure
}

// AccessReason extracts the denial reason from an AccessDenied error.
func AccessReason(err error) (access.Reason, bool) {
	var e *goerrors.Error
	if !goerrors.As(err, &e) || e == nil || e.Category != goerrors.CategoryAuthz {
		return access.ReasonNone, false
	}
	reason, ok := e.Metadata["reason"].(string)
	return access.Reason(reason), ok
}
