package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Transport and application-level API errors
	ErrTransport          = fmt.Errorf("network error")
	ErrApplication        = fmt.Errorf("request rejected by server")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrAPIRequest         = fmt.Errorf("API request failed")

	// Session errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrAuthRequired       = fmt.Errorf("please log in first")
	ErrThirdPartyRequired = fmt.Errorf("codeforces certification required")
	ErrAuthCancelled      = fmt.Errorf("authorization cancelled")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Library errors
	ErrAlreadyFavorited = fmt.Errorf("already in favorites")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrNothingLoaded    = fmt.Errorf("no track loaded")

	// Input validation errors
	ErrValidation      = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
