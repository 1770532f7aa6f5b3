package services

import (
	"errors"
	"fmt"
)

const (
	CodeMissingOption      = "MISSING_OPTION"
	CodePollNotFound       = "POLL_NOT_FOUND"
	CodePollExpired        = "POLL_EXPIRED"
	CodeMultipleNotAllowed = "MULTIPLE_NOT_ALLOWED"
	CodeMinSelection       = "MIN_SELECTION"
	CodeMaxSelection       = "MAX_SELECTION"
	CodeInvalidOption      = "INVALID_OPTION"
	CodeAlreadyVoted       = "ALREADY_VOTED"
	CodeVoteFailed         = "VOTE_FAILED"
	CodeInvalidPoll        = "INVALID_POLL"
	CodeCreateFailed       = "CREATE_FAILED"
)

// VoteError is the structured failure returned by the poll and vote services.
// OptionID is set for INVALID_OPTION and Count for the selection bounds.
type VoteError struct {
	Code     string
	OptionID *uint
	Count    *int
	Message  string
	Err      error
}

func (v *VoteError) Error() string {
	switch {
	case v.OptionID != nil:
		return fmt.Sprintf("%s: option %d", v.Code, *v.OptionID)
	case v.Count != nil:
		return fmt.Sprintf("%s: %d", v.Code, *v.Count)
	case v.Err != nil:
		return fmt.Sprintf("%s: %v", v.Code, v.Err)
	case len(v.Message) > 0:
		return fmt.Sprintf("%s: %s", v.Code, v.Message)
	default:
		return v.Code
	}
}

func (v *VoteError) Unwrap() error {
	return v.Err
}

// IsClientError reports whether the caller can recover by changing its input.
func (v *VoteError) IsClientError() bool {
	return v.Code != CodeVoteFailed && v.Code != CodeCreateFailed
}

func newVoteError(code string) *VoteError {
	return &VoteError{Code: code}
}

// ErrorCode returns the code carried by err, or an empty string.
func ErrorCode(err error) string {
	var ve *VoteError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
