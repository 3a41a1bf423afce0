package chat

import (
	"context"
	"errors"
)

const (
	//failure categories recorded in a send outcome
	NAVIGATION_TIMEOUT       string = "NAVIGATION_TIMEOUT"
	NOT_A_USER                      = "NOT_A_USER"
	INVALID_NUMBER                  = "INVALID_NUMBER"
	BLOCKED                         = "BLOCKED"
	SEND_FAILURE                    = "SEND_FAILURE"
	ATTACHMENT_MODAL_TIMEOUT        = "ATTACHMENT_MODAL_TIMEOUT"
	ATTACHMENT_CTRL_NOT_FOUND       = "ATTACHMENT_CONTROL_NOT_FOUND"
	COMPOSER_NOT_FOUND              = "COMPOSER_NOT_FOUND"
	SEND_CTRL_NOT_FOUND             = "SEND_CONTROL_NOT_FOUND"
	CONVERSATION_CLOSED             = "CONVERSATION_CLOSED_MID_SEND"
)

var (
	//structural failures a transport reports while driving the chat surface
	ErrComposerNotFound       = errors.New("composer not found")
	ErrSendControlNotFound    = errors.New("send control not found")
	ErrAttachControlNotFound  = errors.New("attach control not found")
	ErrAttachmentModalTimeout = errors.New("attachment modal timed out")
)

//externalErr carries a category the chat surface itself rendered,
//e.g. an invalid-number popup
type externalErr struct {
	category string
}

func (e *externalErr) Error() string {
	return "chat surface reported " + e.category
}

func newExternalError(category string) *externalErr {
	return &externalErr{category: category}
}

// CategoryOf maps an error from a dispatch step to its outcome category.
func CategoryOf(err error) string {
	var ext *externalErr
	if errors.As(err, &ext) {
		return ext.category
	}

	switch {
	case errors.Is(err, ErrComposerNotFound):
		return COMPOSER_NOT_FOUND
	case errors.Is(err, ErrSendControlNotFound):
		return SEND_CTRL_NOT_FOUND
	case errors.Is(err, ErrAttachControlNotFound):
		return ATTACHMENT_CTRL_NOT_FOUND
	case errors.Is(err, ErrAttachmentModalTimeout):
		return ATTACHMENT_MODAL_TIMEOUT
	case errors.Is(err, ErrPollTimeout):
		return NAVIGATION_TIMEOUT
	}

	return SEND_FAILURE
}

//navCategoryOf maps failures of the navigation wait, where an expired
//poll or a cancelled context both mean the chat never became ready
func navCategoryOf(err error) string {
	if errors.Is(err, ErrPollTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return NAVIGATION_TIMEOUT
	}

	return CategoryOf(err)
}
