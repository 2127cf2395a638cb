package service

import "errors"

var (
	ErrForbidden          = errors.New("you are not allowed to perform this action")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidRole        = errors.New("invalid role")

	ErrUserNotFound         = errors.New("user not found")
	ErrPropertyNotFound     = errors.New("property not found")
	ErrImageNotFound        = errors.New("image not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrUploadNotFound       = errors.New("upload not found")

	ErrInvalidDates        = errors.New("start_date must be before end_date")
	ErrDateInPast          = errors.New("start_date must not be in the past")
	ErrTooManyGuests       = errors.New("number of guests exceeds the property's capacity")
	ErrPropertyUnavailable = errors.New("property is not available for these dates")
	ErrOwnProperty         = errors.New("owners cannot book their own property")
	ErrBookingOverlap      = errors.New("property is already booked for the selected dates")
	ErrInvalidTransition   = errors.New("invalid booking status transition")
	ErrBookingNotEnded     = errors.New("booking cannot be completed before its end date")

	ErrNotPayable     = errors.New("booking is not awaiting payment")
	ErrNotRefundable  = errors.New("booking has no captured payment to refund")
	ErrPaymentFailed  = errors.New("payment provider rejected the request")
	ErrInvalidWebhook = errors.New("invalid webhook payload")

	ErrInvalidParticipants = errors.New("conversation participants are invalid")
	ErrEmptyMessage        = errors.New("message content must not be empty")

	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file is too large")

	ErrSearchDisabled = errors.New("search index is not configured")
)
