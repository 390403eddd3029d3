package service

import "fmt"

// Kind classifies an expected business failure.
type Kind string

const (
	KindNotFound        Kind = "NotFound"
	KindInvalidInput    Kind = "InvalidInput"
	KindConflict        Kind = "Conflict"
	KindPaymentRejected Kind = "PaymentRejected"
)

// Code is the specific reason behind a Failure.
type Code string

const (
	CodeUserNotFound         Code = "UserNotFound"
	CodeSlotNotFound         Code = "SlotNotFound"
	CodeSlotUnavailable      Code = "SlotUnavailable"
	CodeInvalidWindow        Code = "InvalidWindow"
	CodePaymentFailed        Code = "PaymentFailed"
	CodeReservationNotFound  Code = "ReservationNotFound"
	CodeAlreadyCancelled     Code = "AlreadyCancelled"
	CodeReservationExpired   Code = "ReservationExpired"
	CodeInvalidAmount        Code = "InvalidAmount"
	CodePaymentDenied        Code = "PaymentDenied"
	CodeSessionNotFound      Code = "SessionNotFound"
	CodeAlreadyEnded         Code = "AlreadyEnded"
	CodeAlreadyPaid          Code = "AlreadyPaid"
	CodeModeNotAvailable     Code = "ModeNotAvailable"
	CodeUnknownPaymentMethod Code = "UnknownPaymentMethod"
	CodePaymentNotFound      Code = "PaymentNotFound"
	CodeNotRefundable        Code = "NotRefundable"
	CodeInvalidCredentials   Code = "InvalidCredentials"
	CodeEmailInUse           Code = "EmailInUse"
	CodeMissingField         Code = "MissingField"
)

var codeKinds = map[Code]Kind{
	CodeUserNotFound:         KindNotFound,
	CodeSlotNotFound:         KindNotFound,
	CodeSlotUnavailable:      KindConflict,
	CodeInvalidWindow:        KindInvalidInput,
	CodePaymentFailed:        KindPaymentRejected,
	CodeReservationNotFound:  KindNotFound,
	CodeAlreadyCancelled:     KindConflict,
	CodeReservationExpired:   KindConflict,
	CodeInvalidAmount:        KindInvalidInput,
	CodePaymentDenied:        KindPaymentRejected,
	CodeSessionNotFound:      KindNotFound,
	CodeAlreadyEnded:         KindConflict,
	CodeAlreadyPaid:          KindConflict,
	CodeModeNotAvailable:     KindNotFound,
	CodeUnknownPaymentMethod: KindInvalidInput,
	CodePaymentNotFound:      KindNotFound,
	CodeNotRefundable:        KindConflict,
	CodeInvalidCredentials:   KindInvalidInput,
	CodeEmailInUse:           KindConflict,
	CodeMissingField:         KindInvalidInput,
}

// Failure is an expected business outcome, returned in a result value rather
// than as an error. Message tells the caller what to do next.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func fail(code Code, format string, args ...any) *Failure {
	return &Failure{Kind: codeKinds[code], Code: code, Message: fmt.Sprintf(format, args...)}
}
