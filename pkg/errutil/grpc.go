package errutil

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

// ErrorDomain tags the ErrorInfo detail attached to every domain status.
const ErrorDomain = "vaultbooks"

var grpcCodes = map[CoreStatus]codes.Code{
	StatusBadRequest:           codes.InvalidArgument,
	StatusValidationFailed:     codes.InvalidArgument,
	StatusUnsupportedMediaType: codes.InvalidArgument,
	StatusUnauthorized:         codes.Unauthenticated,
	StatusForbidden:            codes.PermissionDenied,
	StatusNotFound:             codes.NotFound,
	StatusConflict:             codes.AlreadyExists,
	StatusUnprocessableEntity:  codes.FailedPrecondition,
	StatusTooManyRequests:      codes.ResourceExhausted,
	StatusClientClosedRequest:  codes.Canceled,
	StatusNotImplemented:       codes.Unimplemented,
	StatusBadGateway:           codes.Unavailable,
	StatusServiceUnavailable:   codes.Unavailable,
	StatusTimeout:              codes.DeadlineExceeded,
	StatusGatewayTimeout:       codes.DeadlineExceeded,
	StatusInternal:             codes.Internal,
}

func (s CoreStatus) GRPCCode() codes.Code {
	if c, ok := grpcCodes[s]; ok {
		return c
	}
	return codes.Unknown
}

// Reason is the SCREAMING_SNAKE form of a message, used as the ErrorInfo
// reason so clients can branch without parsing text
// ("insufficient points" -> "INSUFFICIENT_POINTS").
func Reason(message string) string {
	fields := strings.FieldsFunc(strings.ToUpper(message), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "_")
}

// ToGRPCError converts err into a status error. Domain errors carry an
// ErrorInfo detail and, when they have field details, a BadRequest detail.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	var base BaseError
	if !errors.As(err, &base) {
		return status.Error(codes.Internal, err.Error())
	}

	st := status.New(base.Code.GRPCCode(), base.messageWithErr())
	details := []protoadapt.MessageV1{&errdetails.ErrorInfo{
		Reason:   Reason(base.Message),
		Domain:   ErrorDomain,
		Metadata: map[string]string{"code": string(base.Code)},
	}}
	if len(base.Details) > 0 {
		br := &errdetails.BadRequest{}
		for _, d := range base.Details {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       d.Field,
				Description: d.Message,
			})
		}
		details = append(details, br)
	}

	withDetails, derr := st.WithDetails(details...)
	if derr != nil {
		return st.Err()
	}
	return withDetails.Err()
}
