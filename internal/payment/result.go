package payment

import (
	"context"
	"errors"

	"github.com/josh-kwaku/estate-checkout/internal/apiclient"
)

const MsgCancelled = "Request cancelled"

// Result is what every payment operation returns. Callers branch on Success;
// a failed call carries a user-facing Message and, when the server answered,
// its StatusCode. Cancelled marks a call abandoned through its context.
type Result[T any] struct {
	Success    bool
	Data       T
	Message    string
	StatusCode int
	Cancelled  bool
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// failed builds the failure result for err. A call whose context was
// cancelled reports Cancelled even when the last error came from the server.
func failed[T any](ctx context.Context, err error, fallback string) Result[T] {
	if apiclient.IsCancelled(err) || errors.Is(ctx.Err(), context.Canceled) {
		return Result[T]{Message: MsgCancelled, Cancelled: true}
	}

	msg := fallback
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return Result[T]{Message: msg, StatusCode: apiclient.StatusCode(err)}
}
