package retry

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Transport retries requests whose responses or errors match RetryOn, pacing attempts with RetryStrategy.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

// Wait sleeps for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()
	for retryCount := uint(0); ; retryCount++ {
		sleep, exceeded := t.retryStrategy().Sleep(retryCount)

		response, err := t.base().RoundTrip(request)
		retriable := !exceeded && t.RetryOn != nil
		if err != nil {
			if !retriable || !t.RetryOn.CheckError(err) {
				return nil, err
			}
		} else {
			if !retriable || !t.RetryOn.CheckResponse(response) {
				return response, nil
			}
			_ = response.Body.Close()
		}

		if err := Wait(ctx, sleep); err != nil {
			return nil, err
		}
		if request, err = rewind(request); err != nil {
			return nil, err
		}
	}
}

// rewind returns a request whose body can be sent again.
func rewind(request *http.Request) (*http.Request, error) {
	if request.Body == nil || request.Body == http.NoBody {
		return request, nil
	}
	if request.GetBody == nil {
		return nil, xerrors.New("cannot retry request with a non-rewindable body")
	}
	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to rewind request body: %w", err)
	}
	r := request.Clone(request.Context())
	r.Body = body
	return r, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
