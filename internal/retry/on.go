package retry

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

type condition uint8

const (
	on5xx condition = 1 << iota
	onGatewayError
	onConnectFailure
	onRetriable4xx
)

var conditionNames = map[string]condition{
	"5xx":             on5xx,
	"gateway-error":   onGatewayError,
	"connect-failure": onConnectFailure,
	"retriable-4xx":   onRetriable4xx,
}

// On decides which responses and errors are retried. The names follow envoy's retry_on.
type On struct {
	conditions  condition
	statusCodes map[int]struct{}
}

func NewDefaultRetryOn() *On {
	return &On{
		conditions: onGatewayError | onConnectFailure | onRetriable4xx,
	}
}

// NewRetryOnFromString parses a comma separated list of condition names and status codes.
func NewRetryOnFromString(s string) (*On, error) {
	o := &On{
		statusCodes: map[int]struct{}{},
	}
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if c, ok := conditionNames[name]; ok {
			o.conditions |= c
			continue
		}
		statusCode, err := strconv.Atoi(name)
		if err != nil {
			return nil, xerrors.Errorf("invalid retryOn: %s", name)
		}
		o.statusCodes[statusCode] = struct{}{}
	}
	return o, nil
}

func (o *On) has(c condition) bool {
	return o.conditions&c != 0
}

// ref https://github.com/envoyproxy/envoy/blob/70d6ec1df6384118cf2fa2f02c0041edb76b2377/source/common/router/retry_state_impl.cc#L387
func (o *On) CheckResponse(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o.has(on5xx) && code >= 500 && code < 600:
		return true
	case o.has(onGatewayError) && code >= 502 && code < 505:
		return true
	case o.has(onRetriable4xx) && code == http.StatusConflict:
		return true
	}
	_, ok := o.statusCodes[code]
	return ok
}

// CheckError retries temporary network errors and dropped connections.
func (o *On) CheckError(err error) bool {
	if !o.has(onConnectFailure) && !o.has(on5xx) {
		return false
	}
	type temporary interface{ Temporary() bool }
	var terr temporary
	return (errors.As(err, &terr) && terr.Temporary()) || errors.Is(err, io.EOF)
}
