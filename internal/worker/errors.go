package worker

import "errors"

var errInvalidPayload = errors.New("outbox payload is not valid JSON")
