/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tracing

import (
	"context"
	"encoding/json"

	"github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var propagator = propagation.TraceContext{}

// MarshalContext encodes c as W3C trace context headers, so that it can travel inside a message
// to a remote party. An invalid span context encodes to an empty document.
func MarshalContext(c trace.SpanContext) ([]byte, error) {
	carrier := propagation.MapCarrier{}
	propagator.Inject(trace.ContextWithSpanContext(context.Background(), c), carrier)
	return json.Marshal(carrier)
}

// UnmarshalContext decodes what MarshalContext produced. The result is marked as remote.
func UnmarshalContext(data []byte) (trace.SpanContext, error) {
	carrier := propagation.MapCarrier{}
	if err := json.Unmarshal(data, &carrier); err != nil {
		return trace.SpanContext{}, errors.Wrapf(err, "failed unmarshalling span context from [%s]", string(data))
	}
	return trace.SpanContextFromContext(propagator.Extract(context.Background(), carrier)), nil
}
