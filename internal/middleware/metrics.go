package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/annafiu/twabillsplitter/internal/metrics"
)

// MetricsInterceptor counts and times every RPC call by procedure and code.
func MetricsInterceptor(m *metrics.Registry) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			m.RPCRequests.WithLabelValues(procedure, code).Inc()
			m.RPCLatency.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}
