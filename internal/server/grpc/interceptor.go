package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/common"
	"github.com/dmitrijs2005/gophhabits/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// loggingInterceptor logs each unary call. A request id sent in metadata is
// attached to the context for downstream logs.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(strings.ToLower(common.RequestIDHeader)); len(values) > 0 {
			ctx = logging.ContextWithFields(ctx, "request_id", values[0])
		}
	}

	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	s.logger.Debug(ctx, "grpc_request",
		"method", info.FullMethod,
		"code", code.String(),
		"duration", time.Since(start),
	)

	return resp, err
}
