package health

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingUnary logs each Check with the probed service and the answer.
// Healthy answers go to Debug so a busy orchestrator does not flood the log;
// anything else is a Warn.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)

		var service string
		if r, ok := req.(*healthpb.HealthCheckRequest); ok {
			service = r.GetService()
		}
		serving := healthpb.HealthCheckResponse_UNKNOWN
		if r, ok := resp.(*healthpb.HealthCheckResponse); ok {
			serving = r.GetStatus()
		}

		lvl := zapcore.DebugLevel
		if err != nil || serving != healthpb.HealthCheckResponse_SERVING {
			lvl = zapcore.WarnLevel
		}
		log.Log(lvl, "health check",
			zap.String("method", info.FullMethod),
			zap.String("service", service),
			zap.String("serving", serving.String()),
			zap.String("code", status.Code(err).String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", peerAddr(ctx)),
		)
		return resp, err
	}
}

// RecoverUnary converts a handler panic into codes.Internal.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer recoverTo(log, info.FullMethod, &err)
		return next(ctx, req)
	}
}

// WatchStream logs when a Watch subscription opens and closes, and recovers panics.
// Per-update logging is left out since a watcher lives as long as its client.
func WatchStream(log *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) (err error) {
		defer recoverTo(log, info.FullMethod, &err)
		start := time.Now()
		remote := peerAddr(ss.Context())
		log.Debug("health watch opened", zap.String("peer", remote))
		defer func() {
			log.Debug("health watch closed",
				zap.String("peer", remote),
				zap.String("code", status.Code(err).String()),
				zap.Duration("dur", time.Since(start)),
			)
		}()
		return next(srv, ss)
	}
}

func recoverTo(log *zap.Logger, method string, err *error) {
	if r := recover(); r != nil {
		log.Error("panic",
			zap.Any("reason", r),
			zap.ByteString("stack", debug.Stack()),
			zap.String("method", method),
		)
		*err = status.Error(codes.Internal, "internal")
	}
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}
