package server

import (
	"context"
	"crypto/tls"
	"net"
	"runtime/debug"

	"vaultbooks/pkg/config"
	"vaultbooks/pkg/errutil"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/validator"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

var ProvideGRPCServer = fx.Module("grpc.server",
	fx.Provide(
		NewListener,
		WithOption,
		NewGRPCServer,
	),
	fx.Invoke(
		StartGRPCServer,
	),
)

func NewListener(cfg *config.Config) (net.Listener, error) {
	return net.Listen("tcp", ListenAddr(cfg.Grpc.Addr))
}

// InterceptorLogger adapts zap to the go-grpc-middleware logging interface.
func InterceptorLogger(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		f := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			f = append(f, zap.Any(key, fields[i+1]))
		}

		logger := l.WithOptions(zap.AddCallerSkip(1)).With(f...)
		switch lvl {
		case logging.LevelDebug:
			logger.Debug(msg)
		case logging.LevelInfo:
			logger.Info(msg)
		case logging.LevelWarn:
			logger.Warn(msg)
		default:
			logger.Error(msg)
		}
	})
}

func recoveryHandler(p any) error {
	zap.L().Error("recovered from grpc panic", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
	return status.Error(codes.Internal, "internal error")
}

// errorInterceptor turns domain errors into gRPC status errors.
func errorInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		return nil, errutil.ToGRPCError(err)
	}
	return resp, nil
}

func WithOption(tp trace.TracerProvider, mp metric.MeterProvider) []grpc.ServerOption {
	logger := InterceptorLogger(zap.L())
	logOpts := []logging.Option{logging.WithLogOnEvents(logging.FinishCall)}

	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(recoveryHandler)),
			logging.UnaryServerInterceptor(logger, logOpts...),
			validator.UnaryServerInterceptor(validator.WithFailFast()),
			errorInterceptor,
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recovery.WithRecoveryHandler(recoveryHandler)),
			logging.StreamServerInterceptor(logger, logOpts...),
			validator.StreamServerInterceptor(validator.WithFailFast()),
		),
		grpc.StatsHandler(
			otelgrpc.NewServerHandler(
				otelgrpc.WithTracerProvider(tp),
				otelgrpc.WithMeterProvider(mp),
			),
		),
	}
}

func LoadCertificate(certPath, keyPath string) (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func WithTLS(tls *tls.Certificate) grpc.ServerOption {
	return grpc.Creds(
		credentials.NewServerTLSFromCert(tls),
	)
}

func NewGRPCServer(cfg *config.Config, opts []grpc.ServerOption) (*grpc.Server, error) {
	if cfg.TLS.Enable {
		cert, err := LoadCertificate(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithTLS(cert))
	}
	return grpc.NewServer(opts...), nil
}

func StartGRPCServer(lc fx.Lifecycle, lis net.Listener, srv *grpc.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				zap.L().Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
				reflection.Register(srv)
				if err := srv.Serve(lis); err != nil {
					zap.L().Error("gRPC server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			zap.L().Info("Stopping gRPC server")
			srv.GracefulStop()
			return nil
		},
	})
}
