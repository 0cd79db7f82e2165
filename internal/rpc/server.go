package rpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/ahinestrog/bookstore/internal/auth"
	"github.com/ahinestrog/bookstore/internal/logging"
	"github.com/ahinestrog/bookstore/internal/order"
)

// OrdersService adapts the checkout workflow to gRPC.
type OrdersService struct {
	checkout *order.Checkout
	orders   *order.Service
}

func NewOrdersService(checkout *order.Checkout, orders *order.Service) *OrdersService {
	return &OrdersService{checkout: checkout, orders: orders}
}

func (s *OrdersService) PlaceOrder(ctx context.Context, in *PlaceOrderRequest) (*OrderReply, error) {
	id, ok := identityFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	o, err := s.checkout.PlaceOrder(ctx, id.UserID, order.ShippingInput{
		Shipping: order.Shipping{
			FullName:   in.ShippingFullName,
			Phone:      in.ShippingPhone,
			Address:    in.ShippingAddress,
			City:       in.ShippingCity,
			State:      in.ShippingState,
			PostalCode: in.ShippingPostalCode,
		},
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toReply(o), nil
}

func (s *OrdersService) ListOrders(ctx context.Context, _ *ListOrdersRequest) (*ListOrdersReply, error) {
	id, ok := identityFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	orders, err := s.orders.ListOrders(ctx, id.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ListOrdersReply{Orders: make([]*OrderReply, 0, len(orders))}
	for _, o := range orders {
		out.Orders = append(out.Orders, toReply(o))
	}
	return out, nil
}

func toStatus(err error) error {
	var (
		missing *order.MissingShippingFieldsError
		payment *order.UnsupportedPaymentMethodError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &missing):
		st := status.New(codes.InvalidArgument, err.Error())
		br := &errdetails.BadRequest{}
		for _, f := range missing.Fields {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       f,
				Description: "required",
			})
		}
		if withDetails, derr := st.WithDetails(br); derr == nil {
			st = withDetails
		}
		return st.Err()
	case errors.As(err, &payment):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, order.ErrTransactionConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, order.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

type identityKey struct{}

func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// authUnary verifies the "authorization: Bearer <jwt>" metadata. Health
// checks pass through unauthenticated.
func authUnary(tokens *auth.Tokens) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		vals := md.Get("authorization")
		if len(vals) == 0 || !strings.HasPrefix(vals[0], "Bearer ") {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		id, err := tokens.Verify(strings.TrimPrefix(vals[0], "Bearer "))
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(context.WithValue(ctx, identityKey{}, id), req)
	}
}

func loggingUnary(base zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		l := base.With().Str("method", info.FullMethod).Logger()
		resp, err := handler(logging.WithCtx(ctx, l), req)

		ev := l.Info()
		if err != nil {
			ev = l.Warn().Err(err)
		}
		ev.Str("code", status.Code(err).String()).Int64("dur_ms", time.Since(start).Milliseconds()).Msg("grpc request")
		return resp, err
	}
}

// NewServer builds a gRPC server with the orders, health and reflection services registered.
func NewServer(log zerolog.Logger, tokens *auth.Tokens, svc *OrdersService) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingUnary(log), authUnary(tokens)))
	srv.RegisterService(&OrdersServiceDesc, svc)

	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	// Reflection lists every service and can describe health, but the orders
	// service has no protobuf descriptor: it speaks the json codec, so
	// describing it fails. Call it with CallContentSubtype("json").
	reflection.Register(srv)
	return srv
}
