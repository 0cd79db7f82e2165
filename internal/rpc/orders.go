package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/ahinestrog/bookstore/internal/money"
	"github.com/ahinestrog/bookstore/internal/order"
)

const serviceName = "bookstore.order.v1.Orders"

type PlaceOrderRequest struct {
	ShippingFullName   string `json:"shipping_full_name"`
	ShippingPhone      string `json:"shipping_phone"`
	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingState      string `json:"shipping_state"`
	ShippingPostalCode string `json:"shipping_postal_code"`
	PaymentMethod      string `json:"payment_method,omitempty"`
}

type ListOrdersRequest struct{}

type OrderItem struct {
	BookID   int64  `json:"book_id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type OrderReply struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"user_id"`
	Status           string      `json:"status"`
	TotalPrice       string      `json:"total_price"`
	PaymentMethod    string      `json:"payment_method"`
	TrackingNumber   string      `json:"tracking_number,omitempty"`
	ExpectedDelivery string      `json:"expected_delivery"`
	CreatedAt        time.Time   `json:"created_at"`
	Items            []OrderItem `json:"items"`
}

type ListOrdersReply struct {
	Orders []*OrderReply `json:"orders"`
}

func toReply(o *order.Order) *OrderReply {
	r := &OrderReply{
		ID:               o.ID,
		UserID:           o.UserID,
		Status:           string(o.Status),
		TotalPrice:       money.String(o.Total),
		PaymentMethod:    string(o.PaymentMethod),
		ExpectedDelivery: o.ExpectedDelivery.Format(order.DateLayout),
		CreatedAt:        o.CreatedAt,
		Items:            make([]OrderItem, 0, len(o.Items)),
	}
	if o.TrackingNumber != nil {
		r.TrackingNumber = *o.TrackingNumber
	}
	for _, it := range o.Items {
		item := OrderItem{BookID: it.BookID, Quantity: it.Quantity, Price: money.String(it.Price)}
		if it.Book != nil {
			item.Title = it.Book.Title
		}
		r.Items = append(r.Items, item)
	}
	return r
}

// OrdersServer is implemented by *OrdersService.
type OrdersServer interface {
	PlaceOrder(context.Context, *PlaceOrderRequest) (*OrderReply, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersReply, error)
}

// OrdersServiceDesc describes the service the way protoc-gen-go-grpc would.
var OrdersServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrdersServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: placeOrderHandler},
		{MethodName: "ListOrders", Handler: listOrdersHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookstore/order/v1/orders.proto",
}

func placeOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PlaceOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrdersServer).PlaceOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/PlaceOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrdersServer).PlaceOrder(ctx, req.(*PlaceOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listOrdersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrdersServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListOrders"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrdersServer).ListOrders(ctx, req.(*ListOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// OrdersClient calls the service with the JSON codec.
type OrdersClient struct {
	cc grpc.ClientConnInterface
}

func NewOrdersClient(cc grpc.ClientConnInterface) *OrdersClient { return &OrdersClient{cc: cc} }

func (c *OrdersClient) PlaceOrder(ctx context.Context, in *PlaceOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/PlaceOrder", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrdersClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersReply, error) {
	out := new(ListOrdersReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListOrders", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
