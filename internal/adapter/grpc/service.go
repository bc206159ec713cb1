package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "bank.v1.BankService"

// BankServiceServer is the server API for BankService
type BankServiceServer interface {
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	GetCard(context.Context, *GetCardRequest) (*GetCardResponse, error)
	ListCards(context.Context, *ListCardsRequest) (*ListCardsResponse, error)
	IssueCard(context.Context, *IssueCardRequest) (*IssueCardResponse, error)
	UpdateCardStatus(context.Context, *UpdateCardStatusRequest) (*UpdateCardStatusResponse, error)
	CreateBlockRequest(context.Context, *CreateBlockRequestRequest) (*CreateBlockRequestResponse, error)
	FulfillRequest(context.Context, *FulfillRequestRequest) (*FulfillRequestResponse, error)
}

// BankServiceDesc describes BankService for grpc.Server.RegisterService
var BankServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BankServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transfer", Handler: unaryHandler("Transfer", BankServiceServer.Transfer)},
		{MethodName: "GetCard", Handler: unaryHandler("GetCard", BankServiceServer.GetCard)},
		{MethodName: "ListCards", Handler: unaryHandler("ListCards", BankServiceServer.ListCards)},
		{MethodName: "IssueCard", Handler: unaryHandler("IssueCard", BankServiceServer.IssueCard)},
		{MethodName: "UpdateCardStatus", Handler: unaryHandler("UpdateCardStatus", BankServiceServer.UpdateCardStatus)},
		{MethodName: "CreateBlockRequest", Handler: unaryHandler("CreateBlockRequest", BankServiceServer.CreateBlockRequest)},
		{MethodName: "FulfillRequest", Handler: unaryHandler("FulfillRequest", BankServiceServer.FulfillRequest)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bank/v1/bank.proto",
}

// RegisterBankServiceServer registers srv on s
func RegisterBankServiceServer(s grpc.ServiceRegistrar, srv BankServiceServer) {
	s.RegisterService(&BankServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(BankServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BankServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BankServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BankServiceClient is the client API for BankService
type BankServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewBankServiceClient creates a client speaking the JSON codec over cc
func NewBankServiceClient(cc grpc.ClientConnInterface) *BankServiceClient {
	return &BankServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BankServiceClient) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	return invoke[TransferResponse](ctx, c.cc, "Transfer", in, opts)
}

func (c *BankServiceClient) GetCard(ctx context.Context, in *GetCardRequest, opts ...grpc.CallOption) (*GetCardResponse, error) {
	return invoke[GetCardResponse](ctx, c.cc, "GetCard", in, opts)
}

func (c *BankServiceClient) ListCards(ctx context.Context, in *ListCardsRequest, opts ...grpc.CallOption) (*ListCardsResponse, error) {
	return invoke[ListCardsResponse](ctx, c.cc, "ListCards", in, opts)
}

func (c *BankServiceClient) IssueCard(ctx context.Context, in *IssueCardRequest, opts ...grpc.CallOption) (*IssueCardResponse, error) {
	return invoke[IssueCardResponse](ctx, c.cc, "IssueCard", in, opts)
}

func (c *BankServiceClient) UpdateCardStatus(ctx context.Context, in *UpdateCardStatusRequest, opts ...grpc.CallOption) (*UpdateCardStatusResponse, error) {
	return invoke[UpdateCardStatusResponse](ctx, c.cc, "UpdateCardStatus", in, opts)
}

func (c *BankServiceClient) CreateBlockRequest(ctx context.Context, in *CreateBlockRequestRequest, opts ...grpc.CallOption) (*CreateBlockRequestResponse, error) {
	return invoke[CreateBlockRequestResponse](ctx, c.cc, "CreateBlockRequest", in, opts)
}

func (c *BankServiceClient) FulfillRequest(ctx context.Context, in *FulfillRequestRequest, opts ...grpc.CallOption) (*FulfillRequestResponse, error) {
	return invoke[FulfillRequestResponse](ctx, c.cc, "FulfillRequest", in, opts)
}
