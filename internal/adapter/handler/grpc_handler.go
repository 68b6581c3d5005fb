package handler

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/service"
	"github.com/rl1809/inventory/internal/platform/observability"
)

const ServiceName = "inventory.v1.InventoryService"

type CreateProductRequest = domain.ProductInput

type ProductRequest struct {
	ID int64 `json:"id"`
}

type ProductResponse struct {
	Product domain.Product `json:"product"`
}

type ListProductsRequest struct {
	Category   domain.Category `json:"category"`
	Sort       string          `json:"sort"`
	Descending bool            `json:"descending"`
}

type SearchProductsRequest struct {
	Keyword string `json:"keyword"`
}

type ProductsResponse struct {
	Products []domain.Product `json:"products"`
}

type SellProductRequest struct {
	RequestID string `json:"request_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type DeleteProductResponse struct{}

type BulkUpdatePriceRequest struct {
	Updates []domain.PriceUpdate `json:"updates"`
}

type BulkUpdatePriceResponse struct {
	UpdatedCount int `json:"updatedCount"`
}

// InventoryServer is the gRPC surface of the inventory service.
type InventoryServer interface {
	CreateProduct(context.Context, *CreateProductRequest) (*ProductResponse, error)
	GetProduct(context.Context, *ProductRequest) (*ProductResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ProductsResponse, error)
	SearchProducts(context.Context, *SearchProductsRequest) (*ProductsResponse, error)
	SellProduct(context.Context, *SellProductRequest) (*ProductResponse, error)
	DeleteProduct(context.Context, *ProductRequest) (*DeleteProductResponse, error)
	BulkUpdatePrice(context.Context, *BulkUpdatePriceRequest) (*BulkUpdatePriceResponse, error)
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateProduct", InventoryServer.CreateProduct),
		unaryMethod("GetProduct", InventoryServer.GetProduct),
		unaryMethod("ListProducts", InventoryServer.ListProducts),
		unaryMethod("SearchProducts", InventoryServer.SearchProducts),
		unaryMethod("SellProduct", InventoryServer.SellProduct),
		unaryMethod("DeleteProduct", InventoryServer.DeleteProduct),
		unaryMethod("BulkUpdatePrice", InventoryServer.BulkUpdatePrice),
	},
	Streams: []grpc.StreamDesc{},
}

func unaryMethod[Req, Resp any](name string, call func(InventoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InventoryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(InventoryServer), ctx, req.(*Req))
			})
		},
	}
}

type GRPCHandler struct {
	inventory *service.InventoryService
}

func NewGRPCHandler(inventory *service.InventoryService) *GRPCHandler {
	return &GRPCHandler{inventory: inventory}
}

// NewGRPCServer builds a server exposing h and the standard health service.
func NewGRPCServer(h *GRPCHandler, logger *zap.Logger) *grpc.Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		recoveryInterceptor(logger),
		loggingInterceptor(logger),
		metricsInterceptor,
	))
	srv.RegisterService(&InventoryServiceDesc, h)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, hs)

	return srv
}

func (h *GRPCHandler) CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductResponse, error) {
	p, err := h.inventory.CreateProduct(ctx, *req)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ProductResponse{Product: p}, nil
}

func (h *GRPCHandler) GetProduct(ctx context.Context, req *ProductRequest) (*ProductResponse, error) {
	p, err := h.inventory.GetProduct(ctx, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ProductResponse{Product: p}, nil
}

func (h *GRPCHandler) ListProducts(ctx context.Context, req *ListProductsRequest) (*ProductsResponse, error) {
	sortBy, ok := domain.ParseSortField(req.Sort)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown sort field %q", req.Sort)
	}
	products := h.inventory.ListProducts(ctx, domain.ListOptions{
		Category:   req.Category,
		SortBy:     sortBy,
		Descending: req.Descending,
	})
	return &ProductsResponse{Products: nonNil(products)}, nil
}

func (h *GRPCHandler) SearchProducts(ctx context.Context, req *SearchProductsRequest) (*ProductsResponse, error) {
	products, err := h.inventory.SearchProducts(ctx, req.Keyword)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ProductsResponse{Products: nonNil(products)}, nil
}

func (h *GRPCHandler) SellProduct(ctx context.Context, req *SellProductRequest) (*ProductResponse, error) {
	var (
		p   domain.Product
		err error
	)
	if req.RequestID != "" {
		p, err = h.inventory.SellProductOnce(ctx, req.RequestID, req.ProductID, req.Quantity)
	} else {
		p, err = h.inventory.SellProduct(ctx, req.ProductID, req.Quantity)
	}
	if err != nil {
		return nil, grpcError(err)
	}
	return &ProductResponse{Product: p}, nil
}

func (h *GRPCHandler) DeleteProduct(ctx context.Context, req *ProductRequest) (*DeleteProductResponse, error) {
	if err := h.inventory.DeleteProduct(ctx, req.ID); err != nil {
		return nil, grpcError(err)
	}
	return &DeleteProductResponse{}, nil
}

func (h *GRPCHandler) BulkUpdatePrice(ctx context.Context, req *BulkUpdatePriceRequest) (*BulkUpdatePriceResponse, error) {
	return &BulkUpdatePriceResponse{UpdatedCount: h.inventory.BulkUpdatePrice(ctx, req.Updates)}, nil
}

// grpcError maps the inventory error kinds onto status codes. Validation
// failures carry one BadRequest field violation per broken rule.
func grpcError(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		st := status.New(codes.InvalidArgument, verr.Error())
		br := &errdetails.BadRequest{}
		for _, fe := range verr.Errors {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       fe.Field,
				Description: fe.Message,
			})
		}
		if detailed, derr := st.WithDetails(br); derr == nil {
			st = detailed
		}
		return st.Err()
	}

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc: panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		logger.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}

func metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	observability.GRPCHandled.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	observability.GRPCDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	return resp, err
}
