package ledgerdgrpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/blockberries/ledgerd"
)

// Trailer keys carrying the detail a status code alone cannot.
const (
	trailerKind  = "ledgerd-error"
	trailerStage = "ledgerd-stage"
	trailerIndex = "ledgerd-index"
)

const (
	kindTransaction = "transaction"
	kindEngine      = "engine"
	kindDecode      = "decode"
)

// toStatus maps a node error onto a gRPC status:
//
//	*InvalidParamsError    InvalidArgument, message is the reason
//	*TransactionError      Aborted
//	*EngineError           Internal
//	*DecodeFailure         Internal
//	ErrBalanceUnavailable  NotFound
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ip, ok := ledgerd.AsInvalidParams(err); ok {
		return status.Error(codes.InvalidArgument, ip.Reason)
	}
	if te, ok := ledgerd.AsTransaction(err); ok {
		_ = grpc.SetTrailer(ctx, metadata.Pairs(trailerKind, kindTransaction, trailerStage, te.Stage.String()))
		return status.Error(codes.Aborted, te.Err.Error())
	}
	if df, ok := ledgerd.AsDecodeFailure(err); ok {
		_ = grpc.SetTrailer(ctx, metadata.Pairs(trailerKind, kindDecode, trailerIndex, strconv.Itoa(df.Index)))
		return status.Error(codes.Internal, df.Err.Error())
	}
	if ee, ok := ledgerd.AsEngine(err); ok {
		_ = grpc.SetTrailer(ctx, metadata.Pairs(trailerKind, kindEngine, trailerIndex, strconv.Itoa(ee.Index)))
		return status.Error(codes.Internal, ee.Err.Error())
	}
	if errors.Is(err, ledgerd.ErrBalanceUnavailable) {
		msg := strings.TrimPrefix(err.Error(), ledgerd.ErrBalanceUnavailable.Error()+": ")
		return status.Error(codes.NotFound, msg)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Unknown, err.Error())
}

// fromStatus reverses toStatus so clients can use the ledgerd.As*
// helpers on remote errors.
func fromStatus(err error, trailer metadata.MD) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	switch st.Code() {
	case codes.InvalidArgument:
		return ledgerd.NewInvalidParams(msg, nil)
	case codes.Aborted:
		if first(trailer, trailerKind) == kindTransaction {
			return &ledgerd.TransactionError{Stage: parseStage(first(trailer, trailerStage)), Err: errors.New(msg)}
		}
	case codes.Internal:
		idx, _ := strconv.Atoi(first(trailer, trailerIndex))
		switch first(trailer, trailerKind) {
		case kindDecode:
			return &ledgerd.DecodeFailure{Index: idx, Err: errors.New(msg)}
		case kindEngine:
			return &ledgerd.EngineError{Index: idx, Err: errors.New(msg)}
		}
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ledgerd.ErrBalanceUnavailable, msg)
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, msg)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, msg)
	}
	return err
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func parseStage(s string) ledgerd.TxStage {
	switch s {
	case ledgerd.StageBuild.String():
		return ledgerd.StageBuild
	case ledgerd.StageRun.String():
		return ledgerd.StageRun
	default:
		return 0
	}
}
