// Package oracleservice exposes internal/oracle.Engine over gRPC. The
// retrieval pack carries no protoc toolchain or generated .pb.go stubs
// (api/grpc/services and api/grpc/registry in the teacher tree depend on
// a proto/pb package this pack never included), so this package hand
// -builds the grpc.ServiceDesc/MethodDesc structure protoc-gen-go-grpc
// would otherwise emit, and exchanges plain Go structs marshaled through
// internal/rpccodec instead of generated protobuf messages. The service
// methods are otherwise exactly the shape api/grpc/services gives a
// manager-backed gRPC service: a thin *Server wrapping one dependency,
// one method per RPC, metrics recorded at the boundary.
package oracleservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dnsscience/dnssecoracle/internal/dnssec"
	"github.com/dnsscience/dnssecoracle/internal/metrics"
	"github.com/dnsscience/dnssecoracle/internal/oracle"
)

// Server adapts internal/oracle.Engine to the gRPC surface spec.md §6
// describes: submit_rrset, delete_rrset, rrdata, set_algorithm,
// set_digest, set_nsec3_digest.
type Server struct {
	Engine *oracle.Engine
}

// SubmitRRSetRequest/Response mirror submit_rrset's parameters and its
// only observable output: success or a typed failure.
type SubmitRRSetRequest struct {
	Input []byte
	Sig   []byte
	Proof []byte
}

type SubmitRRSetResponse struct{}

func (s *Server) SubmitRRSet(ctx context.Context, req *SubmitRRSetRequest) (*SubmitRRSetResponse, error) {
	err := s.Engine.SubmitRRSet(callerIdentity(ctx), req.Input, req.Sig, req.Proof)
	metrics.RecordSubmission(err)
	metrics.ObserveStoreSize(s.Engine)
	if err != nil {
		return nil, toGRPCStatus(err)
	}
	return &SubmitRRSetResponse{}, nil
}

type DeleteRRSetRequest struct {
	DeleteType uint32
	DeleteName []byte
	NSEC       []byte
	Sig        []byte
	Proof      []byte
}

type DeleteRRSetResponse struct{}

func (s *Server) DeleteRRSet(ctx context.Context, req *DeleteRRSetRequest) (*DeleteRRSetResponse, error) {
	err := s.Engine.DeleteRRSet(callerIdentity(ctx), uint16(req.DeleteType), req.DeleteName, req.NSEC, req.Sig, req.Proof)
	metrics.RecordDeletion(err)
	metrics.ObserveStoreSize(s.Engine)
	if err != nil {
		return nil, toGRPCStatus(err)
	}
	return &DeleteRRSetResponse{}, nil
}

type RRDataRequest struct {
	DNSType uint32
	Name    []byte
}

type RRDataResponse struct {
	Inception   uint32
	Inserted    uint64
	Fingerprint []byte // 20 bytes, zero-valued when absent
}

func (s *Server) RRData(ctx context.Context, req *RRDataRequest) (*RRDataResponse, error) {
	inception, inserted, fp := s.Engine.RRData(uint16(req.DNSType), req.Name)
	return &RRDataResponse{Inception: inception, Inserted: inserted, Fingerprint: fp[:]}, nil
}

// SetAlgorithmRequest names a built-in verifier rather than carrying one:
// Algorithm is a Go interface and cannot cross the wire, so the admin
// selects from internal/dnssec's built-ins by name (see builtins.go).
type SetAlgorithmRequest struct {
	ID   uint32
	Name string
}

type SetAlgorithmResponse struct{}

func (s *Server) SetAlgorithm(ctx context.Context, req *SetAlgorithmRequest) (*SetAlgorithmResponse, error) {
	v, ok := lookupAlgorithm(req.Name)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown algorithm %q", req.Name)
	}
	err := s.Engine.SetAlgorithm(callerIdentity(ctx), uint8(req.ID), v)
	metrics.RecordAdminMutation("set_algorithm", err)
	if err != nil {
		return nil, toGRPCStatus(err)
	}
	return &SetAlgorithmResponse{}, nil
}

type SetDigestRequest struct {
	ID   uint32
	Name string
}

type SetDigestResponse struct{}

func (s *Server) SetDigest(ctx context.Context, req *SetDigestRequest) (*SetDigestResponse, error) {
	v, ok := lookupDigest(req.Name)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown digest %q", req.Name)
	}
	err := s.Engine.SetDigest(callerIdentity(ctx), uint8(req.ID), v)
	metrics.RecordAdminMutation("set_digest", err)
	if err != nil {
		return nil, toGRPCStatus(err)
	}
	return &SetDigestResponse{}, nil
}

type SetNSEC3DigestRequest struct {
	ID   uint32
	Name string
}

type SetNSEC3DigestResponse struct{}

func (s *Server) SetNSEC3Digest(ctx context.Context, req *SetNSEC3DigestRequest) (*SetNSEC3DigestResponse, error) {
	v, ok := lookupNSEC3Digest(req.Name)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown nsec3 digest %q", req.Name)
	}
	err := s.Engine.SetNSEC3Digest(callerIdentity(ctx), uint8(req.ID), v)
	metrics.RecordAdminMutation("set_nsec3_digest", err)
	if err != nil {
		return nil, toGRPCStatus(err)
	}
	return &SetNSEC3DigestResponse{}, nil
}

func lookupAlgorithm(name string) (dnssec.Algorithm, bool) {
	switch name {
	case "RSASHA256":
		return dnssec.RSASHA256{}, true
	case "ECDSAP256SHA256":
		return dnssec.ECDSAP256SHA256{}, true
	default:
		return nil, false
	}
}

func lookupDigest(name string) (dnssec.Digest, bool) {
	switch name {
	case "SHA1":
		return dnssec.SHA1Digest{}, true
	case "SHA256":
		return dnssec.SHA256Digest{}, true
	default:
		return nil, false
	}
}

func lookupNSEC3Digest(name string) (dnssec.NSEC3Digest, bool) {
	switch name {
	case "SHA1":
		return dnssec.SHA1NSEC3Digest{}, true
	default:
		return nil, false
	}
}

// toGRPCStatus maps an *oracle.Error to a gRPC status whose code reflects
// whether the failure is the caller's fault (InvalidArgument/PermissionDenied/
// ResourceExhausted) or not (Internal) — spec.md §7's taxonomy is carried
// through as the status message either way.
func toGRPCStatus(err error) error {
	oe, ok := err.(*oracle.Error)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	switch oe.Kind {
	case oracle.KindUnauthorized:
		return status.Error(codes.PermissionDenied, oe.Error())
	case oracle.KindResourceExceeded:
		return status.Error(codes.ResourceExhausted, oe.Error())
	default:
		return status.Error(codes.InvalidArgument, oe.Error())
	}
}

// ServiceDesc is the hand-built equivalent of what protoc-gen-go-grpc
// would generate for a service with these six RPCs. grpc.Server dispatches
// purely on FullMethod string + this table; the stubs/clients are not
// regenerated code, which is why every Handler funcs has to provide its
// own decode step via grpc.UnaryServerInterceptor-free manual decoding.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "dnssecoracle.Oracle",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("SubmitRRSet", func(s *Server, ctx context.Context, req *SubmitRRSetRequest) (any, error) {
			return s.SubmitRRSet(ctx, req)
		}),
		unaryMethod("DeleteRRSet", func(s *Server, ctx context.Context, req *DeleteRRSetRequest) (any, error) {
			return s.DeleteRRSet(ctx, req)
		}),
		unaryMethod("RRData", func(s *Server, ctx context.Context, req *RRDataRequest) (any, error) {
			return s.RRData(ctx, req)
		}),
		unaryMethod("SetAlgorithm", func(s *Server, ctx context.Context, req *SetAlgorithmRequest) (any, error) {
			return s.SetAlgorithm(ctx, req)
		}),
		unaryMethod("SetDigest", func(s *Server, ctx context.Context, req *SetDigestRequest) (any, error) {
			return s.SetDigest(ctx, req)
		}),
		unaryMethod("SetNSEC3Digest", func(s *Server, ctx context.Context, req *SetNSEC3DigestRequest) (any, error) {
			return s.SetNSEC3Digest(ctx, req)
		}),
	},
	Metadata: "dnssecoracle/oracle.proto",
}

// unaryMethod builds one grpc.MethodDesc for an RPC taking *Req and
// returning (*Resp, error), decoding the request with whatever codec
// content-subtype the client negotiated; these plain Go structs decode
// through internal/rpccodec's "oraclejson" subtype.
func unaryMethod[Req any](name string, call func(*Server, context.Context, *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return call(s, ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + ServiceDesc.ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// RegisterOracleServer registers Server on s using ServiceDesc.
func RegisterOracleServer(s *grpc.Server, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}
