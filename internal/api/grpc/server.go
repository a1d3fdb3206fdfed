package grpcapi

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"speech-feedback-service/internal/observability"
	"speech-feedback-service/internal/observability/metrics"
	"speech-feedback-service/internal/service/audio"
	"speech-feedback-service/internal/service/feedback"
	"speech-feedback-service/internal/service/pipeline"
)

// AnalyzeResponse is the JSON shape carried in the response Struct.
type AnalyzeResponse struct {
	ID string `json:"id"`
	feedback.Report
}

type Server struct {
	pipeline *pipeline.Pipeline
}

// Register adds FeedbackService to g.
func Register(g *grpc.Server, p *pipeline.Pipeline) *Server {
	s := &Server{pipeline: p}
	g.RegisterService(&ServiceDesc, s)
	return s
}

// NewServer builds a gRPC server with FeedbackService, health checking and
// reflection registered. maxRecvBytes bounds the request message size.
func NewServer(p *pipeline.Pipeline, m *metrics.Metrics, maxRecvBytes int) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(m)),
	}
	if maxRecvBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(maxRecvBytes))
	}
	g := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	Register(g, p)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	return g, healthServer
}

// Analyze scores one recording.
func (s *Server) Analyze(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	format, err := formatFromMetadata(ctx)
	if err != nil {
		return nil, err
	}

	res := s.pipeline.SubmitAs(ctx, in.GetValue(), format)
	if !res.OK() {
		return nil, status.Error(codeFor(res.Err), res.Err.Error())
	}

	out, err := toStruct(AnalyzeResponse{ID: res.ID, Report: *res.Report})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode report: %v", err)
	}
	return out, nil
}

func formatFromMetadata(ctx context.Context) (audio.Format, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return audio.FormatAuto, nil
	}
	vals := md.Get(FormatMetadataKey)
	if len(vals) == 0 {
		return audio.FormatAuto, nil
	}
	switch f := audio.Format(strings.ToLower(vals[0])); f {
	case audio.FormatAuto, audio.FormatWAV, audio.FormatMP3, audio.FormatPCM:
		return f, nil
	default:
		return "", status.Errorf(codes.InvalidArgument, "unsupported %s %q", FormatMetadataKey, vals[0])
	}
}

func codeFor(err error) codes.Code {
	switch pipeline.Classify(err) {
	case pipeline.ClassInvalidAudio:
		return codes.InvalidArgument
	case pipeline.ClassTranscription:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
