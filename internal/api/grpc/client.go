package grpcapi

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"speech-feedback-service/internal/service/audio"
)

// Client calls FeedbackService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Analyze uploads a recording and returns the decoded response.
func (c *Client) Analyze(ctx context.Context, data []byte, format audio.Format, opts ...grpc.CallOption) (*AnalyzeResponse, error) {
	if format != "" && format != audio.FormatAuto {
		ctx = metadata.AppendToOutgoingContext(ctx, FormatMetadataKey, string(format))
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AnalyzeMethod, wrapperspb.Bytes(data), out, opts...); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(out.AsMap())
	if err != nil {
		return nil, err
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
