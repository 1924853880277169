package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a SessionService client.
type Client struct {
	open            *connect.Client[structpb.Struct, structpb.Struct]
	start           *connect.Client[emptypb.Empty, structpb.Struct]
	pause           *connect.Client[emptypb.Empty, structpb.Struct]
	resume          *connect.Client[emptypb.Empty, structpb.Struct]
	toggle          *connect.Client[emptypb.Empty, structpb.Struct]
	stopAndExit     *connect.Client[emptypb.Empty, emptypb.Empty]
	getStatus       *connect.Client[emptypb.Empty, structpb.Struct]
	listExercises   *connect.Client[emptypb.Empty, structpb.Struct]
	selectExercise  *connect.Client[wrapperspb.StringValue, structpb.Struct]
	saveExercise    *connect.Client[structpb.Struct, structpb.Struct]
	getSettings     *connect.Client[emptypb.Empty, structpb.Struct]
	updateSettings  *connect.Client[structpb.Struct, structpb.Struct]
	subscribeEvents *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a client for the service at baseURL. A non-empty token is sent on every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, connect.WithInterceptors(newTokenInterceptor(token)))

	return &Client{
		open:            connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+SessionServiceOpenProcedure, opts...),
		start:           connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SessionServiceStartProcedure, opts...),
		pause:           connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SessionServicePauseProcedure, opts...),
		resume:          connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SessionServiceResumeProcedure, opts...),
		toggle:          connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SessionServiceToggleProcedure, opts...),
		stopAndExit:     connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+SessionServiceStopAndExitProcedure, opts...),
		getStatus:       connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SessionServiceGetStatusProcedure, opts...),
		listExercises:   connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SessionServiceListExercisesProcedure, opts...),
		selectExercise:  connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+SessionServiceSelectExerciseProcedure, opts...),
		saveExercise:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+SessionServiceSaveExerciseProcedure, opts...),
		getSettings:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SessionServiceGetSettingsProcedure, opts...),
		updateSettings:  connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+SessionServiceUpdateSettingsProcedure, opts...),
		subscribeEvents: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SessionServiceSubscribeEventsProcedure, opts...),
	}
}

func empty() *connect.Request[emptypb.Empty] {
	return connect.NewRequest(&emptypb.Empty{})
}

func unwrap(resp *connect.Response[structpb.Struct], err error) (map[string]any, error) {
	if err != nil {
		return nil, err
	}
	return resp.Msg.AsMap(), nil
}

// Open opens the breathing screen.
func (c *Client) Open(ctx context.Context, autoStart bool) (map[string]any, error) {
	msg, err := structpb.NewStruct(map[string]any{"auto_start": autoStart})
	if err != nil {
		return nil, err
	}
	return unwrap(c.open.CallUnary(ctx, connect.NewRequest(msg)))
}

// Start starts or resumes the cycle.
func (c *Client) Start(ctx context.Context) (map[string]any, error) {
	return unwrap(c.start.CallUnary(ctx, empty()))
}

// Pause pauses the cycle.
func (c *Client) Pause(ctx context.Context) (map[string]any, error) {
	return unwrap(c.pause.CallUnary(ctx, empty()))
}

// Resume resumes the cycle.
func (c *Client) Resume(ctx context.Context) (map[string]any, error) {
	return unwrap(c.resume.CallUnary(ctx, empty()))
}

// Toggle flips the cycle between running and paused.
func (c *Client) Toggle(ctx context.Context) (map[string]any, error) {
	return unwrap(c.toggle.CallUnary(ctx, empty()))
}

// StopAndExit leaves the breathing screen.
func (c *Client) StopAndExit(ctx context.Context) error {
	_, err := c.stopAndExit.CallUnary(ctx, empty())
	return err
}

// GetStatus returns the open screen's status.
func (c *Client) GetStatus(ctx context.Context) (map[string]any, error) {
	return unwrap(c.getStatus.CallUnary(ctx, empty()))
}

// ListExercises returns the catalogue and the current selection.
func (c *Client) ListExercises(ctx context.Context) (map[string]any, error) {
	return unwrap(c.listExercises.CallUnary(ctx, empty()))
}

// SelectExercise makes id the current exercise.
func (c *Client) SelectExercise(ctx context.Context, id string) (map[string]any, error) {
	return unwrap(c.selectExercise.CallUnary(ctx, connect.NewRequest(wrapperspb.String(id))))
}

// SaveExercise stores a custom exercise.
func (c *Client) SaveExercise(ctx context.Context, fields map[string]any) (map[string]any, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return unwrap(c.saveExercise.CallUnary(ctx, connect.NewRequest(msg)))
}

// GetSettings returns the current settings.
func (c *Client) GetSettings(ctx context.Context) (map[string]any, error) {
	return unwrap(c.getSettings.CallUnary(ctx, empty()))
}

// UpdateSettings applies the given settings fields.
func (c *Client) UpdateSettings(ctx context.Context, fields map[string]any) (map[string]any, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return unwrap(c.updateSettings.CallUnary(ctx, connect.NewRequest(msg)))
}

// SubscribeEvents calls fn for every streamed event until ctx ends, the stream closes or fn returns false.
func (c *Client) SubscribeEvents(ctx context.Context, fn func(map[string]any) bool) error {
	stream, err := c.subscribeEvents.CallServerStream(ctx, empty())
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if !fn(stream.Msg().AsMap()) {
			return nil
		}
	}
	return stream.Err()
}
