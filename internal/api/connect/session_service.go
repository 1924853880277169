package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/breathbox/internal/app/notification"
	"github.com/osa030/breathbox/internal/app/session"
	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/domain/exercise"
	"github.com/osa030/breathbox/internal/infra/config"
)

// SessionServiceName is the fully-qualified name of the service.
const SessionServiceName = "breathbox.v1.SessionService"

// Procedure paths.
const (
	SessionServiceOpenProcedure            = "/" + SessionServiceName + "/Open"
	SessionServiceStartProcedure           = "/" + SessionServiceName + "/Start"
	SessionServicePauseProcedure           = "/" + SessionServiceName + "/Pause"
	SessionServiceResumeProcedure          = "/" + SessionServiceName + "/Resume"
	SessionServiceToggleProcedure          = "/" + SessionServiceName + "/Toggle"
	SessionServiceStopAndExitProcedure     = "/" + SessionServiceName + "/StopAndExit"
	SessionServiceGetStatusProcedure       = "/" + SessionServiceName + "/GetStatus"
	SessionServiceListExercisesProcedure   = "/" + SessionServiceName + "/ListExercises"
	SessionServiceSelectExerciseProcedure  = "/" + SessionServiceName + "/SelectExercise"
	SessionServiceSaveExerciseProcedure    = "/" + SessionServiceName + "/SaveExercise"
	SessionServiceGetSettingsProcedure     = "/" + SessionServiceName + "/GetSettings"
	SessionServiceUpdateSettingsProcedure  = "/" + SessionServiceName + "/UpdateSettings"
	SessionServiceSubscribeEventsProcedure = "/" + SessionServiceName + "/SubscribeEvents"
)

// RejectionCodeHeader carries the rule code of a rejected exercise.
const RejectionCodeHeader = "X-Rejection-Code"

// SessionService implements the SessionService RPC.
type SessionService struct {
	session *session.Manager
	config  *config.Config

	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionService creates a new SessionService.
func NewSessionService(session *session.Manager, cfg *config.Config) *SessionService {
	return &SessionService{
		session: session,
		config:  cfg,
		done:    make(chan struct{}),
	}
}

// Close ends every open event stream.
func (s *SessionService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// NewSessionServiceHandler builds an HTTP handler serving every SessionService procedure.
// Procedures that change state go through the control token check.
func NewSessionServiceHandler(s *SessionService, opts ...connect.HandlerOption) (string, http.Handler) {
	controlOpts := append(append([]connect.HandlerOption{}, opts...),
		connect.WithInterceptors(NewControlAuthInterceptor(s.config)))

	handlers := map[string]http.Handler{
		SessionServiceOpenProcedure:            connect.NewUnaryHandler(SessionServiceOpenProcedure, s.Open, controlOpts...),
		SessionServiceStartProcedure:           connect.NewUnaryHandler(SessionServiceStartProcedure, s.Start, controlOpts...),
		SessionServicePauseProcedure:           connect.NewUnaryHandler(SessionServicePauseProcedure, s.Pause, controlOpts...),
		SessionServiceResumeProcedure:          connect.NewUnaryHandler(SessionServiceResumeProcedure, s.Resume, controlOpts...),
		SessionServiceToggleProcedure:          connect.NewUnaryHandler(SessionServiceToggleProcedure, s.Toggle, controlOpts...),
		SessionServiceStopAndExitProcedure:     connect.NewUnaryHandler(SessionServiceStopAndExitProcedure, s.StopAndExit, controlOpts...),
		SessionServiceSelectExerciseProcedure:  connect.NewUnaryHandler(SessionServiceSelectExerciseProcedure, s.SelectExercise, controlOpts...),
		SessionServiceSaveExerciseProcedure:    connect.NewUnaryHandler(SessionServiceSaveExerciseProcedure, s.SaveExercise, controlOpts...),
		SessionServiceUpdateSettingsProcedure:  connect.NewUnaryHandler(SessionServiceUpdateSettingsProcedure, s.UpdateSettings, controlOpts...),
		SessionServiceGetStatusProcedure:       connect.NewUnaryHandler(SessionServiceGetStatusProcedure, s.GetStatus, opts...),
		SessionServiceListExercisesProcedure:   connect.NewUnaryHandler(SessionServiceListExercisesProcedure, s.ListExercises, opts...),
		SessionServiceGetSettingsProcedure:     connect.NewUnaryHandler(SessionServiceGetSettingsProcedure, s.GetSettings, opts...),
		SessionServiceSubscribeEventsProcedure: connect.NewServerStreamHandler(SessionServiceSubscribeEventsProcedure, s.SubscribeEvents, opts...),
	}

	return "/" + SessionServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// Open opens the breathing screen.
func (s *SessionService) Open(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	autoStart := true
	if v, ok := req.Msg.GetFields()["auto_start"]; ok {
		autoStart = v.GetBoolValue()
	}

	status, err := s.session.Open(ctx, autoStart)
	if err != nil {
		return nil, s.toConnectError(err)
	}
	return s.statusResponse(status)
}

// Start starts or resumes the cycle.
func (s *SessionService) Start(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.session.Start(); err != nil {
		return nil, s.toConnectError(err)
	}
	return s.GetStatus(ctx, req)
}

// Pause pauses the cycle.
func (s *SessionService) Pause(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.session.Pause(); err != nil {
		return nil, s.toConnectError(err)
	}
	return s.GetStatus(ctx, req)
}

// Resume resumes the cycle.
func (s *SessionService) Resume(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.session.Resume(); err != nil {
		return nil, s.toConnectError(err)
	}
	return s.GetStatus(ctx, req)
}

// Toggle flips the cycle between running and paused.
func (s *SessionService) Toggle(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.session.Toggle(); err != nil {
		return nil, s.toConnectError(err)
	}
	return s.GetStatus(ctx, req)
}

// StopAndExit stops everything and leaves the breathing screen.
func (s *SessionService) StopAndExit(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[emptypb.Empty], error) {
	if err := s.session.StopAndExit(ctx); err != nil {
		return nil, s.toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// GetStatus returns the status of the open screen.
func (s *SessionService) GetStatus(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	status, err := s.session.Status()
	if err != nil {
		return nil, s.toConnectError(err)
	}
	return s.statusResponse(status)
}

// ListExercises returns the catalogue and the current selection.
func (s *SessionService) ListExercises(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	list, err := s.session.ListExercises(ctx)
	if err != nil {
		return nil, s.toConnectError(err)
	}
	current, err := s.session.CurrentExercise(ctx)
	if err != nil {
		return nil, s.toConnectError(err)
	}

	items := make([]any, 0, len(list))
	for _, ex := range list {
		items = append(items, exerciseFields(ex))
	}

	msg, err := newStruct(map[string]any{
		"exercises":  items,
		"current_id": current.ID,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// SelectExercise makes the given exercise current.
func (s *SessionService) SelectExercise(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	ex, err := s.session.SelectExercise(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, s.toConnectError(err)
	}
	return s.exerciseResponse(ex)
}

// SaveExercise validates and stores a custom exercise.
func (s *SessionService) SaveExercise(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	ex, err := decodeExercise(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	saved, err := s.session.SaveCustomExercise(ctx, ex)
	if err != nil {
		return nil, s.toConnectError(err)
	}
	return s.exerciseResponse(saved)
}

// GetSettings returns the current settings.
func (s *SessionService) GetSettings(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.settingsResponse(s.session.Settings())
}

// UpdateSettings applies the fields present in the request.
func (s *SessionService) UpdateSettings(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	patch, err := decodeSettingsPatch(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	updated, err := s.session.UpdateSettings(ctx, patch.apply)
	if err != nil {
		return nil, s.toConnectError(err)
	}
	return s.settingsResponse(updated)
}

// SubscribeEvents streams the current status followed by every broadcast event.
func (s *SessionService) SubscribeEvents(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	notifier := s.session.Notifications()
	adapter := &notificationStreamAdapter{stream: stream}
	defer adapter.close()

	// The initial state goes out before the subscription so it is always first
	initial := map[string]any{
		"type":        "initial_state",
		"sequence_no": float64(notifier.SequenceNo()),
		"route":       s.session.Route(),
		"settings":    settingsFields(s.session.Settings()),
	}
	if status, err := s.session.Status(); err == nil {
		initial["status"] = statusFields(status)
	}
	msg, err := newStruct(initial)
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	if err := adapter.send(msg); err != nil {
		return err
	}

	subscriptionID := notifier.Subscribe(adapter)
	defer notifier.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

func (s *SessionService) statusResponse(status session.Status) (*connect.Response[structpb.Struct], error) {
	msg, err := newStruct(statusFields(status))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func (s *SessionService) exerciseResponse(ex exercise.Exercise) (*connect.Response[structpb.Struct], error) {
	msg, err := newStruct(exerciseFields(ex))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func (s *SessionService) settingsResponse(st settings.Settings) (*connect.Response[structpb.Struct], error) {
	msg, err := newStruct(settingsFields(st))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// toConnectError maps application errors to connect codes with user-facing messages.
func (s *SessionService) toConnectError(err error) error {
	var rejected *session.RejectedError
	switch {
	case errors.As(err, &rejected):
		cerr := connect.NewError(connect.CodeInvalidArgument, errors.New(s.config.GetMessage(rejected.Code)))
		cerr.Meta().Set(RejectionCodeHeader, rejected.Code)
		return cerr
	case errors.Is(err, session.ErrNoSession):
		return connect.NewError(connect.CodeFailedPrecondition, errors.New(s.config.GetMessage("no_session")))
	case errors.Is(err, session.ErrExited):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, exercise.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, errors.New(s.config.GetMessage("exercise_not_found")))
	case errors.Is(err, settings.ErrUnknownSoundPack):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		zlog.Error().Msgf("connect: request failed: %v", err)
		return connect.NewError(connect.CodeInternal, errors.New(s.config.GetMessage("")))
	}
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// errStreamClosed is returned by sends that arrive after the handler finished.
var errStreamClosed = errors.New("event stream closed")

type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[structpb.Struct]
	closed bool
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	msg, err := n.Struct()
	if err != nil {
		return err
	}
	return a.send(msg)
}

// send serialises writes; broadcasts may overlap on one stream.
func (a *notificationStreamAdapter) send(msg *structpb.Struct) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	return a.stream.Send(msg)
}

// close waits for an in-flight send and rejects later ones.
// The response writer must not be touched once the handler returns.
func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
