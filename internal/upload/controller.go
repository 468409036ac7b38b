package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"file-gallery/internal/observability"
)

// DefaultReloadDelay is how long the success message stays up before the modal
// closes and the page reloads.
const DefaultReloadDelay = 2 * time.Second

const instrumentationName = "file-gallery/upload"

// Dependencies are the collaborators of a Controller. Zero values get defaults.
type Dependencies struct {
	Client      Doer
	Scheduler   Scheduler
	Logger      *observability.Logger
	Messages    *Messages
	ReloadDelay time.Duration
}

// Controller owns one submit control and the upload cycle it triggers.
type Controller struct {
	handles     Handles
	client      Doer
	scheduler   Scheduler
	logger      *observability.Logger
	tracer      trace.Tracer
	messages    Messages
	reloadDelay time.Duration
	label       string

	busy  atomic.Bool
	mu    sync.Mutex
	state State
}

// Bind attaches a controller to the given handles. Without a submit control
// there is nothing to bind to and Bind returns nil, as it does when the form,
// file input or status area is missing. Modal and Page are optional. Methods
// of the nil controller are safe to call.
func Bind(h Handles, deps Dependencies) *Controller {
	if h.Submit == nil || h.Form == nil || h.Files == nil || h.Status == nil {
		return nil
	}

	c := &Controller{
		handles:     h,
		client:      deps.Client,
		scheduler:   deps.Scheduler,
		logger:      deps.Logger,
		tracer:      otel.Tracer(instrumentationName),
		messages:    DefaultMessages(),
		reloadDelay: deps.ReloadDelay,
		label:       h.Submit.Label(),
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	if c.scheduler == nil {
		c.scheduler = TimerScheduler{}
	}
	if c.logger == nil {
		c.logger = observability.NewNopLogger()
	}
	if deps.Messages != nil {
		c.messages = *deps.Messages
	}
	if c.reloadDelay <= 0 {
		c.reloadDelay = DefaultReloadDelay
	}

	return c
}

// State returns the current position in the submit cycle.
func (c *Controller) State() State {
	if c == nil {
		return StateIdle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Submit runs one click: validate the selection, post the form and report the
// outcome on the status area. It blocks until the request resolves. A click that
// arrives while another submission is running is ignored.
func (c *Controller) Submit(ctx context.Context) Result {
	if c == nil {
		return Result{Kind: OutcomeIgnored, Err: ErrUnbound}
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug(ctx).Msg("Submit ignored, upload already in progress")
		return Result{Kind: OutcomeIgnored, Err: ErrBusy}
	}
	defer c.busy.Store(false)

	c.setState(StateValidating)
	files := c.handles.Files.Files()
	if len(files) == 0 {
		c.handles.Status.Show(Alert{Level: AlertWarning, Message: c.messages.NoFiles})
		c.setState(StateIdle)
		c.logger.Warn(ctx).Msg("Submit without a file selection")
		return Result{Kind: OutcomeRejected, Err: ErrNoFiles}
	}

	release := c.acquire()
	defer release()

	result := c.send(ctx, files)
	switch result.Kind {
	case OutcomeSuccess:
		c.setState(StateSucceeded)
		c.handles.Status.Show(Alert{Level: AlertSuccess, Message: c.messages.Success})
		c.scheduler.AfterFunc(c.reloadDelay, c.dismiss)
		c.logger.Info(ctx).Int("file_count", len(files)).Int("status", result.StatusCode).Msg("Upload succeeded")
	default:
		c.setState(StateFailed)
		c.handles.Status.Show(Alert{Level: AlertDanger, Message: c.messages.FailurePrefix + result.Detail})
		c.logger.Error(ctx).Err(result.Err).Str("outcome", result.Kind.String()).Msg("Upload failed")
	}

	return result
}

// acquire puts the submit control in its busy look and returns the func restoring it.
func (c *Controller) acquire() func() {
	c.setState(StateSubmitting)
	c.handles.Submit.SetDisabled(true)
	c.handles.Submit.SetLabel(c.messages.Loading)
	c.handles.Status.Clear()

	return func() {
		c.handles.Submit.SetDisabled(false)
		c.handles.Submit.SetLabel(c.label)
		c.setState(StateIdle)
	}
}

func (c *Controller) dismiss() {
	if c.handles.Modal != nil {
		c.handles.Modal.Hide()
	}
	if c.handles.Page != nil {
		c.handles.Page.Reload()
	}
}

func (c *Controller) send(ctx context.Context, files []File) Result {
	action := c.handles.Form.Action()
	ctx, span := c.tracer.Start(ctx, "upload.Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upload.action", action),
			attribute.Int("upload.file_count", len(files)),
		),
	)
	defer span.End()

	body, contentType := encodeForm(c.handles.Form, files)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, body)
	if err != nil {
		return c.transportFailure(span, err)
	}
	req.Header.Set("Content-Type", contentType)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return c.transportFailure(span, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportFailure(span, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rejection := &RemoteRejectionError{StatusCode: resp.StatusCode, Body: string(text)}
		span.SetStatus(codes.Error, "upload rejected")
		return Result{
			Kind:       OutcomeRemoteRejection,
			StatusCode: resp.StatusCode,
			Detail:     rejection.Body,
			Err:        rejection,
		}
	}

	span.SetStatus(codes.Ok, "")
	return Result{Kind: OutcomeSuccess, StatusCode: resp.StatusCode}
}

func (c *Controller) transportFailure(span trace.Span, err error) Result {
	span.RecordError(err)
	span.SetStatus(codes.Error, "upload transport failure")

	// url.Error prefixes the method and URL; only the cause is shown to the user.
	detail := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		detail = urlErr.Err
	}

	return Result{
		Kind:   OutcomeTransportFailure,
		Detail: detail.Error(),
		Err:    &TransportError{Err: err},
	}
}
