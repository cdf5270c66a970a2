package service

import (
	"context"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/protocol/codec"
	"github.com/evant/instance-state/internal/telemetry/logger"
)

// Reply is the outcome of dispatching one inbound buffer.
//
// Data follows the reply encoding: nil is "no value", a non-nil empty slice
// is an empty value. Send is false when nothing should go back on the wire.
type Reply struct {
	Data []byte
	Send bool
}

// DecodeErrorRecorder receives one call per rejected inbound buffer.
type DecodeErrorRecorder interface {
	RecordDecodeError(code string)
}

// Dispatcher runs decode, handle and reply encoding for a transport.
type Dispatcher struct {
	store        *StateStore
	ackMutations bool
	logger       logger.Logger
	customLogger bool
	recorder     DecodeErrorRecorder
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAckMutations makes Set and Remove answer with an empty acknowledgement.
func WithAckMutations(ack bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.ackMutations = ack
	}
}

// WithDispatchLogger sets the logger, overriding the one carried by the context.
func WithDispatchLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
		d.customLogger = true
	}
}

// WithDecodeErrorRecorder sets the decode error recorder.
func WithDecodeErrorRecorder(r DecodeErrorRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// NewDispatcher creates a dispatcher in front of store.
func NewDispatcher(store *StateStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		logger: logger.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AckMutations reports whether mutations are acknowledged.
func (d *Dispatcher) AckMutations() bool {
	return d.ackMutations
}

// Store returns the underlying state store.
func (d *Dispatcher) Store() *StateStore {
	return d.store
}

// Dispatch processes one request buffer.
//
// Domain errors are returned unchanged so transports can report their codes.
func (d *Dispatcher) Dispatch(ctx context.Context, req []byte) (Reply, error) {
	log := d.log(ctx)

	op, err := codec.Decode(req)
	if err != nil {
		code := domain.GetErrorCode(err)
		if d.recorder != nil {
			d.recorder.RecordDecodeError(code)
		}
		log.Warn("rejected message", "code", code, "size", len(req), "error", err)
		return Reply{}, err
	}
	if op == nil {
		return Reply{}, nil
	}

	reply, err := d.store.Handle(op)
	if err != nil {
		log.Warn("operation failed", "kind", op.Kind.String(), "key", op.Key, "error", err)
		return Reply{}, err
	}

	if reply != nil {
		return Reply{Data: codec.EncodeReply(reply), Send: true}, nil
	}
	if d.ackMutations {
		return Reply{Send: true}, nil
	}
	return Reply{}, nil
}

func (d *Dispatcher) log(ctx context.Context) logger.Logger {
	if ctx == nil {
		return d.logger
	}
	if !d.customLogger {
		return logger.L(ctx)
	}
	l := d.logger
	if id := logger.RequestIDFromContext(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if id := logger.ConnIDFromContext(ctx); id != "" {
		l = l.With("conn_id", id)
	}
	return l
}
