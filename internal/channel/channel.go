package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/roach88/aliasprobe/internal/alias"
)

// State is the protocol position of a Channel.
type State int

const (
	AwaitingQuery State = iota
	RespondAndAwait
	StreamingModule
	Closed
	Aborted
)

func (s State) String() string {
	switch s {
	case AwaitingQuery:
		return "AwaitingQuery"
	case RespondAndAwait:
		return "RespondAndAwait"
	case StreamingModule:
		return "StreamingModule"
	case Closed:
		return "Closed"
	case Aborted:
		return "Aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Policy decides the answer to each query. alias.SubstitutionPlan is the
// policy used by the prober.
type Policy interface {
	Respond(ev alias.QueryEvent) alias.QueryEvent
}

// Markers are the line prefixes that end the query phase.
type Markers struct {
	// ModuleHeader starts module streaming.
	ModuleHeader string
	// Failure aborts the run.
	Failure string
}

// DefaultMarkers matches the oracle's stock output.
var DefaultMarkers = Markers{ModuleHeader: "; ModuleID", Failure: "Failed"}

// Conn is the line framing a Channel talks over. *LineTransport implements it.
type Conn interface {
	Recv(ctx context.Context) (string, error)
	Send(ctx context.Context, line string) error
}

// Channel drives one oracle conversation from the first query to the end of
// the streamed module. A Channel is used for exactly one run.
type Channel struct {
	conn    Conn
	markers Markers
	policy  Policy
	logger  *slog.Logger

	state  State
	stream *alias.DecisionStream
}

// New creates a channel over conn answering queries with policy.
// A nil logger discards output.
func New(conn Conn, markers Markers, policy Policy, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Channel{
		conn:    conn,
		markers: markers,
		policy:  policy,
		logger:  logger,
		state:   AwaitingQuery,
		stream:  alias.NewDecisionStream(),
	}
}

// State returns the current protocol state.
func (c *Channel) State() State {
	return c.state
}

// Run answers queries until the module header, then copies the module to
// sink until the oracle closes its output.
//
// The returned stream holds every query answered, even on error. On error
// the channel is Aborted and sink may hold nothing or a partial module.
func (c *Channel) Run(ctx context.Context, sink io.Writer) (*alias.DecisionStream, error) {
	if c.state != AwaitingQuery {
		return c.stream, fmt.Errorf("channel already used (state %s)", c.state)
	}

	for {
		raw, err := c.conn.Recv(ctx)
		if err != nil {
			return c.stream, c.abort(c.recvError(err, "waiting for query"))
		}
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, c.markers.ModuleHeader) {
			c.state = StreamingModule
			c.logger.Debug("module header received", "queries", c.stream.Len())
			if err := c.streamModule(ctx, sink); err != nil {
				return c.stream, c.abort(err)
			}
			c.state = Closed
			return c.stream, nil
		}

		if strings.HasPrefix(line, c.markers.Failure) {
			return c.stream, c.abort(alias.NewOracleFailure(line))
		}

		kind, err := parseQuery(line)
		if err != nil {
			return c.stream, c.abort(err)
		}

		ev := c.policy.Respond(c.stream.Observe(kind))
		if err := c.conn.Send(ctx, ev.Response.Wire()); err != nil {
			return c.stream, c.abort(fmt.Errorf("answer query %d: %w", ev.Ordinal, err))
		}
		c.stream.Record(ev)
		c.state = RespondAndAwait

		if ev.Substituted {
			c.logger.Debug("substituted answer",
				"ordinal", ev.Ordinal,
				"may_ordinal", ev.MayOrdinal,
				"response", ev.Response.String(),
			)
		}
	}
}

// streamModule copies every remaining line verbatim.
func (c *Channel) streamModule(ctx context.Context, sink io.Writer) error {
	for {
		raw, err := c.conn.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return c.recvError(err, "streaming module")
		}
		if _, err := io.WriteString(sink, raw); err != nil {
			return fmt.Errorf("write module: %w", err)
		}
	}
}

func (c *Channel) abort(err error) error {
	c.state = Aborted
	c.logger.Debug("channel aborted", "queries", c.stream.Len(), "error", err)
	return err
}

func (c *Channel) recvError(err error, phase string) error {
	switch {
	case errors.Is(err, ErrRecvTimeout):
		msg := "no oracle output " + phase
		if t, ok := c.conn.(interface{ Timeout() time.Duration }); ok {
			msg = fmt.Sprintf("no oracle output within %s %s", t.Timeout(), phase)
		}
		return alias.NewTimeout(msg)
	case errors.Is(err, io.EOF):
		return &alias.FailureError{
			Code:    alias.ErrCodeOracleExited,
			Message: fmt.Sprintf("oracle output ended after %d queries without module header", c.stream.Len()),
			Index:   -1,
		}
	}
	return fmt.Errorf("%s: %w", phase, err)
}

// parseQuery extracts the kind from "<token> <token> <Kind>: ...".
func parseQuery(line string) (alias.Kind, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		pv := alias.NewProtocolViolation(fmt.Sprintf("malformed query line %q", line))
		pv.Line = line
		return "", pv
	}
	token := strings.TrimRightFunc(fields[2], unicode.IsPunct)
	kind, err := alias.ParseKind(token)
	if err != nil {
		var fe *alias.FailureError
		if errors.As(err, &fe) {
			fe.Line = line
		}
		return "", err
	}
	return kind, nil
}
