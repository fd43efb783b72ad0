package alias

// QueryEvent is one observed oracle query and the answer it received.
type QueryEvent struct {
	// Ordinal is the position in the full query stream, starting at 0.
	Ordinal int `json:"ordinal"`

	// Kind is what the oracle computed.
	Kind Kind `json:"kind"`

	// Response is the code actually written back.
	Response Code `json:"response"`

	// MayOrdinal is the position among MayAlias events, or -1.
	MayOrdinal int `json:"may_ordinal"`

	// Substituted is true when Response differs from Kind.Code() because
	// a plan targeted this event.
	Substituted bool `json:"substituted,omitempty"`
}

// SubstitutionPlan selects which MayAlias query gets an overridden answer.
// Plans are values; a plan never changes while a replay is in flight.
type SubstitutionPlan struct {
	// Target is the MayOrdinal to override. Negative means no override.
	Target int `json:"target"`

	// Override is the code sent to the targeted query.
	Override Code `json:"override"`
}

// IdentityPlan answers every query with its own code.
func IdentityPlan() SubstitutionPlan {
	return SubstitutionPlan{Target: -1, Override: CodeMayAlias}
}

// Plan targets the k-th MayAlias query with override.
func Plan(k int, override Code) SubstitutionPlan {
	return SubstitutionPlan{Target: k, Override: override}
}

// IsIdentity reports whether the plan overrides nothing.
func (p SubstitutionPlan) IsIdentity() bool {
	return p.Target < 0
}

// DecisionStream is the ordered sequence of queries seen in one run.
// Streams are rebuilt on every replay and never persisted.
type DecisionStream struct {
	Events []QueryEvent `json:"events"`
	mays   int
}

// NewDecisionStream returns an empty stream.
func NewDecisionStream() *DecisionStream {
	return &DecisionStream{Events: []QueryEvent{}}
}

// Observe appends a query of kind k and returns the event with its
// ordinals filled in. The response is not yet decided.
func (s *DecisionStream) Observe(k Kind) QueryEvent {
	ev := QueryEvent{
		Ordinal:    len(s.Events),
		Kind:       k,
		Response:   k.Code(),
		MayOrdinal: -1,
	}
	if k == MayAlias {
		ev.MayOrdinal = s.mays
		s.mays++
	}
	return ev
}

// Record appends ev, which must come from the preceding Observe call.
func (s *DecisionStream) Record(ev QueryEvent) {
	s.Events = append(s.Events, ev)
}

// Len returns the number of queries answered.
func (s *DecisionStream) Len() int {
	return len(s.Events)
}

// MayAliasCount returns the number of MayAlias queries answered.
func (s *DecisionStream) MayAliasCount() int {
	n := 0
	for _, ev := range s.Events {
		if ev.Kind == MayAlias {
			n++
		}
	}
	return n
}

// Substituted returns the events whose answer was overridden.
func (s *DecisionStream) Substituted() []QueryEvent {
	var out []QueryEvent
	for _, ev := range s.Events {
		if ev.Substituted {
			out = append(out, ev)
		}
	}
	return out
}

// CompiledArtifact is the native object built for one index.
// Index is -1 for the baseline artifact.
type CompiledArtifact struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	OK    bool   `json:"ok"`
}

// Respond decides the answer to ev under p. Every query gets its own code
// except the MayAlias query at MayOrdinal p.Target, which gets p.Override.
func (p SubstitutionPlan) Respond(ev QueryEvent) QueryEvent {
	ev.Response = ev.Kind.Code()
	ev.Substituted = false
	if ev.Kind == MayAlias && ev.MayOrdinal == p.Target {
		ev.Response = p.Override
		ev.Substituted = p.Override != CodeMayAlias
	}
	return ev
}
