package types

// SubmitActionRequest is the payload of POST /actions. It feeds an entity's
// interactive provider queue; the runtime decides when the queued action is
// consumed (on that entity's next turn).
type SubmitActionRequest struct {
	// Entity the input is for. Must be bound to an interactive provider.
	// example: 1
	Entity EntityID `json:"entity" example:"1"`
	// Action kind: wait, move or attack.
	// example: move
	Kind ActionKind `json:"kind" example:"move"`
	// Move direction (0=north 1=south 2=west 3=east); move only.
	// example: 3
	Dir Direction `json:"dir,omitempty" example:"3"`
	// Attack target entity; attack only.
	// example: 2
	Target EntityID `json:"target,omitempty" example:"2"`
}

// Action converts the request into the canonical action payload.
func (r SubmitActionRequest) Action() Action {
	return Action{Actor: r.Entity, Kind: r.Kind, Dir: r.Dir, Target: r.Target}
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: entity not bound to an interactive provider
	Error string `json:"error" example:"entity not bound to an interactive provider"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}

// BindingStatus describes one entity→provider binding for /status.
type BindingStatus struct {
	// Entity ID.
	// example: 1
	Entity EntityID `json:"entity" example:"1"`
	// Bound provider kind in display form.
	// example: interactive/network
	Provider string `json:"provider" example:"interactive/network"`
	// Pending queued inputs (interactive kinds only).
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Queue capacity (interactive kinds only).
	// example: 16
	QueueCap int `json:"queue_cap" example:"16"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Session identifier.
	// example: session_1700000000
	SessionID string `json:"session_id" example:"session_1700000000"`
	// Nonce of the latest committed turn.
	// example: 42
	Nonce uint64 `json:"nonce" example:"42"`
	// Runtime state (running, draining, closed).
	// example: running
	State string `json:"state" example:"running"`
	// Whether proof artifacts are produced and published.
	// example: false
	Proving bool `json:"proving" example:"false"`
	// Entity bindings recorded in canonical state.
	Bindings []BindingStatus `json:"bindings"`
	// Uptime of the runtime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Turns committed since startup.
	// example: 42
	TurnsTotal uint64 `json:"turns_total" example:"42"`
	// Turns aborted by rule rejection or provider failure since startup.
	// example: 2
	TurnsFailed uint64 `json:"turns_failed" example:"2"`
}

// StreamRecord is one NDJSON line of GET /events. Exactly one of Event or
// Lagged is set; a lagged record tells the consumer it missed n events on
// the topic and must re-fetch /state before trusting further increments.
type StreamRecord struct {
	Event *Event `json:"event,omitempty"`
	// Number of dropped events for this subscriber on this topic.
	// example: 5
	Lagged uint64 `json:"lagged,omitempty" example:"5"`
	// Topic the lag occurred on (set with lagged).
	Topic Topic `json:"topic,omitempty"`
}

// SessionInfo summarizes an archived session for listings.
type SessionInfo struct {
	// Session identifier.
	// example: session_1700000000
	SessionID string `json:"session_id" example:"session_1700000000"`
	// Latest archived nonce.
	// example: 42
	Nonce uint64 `json:"nonce" example:"42"`
	// Unix seconds of the latest journal entry.
	// example: 1700000000
	UpdatedUnix int64 `json:"updated_unix" example:"1700000000"`
}
