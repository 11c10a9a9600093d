package engine

// EventType names a fact the engine reports out of a tick or apply, for the
// session runtime to broadcast and append to a replay log.
type EventType string

const (
	EventGameStarted    EventType = "game_started"
	EventMoveStarted    EventType = "move_started"
	EventCapture        EventType = "capture"
	EventMoveCompleted  EventType = "move_completed"
	EventCooldownStarted EventType = "cooldown_started"
	EventCooldownEnded  EventType = "cooldown_ended"
	EventPromotion      EventType = "promotion"
	EventGameOver       EventType = "game_over"
)

// Event is one occurrence produced by ApplyMove or Tick. Fields unused by a
// given Type are left zero; the transport/protocol layer picks the ones it
// needs when framing a wire message.
type Event struct {
	Type EventType
	Tick int

	PieceID          string
	CapturingPieceID string // empty on a Capture event means mutual destruction
	Slot             int

	FromR, FromC int
	ToR, ToC     int

	PromotedTo string

	Winner    *int
	WinReason WinReason
}
