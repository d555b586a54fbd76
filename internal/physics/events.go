package physics

// EventType classifies what happened to a body during a tick.
type EventType string

const (
	EventBall       EventType = "ball"
	EventFloor      EventType = "floor"
	EventWall       EventType = "wall"
	EventEnterWater EventType = "enter_water"
	EventExitWater  EventType = "exit_water"
	EventCapture    EventType = "capture"
)

// Event records an interaction for renderers, sound and scoring.
type Event struct {
	Type     EventType `json:"type"`
	Tick     uint64    `json:"tick"`
	BodyID   BodyID    `json:"body_id"`
	TargetID int       `json:"target_id"` // other body ID or zone index; -1 for boundaries
	Speed    float64   `json:"speed"`     // impact speed
}
