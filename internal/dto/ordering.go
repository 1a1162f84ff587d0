package dto

// MoveTaskRequest repositions a task within its sibling group. Confirmed
// acknowledges a previously returned priority conflict.
type MoveTaskRequest struct {
	Position  int  `json:"position" binding:"required,min=1"`
	Confirmed bool `json:"confirmed"`
}
