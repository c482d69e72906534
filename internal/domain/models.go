package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ==================== JSONB TYPES ====================

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("failed to scan JSONB: invalid type")
	}
}

// ==================== ENTITIES ====================

// Round is a fixed-duration epoch. At most one round is active at any settled
// instant; a round is flagged inactive exactly once, when superseded, and is
// otherwise immutable.
type Round struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StartTime time.Time `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time `gorm:"not null;index" json:"end_time"`
	Active    bool      `gorm:"not null;default:false;index" json:"active"`

	// Capacity policy fixed at creation, passed through to samplers as a hint.
	MaxTasksPerNode int `gorm:"not null;default:0" json:"max_tasks_per_node"`
}

func (Round) TableName() string {
	return "checker_rounds"
}

func (r *Round) Expired(now time.Time) bool {
	return !now.Before(r.EndTime)
}

// SubnetTask is one unit of verification work generated for a (round, subnet)
// pair. Never updated after insertion; removed only by cascade when its round
// is deleted.
type SubnetTask struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RoundID uint   `gorm:"not null;index" json:"round_id"`
	Round   *Round `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	Subnet         string `gorm:"size:100;not null;index" json:"subnet"`
	TaskDefinition JSONB  `gorm:"type:jsonb;not null" json:"task_definition"`
}

func (SubnetTask) TableName() string {
	return "checker_subnet_tasks"
}

// ==================== EVENTS ====================

// RoundEvent is published on every round transition, consumed by the
// websocket feed.
type RoundEvent struct {
	RoundID         uint      `json:"round_id"`
	PreviousRoundID uint      `json:"previous_round_id,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
}
