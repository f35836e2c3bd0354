package domain

import "time"

// Role identifica al autor de un turno.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid indica si el rol es uno de los aceptados por el store.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn es un mensaje persistido de una conversacion, en orden de creacion.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
