package types

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleVolunteer Role = "volunteer"
)

// Identity is the projection the identity provider supplies for an
// authenticated caller. The core only ever reads these fields.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Contact  string `json:"contact"`
	Role     Role   `json:"role"`
}

// Volunteer is the stored projection row used for the read-side join on
// reporter views. Rows are upserted at login from verified claims.
type Volunteer struct {
	UserID    string    `db:"user_id" json:"userId"`
	Username  string    `db:"username" json:"username"`
	Contact   string    `db:"contact" json:"contact"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
