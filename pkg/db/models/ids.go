package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller left it unset, so inserts work on
// databases without a gen_random_uuid() default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
