package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Comment struct {
	bun.BaseModel `bun:"table:comments"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	RecipeID  int64     `bun:"recipe_id,notnull" json:"recipe_id"`
	AuthorID  int64     `bun:"author_id,notnull" json:"author_id"`
	Text      string    `bun:"text,notnull" json:"text"`
	Rating    int       `bun:"rating,nullzero" json:"rating,omitempty"`
	ReplyTo   *int64    `bun:"reply_to,nullzero" json:"reply_to,omitempty"`
	Deleted   bool      `bun:"deleted,notnull,default:false" json:"deleted"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Author *User `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
}
