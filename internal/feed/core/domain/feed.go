package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrAuthorNotFound : précondition violée en amont (post publié pour un
	// auteur inexistant). Fatal, jamais retenté.
	ErrAuthorNotFound = errors.New("author not found")

	ErrInvalidCursor = errors.New("invalid page cursor")
)

// FeedItem : la référence dénormalisée d'un post, telle que reçue
// de l'event post.created. Le contenu reste dans le Post Store.
type FeedItem struct {
	PostID    string
	AuthorID  string
	CreatedAt time.Time
}

// TimelineEntry : l'apparition d'UN post dans le feed d'UN destinataire.
// Unique par (RecipientID, PostID) quel que soit le nombre de fan-outs.
// DeliveredAt sert au tri : tous les destinataires d'un même fan-out
// partagent le même timestamp (un seul événement logique).
type TimelineEntry struct {
	RecipientID string
	PostID      string
	AuthorID    string
	DeliveredAt time.Time
}

type TimelineRequest struct {
	UserID string
	Limit  int64
	Cursor string // opaque, vide = première page
}

// Cursor pagine la timeline par position (deliveredAt, postID), jamais par
// offset : l'offset saute ou duplique des lignes quand ça insère en continu.
type Cursor struct {
	DeliveredAt time.Time
	PostID      string
}

func (c Cursor) IsZero() bool {
	return c.DeliveredAt.IsZero() && c.PostID == ""
}

// Encode produit le token opaque renvoyé au client.
func (c Cursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	raw := fmt.Sprintf("%d:%s", c.DeliveredAt.UnixMicro(), c.PostID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Cursor{}, ErrInvalidCursor
	}
	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{DeliveredAt: time.UnixMicro(micros).UTC(), PostID: parts[1]}, nil
}
