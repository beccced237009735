package comment

import "time"

// Comment is a reply to a worry letter. Likes and Dislikes hold reactor
// anonIds; Level is a snapshot of the author's level when the comment was
// written.
type Comment struct {
	ID            string    `json:"id"`
	WorryID       string    `json:"worryId"`
	AnonID        string    `json:"anonId"`
	CommentWriter string    `json:"commentWriter"`
	CommentTxt    string    `json:"commentTxt"`
	CommentTime   time.Time `json:"commentTime"`
	Likes         []string  `json:"likes"`
	Dislikes      []string  `json:"dislikes"`
	Level         int       `json:"level"`
}
