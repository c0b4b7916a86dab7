package model // import "github.com/joincivil/civil-debate-processor/pkg/model"

// Reply is an existing reply in a comment thread
type Reply struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// PostedReply is the result of posting a reply
type PostedReply struct {
	ID string `json:"id"`
}

// Account is a social platform account registered with the bot
type Account struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	LoggedInAt string `json:"logged_in_at,omitempty"`
}
