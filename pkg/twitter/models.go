package twitter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tweetpruner/pkg/models"
)

// Tweet is the v1.1 status object, reduced to the fields the sweep reads
type Tweet struct {
	ID                int64  `json:"id"`
	IDStr             string `json:"id_str"`
	CreatedAt         string `json:"created_at"`
	FullText          string `json:"full_text"`
	Text              string `json:"text"`
	FavoriteCount     int    `json:"favorite_count"`
	RetweetCount      int    `json:"retweet_count"`
	QuoteCount        *int   `json:"quote_count,omitempty"`
	InReplyToStatusID *int64 `json:"in_reply_to_status_id"`
	User              User   `json:"user"`
	RetweetedStatus   *Tweet `json:"retweeted_status,omitempty"`
}

// User is the v1.1 user object embedded in a status
type User struct {
	ID         int64  `json:"id"`
	ScreenName string `json:"screen_name"`
}

// APIError is one entry of a v1.1 or v2 error body
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Title   string `json:"title"`
	Detail  string `json:"detail"`
}

// ErrorResponse wraps the errors array both API versions return
type ErrorResponse struct {
	Errors []APIError `json:"errors"`
}

// Message joins the error entries into one line
func (r *ErrorResponse) Message() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msg := e.Message
		if msg == "" {
			msg = e.Detail
		}
		if msg == "" {
			msg = e.Title
		}
		if e.Code != 0 {
			msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

// UserLookupResponse is the v2 users/by/username payload
type UserLookupResponse struct {
	Data *struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		PinnedTweetID string `json:"pinned_tweet_id"`
	} `json:"data"`
	Errors []APIError `json:"errors"`
}

func (t *Tweet) id() (int64, error) {
	if t.ID != 0 {
		return t.ID, nil
	}
	return strconv.ParseInt(t.IDStr, 10, 64)
}

func (t *Tweet) text() string {
	if t.FullText != "" {
		return t.FullText
	}
	return t.Text
}

// ToItem converts a status into the sweep's item snapshot
func (t *Tweet) ToItem() (models.Item, error) {
	id, err := t.id()
	if err != nil {
		return models.Item{}, fmt.Errorf("invalid tweet id %q: %w", t.IDStr, err)
	}

	createdAt, err := time.Parse(time.RubyDate, t.CreatedAt)
	if err != nil {
		return models.Item{}, fmt.Errorf("invalid created_at for tweet %d: %w", id, err)
	}

	item := models.Item{
		ID:           id,
		CreatedAt:    createdAt,
		Likes:        t.FavoriteCount,
		Reposts:      t.RetweetCount,
		Quotes:       t.QuoteCount,
		IsReply:      t.InReplyToStatusID != nil,
		AuthorHandle: t.User.ScreenName,
		Text:         t.text(),
	}

	if t.RetweetedStatus != nil {
		original, err := t.RetweetedStatus.ToItem()
		if err != nil {
			return models.Item{}, fmt.Errorf("retweeted status of %d: %w", id, err)
		}
		item.IsRepost = true
		item.Original = &original
	}

	return item, nil
}
