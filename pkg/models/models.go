package models

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Item is a read-only snapshot of an authored or liked post
type Item struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	// Quotes is nil when the API did not report a quote count
	Quotes       *int   `json:"quotes,omitempty"`
	IsRepost     bool   `json:"is_repost"`
	Original     *Item  `json:"original,omitempty"`
	IsReply      bool   `json:"is_reply"`
	AuthorHandle string `json:"author_handle"`
	Text         string `json:"text"`
}

// QuoteCount returns the quote count, treating an absent value as 0
func (i *Item) QuoteCount() int {
	if i.Quotes == nil {
		return 0
	}
	return *i.Quotes
}

// OriginalReposts returns the repost count of the reposted item, or 0 when
// i is not a repost
func (i *Item) OriginalReposts() int {
	if !i.IsRepost || i.Original == nil {
		return 0
	}
	return i.Original.Reposts
}

// DisplayText is the text a reader would see: reposts show the original's text
func (i *Item) DisplayText() string {
	if i.IsRepost && i.Original != nil {
		return "(RETWEET) " + i.Original.Text
	}
	return i.Text
}

// Permalink returns the public status URL of the item. Without an author
// handle it falls back to the handle-less /i/web form.
func (i *Item) Permalink() string {
	handle := i.AuthorHandle
	if handle == "" {
		handle = "i/web"
	}
	return fmt.Sprintf("https://twitter.com/%s/status/%d", handle, i.ID)
}

// Age returns how long ago the item was created relative to now
func (i *Item) Age(now time.Time) time.Duration {
	return now.Sub(i.CreatedAt)
}

// MentionsHandle reports whether the text contains @handle as a whole
// mention, ignoring case. @bob does not match inside @bobby.
func (i *Item) MentionsHandle(handle string) bool {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return false
	}

	text := strings.ToLower(i.Text)
	mention := "@" + strings.ToLower(handle)
	for from := 0; ; {
		at := strings.Index(text[from:], mention)
		if at < 0 {
			return false
		}
		end := from + at + len(mention)
		if end == len(text) || !isHandleByte(text[end]) {
			return true
		}
		from = end
	}
}

func isHandleByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// Cursor is the backward pagination boundary. A valid cursor asks for items
// with ID <= MaxID; the zero value asks for the newest page.
type Cursor struct {
	MaxID int64
	Valid bool
}

// Before returns the cursor for the page that follows one whose smallest
// id was minID
func Before(minID int64) Cursor {
	return Cursor{MaxID: minID - 1, Valid: true}
}

func (c Cursor) String() string {
	if !c.Valid {
		return "newest"
	}
	return fmt.Sprintf("max_id=%d", c.MaxID)
}

// RemovalSet is an insertion-ordered set of item ids queued for removal
type RemovalSet struct {
	mu    sync.Mutex
	seen  map[int64]struct{}
	order []int64
}

// NewRemovalSet creates an empty set
func NewRemovalSet() *RemovalSet {
	return &RemovalSet{seen: make(map[int64]struct{})}
}

// Add inserts id and reports whether it was new
func (s *RemovalSet) Add(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Len returns the number of ids in the set
func (s *RemovalSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// IDs returns the ids in the order they were added
func (s *RemovalSet) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// Sorted returns the ids in ascending order
func (s *RemovalSet) Sorted() []int64 {
	ids := s.IDs()
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
