package pruner_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetpruner/pkg/config"
	errs "tweetpruner/pkg/errors"
	"tweetpruner/pkg/logger"
	"tweetpruner/pkg/pruner"
	"tweetpruner/pkg/retry"
	"tweetpruner/pkg/twitter"
)

type mockTweet struct {
	id      int64
	age     time.Duration
	likes   int
	author  string
	text    string
	gone    bool
	removed bool
}

// mockTwitterServer serves the v1.1 timeline, favorites and destroy
// endpoints plus the v2 user lookup from memory
type mockTwitterServer struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	posts        []*mockTweet
	likes        []*mockTweet
	pinned       int64
	failFirstGet bool
	requests     int
	destroyed    []int64
	unliked      []int64
}

func newMockTwitterServer(t *testing.T) *mockTwitterServer {
	m := &mockTwitterServer{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/statuses/user_timeline.json", m.handleList(&m.posts))
	mux.HandleFunc("/1.1/favorites/list.json", m.handleList(&m.likes))
	mux.HandleFunc("/1.1/statuses/destroy/", m.handleDestroy)
	mux.HandleFunc("/1.1/favorites/destroy.json", m.handleUnlike)
	mux.HandleFunc("/2/users/by/username/", m.handleUser)

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		m.mu.Lock()
		m.requests++
		fail := m.failFirstGet && r.Method == http.MethodGet
		m.failFirstGet = m.failFirstGet && !fail
		m.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockTwitterServer) handleList(items *[]*mockTweet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		maxID := int64(-1)
		if v := r.URL.Query().Get("max_id"); v != "" {
			maxID, _ = strconv.ParseInt(v, 10, 64)
		}

		m.mu.Lock()
		var page []map[string]interface{}
		sorted := append([]*mockTweet(nil), (*items)...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].id > sorted[j].id })
		for _, tw := range sorted {
			if tw.removed || (maxID >= 0 && tw.id > maxID) {
				continue
			}
			if len(page) == count {
				break
			}
			page = append(page, map[string]interface{}{
				"id":                    tw.id,
				"created_at":            time.Now().Add(-tw.age).UTC().Format(time.RubyDate),
				"full_text":             tw.text,
				"favorite_count":        tw.likes,
				"retweet_count":         0,
				"in_reply_to_status_id": nil,
				"user":                  map[string]interface{}{"id": 1, "screen_name": tw.author},
			})
		}
		m.mu.Unlock()

		if page == nil {
			page = []map[string]interface{}{}
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(m.t, json.NewEncoder(w).Encode(page))
	}
}

func (m *mockTwitterServer) remove(items []*mockTweet, id int64) bool {
	for _, tw := range items {
		if tw.id == id && !tw.removed && !tw.gone {
			tw.removed = true
			return true
		}
	}
	return false
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"errors":[{"code":144,"message":"No status found with that ID."}]}`)
}

func (m *mockTwitterServer) handleDestroy(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/1.1/statuses/destroy/"), ".json")
	id, err := strconv.ParseInt(raw, 10, 64)
	assert.NoError(m.t, err)
	assert.Equal(m.t, http.MethodPost, r.Method)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, id)
	if !m.remove(m.posts, id) {
		notFound(w)
		return
	}
	fmt.Fprintf(w, `{"id":%d}`, id)
}

func (m *mockTwitterServer) handleUnlike(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	assert.NoError(m.t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.unliked = append(m.unliked, id)
	if !m.remove(m.likes, id) {
		notFound(w)
		return
	}
	fmt.Fprintf(w, `{"id":%d}`, id)
}

func (m *mockTwitterServer) handleUser(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	pinned := m.pinned
	m.mu.Unlock()

	data := map[string]interface{}{"id": "1", "username": "pruner"}
	if pinned != 0 {
		data["pinned_tweet_id"] = strconv.FormatInt(pinned, 10)
	}
	assert.NoError(m.t, json.NewEncoder(w).Encode(map[string]interface{}{"data": data}))
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestEndToEndAgainstMockAPI(t *testing.T) {
	api := newMockTwitterServer(t)
	api.failFirstGet = true
	api.pinned = 101
	api.posts = []*mockTweet{
		{id: 105, age: days(5), author: "pruner", text: "fresh"},
		{id: 104, age: days(30), likes: 10, author: "pruner", text: "popular"},
		{id: 103, age: days(30), author: "pruner", text: "stale"},
		{id: 102, age: days(100), author: "pruner", text: "deleted elsewhere", gone: true},
		{id: 101, age: days(400), author: "pruner", text: "pinned"},
	}
	api.likes = []*mockTweet{
		{id: 202, age: days(1), author: "friend", text: "new like"},
		{id: 201, age: days(10), author: "friend", text: "old like"},
	}

	cfg := config.DefaultConfig()
	cfg.Twitter = config.TwitterConfig{
		APIKey:            "consumer-key",
		APISecret:         "consumer-secret",
		AccessToken:       "access-token",
		AccessTokenSecret: "access-secret",
		ScreenName:        "pruner",
		APIBaseURL:        api.server.URL + "/1.1",
		APIV2BaseURL:      api.server.URL + "/2",
		Timeout:           5 * time.Second,
	}
	cfg.Removal.Concurrency = 2
	require.NoError(t, cfg.Validate())

	log := logger.NewTestLogger()
	client := twitter.NewClient(&cfg.Twitter, log, twitter.WithPageSize(2))
	retrier := retry.NewRetrier(&retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     retry.DefaultRetryIf,
		AbortIf:     errs.IsNotFound,
		Context:     context.Background(),
		Logger:      log,
	})

	p, err := pruner.New(cfg, client, log, pruner.WithRetrier(retrier))
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, summary.Posts)
	assert.Equal(t, 5, summary.Posts.Visited)
	assert.Equal(t, 1, summary.Posts.Permanent)
	assert.Equal(t, 2, summary.Posts.Selected)
	assert.Equal(t, 1, summary.Posts.Removed)
	assert.Equal(t, 1, summary.Posts.AlreadyGone)
	assert.Zero(t, summary.Posts.Failed)

	require.NotNil(t, summary.Likes)
	assert.Equal(t, 2, summary.Likes.Visited)
	assert.Equal(t, 1, summary.Likes.Removed)
	assert.Zero(t, summary.Failed())

	api.mu.Lock()
	defer api.mu.Unlock()
	sort.Slice(api.destroyed, func(i, j int) bool { return api.destroyed[i] < api.destroyed[j] })
	assert.Equal(t, []int64{102, 103}, api.destroyed, "not-found is not retried")
	assert.Equal(t, []int64{201}, api.unliked)
	assert.False(t, api.failFirstGet, "transient failure should have been hit and retried")

	assert.True(t, log.HasMessage("stale"))
	assert.False(t, log.HasMessage("popular"))
}
