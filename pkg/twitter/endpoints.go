package twitter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"tweetpruner/pkg/models"
)

const (
	// BaseURL is the v1.1 REST API root
	BaseURL = "https://api.twitter.com/1.1"
	// V2BaseURL is the v2 API root, used only for the pinned tweet lookup
	V2BaseURL = "https://api.twitter.com/2"

	UserTimelineEndpoint  = "/statuses/user_timeline.json"
	FavoritesListEndpoint = "/favorites/list.json"
	DestroyStatusEndpoint = "/statuses/destroy/%d.json"
	DestroyFavoriteEndpt  = "/favorites/destroy.json"
	UserByUsernameV2      = "/users/by/username/%s"

	// DefaultPageSize matches the batch size the sweep has always used
	DefaultPageSize = 10
	// MaxPageSize is the largest count user_timeline and favorites/list accept
	MaxPageSize = 200
)

func clampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

func pageParams(screenName string, count int, cursor models.Cursor) url.Values {
	params := url.Values{}
	params.Set("screen_name", screenName)
	params.Set("count", strconv.Itoa(clampPageSize(count)))
	params.Set("tweet_mode", "extended")
	if cursor.Valid {
		params.Set("max_id", strconv.FormatInt(cursor.MaxID, 10))
	}
	return params
}

// UserTimelineURL builds the URL for one page of the account's own tweets,
// retweets included
func UserTimelineURL(base, screenName string, count int, cursor models.Cursor) string {
	params := pageParams(screenName, count, cursor)
	params.Set("include_rts", "true")
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), UserTimelineEndpoint, params.Encode())
}

// FavoritesURL builds the URL for one page of the account's likes
func FavoritesURL(base, screenName string, count int, cursor models.Cursor) string {
	params := pageParams(screenName, count, cursor)
	params.Set("include_entities", "false")
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), FavoritesListEndpoint, params.Encode())
}

// DestroyStatusURL builds the URL that deletes tweet id
func DestroyStatusURL(base string, id int64) string {
	return strings.TrimRight(base, "/") + fmt.Sprintf(DestroyStatusEndpoint, id)
}

// DestroyFavoriteURL builds the URL that unlikes tweet id
func DestroyFavoriteURL(base string, id int64) string {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(id, 10))
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), DestroyFavoriteEndpt, params.Encode())
}

// UserByUsernameURL builds the v2 lookup URL that reports the pinned tweet id
func UserByUsernameURL(v2Base, handle string) string {
	handle = strings.TrimPrefix(handle, "@")
	params := url.Values{}
	params.Set("user.fields", "pinned_tweet_id")
	return strings.TrimRight(v2Base, "/") +
		fmt.Sprintf(UserByUsernameV2, url.PathEscape(handle)) + "?" + params.Encode()
}
