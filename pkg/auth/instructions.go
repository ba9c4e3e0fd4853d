package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCredentialGuide prints where the four OAuth values come from
func ShowCredentialGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "TWITTER API CREDENTIALS")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "tweetpruner signs requests with OAuth 1.0a user context.")
	fmt.Fprintln(w, "You need four values from the developer portal:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Open https://developer.twitter.com/en/portal/projects-and-apps")
	fmt.Fprintln(w, "  2. Select your app, then 'Keys and tokens'")
	fmt.Fprintln(w, "  3. Under 'Consumer Keys' copy the API Key and API Key Secret")
	fmt.Fprintln(w, "  4. Under 'Authentication Tokens' generate an Access Token and Secret")
	fmt.Fprintln(w, "     with Read and Write permissions")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The same values can be exported instead of stored:")
	fmt.Fprintln(w, "  TWITTER_API_KEY, TWITTER_API_SECRET,")
	fmt.Fprintln(w, "  TWITTER_ACCESS_TOKEN, TWITTER_ACCESS_TOKEN_SECRET, TWITTER_SCREEN_NAME")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "These tokens can delete every post on the account. Keep them private.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
}
