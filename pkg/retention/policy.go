package retention

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"tweetpruner/pkg/config"
	"tweetpruner/pkg/models"
)

const (
	// BaseDays is the allowed age of an authored item nobody interacted with,
	// before the multiplier
	BaseDays = 2
	// ClampThresholdDays is the largest allowed age kept as computed
	ClampThresholdDays = 180
	// KeepForeverDays replaces any allowed age above ClampThresholdDays
	KeepForeverDays = 1825

	likeBaseDays   = 3.0
	likeScaleDays  = 4.0
	likeSaturation = 50.0

	day = 24 * time.Hour
)

// Decision is the verdict for one item
type Decision struct {
	Remove      bool
	Permanent   bool
	AllowedDays int
	Age         time.Duration
	// EffectiveReposts is the repost count the authored score used
	EffectiveReposts int
}

// AuthoredAllowedDays scores an authored item.
//
// Reposts of the item's own original are subtracted so a repost wrapper
// does not inherit the original's virality; the result is clamped at zero
// when the snapshot reports the original with more reposts than the wrapper.
func AuthoredAllowedDays(item *models.Item, multiplier float64) (allowed, effectiveReposts int) {
	effectiveReposts = item.Reposts - item.OriginalReposts()
	if effectiveReposts < 0 {
		effectiveReposts = 0
	}
	quotes := item.QuoteCount()

	anyInteraction := item.Likes+effectiveReposts+quotes > 0 || item.IsReply

	base := BaseDays + (item.Likes+1)/2 + effectiveReposts + quotes*2
	if anyInteraction {
		base++
	}

	allowed = int(math.Round(float64(base) * multiplier))
	if allowed > ClampThresholdDays {
		allowed = KeepForeverDays
	}
	return allowed, effectiveReposts
}

// LikedAllowedDays scores a liked item. Engagement saturates through atan,
// so without the mention bonus the result never exceeds 9 days.
func LikedAllowedDays(item *models.Item, handle string, mentionBonusDays int) int {
	engagement := float64(item.Likes + item.Reposts)
	allowed := int(math.Floor(likeBaseDays + likeScaleDays*math.Atan(engagement/likeSaturation)))
	if mentionBonusDays > 0 && item.MentionsHandle(handle) {
		allowed += mentionBonusDays
	}
	return allowed
}

// Exceeds reports whether age is strictly greater than allowedDays
func Exceeds(age time.Duration, allowedDays int) bool {
	return age > time.Duration(allowedDays)*day
}

// Policy evaluates authored and liked items against the retention rules
type Policy struct {
	multiplier       float64
	mentionBonusDays int
	handle           string
	permanentIDs     map[int64]struct{}
	patterns         []*regexp.Regexp
}

// New builds a Policy from the retention configuration. handle is the
// account's own screen name, used for the liked-item mention bonus.
func New(cfg *config.RetentionConfig, handle string) (*Policy, error) {
	p := &Policy{
		multiplier:       cfg.MaxTweetAgeMultiplier,
		mentionBonusDays: cfg.MentionBonusDays,
		handle:           handle,
		permanentIDs:     make(map[int64]struct{}, len(cfg.PermanentIDs)+1),
	}
	if !(p.multiplier > 0) {
		return nil, fmt.Errorf("max tweet age multiplier must be positive, got %v", cfg.MaxTweetAgeMultiplier)
	}

	for _, id := range cfg.PermanentIDs {
		p.permanentIDs[id] = struct{}{}
	}

	for _, pattern := range cfg.PermanentPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid permanent pattern %q: %w", pattern, err)
		}
		p.patterns = append(p.patterns, re)
	}

	return p, nil
}

// AddPermanent exempts ids from removal. Called with the pinned item id
// before the walk starts.
func (p *Policy) AddPermanent(ids ...int64) {
	for _, id := range ids {
		p.permanentIDs[id] = struct{}{}
	}
}

// Multiplier returns the authored-item age multiplier in effect
func (p *Policy) Multiplier() float64 {
	return p.multiplier
}

// IsPermanent reports whether an authored item is exempt, by id or by a
// pattern matching its own or displayed text
func (p *Policy) IsPermanent(item *models.Item) bool {
	if _, ok := p.permanentIDs[item.ID]; ok {
		return true
	}
	for _, re := range p.patterns {
		if re.MatchString(item.Text) || re.MatchString(item.DisplayText()) {
			return true
		}
	}
	return false
}

// EvaluatePost decides whether an authored item should be deleted at now.
// Permanent items are never scored.
func (p *Policy) EvaluatePost(item *models.Item, now time.Time) Decision {
	age := item.Age(now)
	if p.IsPermanent(item) {
		return Decision{Permanent: true, Age: age}
	}

	allowed, effective := AuthoredAllowedDays(item, p.multiplier)
	return Decision{
		Remove:           Exceeds(age, allowed),
		AllowedDays:      allowed,
		Age:              age,
		EffectiveReposts: effective,
	}
}

// EvaluateLike decides whether a liked item should be unliked at now
func (p *Policy) EvaluateLike(item *models.Item, now time.Time) Decision {
	age := item.Age(now)
	allowed := LikedAllowedDays(item, p.handle, p.mentionBonusDays)
	return Decision{
		Remove:           Exceeds(age, allowed),
		AllowedDays:      allowed,
		Age:              age,
		EffectiveReposts: item.Reposts,
	}
}
