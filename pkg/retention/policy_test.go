package retention

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetpruner/pkg/config"
	"tweetpruner/pkg/models"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func newPolicy(t *testing.T, mutate func(*config.RetentionConfig)) *Policy {
	t.Helper()
	cfg := config.DefaultConfig().Retention
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(&cfg, "pruner")
	require.NoError(t, err)
	return p
}

func TestAuthoredAllowedDays(t *testing.T) {
	tests := []struct {
		name          string
		item          models.Item
		multiplier    float64
		wantAllowed   int
		wantEffective int
	}{
		{
			name:        "no interaction",
			item:        models.Item{},
			multiplier:  7.0,
			wantAllowed: 14,
		},
		{
			name:        "reply counts as interaction",
			item:        models.Item{IsReply: true},
			multiplier:  7.0,
			wantAllowed: 21,
		},
		{
			name:        "likes round half up",
			item:        models.Item{Likes: 2},
			multiplier:  7.0,
			wantAllowed: (2 + 1 + 1) * 7,
		},
		{
			name:          "reposts and quotes",
			item:          models.Item{Likes: 1, Reposts: 2, Quotes: intPtr(1)},
			multiplier:    7.0,
			wantAllowed:   (2 + 1 + 1 + 2 + 2) * 7,
			wantEffective: 2,
		},
		{
			name:          "popular item kept forever",
			item:          models.Item{Likes: 100},
			multiplier:    7.0,
			wantAllowed:   KeepForeverDays,
			wantEffective: 0,
		},
		{
			name:        "fractional multiplier rounds",
			item:        models.Item{},
			multiplier:  1.3,
			wantAllowed: 3,
		},
		{
			name: "repost subtracts original reposts",
			item: models.Item{
				Reposts:  50,
				IsRepost: true,
				Original: &models.Item{Reposts: 48},
			},
			multiplier:    1.0,
			wantAllowed:   2 + 1 + 2,
			wantEffective: 2,
		},
		{
			name: "inconsistent snapshot clamps at zero",
			item: models.Item{
				Reposts:  3,
				IsRepost: true,
				Original: &models.Item{Reposts: 10},
			},
			multiplier:    7.0,
			wantAllowed:   14,
			wantEffective: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, effective := AuthoredAllowedDays(&tt.item, tt.multiplier)
			assert.Equal(t, tt.wantAllowed, allowed)
			assert.Equal(t, tt.wantEffective, effective)
		})
	}
}

func TestAuthoredClampBoundary(t *testing.T) {
	// base 25 * 7 = 175 stays, base 26 * 7 = 182 jumps to five years
	below := models.Item{Likes: 1, Reposts: 21}
	allowed, _ := AuthoredAllowedDays(&below, 7.0)
	assert.Equal(t, 175, allowed)

	above := models.Item{Likes: 1, Reposts: 22}
	allowed, _ = AuthoredAllowedDays(&above, 7.0)
	assert.Equal(t, KeepForeverDays, allowed)

	exact := models.Item{}
	allowed, _ = AuthoredAllowedDays(&exact, 90.0)
	assert.Equal(t, ClampThresholdDays, allowed)
}

func TestLikedAllowedDays(t *testing.T) {
	assert.Equal(t, 3, LikedAllowedDays(&models.Item{}, "pruner", 0))
	assert.Equal(t, 6, LikedAllowedDays(&models.Item{Likes: 50}, "pruner", 0))

	prev := 0
	for _, engagement := range []int{0, 1, 10, 50, 200, 10_000, math.MaxInt32} {
		got := LikedAllowedDays(&models.Item{Likes: engagement}, "pruner", 0)
		assert.GreaterOrEqual(t, got, prev)
		assert.LessOrEqual(t, got, 9)
		prev = got
	}
	assert.Equal(t, 9, prev)
}

func TestLikedMentionBonus(t *testing.T) {
	item := &models.Item{Text: "cc @Pruner what do you think?"}

	assert.Equal(t, 3+7, LikedAllowedDays(item, "pruner", 7))
	assert.Equal(t, 3, LikedAllowedDays(item, "pruner", 0))
	assert.Equal(t, 3, LikedAllowedDays(item, "somebody", 7))

	longer := &models.Item{Text: "cc @Prunerbot what do you think?"}
	assert.Equal(t, 3, LikedAllowedDays(longer, "pruner", 7), "a longer handle is not a mention")
}

func TestExceedsIsStrict(t *testing.T) {
	assert.False(t, Exceeds(14*day, 14))
	assert.True(t, Exceeds(14*day+time.Second, 14))
	assert.False(t, Exceeds(-time.Hour, 0))
}

func TestEvaluatePost(t *testing.T) {
	p := newPolicy(t, nil)

	fresh := &models.Item{ID: 1, CreatedAt: now.Add(-13 * day)}
	assert.False(t, p.EvaluatePost(fresh, now).Remove)

	stale := &models.Item{ID: 2, CreatedAt: now.Add(-15 * day)}
	d := p.EvaluatePost(stale, now)
	assert.True(t, d.Remove)
	assert.Equal(t, 14, d.AllowedDays)
	assert.Equal(t, 15*day, d.Age)
}

func TestPermanentItemsAreNeverRemoved(t *testing.T) {
	p := newPolicy(t, func(cfg *config.RetentionConfig) {
		cfg.PermanentIDs = []int64{100}
		cfg.PermanentPatterns = []string{`(?i)#keep\b`}
	})
	p.AddPermanent(200)

	ancient := now.Add(-10 * 365 * day)
	for _, item := range []*models.Item{
		{ID: 100, CreatedAt: ancient},
		{ID: 200, CreatedAt: ancient},
		{ID: 300, CreatedAt: ancient, Text: "launch day #KEEP"},
		{ID: 400, CreatedAt: ancient, IsRepost: true, Original: &models.Item{Text: "#keep this one"}},
	} {
		d := p.EvaluatePost(item, now)
		assert.True(t, d.Permanent, "item %d should be permanent", item.ID)
		assert.False(t, d.Remove, "item %d should be kept", item.ID)
	}

	assert.True(t, p.EvaluatePost(&models.Item{ID: 500, CreatedAt: ancient}, now).Remove)
}

func TestEvaluateLike(t *testing.T) {
	p := newPolicy(t, nil)

	old := &models.Item{ID: 1, CreatedAt: now.Add(-4 * day)}
	assert.True(t, p.EvaluateLike(old, now).Remove)

	mention := &models.Item{ID: 2, CreatedAt: now.Add(-4 * day), Text: "hey @pruner"}
	d := p.EvaluateLike(mention, now)
	assert.False(t, d.Remove)
	assert.Equal(t, 10, d.AllowedDays)
}

func TestNewRejectsBadPattern(t *testing.T) {
	cfg := config.DefaultConfig().Retention
	cfg.PermanentPatterns = []string{"(unclosed"}
	_, err := New(&cfg, "pruner")
	assert.Error(t, err)
}

func TestNewRejectsNonPositiveMultiplier(t *testing.T) {
	for _, m := range []float64{0, -1, math.NaN()} {
		cfg := config.DefaultConfig().Retention
		cfg.MaxTweetAgeMultiplier = m
		_, err := New(&cfg, "pruner")
		require.Error(t, err, "multiplier %v", m)
		assert.Contains(t, err.Error(), "multiplier")
	}

	assert.Equal(t, 7.0, newPolicy(t, nil).Multiplier())
}
