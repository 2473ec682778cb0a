package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tg-chat-stats-bot/internal/domain"
)

func reactionTo(username string, ts time.Time) domain.Reaction {
	return domain.Reaction{ReactingUsername: "someone", ReactedToUsername: username, Emoji: "🔥", Timestamp: ts}
}

func TestFunMetricRatio(t *testing.T) {
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

	var messages []domain.Message
	for i := 0; i < 10; i++ {
		messages = append(messages, msgAt("alice", base.Add(time.Duration(i)*time.Minute)))
	}
	for i := 0; i < 5; i++ {
		messages = append(messages, msgAt("bob", base.Add(time.Duration(i)*time.Minute)))
	}

	var reactions []domain.Reaction
	for i := 0; i < 8; i++ {
		reactions = append(reactions, reactionTo("alice", base))
	}
	reactions = append(reactions, reactionTo("bob", base))

	ratios := FunMetric(messages, reactions)
	require.Equal(t, []Ratio{{Username: "alice", Ratio: 0.8}, {Username: "bob", Ratio: 0.2}}, ratios)
}

func TestFunMetricExcludesUsersWithoutMessages(t *testing.T) {
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{msgAt("alice", base)}
	reactions := []domain.Reaction{
		reactionTo("alice", base),
		// carol получает реакции, но сообщений в окне не имеет
		reactionTo("carol", base),
	}

	ratios := FunMetric(messages, reactions)
	require.Len(t, ratios, 1)
	require.Equal(t, "alice", ratios[0].Username)
}

func TestWholesomeMetric(t *testing.T) {
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	reactions := []domain.Reaction{
		{ReactingUsername: "alice", ReactedToUsername: "bob", Emoji: "🔥", Timestamp: base},
		{ReactingUsername: "alice", ReactedToUsername: "bob", Emoji: "🔥", Timestamp: base},
		{ReactingUsername: "bob", ReactedToUsername: "alice", Emoji: "🔥", Timestamp: base},
	}

	ratios := WholesomeMetric(reactions)
	require.Equal(t, []Ratio{{Username: "alice", Ratio: 2}, {Username: "bob", Ratio: 0.5}}, ratios)
}

func TestWholesomeMetricInnerJoinDropsOneSidedUsers(t *testing.T) {
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	reactions := []domain.Reaction{
		// carol только получает, dave только ставит
		{ReactingUsername: "dave", ReactedToUsername: "carol", Emoji: "🔥", Timestamp: base},
	}
	require.Empty(t, WholesomeMetric(reactions))
}

func TestAscendingRatiosDoesNotMutateSource(t *testing.T) {
	src := []Ratio{{Username: "a", Ratio: 2}, {Username: "b", Ratio: 1}}
	asc := AscendingRatios(src)
	require.Equal(t, "b", asc[0].Username)
	require.Equal(t, "a", src[0].Username)
}

func TestPeriodizedFunMetricInnerJoin(t *testing.T) {
	day1 := time.Date(2024, 5, 10, 10, 0, 0, 0, warsaw)
	day2 := time.Date(2024, 5, 11, 10, 0, 0, 0, warsaw)

	messages := []domain.Message{
		msgAt("alice", day1),
		msgAt("alice", day1.Add(time.Hour)),
		// у alice во второй день есть сообщения, но нет реакций
		msgAt("alice", day2),
	}
	reactions := []domain.Reaction{
		reactionTo("alice", day1),
		// у bob в первый день есть реакции, но нет сообщений
		reactionTo("bob", day1),
	}

	series := PeriodizedFunMetric(messages, reactions, warsaw)
	require.Len(t, series, 1)
	require.Equal(t, "alice", series[0].Username)
	require.Equal(t, 0.5, series[0].Value)
	require.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, warsaw).Unix(), series[0].Day.Unix())
}

func TestPeriodizedFunMetricChronologicalThenDescending(t *testing.T) {
	day1 := time.Date(2024, 5, 10, 10, 0, 0, 0, warsaw)
	day2 := time.Date(2024, 5, 11, 10, 0, 0, 0, warsaw)

	messages := []domain.Message{
		msgAt("low", day2), msgAt("high", day2), msgAt("only", day1),
	}
	reactions := []domain.Reaction{
		reactionTo("only", day1),
		reactionTo("high", day2), reactionTo("high", day2),
		reactionTo("low", day2),
	}

	series := PeriodizedFunMetric(messages, reactions, warsaw)
	require.Len(t, series, 3)
	require.Equal(t, "only", series[0].Username)
	require.Equal(t, "high", series[1].Username)
	require.Equal(t, "low", series[2].Username)
}

func TestSortByReactionsTieBreaksByEarliestTimestamp(t *testing.T) {
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	later := domain.Message{ID: 2, Username: "b", Timestamp: base.Add(time.Hour), ReactionEmojis: []string{"🔥"}}
	earlier := domain.Message{ID: 1, Username: "a", Timestamp: base, ReactionEmojis: []string{"👍"}}
	top := domain.Message{ID: 3, Username: "c", Timestamp: base.Add(2 * time.Hour), ReactionEmojis: []string{"🔥", "👍"}}

	sorted := SortByReactions([]domain.Message{later, earlier, top})
	require.Equal(t, []int64{3, 1, 2}, []int64{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}

func TestRankedCountsStrictlyDescending(t *testing.T) {
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msgAt("bob", base),
		msgAt("alice", base), msgAt("alice", base),
		msgAt("carol", base),
	}
	counts := MessageCounts(messages)
	require.Equal(t, "alice", counts[0].Username)
	for i := 1; i < len(counts); i++ {
		require.LessOrEqual(t, counts[i].Count, counts[i-1].Count)
	}
	// при равном счёте сохраняется порядок самых ранних записей
	require.Equal(t, "bob", counts[1].Username)
	require.Equal(t, "carol", counts[2].Username)
}

func TestNegativeEmojiPartition(t *testing.T) {
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	reactions := []domain.Reaction{
		{ReactingUsername: "a", ReactedToUsername: "b", Emoji: "👎", Timestamp: base},
		{ReactingUsername: "a", ReactedToUsername: "b", Emoji: "🔥", Timestamp: base},
		{ReactingUsername: "a", ReactedToUsername: "b", Emoji: "🗿", Timestamp: base},
	}

	negative := FilterReactions(reactions, domain.EmojiNegative)
	require.Len(t, negative, 2)
	positive := FilterReactions(reactions, domain.EmojiPositive)
	require.Len(t, positive, 1)
	require.Equal(t, "🔥", positive[0].Emoji)
	require.Len(t, FilterReactions(reactions, domain.EmojiAll), 3)
}

func TestFilterMessageReactionsRewritesEmojiLists(t *testing.T) {
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	source := []domain.Message{{
		ID: 1, Username: "a", Timestamp: base,
		ReactionEmojis: []string{"👎", "🔥", "💩"},
	}}

	negative := FilterMessageReactions(source, domain.EmojiNegative)
	require.Equal(t, []string{"👎", "💩"}, negative[0].ReactionEmojis)
	require.Equal(t, []string{"👎", "🔥", "💩"}, source[0].ReactionEmojis)
}
