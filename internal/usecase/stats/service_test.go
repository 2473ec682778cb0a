package stats

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tg-chat-stats-bot/internal/domain"
)

type fakeStore struct {
	messages   []domain.Message
	reactions  []domain.Reaction
	users      []domain.User
	stale      bool
	savedUsers [][]domain.User
}

func (f *fakeStore) LoadMessages(context.Context) ([]domain.Message, error)   { return f.messages, nil }
func (f *fakeStore) LoadReactions(context.Context) ([]domain.Reaction, error) { return f.reactions, nil }
func (f *fakeStore) LoadUsers(context.Context) ([]domain.User, error)         { return f.users, nil }

func (f *fakeStore) SaveMessages(_ context.Context, m []domain.Message) error {
	f.messages = m
	return nil
}

func (f *fakeStore) SaveReactions(_ context.Context, r []domain.Reaction) error {
	f.reactions = r
	return nil
}

func (f *fakeStore) SaveUsers(_ context.Context, u []domain.User) error {
	f.users = u
	f.savedUsers = append(f.savedUsers, u)
	return nil
}

func (f *fakeStore) UpdateRequired() (bool, error) { return f.stale, nil }
func (f *fakeStore) ClearUpdateFlag() error        { f.stale = false; return nil }

func (f *fakeStore) MediaPath(id int64, kind domain.MessageKind) string {
	return fmt.Sprintf("/media/%d.%s", id, kind)
}

type fakeCharts struct {
	lastSeries []domain.SeriesPoint
	lastUsers  []string
}

func (f *fakeCharts) Render(series []domain.SeriesPoint, users []string, title, xLabel, yLabel string) (string, error) {
	f.lastSeries = series
	f.lastUsers = users
	return "/tmp/chart.png", nil
}

func newTestService(t *testing.T, store *fakeStore) (*Service, *fakeCharts) {
	t.Helper()
	cache, err := NewTableCache(context.Background(), store, zerolog.Nop())
	require.NoError(t, err)
	charts := &fakeCharts{}
	svc := NewService(cache, store, charts, zerolog.Nop(), warsaw, 5, 100)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, warsaw) }
	return svc, charts
}

func archiveStore() *fakeStore {
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, warsaw)
	store := &fakeStore{
		users: []domain.User{
			{ID: 1, Username: "alice"},
			{ID: 2, Username: "bob", Nicknames: []string{"bobby"}},
		},
	}
	for i := 0; i < 10; i++ {
		store.messages = append(store.messages, domain.Message{
			ID: int64(i + 1), Username: "alice", Timestamp: base.Add(time.Duration(i) * time.Minute),
			Kind: domain.KindText, Text: fmt.Sprintf("msg %d", i+1),
		})
	}
	for i := 0; i < 5; i++ {
		store.messages = append(store.messages, domain.Message{
			ID: int64(100 + i), Username: "bob", Timestamp: base.Add(time.Duration(i) * time.Minute),
			Kind: domain.KindText, Text: fmt.Sprintf("bob %d", i+1),
		})
	}
	for i := 0; i < 8; i++ {
		store.reactions = append(store.reactions, domain.Reaction{
			ReactingUsername: "bob", ReactedToUsername: "alice", Emoji: "🔥", Timestamp: base,
		})
	}
	store.reactions = append(store.reactions, domain.Reaction{
		ReactingUsername: "alice", ReactedToUsername: "bob", Emoji: "👎", Timestamp: base,
	})
	return store
}

func TestSummaryBuildsReport(t *testing.T) {
	svc, _ := newTestService(t, archiveStore())

	replies := svc.Summary(context.Background(), nil)
	require.Len(t, replies, 1)
	require.True(t, replies[0].Markdown)

	text := replies[0].Text
	require.Contains(t, text, "*Chat summary* (total):")
	require.Contains(t, text, "*15 (0%)* messages, *9 (0%)* reactions")
	require.Contains(t, text, "*Top spammer*: alice: *10*, bob: *5*")
	require.Contains(t, text, "*Fun meter*: alice: *0.8*, bob: *0.2*")
	require.Contains(t, text, "*Most disliked*: bob: *1*")
	require.Contains(t, text, "*Top message*: ")
}

func TestSummaryUnknownUserError(t *testing.T) {
	svc, _ := newTestService(t, archiveStore())

	replies := svc.Summary(context.Background(), []string{"nobody"})
	require.Len(t, replies, 1)
	require.False(t, replies[0].Markdown)
	require.Contains(t, replies[0].Text, "There is no such user as nobody.")
	require.Contains(t, replies[0].Text, "alice, bob")
}

func TestTopMessagesStopAtZeroReactions(t *testing.T) {
	// эмодзи привязаны только к первому сообщению alice
	store := archiveStore()
	store.messages[0].ReactionEmojis = []string{"🔥", "🔥"}
	svc, _ := newTestService(t, store)

	replies := svc.TopMessages(context.Background(), nil, domain.EmojiAll)
	require.Len(t, replies, 1)

	lines := strings.Split(replies[0].Text, "\n")
	require.Equal(t, "Top Cinco messages  (total):", lines[0])
	// строки без реакций в листинг не попадают
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "msg 1")
	require.Contains(t, lines[1], "[🔥🔥]")
}

func TestLastMessagesNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, archiveStore())

	replies := svc.LastMessages(context.Background(), []string{"3"})
	require.Len(t, replies, 1)

	lines := strings.Split(replies[0].Text, "\n")
	require.Equal(t, "Last 3 messages:", lines[0])
	require.Len(t, lines, 4)
	require.Contains(t, lines[1], "msg 10")
}

func TestLastMessagesTooLong(t *testing.T) {
	store := archiveStore()
	long := strings.Repeat("x", 400)
	for i := range store.messages {
		store.messages[i].Text = long
	}
	svc, _ := newTestService(t, store)

	replies := svc.LastMessages(context.Background(), []string{"100"})
	require.Equal(t, TooMuchText, replies[0].Text)
}

func TestFunListsAllUsers(t *testing.T) {
	svc, _ := newTestService(t, archiveStore())

	replies := svc.Fun(context.Background(), []string{"week"})
	require.Len(t, replies, 1)
	require.True(t, replies[0].Markdown)
	require.Contains(t, replies[0].Text, "``` Funmeter  (week):")
	require.Contains(t, replies[0].Text, "alice:")
}

func TestFunChartRendersSeriesForAllUsers(t *testing.T) {
	svc, charts := newTestService(t, archiveStore())

	replies := svc.FunChart(context.Background(), nil)
	require.Len(t, replies, 1)
	require.Equal(t, domain.ReplyPhoto, replies[0].Kind)
	require.Equal(t, "/tmp/chart.png", replies[0].MediaPath)
	require.Equal(t, []string{"alice", "bob"}, charts.lastUsers)
	require.NotEmpty(t, charts.lastSeries)
}

func TestReloadIfStalePicksUpNewTables(t *testing.T) {
	store := archiveStore()
	svc, _ := newTestService(t, store)

	store.messages = append(store.messages, domain.Message{
		ID: 999, Username: "bob", Timestamp: time.Date(2024, 5, 10, 11, 0, 0, 0, warsaw),
		Kind: domain.KindText, Text: "fresh",
	})
	store.stale = true

	replies := svc.Summary(context.Background(), nil)
	require.Contains(t, replies[0].Text, "*16 (0%)* messages")
	require.False(t, store.stale, "сигнал обновления должен сниматься после перечитывания")
}

func TestAddNicknameLimit(t *testing.T) {
	store := archiveStore()
	store.users[0].Nicknames = []string{"n1", "n2", "n3", "n4", "n5"}
	svc, _ := newTestService(t, store)

	replies := svc.AddNickname(context.Background(), 1, []string{"another"})
	require.Contains(t, replies[0].Text, "Nicknames limit is 5.")
	require.Empty(t, store.savedUsers, "таблица пользователей не должна сохраняться")
	require.Len(t, store.users[0].Nicknames, 5)
}

func TestAddNicknamePersists(t *testing.T) {
	store := archiveStore()
	svc, _ := newTestService(t, store)

	replies := svc.AddNickname(context.Background(), 2, []string{"the", "builder"})
	require.Contains(t, replies[0].Text, "Nickname *the builder* added for *bob*.")
	require.Len(t, store.savedUsers, 1)
	require.Equal(t, []string{"bobby", "the builder"}, store.users[1].Nicknames)
}

func TestSetUsernameRejectsTaken(t *testing.T) {
	store := archiveStore()
	svc, _ := newTestService(t, store)

	replies := svc.SetUsername(context.Background(), 2, []string{"ALICE"})
	require.Contains(t, replies[0].Text, "already taken")
	require.Empty(t, store.savedUsers)
}

func TestSetUsernamePersists(t *testing.T) {
	store := archiveStore()
	svc, _ := newTestService(t, store)

	replies := svc.SetUsername(context.Background(), 2, []string{"robert"})
	require.Contains(t, replies[0].Text, "Username changed from: *bob* to *robert*.")
	require.Equal(t, "robert", store.users[1].Username)
}

func TestListUsers(t *testing.T) {
	svc, _ := newTestService(t, archiveStore())

	replies := svc.ListUsers(context.Background())
	require.Contains(t, replies[0].Text, "- *alice*: []")
	require.Contains(t, replies[0].Text, "- *bob*: [bobby]")
}

func TestTopMediaSendsFiles(t *testing.T) {
	store := archiveStore()
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, warsaw)
	store.messages = append(store.messages,
		domain.Message{ID: 200, Username: "alice", Timestamp: base, Kind: domain.KindVideo, ReactionEmojis: []string{"🔥"}},
		domain.Message{ID: 201, Username: "bob", Timestamp: base, Kind: domain.KindVideoNote},
	)
	svc, _ := newTestService(t, store)

	replies := svc.TopMedia(context.Background(), nil, domain.KindVideo, domain.EmojiAll)
	require.Equal(t, "Top Cinco video  (total):", replies[0].Text)
	// видео с реакцией, затем видеосообщение (файл + отдельный текст)
	require.Len(t, replies, 4)
	require.Equal(t, domain.ReplyVideo, replies[1].Kind)
	require.Equal(t, "/media/200.video", replies[1].MediaPath)
	require.Equal(t, domain.ReplyVideoNote, replies[2].Kind)
	require.Equal(t, domain.ReplyText, replies[3].Kind)
}
