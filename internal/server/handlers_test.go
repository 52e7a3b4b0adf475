package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/totvocab/internal/ai"
	"github.com/example/totvocab/internal/store"
	"github.com/example/totvocab/pkg/models"
)

// fakeCompleter replays a canned assistant reply.
type fakeCompleter struct {
	reply      string
	err        error
	configured bool
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func (f *fakeCompleter) ChatCompletion(ctx context.Context, messages []ai.Message) (string, error) {
	return f.reply, f.err
}

// failingStore wraps a working store and fails its read paths.
type failingStore struct {
	store.Store
}

func (f *failingStore) GetRecentWords(ctx context.Context, limit int) ([]models.WordRecord, error) {
	return nil, fmt.Errorf("store unreachable")
}

func (f *failingStore) RecentMessages(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	return nil, fmt.Errorf("store unreachable")
}

func newTestServer(st store.Store, completer Completer) *httptest.Server {
	if completer == nil {
		completer = &fakeCompleter{configured: true}
	}
	return httptest.NewServer(New(st, completer).Handler())
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestAddWordMissingFields(t *testing.T) {
	ts := newTestServer(store.NewMemoryStore(), nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/words/add", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "词语和分类是必填项")
}

func TestAddWordCreatesRecord(t *testing.T) {
	st := store.NewMemoryStore()
	ts := newTestServer(st, nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/words/add",
		`{"word":"汽车","category":"交通","context":"在马路上"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Word models.WordRecord `json:"word"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.NotEmpty(t, payload.Word.ID)
	assert.Equal(t, "汽车", payload.Word.Word)
	assert.Equal(t, models.CategoryTransport, payload.Word.Category)
	assert.Equal(t, "在马路上", payload.Word.Context)
	assert.Equal(t, payload.Word.CreatedAt, payload.Word.UpdatedAt)

	stored, err := st.GetWord(context.Background(), payload.Word.ID)
	require.NoError(t, err)
	assert.Equal(t, "汽车", stored.Word)
}

func TestAddWordUnknownCategoryFallsBack(t *testing.T) {
	ts := newTestServer(store.NewMemoryStore(), nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/words/add",
		`{"word":"嗯嗯","category":"没有这个分类"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Word models.WordRecord `json:"word"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, models.CategoryOther, payload.Word.Category)
}

func TestDeleteWord(t *testing.T) {
	st := store.NewMemoryStore()
	ts := newTestServer(st, nil)
	defer ts.Close()

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/words/delete", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/words/delete?id=does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	created, err := st.AddWord(context.Background(), models.WordFields{Word: "苹果", Category: models.CategoryFood})
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodDelete, ts.URL+"/words/delete?id="+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"success":true`)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/words/delete?id="+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatExtractsAndStoresWord(t *testing.T) {
	st := store.NewMemoryStore()
	completer := &fakeCompleter{
		configured: true,
		reply:      "好的，已记录：汽车\n归类为：交通\n场景：在马路上看到的",
	}
	ts := newTestServer(st, completer)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/chat",
		`{"messages":[{"role":"user","content":"宝宝今天会说汽车了"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply ai.Message
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Equal(t, completer.reply, reply.Content)

	// Word record side effect
	words, err := st.GetWordsByCategory(context.Background(), models.CategoryTransport)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "汽车", words[0].Word)
	assert.Equal(t, "在马路上看到的", words[0].Context)

	// Transcript side effect: the user turn and the assistant turn
	messages, err := st.RecentMessages(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
}

func TestChatModifyUpdatesExistingRecord(t *testing.T) {
	st := store.NewMemoryStore()
	created, err := st.AddWord(context.Background(), models.WordFields{Word: "车车", Category: models.CategoryOther})
	require.NoError(t, err)

	completer := &fakeCompleter{
		configured: true,
		reply:      "已修改：汽车\n原词：车车\n新分类：交通",
	}
	ts := newTestServer(st, completer)
	defer ts.Close()

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/chat",
		`{"messages":[{"role":"user","content":"车车其实是汽车"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated, err := st.GetWord(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "汽车", updated.Word)
	assert.Equal(t, models.CategoryTransport, updated.Category)
}

func TestChatClassifyMovesCategory(t *testing.T) {
	st := store.NewMemoryStore()
	created, err := st.AddWord(context.Background(), models.WordFields{Word: "汽车", Category: models.CategoryObject})
	require.NoError(t, err)

	completer := &fakeCompleter{
		configured: true,
		reply:      "已修改：汽车\n原分类：物品\n新分类：交通",
	}
	ts := newTestServer(st, completer)
	defer ts.Close()

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/chat",
		`{"messages":[{"role":"user","content":"汽车应该是交通工具"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated, err := st.GetWord(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "汽车", updated.Word)
	assert.Equal(t, models.CategoryTransport, updated.Category)
}

func TestChatModifyWithoutMatchIsDropped(t *testing.T) {
	st := store.NewMemoryStore()
	completer := &fakeCompleter{
		configured: true,
		reply:      "已修改：火车\n原词：没记过的词\n新分类：交通",
	}
	ts := newTestServer(st, completer)
	defer ts.Close()

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/chat",
		`{"messages":[{"role":"user","content":"改一下"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	recent, err := st.GetRecentWords(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestChatUnconfiguredProvider(t *testing.T) {
	ts := newTestServer(store.NewMemoryStore(), &fakeCompleter{configured: false})
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/chat",
		`{"messages":[{"role":"user","content":"你好"}]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "API密钥未配置")
}

func TestChatProviderFailure(t *testing.T) {
	ts := newTestServer(store.NewMemoryStore(), &fakeCompleter{configured: true, err: fmt.Errorf("upstream down")})
	defer ts.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/chat",
		`{"messages":[{"role":"user","content":"你好"}]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "API调用失败")
}

func TestChatHistoryEmptyOnFailure(t *testing.T) {
	ts := newTestServer(&failingStore{Store: store.NewMemoryStore()}, nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/chat/history", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestListWordsNewestFirst(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	first, err := st.AddWord(ctx, models.WordFields{Word: "一", Category: models.CategoryOther})
	require.NoError(t, err)
	second, err := st.AddWord(ctx, models.WordFields{Word: "二", Category: models.CategoryOther})
	require.NoError(t, err)

	ts := newTestServer(st, nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/words/list", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Words []models.WordRecord `json:"words"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Words, 2)
	assert.Equal(t, second.ID, payload.Words[0].ID)
	assert.Equal(t, first.ID, payload.Words[1].ID)
}

func TestListWordsEmptyOnFailure(t *testing.T) {
	ts := newTestServer(&failingStore{Store: store.NewMemoryStore()}, nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/words/list", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"words":[]`)
}

func TestRecentWordsLimit(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := st.AddWord(ctx, models.WordFields{Word: fmt.Sprintf("词%d", i), Category: models.CategoryOther})
		require.NoError(t, err)
	}

	ts := newTestServer(st, nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/words/recent", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []models.WordRecord
	require.NoError(t, json.Unmarshal(body, &records))
	assert.Len(t, records, 5)
}

func TestStats(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	_, err := st.AddWord(ctx, models.WordFields{Word: "汽车", Category: models.CategoryTransport})
	require.NoError(t, err)
	_, err = st.AddWord(ctx, models.WordFields{Word: "小狗", Category: models.CategoryAnimal})
	require.NoError(t, err)

	ts := newTestServer(st, nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats models.Statistics
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Categories[models.CategoryTransport])
	assert.Equal(t, 1, stats.Categories[models.CategoryAnimal])
	assert.Equal(t, 0, stats.Categories[models.CategoryFood])

	today := 0
	for _, count := range stats.DailyStats {
		today += count
	}
	assert.Equal(t, 2, today)
}

func TestStatsFailure(t *testing.T) {
	ts := newTestServer(&failingStore{Store: store.NewMemoryStore()}, nil)
	defer ts.Close()

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/stats", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "error")
}
