package rewrite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
	last  openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", `Here you go: {"a":{"b":2}} thanks`, `{"a":{"b":2}}`},
		{"none", "no json here", ""},
		{"reversed", "} {", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodePatch(t *testing.T) {
	p, err := DecodePatch("```json\n{\"meta_title\":\" 새 제목 \",\"faq\":[{\"q\":\"질문\",\"a\":\"답\"},{\"q\":\"빈\"}]}\n```")
	require.NoError(t, err)
	assert.Equal(t, " 새 제목 ", p.MetaTitle)
	assert.Len(t, p.FAQ, 2)

	for _, bad := range []string{"", "not json", `{"meta_title": 5}`, `{}`, `{"cta":"` + strings.Repeat("x", 101) + `"}`} {
		_, err := DecodePatch(bad)
		assert.ErrorIs(t, err, ErrNoPatch, "input %q", bad)
	}
}

func TestMerge(t *testing.T) {
	base := models.Page{MetaTitle: "old", H1: "old h1", CTA: "old cta", FAQ: []models.FAQItem{{Q: "q", A: "a"}}}
	patch := &Patch{
		MetaTitle: " new ",
		H1:        "   ",
		FAQ:       []models.FAQItem{{Q: "1", A: "a"}, {Q: "2", A: "b"}, {Q: "3", A: "c"}, {Q: "4"}},
	}
	got := Merge(base, patch)

	assert.Equal(t, "new", got.MetaTitle)
	assert.Equal(t, "old h1", got.H1, "blank patch fields are ignored")
	assert.Equal(t, "old cta", got.CTA)
	assert.Len(t, got.FAQ, 3, "incomplete FAQ items are dropped")
	assert.True(t, got.HasFAQJSONLD)
	assert.Equal(t, "q", base.FAQ[0].Q, "base page must not be mutated")

	assert.Equal(t, base.MetaTitle, Merge(base, nil).MetaTitle)
}

func TestClientRewrite(t *testing.T) {
	fake := &fakeCompleter{reply: `{"meta_title":"보습 크림 추천 가이드","body_html":"<p>본문</p>"}`}
	c := newClient(fake, models.RewriteConfig{Model: "test-model", Temperature: 0.2}, testLogger())

	patch, err := c.Rewrite(context.Background(), Request{
		Page:      models.Page{BodyHTML: strings.Repeat("가", maxBodyRunes+50)},
		Issues:    make([]models.Issue, maxIssues+5),
		Targeting: models.Targeting{PrimaryKeyword: "보습 크림"},
	})
	require.NoError(t, err)
	assert.Equal(t, "보습 크림 추천 가이드", patch.MetaTitle)
	assert.Equal(t, "test-model", fake.last.Model)
	require.Len(t, fake.last.Messages, 2)
	assert.Less(t, len([]rune(fake.last.Messages[1].Content)), maxBodyRunes+4000, "payload must stay bounded")
}

func TestClientRewriteErrors(t *testing.T) {
	boom := errors.New("boom")
	c := newClient(&fakeCompleter{err: boom}, models.RewriteConfig{}, testLogger())
	_, err := c.Rewrite(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)

	c = newClient(&fakeCompleter{reply: "I cannot help"}, models.RewriteConfig{}, testLogger())
	_, err = c.Rewrite(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoPatch)
}

func TestClientRateLimitHonoursContext(t *testing.T) {
	fake := &fakeCompleter{reply: `{"cta":"x"}`}
	c := newClient(fake, models.RewriteConfig{PerMinute: 1, Timeout: time.Second}, testLogger())

	_, err := c.Rewrite(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Rewrite(ctx, Request{})
	assert.Error(t, err)
	assert.Equal(t, 1, fake.calls, "second call must not reach the API")
}

func TestClientOptimize(t *testing.T) {
	reply := `{"variants":{"A":{"meta_title":"A 제목","meta_description":"A 설명","faq":[{"q":"q","a":"a"}]},"B":{"meta_title":"B 제목","meta_description":"B 설명"}},"notes":["n"]}`
	c := newClient(&fakeCompleter{reply: reply}, models.RewriteConfig{Model: "m"}, testLogger())

	pack, err := c.Optimize(context.Background(), OptimizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, "openai:m", pack.Source)
	a, ok := pack.Pick(models.VariantA)
	require.True(t, ok)
	assert.Equal(t, "A 제목", a.MetaTitle)
	assert.Len(t, a.FAQ, 1)

	_, err = DecodePack(`{"variants":{"A":{"meta_title":"x","meta_description":"y"}}}`)
	assert.ErrorIs(t, err, ErrNoPatch)
}

func TestTemplateOptimizer(t *testing.T) {
	o := NewTemplateOptimizer(nil)
	pack, err := o.Optimize(context.Background(), OptimizeRequest{
		Targeting: models.Targeting{PrimaryKeyword: "보습 크림", SupportingKeywords: []string{"세라마이드"}, Intent: models.IntentPurchase},
	})
	require.NoError(t, err)

	r := rubric.Default()
	for _, key := range []string{models.VariantA, models.VariantB} {
		v, ok := pack.Pick(key)
		require.True(t, ok)
		assert.Contains(t, v.MetaTitle, "보습 크림")
		assert.Equal(t, "지금 구매하기", v.CTA)
		assert.GreaterOrEqual(t, len(v.FAQ), 3)
		for _, term := range r.QC.Fail {
			assert.NotContains(t, v.QCText(), term)
		}
	}
}

type failingOptimizer struct{}

func (failingOptimizer) Optimize(context.Context, OptimizeRequest) (*models.OptimizePack, error) {
	return nil, errors.New("down")
}

func TestFallback(t *testing.T) {
	f := &Fallback{Primary: failingOptimizer{}, Secondary: NewTemplateOptimizer(nil), Logger: testLogger()}
	pack, err := f.Optimize(context.Background(), OptimizeRequest{Targeting: models.Targeting{PrimaryKeyword: "토너"}})
	require.NoError(t, err)
	assert.Equal(t, "template", pack.Source)
}
