package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
)

// TemplateOptimizer drafts a deterministic A/B pack from the rubric's
// canned copy. It is used when no model is configured or the model fails.
type TemplateOptimizer struct {
	r *rubric.Rubric
}

// NewTemplateOptimizer returns an optimizer over r (defaults when nil).
func NewTemplateOptimizer(r *rubric.Rubric) *TemplateOptimizer {
	if r == nil {
		r = rubric.Default()
	}
	return &TemplateOptimizer{r: r}
}

// Optimize builds variant A around selection criteria and variant B around
// the daily routine.
func (o *TemplateOptimizer) Optimize(ctx context.Context, req OptimizeRequest) (*models.OptimizePack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := req.Targeting
	kw := t.Keyword()
	if kw == "" {
		kw = strings.TrimSpace(strings.Split(req.MetaTitle, "|")[0])
	}
	if kw == "" {
		kw = o.r.Enforce.NeutralPhrase
	}
	focus := "성분과 사용감"
	if sup := t.Supporting(); len(sup) > 0 {
		focus = sup[0]
	}
	cta := o.r.Copy.CTAOther
	if t.IsPurchase() {
		cta = o.r.Copy.CTAPurchase
	}

	faq := make([]models.FAQItem, 0, len(o.r.Copy.FAQ))
	for _, f := range o.r.Copy.FAQ {
		faq = append(faq, models.FAQItem{Q: rubric.Fill(f.Q, kw), A: rubric.Fill(f.A, kw)})
	}

	pack := &models.OptimizePack{
		Variants: map[string]models.Variant{
			models.VariantA: {
				MetaTitle:       fmt.Sprintf("%s 고르는 법 | %s 기준으로 비교한 선택 가이드", kw, focus),
				MetaDescription: fmt.Sprintf("%s를 고를 때 확인할 %s, 제형, 사용 루틴을 과장 없이 정리했습니다. 피부 상태에 따라 개인차가 있으니 패치 테스트 후 사용해 보세요.", kw, focus),
				HeroHeadline:    fmt.Sprintf("%s, 기준부터 확인하세요", kw),
				HeroSub:         fmt.Sprintf("%s 중심으로 나에게 맞는 제품을 고르는 방법", focus),
				CTA:             cta,
				FAQ:             faq,
			},
			models.VariantB: {
				MetaTitle:       fmt.Sprintf("%s 데일리 루틴 | 바르는 순서와 양 조절 팁 정리", kw),
				MetaDescription: fmt.Sprintf("%s를 하루 루틴에 자연스럽게 넣는 방법과 계절별 사용 팁, 자주 묻는 질문을 한 번에 확인하세요. 사용 전 패치 테스트를 권장합니다.", kw),
				HeroHeadline:    fmt.Sprintf("매일 쓰는 %s, 이렇게 바르세요", kw),
				HeroSub:         "세안 후 토너 다음 단계부터 마무리까지 한눈에",
				CTA:             cta,
				FAQ:             faq,
			},
		},
		Notes:  []string{"A: 선택 기준 중심 카피", "B: 사용 루틴 중심 카피"},
		Source: "template",
	}
	return pack, nil
}

// Fallback tries Primary and falls back to Secondary on any error.
type Fallback struct {
	Primary   Optimizer
	Secondary Optimizer
	Logger    *slog.Logger
}

// Optimize implements Optimizer.
func (f *Fallback) Optimize(ctx context.Context, req OptimizeRequest) (*models.OptimizePack, error) {
	if f.Primary != nil {
		pack, err := f.Primary.Optimize(ctx, req)
		if err == nil {
			return pack, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if f.Logger != nil {
			f.Logger.Warn("optimizer failed, using fallback", "error", err)
		}
	}
	return f.Secondary.Optimize(ctx, req)
}
