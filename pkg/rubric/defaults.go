package rubric

import "github.com/dtnitsch/landing-ops/models"

// DefaultVersion identifies the built-in table.
const DefaultVersion = "builtin-2025.1"

// RuleIDs lists every audit rule in evaluation order.
var RuleIDs = []string{
	"T001", "T002", "T003", "T004", "T005", "T006", "T007",
	"C001", "C002", "C003", "C004", "C005", "C007",
	"E002", "E001",
	"S001", "S002",
}

// Default returns a fresh copy of the built-in rubric.
func Default() *Rubric {
	return &Rubric{
		Version: DefaultVersion,
		Audit: AuditRules{
			Title:         Window{Min: 30, Max: 60},
			Description:   Window{Min: 70, Max: 160},
			MinH2:         3,
			MinWords:      350,
			MinFAQ:        3,
			MinSupporting: 2,
			MaxDensityPct: 3.0,
			FirstWords:    120,
			WarnsForWarn:  2,
			Rules: map[string]RuleDef{
				"T001": {Severity: models.SeverityFail, Penalty: 25},
				"T002": {Severity: models.SeverityWarn, Penalty: 10},
				"T003": {Severity: models.SeverityFail, Penalty: 25},
				"T004": {Severity: models.SeverityWarn, Penalty: 10},
				"T005": {Severity: models.SeverityWarn, Penalty: 10},
				"T006": {Severity: models.SeverityFail, Penalty: 25},
				"T007": {Severity: models.SeverityInfo, Penalty: 2},
				"C001": {Severity: models.SeverityFail, Penalty: 25},
				"C002": {Severity: models.SeverityWarn, Penalty: 10},
				"C003": {Severity: models.SeverityWarn, Penalty: 10},
				"C004": {Severity: models.SeverityFail, Penalty: 25},
				"C005": {Severity: models.SeverityWarn, Penalty: 10},
				"C007": {Severity: models.SeverityFail, Penalty: 25},
				"E002": {Severity: models.SeverityFail, Penalty: 25},
				"E001": {Severity: models.SeverityWarn, Penalty: 10},
				"S001": {Severity: models.SeverityWarn, Penalty: 10},
				"S002": {Severity: models.SeverityWarn, Penalty: 10},
			},
		},
		Enforce: EnforceRules{
			Title:            Window{Min: 20, Max: 60},
			Description:      Window{Min: 60, Max: 170},
			MinH2Purchase:    3,
			MinH2Other:       2,
			MinWords:         360,
			MaxExpandCycles:  3,
			MinFAQ:           3,
			MinSupporting:    2,
			MaxDensityPct:    3.0,
			DensityStartAt:   4,
			DensityMaxPasses: 12,
			NeutralPhrase:    "해당 제품",
		},
		QuickCheck: QuickCheckRules{
			Title:           Window{Min: 20, Max: 60},
			Description:     Window{Min: 60, Max: 170},
			MinWords:        360,
			MinFAQ:          3,
			MinSupporting:   2,
			MaxDensityPct:   3.5,
			RequiredPhrases: []string{"개인차", "이상 반응"},
		},
		Compliance: Compliance{
			BannedTerms: []string{
				"완치", "치료", "즉시", "무조건", "100%", "부작용 없음", "의사 추천",
				"염증 치료", "아토피 치료", "피부병 치료",
			},
			DisclaimerPhrases: []string{"개인차", "피부 상태", "패치 테스트", "민감한 경우"},
		},
		QC: QCRules{
			Fail:     []string{"완치", "치료", "염증 치료", "아토피 치료", "피부병 치료", "의약품", "부작용 없음", "100%"},
			Warn:     []string{"즉시", "무조건", "완벽", "기적", "단번에", "확실한 효과"},
			FailNote: "치료/의약품 오인/과장 표현 제거 필요",
			WarnNote: "단정/과장 표현을 완화하면 더 안전함",
		},
		AB: ABRules{
			MinViews: 20,
			Alpha:    0.10,
		},
		Copy: defaultCopy(),
	}
}

func defaultCopy() Copy {
	return Copy{
		TitlePad:             "{kw} 가이드 | 고르는 기준과 사용 루틴까지 한눈에 정리",
		DescriptionPad:       "{kw} 선택 기준과 사용 루틴, 자주 묻는 질문을 한곳에 정리했습니다. 피부 상태에 따라 개인차가 있으니 사용 전 패치 테스트를 권장합니다.",
		PassTitlePadPurchase: "| {kw} 구매 가이드",
		PassTitlePadOther:    "| {kw} 핵심 정리",
		PassTitleFallback:    "{kw} 선택 가이드",
		PassDescriptionPad:   "선택 기준, 사용 팁, FAQ까지 과장 없이 정리했습니다. 지금 확인해 보세요",
		PassDescriptionLead:  "{kw} 정보를 정리했습니다.",
		CTAPurchase:          "지금 구매하기",
		CTAOther:             "자세히 보기",
		Sections: []string{
			"<h2>{kw} 핵심 포인트</h2><p>{kw} 제품은 보습 지속감, 사용감, 성분 구성, 그리고 현재 피부 컨디션을 함께 고려해 고르는 것이 좋습니다.</p>",
			"<h2>성분과 구성 체크</h2><p>세라마이드, 판테놀, 히알루론산 등은 보습 루틴에서 자주 언급되는 성분입니다. 다만 개인차가 있으니 처음 사용할 때는 패치 테스트를 권장합니다.</p>",
			"<h2>데일리 사용 루틴</h2><p>세안 후 토너 다음 단계에서 적당량을 얇게 펴 바르고, 건조한 부위에는 소량을 한 번 더 레이어링하세요. 낮에는 자외선 차단제로 마무리합니다.</p>",
		},
		PurchaseSections: []string{
			"<h2>구매 전 확인</h2><ul><li>피부 타입과 민감도에 맞는지 확인(패치 테스트 권장)</li><li>제형과 사용감(계절과 습도에 따라 체감 차이)</li><li>전성분과 알레르기 유발 가능 성분</li></ul>",
		},
		FAQ: []models.FAQItem{
			{Q: "{kw} 민감한 피부에도 사용할 수 있나요?", A: "피부 상태에 따라 개인차가 있으므로 처음 사용할 때는 팔 안쪽 등에 패치 테스트를 해 보는 것을 권장합니다."},
			{Q: "아침과 저녁 모두 사용해도 되나요?", A: "일반적인 보습 루틴에서는 아침과 저녁 모두 사용할 수 있으며, 피부 컨디션에 따라 양을 조절하세요."},
			{Q: "어떤 순서로 바르면 좋나요?", A: "세안, 토너, 에센스나 세럼, 크림 순서로 마무리하는 방식이 일반적입니다."},
			{Q: "향이나 제형이 궁금해요.", A: "제품마다 다르므로 상세 페이지의 표기 정보를 확인하는 것을 권장합니다."},
		},
		Expansions: []string{
			"<h2>{kw} 고르는 기준</h2><p>{kw} 제품을 고를 때는 보습 지속 시간, 바른 직후의 사용감, 흡수 속도와 잔여감, 그리고 계절과 실내 습도 같은 생활 환경을 함께 살펴보는 것이 좋습니다. 같은 제품이라도 건조한 겨울과 습한 여름의 체감이 다를 수 있으므로 한 가지 기준만으로 판단하기보다 여러 요소를 함께 비교해 보세요. 전성분 표기에서 보습 성분이 어느 위치에 적혀 있는지, 향료나 에센셜 오일처럼 자극이 될 수 있는 성분이 들어 있는지도 확인하면 선택이 한결 쉬워집니다. 용량과 용기 형태도 사용 빈도에 맞게 고르면 끝까지 위생적으로 쓰기 좋습니다.</p><h2>바르는 방법과 양 조절</h2><p>세안 후 토너로 피부 결을 정돈한 다음 에센스나 세럼을 흡수시키고 마지막 단계에서 크림을 바르는 순서가 일반적입니다. 한 번에 많은 양을 올리기보다 적당량을 얇게 펴 바른 뒤 건조함이 느껴지는 부위에만 소량을 한 번 더 덧바르는 방식이 편안할 수 있습니다. 아침에는 가볍게 바르고 자외선 차단제로 마무리하며, 저녁에는 조금 더 넉넉하게 발라 밤사이 보습을 유지하는 방법도 많이 활용됩니다.</p>",
			"<h2>계절별 사용 팁</h2><p>가을과 겨울처럼 공기가 건조한 시기에는 크림 양을 조금 늘리거나 수분 레이어를 한 단계 더 추가해 보세요. 반대로 봄과 여름에는 번들거림이 부담스러울 수 있으므로 얇게 한 겹만 바르거나 젤 타입 제형을 함께 고려하는 것도 방법입니다. 냉난방을 오래 사용하는 실내에서는 오후에 건조한 부위에만 소량을 덧바르면 당김을 줄이는 데 도움이 될 수 있습니다. 외출 전후의 피부 컨디션을 기록해 두면 나에게 맞는 양과 횟수를 찾기가 훨씬 수월합니다.</p><h2>함께 쓰면 좋은 루틴</h2><p>보습 루틴은 세정 단계부터 시작됩니다. 지나치게 강한 세안제는 피부를 건조하게 만들 수 있으므로 순한 제품으로 짧게 세안하고 물기를 가볍게 두드려 정리한 뒤 바로 다음 단계로 넘어가는 것이 좋습니다. 각질이 신경 쓰인다면 주 1회 정도 부드러운 각질 관리 후 보습을 충분히 해 주는 방식이 무난합니다. 새로운 제품을 여러 개 동시에 바꾸기보다 하나씩 바꿔 가며 변화를 확인하면 어떤 제품이 잘 맞는지 판단하기 쉽습니다.</p>",
			"<h2>보관과 위생 관리</h2><p>크림은 직사광선과 높은 온도를 피해 서늘한 곳에 보관하고 사용 후에는 뚜껑을 바로 닫아 주세요. 손가락으로 직접 덜어 쓰기보다 전용 스패출러를 사용하면 내용물을 더 위생적으로 관리할 수 있습니다. 개봉 후 사용 기한은 제품마다 다르므로 용기에 표시된 기간을 확인하고, 색이나 냄새가 평소와 다르게 느껴진다면 사용을 멈추는 것이 좋습니다. 여행이나 외출 시에는 소용량 용기에 덜어 다니면 필요한 만큼만 꺼내 쓰기 편합니다.</p><h2>구매 전 체크리스트</h2><p>내 피부 타입과 현재 고민을 먼저 정리하고, 원하는 사용감과 제형을 기준으로 후보를 좁혀 보세요. 상세 페이지의 전성분과 사용 방법, 용량 대비 가격을 비교하고 실제 사용 후기는 피부 타입이 비슷한 사람의 의견을 중심으로 참고하면 도움이 됩니다. 처음 사용하는 제품이라면 작은 용량이나 샘플로 먼저 시험해 보고 잘 맞는지 확인한 뒤 본품을 선택하는 방법도 좋습니다.</p>",
		},
		LeadPurchase:   "<p><b>{kw}</b>{keywords} 기준으로 고르는 포인트와 사용 팁을 정리했습니다. 아래에서 차근차근 확인해 보세요.</p>",
		LeadOther:      "<p><b>{kw}</b>{keywords} 핵심 정보를 먼저 요약합니다. 아래에서 자세히 확인해 보세요.</p>",
		SupportingLine: "<p>함께 찾는 키워드로는 {keywords}도 있으니 같은 기준으로 비교해 보세요.</p>",
		Disclaimer:     "<p><i>※ 안내: 이 페이지는 일반적인 정보를 제공하며 피부 상태에 따라 개인차가 있을 수 있습니다. 처음 사용할 때는 패치 테스트를 권장하며, 사용 중 붉어짐이나 가려움 같은 이상 반응이 있으면 사용을 중단하고 전문가와 상담하세요.</i></p>",
	}
}
