package service

import (
	"context"
	"regexp"
	"strings"

	"fintrack/database"
	"fintrack/models"

	"github.com/agnivade/levenshtein"
	"gorm.io/gorm"
)

// 分类方式常量
const (
	MethodUserMapping = "user_mapping"
	MethodExactMatch  = "exact_match"
	MethodFuzzyMatch  = "fuzzy_match"
	MethodDefault     = "default"
)

// ClassifyResult 分类结果
type ClassifyResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// ClassifierService 商户名称自动分类
// 优先级：用户个性化映射 > 关键词精确包含 > 编辑距离模糊匹配 > 未分类，
// 高优先级命中后不再落入低优先级
type ClassifierService struct {
	table     *CategoryTable
	threshold float64 // 模糊匹配接受的最大归一化编辑距离
}

// NewClassifierService 创建分类服务
func NewClassifierService(table *CategoryTable, fuzzyThreshold float64) *ClassifierService {
	if fuzzyThreshold <= 0 || fuzzyThreshold >= 1 {
		fuzzyThreshold = 0.4
	}
	return &ClassifierService{table: table, threshold: fuzzyThreshold}
}

// Classify 对商户名称分类。userID 为 0 时跳过个性化映射
func (s *ClassifierService) Classify(ctx context.Context, userID uint, merchantName string) ClassifyResult {
	name := strings.ToLower(strings.TrimSpace(merchantName))
	if name == "" {
		return ClassifyResult{Category: DefaultCategory, Confidence: 0, Method: MethodDefault}
	}

	if userID > 0 {
		if r, ok := s.lookupUserMapping(ctx, userID, name); ok {
			return r
		}
	}

	if r, ok := s.exactMatch(name); ok {
		return r
	}

	if r, ok := s.fuzzyMatch(name); ok {
		return r
	}

	return ClassifyResult{Category: DefaultCategory, Confidence: 0, Method: MethodDefault}
}

// lookupUserMapping 查询用户个性化映射，置信度高、使用次数多的优先
func (s *ClassifierService) lookupUserMapping(ctx context.Context, userID uint, name string) (ClassifyResult, bool) {
	var mappings []models.CategoryMapping
	err := database.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("confidence DESC, usage_count DESC").
		Find(&mappings).Error
	if err != nil {
		return ClassifyResult{}, false
	}
	for _, m := range mappings {
		if strings.Contains(name, strings.ToLower(m.Keyword)) {
			return ClassifyResult{
				Category:   m.Category,
				Confidence: m.Confidence,
				Method:     MethodUserMapping,
			}, true
		}
	}
	return ClassifyResult{}, false
}

// exactMatch 按固定类别顺序做关键词包含匹配，命中即满置信度
func (s *ClassifierService) exactMatch(name string) (ClassifyResult, bool) {
	for _, category := range s.table.order {
		for _, kw := range s.table.keywords[category] {
			if strings.Contains(name, kw) {
				return ClassifyResult{
					Category:   category,
					Confidence: 1.0,
					Method:     MethodExactMatch,
				}, true
			}
		}
	}
	return ClassifyResult{}, false
}

// fuzzyMatch 在全部关键词里找归一化编辑距离最小的一个，
// 距离低于阈值才接受，置信度 = 1 - 距离
func (s *ClassifierService) fuzzyMatch(name string) (ClassifyResult, bool) {
	bestDist := 1.0
	bestCategory := ""
	for _, category := range s.table.order {
		for _, kw := range s.table.keywords[category] {
			d := normalizedDistance(name, kw)
			if d < bestDist {
				bestDist = d
				bestCategory = category
			}
		}
	}
	if bestCategory == "" || bestDist >= s.threshold {
		return ClassifyResult{}, false
	}
	return ClassifyResult{
		Category:   bestCategory,
		Confidence: round2(1 - bestDist),
		Method:     MethodFuzzyMatch,
	}, true
}

// normalizedDistance 编辑距离除以较长串的字符数，结果在 [0,1]
func normalizedDistance(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	if la == 0 && lb == 0 {
		return 0
	}
	max := la
	if lb > max {
		max = lb
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(max)
}

var keywordStripRe = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// 关键词提取时跳过的虚词
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "in": true, "at": true, "to": true, "for": true,
}

// ExtractKeyword 从商户名提取用于个性化映射的关键词：
// 取第一个长度 ≥3 且非虚词的单词；没有则取清洗后前 20 个字符
func ExtractKeyword(merchantName string) string {
	cleaned := strings.ToLower(strings.TrimSpace(merchantName))
	cleaned = keywordStripRe.ReplaceAllString(cleaned, "")
	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) >= 3 && !stopwords[word] {
			return word
		}
	}
	runes := []rune(strings.TrimSpace(cleaned))
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return string(runes)
}

// SaveUserCorrection 记录用户的人工修正，供后续分类学习。
// 已有映射时使用次数加一、置信度加 0.1（封顶 1.0）并覆盖类别
func (s *ClassifierService) SaveUserCorrection(ctx context.Context, userID uint, merchantName, category string) error {
	keyword := ExtractKeyword(merchantName)
	if keyword == "" {
		return nil
	}

	db := database.DB.WithContext(ctx)
	var existing models.CategoryMapping
	err := db.Where("user_id = ? AND keyword = ?", userID, keyword).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		return db.Create(&models.CategoryMapping{
			UserID:     userID,
			Keyword:    keyword,
			Category:   category,
			Confidence: 0.5,
			UsageCount: 1,
		}).Error
	}

	return db.Model(&existing).Updates(map[string]interface{}{
		"category":    category,
		"usage_count": gorm.Expr("usage_count + 1"),
		"confidence":  gorm.Expr("LEAST(1.0, confidence + 0.1)"),
	}).Error
}

// CategorySuggestion 分类建议
type CategorySuggestion struct {
	Category   string  `json:"category"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// SuggestCategories 给出商户名的候选类别列表，置信度降序，最多 limit 个
func (s *ClassifierService) SuggestCategories(ctx context.Context, userID uint, merchantName string, limit int) []CategorySuggestion {
	if limit <= 0 {
		limit = 3
	}
	name := strings.ToLower(strings.TrimSpace(merchantName))
	if name == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []CategorySuggestion
	add := func(category string, confidence float64, method string) {
		if seen[category] {
			return
		}
		seen[category] = true
		out = append(out, CategorySuggestion{
			Category:   category,
			Label:      s.table.info[category].Label,
			Confidence: confidence,
			Method:     method,
		})
	}

	if userID > 0 {
		if r, ok := s.lookupUserMapping(ctx, userID, name); ok {
			add(r.Category, r.Confidence, r.Method)
		}
	}
	if r, ok := s.exactMatch(name); ok {
		add(r.Category, r.Confidence, r.Method)
	}
	// 模糊候选：每个类别取最小距离，距离达标的都进入候选
	type cand struct {
		category string
		dist     float64
	}
	var cands []cand
	for _, category := range s.table.order {
		best := 1.0
		for _, kw := range s.table.keywords[category] {
			if d := normalizedDistance(name, kw); d < best {
				best = d
			}
		}
		if best < s.threshold {
			cands = append(cands, cand{category, best})
		}
	}
	for len(cands) > 0 && len(out) < limit {
		bi := 0
		for i := range cands {
			if cands[i].dist < cands[bi].dist {
				bi = i
			}
		}
		add(cands[bi].category, round2(1-cands[bi].dist), MethodFuzzyMatch)
		cands = append(cands[:bi], cands[bi+1:]...)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
