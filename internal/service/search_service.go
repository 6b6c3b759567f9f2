package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fishinglog/internal/db"
	"gorm.io/gorm"
)

// ErrSearchQueryEmpty 表示搜索词为空
var ErrSearchQueryEmpty = errors.New("search query is required")

const defaultSearchLimit = 50

// CatchHit 是命中的渔获及其所属出钓日期
type CatchHit struct {
	db.FishCaught
	TripDate string `json:"tripDate"`
}

// TripHit 是命中的出钓记录，Snippet 为备注中命中位置附近的纯文本
type TripHit struct {
	db.Trip
	Snippet string `json:"snippet,omitempty"`
}

// SearchResults 汇总出钓与渔获的搜索结果
type SearchResults struct {
	Query   string     `json:"query"`
	Trips   []TripHit  `json:"trips"`
	Catches []CatchHit `json:"catches"`
}

// SearchService 在出钓与渔获文本字段上做不区分大小写的子串匹配
type SearchService struct {
	db *gorm.DB
}

// NewSearchService 构造 SearchService
func NewSearchService(gdb *gorm.DB) *SearchService {
	return &SearchService{db: gdb}
}

// Search 搜索出钓记录（水域、地点、同伴、备注）与渔获（鱼种、描述、钓具）
func (s *SearchService) Search(query string, limit int) (SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResults{}, ErrSearchQueryEmpty
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	like := "%" + escapeLike(strings.ToLower(query)) + "%"
	results := SearchResults{Query: query, Trips: []TripHit{}, Catches: []CatchHit{}}

	var trips []db.Trip
	if err := s.db.
		Where(`LOWER(water) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\' OR LOWER(companions) LIKE ? ESCAPE '\' OR LOWER(notes) LIKE ? ESCAPE '\'`, like, like, like, like).
		Order("date DESC, id DESC").
		Limit(limit).
		Find(&trips).Error; err != nil {
		return results, fmt.Errorf("search trips: %w", err)
	}
	for _, t := range trips {
		results.Trips = append(results.Trips, TripHit{Trip: t, Snippet: snippet(t.Notes, query)})
	}

	var catches []db.FishCaught
	if err := s.db.
		Where(`LOWER(species) LIKE ? ESCAPE '\' OR LOWER(details) LIKE ? ESCAPE '\' OR LOWER(gear) LIKE ? ESCAPE '\'`, like, like, like).
		Order("id DESC").
		Limit(limit).
		Find(&catches).Error; err != nil {
		return results, fmt.Errorf("search catches: %w", err)
	}
	if len(catches) == 0 {
		return results, nil
	}

	tripIDs := make([]uint, 0, len(catches))
	for _, c := range catches {
		tripIDs = append(tripIDs, c.TripID)
	}
	var owners []db.Trip
	if err := s.db.Select("id", "date").Where("id IN ?", tripIDs).Find(&owners).Error; err != nil {
		return results, fmt.Errorf("load catch trips: %w", err)
	}
	dates := make(map[uint]string, len(owners))
	for _, t := range owners {
		dates[t.ID] = t.Date
	}

	for _, c := range catches {
		results.Catches = append(results.Catches, CatchHit{FishCaught: c, TripDate: dates[c.TripID]})
	}
	return results, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

const snippetRadius = 40

// snippet 返回备注渲染为纯文本后命中位置附近的片段
func snippet(notes, query string) string {
	text := []rune(StripMarkup(RenderNotes(notes)))
	if len(text) == 0 {
		return ""
	}
	lower := []rune(strings.ToLower(string(text)))
	if len(lower) != len(text) {
		text = lower
	}
	needle := []rune(strings.ToLower(query))

	at := -1
	for i := 0; i+len(needle) <= len(lower); i++ {
		if string(lower[i:i+len(needle)]) == string(needle) {
			at = i
			break
		}
	}
	if at < 0 {
		return ""
	}

	start := max(at-snippetRadius, 0)
	end := min(at+len(needle)+snippetRadius, len(text))
	out := strings.TrimSpace(string(text[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(text) {
		out += "…"
	}
	return out
}
