// Package digest composes the daily briefing from the day's schedules.
package digest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"

	"github.com/haruplan/haruplan/server/service/schedule"
	"github.com/haruplan/haruplan/server/timezone"
	"github.com/haruplan/haruplan/store"
)

// emptyDayBody is the briefing body used when the day has no schedules.
const emptyDayBody = "오늘은 등록된 일정이 없습니다. 여유로운 하루 보내세요! 🌿"

// loadFailedBody is the briefing body used when the schedule list cannot be read.
const loadFailedBody = "일정을 불러오지 못했습니다. 앱에서 오늘 일정을 직접 확인해주세요."

// Service builds and stores daily briefings.
type Service struct {
	store     *store.Store
	schedules *schedule.Service
	location  *time.Location
	markdown  goldmark.Markdown
	now       func() time.Time
}

func NewService(st *store.Store, schedules *schedule.Service, location *time.Location) *Service {
	if location == nil {
		location = timezone.LocationAsiaSeoul
	}
	return &Service{
		store:     st,
		schedules: schedules,
		location:  location,
		markdown:  goldmark.New(),
		now:       time.Now,
	}
}

// DateKey formats t as the digest key in the service's timezone.
func (s *Service) DateKey(t time.Time) string {
	return t.In(s.location).Format("2006-01-02")
}

// BuildToday composes today's briefing from the owner's schedules and upserts
// it under today's date key. Rebuilding the same day overwrites the stored row.
func (s *Service) BuildToday(ctx context.Context, ownerID int32) (*store.Digest, error) {
	now := s.now().In(s.location)

	digest := &store.Digest{
		OwnerID: ownerID,
		DateKey: s.DateKey(now),
		Title:   fmt.Sprintf("%s 브리핑", timezone.FormatKoreanDateShort(now)),
	}

	list, err := s.schedules.ListToday(ctx, ownerID)
	if err != nil {
		// A briefing still goes out when the schedule list cannot be read.
		slog.Warn("failed to list today's schedules for briefing", "error", err)
		digest.Summary = "일정 조회 실패"
		digest.ContentMarkdown = fmt.Sprintf("# 🌅 %s\n\n%s\n", timezone.FormatKoreanDateShort(now), loadFailedBody)
	} else {
		digest.Summary = summaryLine(list)
		digest.ContentMarkdown = composeMarkdown(now, list)
		digest.ScheduleCount = int32(len(list))
	}

	saved, err := s.store.UpsertDigest(ctx, digest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to save digest")
	}

	slog.Info("daily briefing built", "dateKey", saved.DateKey, "schedules", saved.ScheduleCount)
	return saved, nil
}

// Get returns the stored digest for the date key, or nil when absent.
func (s *Service) Get(ctx context.Context, ownerID int32, dateKey string) (*store.Digest, error) {
	return s.store.GetDigest(ctx, &store.FindDigest{
		OwnerID: &ownerID,
		DateKey: &dateKey,
	})
}

// RenderHTML converts a digest's markdown body to HTML.
func (s *Service) RenderHTML(digest *store.Digest) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(digest.ContentMarkdown), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render digest markdown")
	}
	return buf.String(), nil
}

func summaryLine(list []*store.Schedule) string {
	if len(list) == 0 {
		return "오늘 일정 없음"
	}
	return fmt.Sprintf("오늘 일정 %d건, 첫 일정 %s", len(list), list[0].Title)
}

func composeMarkdown(now time.Time, list []*store.Schedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 🌅 %s\n\n", timezone.FormatKoreanDateShort(now))

	if len(list) == 0 {
		b.WriteString(emptyDayBody)
		b.WriteString("\n")
		return b.String()
	}

	fmt.Fprintf(&b, "오늘 일정은 모두 %d건입니다.\n\n", len(list))
	for _, item := range list {
		loc := now.Location()
		start := time.Unix(item.StartTs, 0).In(loc)
		fmt.Fprintf(&b, "- **%s** %s", start.Format("15:04"), item.Title)
		if item.RepeatType == "monthly" {
			b.WriteString(" (매달 반복)")
		} else if item.RepeatType == "yearly" {
			b.WriteString(" (매년 반복)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n좋은 하루 보내세요! ✨\n")
	return b.String()
}
